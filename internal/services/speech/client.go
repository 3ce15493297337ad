package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"podtenuki/internal/fileutil"
	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/services"
	"podtenuki/internal/usage"
)

const (
	stageName          = "transcription"
	defaultSampleRate  = 16000
	defaultWaitTimeout = 1800 * time.Second
	defaultLanguage    = "ja-JP"
)

// ObjectStore is the cloud storage surface used to stage audio.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	Put(ctx context.Context, loc Locator, r io.Reader, contentType string) error
	Open(ctx context.Context, loc Locator) (io.ReadCloser, error)
}

// Recognizer starts long-running recognition jobs.
type Recognizer interface {
	LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (Operation, error)
}

// Operation is a started recognition job.
type Operation interface {
	Name() string
	Wait(ctx context.Context) (*speechpb.LongRunningRecognizeResponse, error)
}

// Config captures recognition settings.
type Config struct {
	Language        string
	SampleRateHertz int
	Timeout         time.Duration
}

// Transcript is the result of one recognition job.
type Transcript struct {
	Text          string
	Locator       Locator
	OperationName string
	Duration      time.Duration
}

// Client transcribes staged audio with long-running recognition.
type Client struct {
	cfg        Config
	store      ObjectStore
	recognizer Recognizer
	logger     *slog.Logger
	usage      *usage.Tracker
	progress   func(phase string, total int64) io.Writer
}

// Option customizes the client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUsage records transcribed minutes in tracker.
func WithUsage(tracker *usage.Tracker) Option {
	return func(c *Client) { c.usage = tracker }
}

// WithProgress attaches a byte counter to storage uploads.
func WithProgress(factory func(phase string, total int64) io.Writer) Option {
	return func(c *Client) { c.progress = factory }
}

// NewClient wires a client over the given backends.
func NewClient(store ObjectStore, recognizer Recognizer, cfg Config, opts ...Option) *Client {
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.SampleRateHertz <= 0 {
		cfg.SampleRateHertz = defaultSampleRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWaitTimeout
	}
	client := &Client{
		cfg:        cfg,
		store:      store,
		recognizer: recognizer,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "speech")
	return client
}

// EncodingFor maps a file extension to the recognition encoding.
func EncodingFor(path string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return speechpb.RecognitionConfig_LINEAR16
	case ".flac":
		return speechpb.RecognitionConfig_FLAC
	default:
		return speechpb.RecognitionConfig_MP3
	}
}

// Transcribe stages artifact in bucket and waits for the recognition result.
// The bucket must already exist.
func (c *Client) Transcribe(ctx context.Context, artifact audio.Artifact, bucket string) (Transcript, error) {
	ctx = services.WithStage(ctx, stageName)
	logger := logging.WithContext(ctx, c.logger)
	if err := c.requireBucket(ctx, bucket); err != nil {
		return Transcript{}, err
	}
	loc, err := c.UploadToStorage(ctx, bucket, artifact.Path)
	if err != nil {
		return Transcript{}, err
	}

	req := c.recognitionRequest(artifact, loc)
	op, err := c.recognizer.LongRunningRecognize(ctx, req)
	if err != nil {
		return Transcript{}, c.wrapRemote(ctx, "long running recognize", err)
	}
	logger.Info("recognition started",
		logging.String(logging.FieldJobID, op.Name()),
		logging.String("locator", loc.String()),
		logging.String("encoding", req.GetConfig().GetEncoding().String()),
		logging.Int("sample_rate_hertz", int(req.GetConfig().GetSampleRateHertz())),
	)

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	resp, err := op.Wait(waitCtx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Transcript{}, ctxErr
		}
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return Transcript{}, services.Wrap(services.ErrTimeout, stageName, "wait",
				fmt.Sprintf("recognition did not finish within %s", c.cfg.Timeout), err)
		}
		return Transcript{}, c.wrapRemote(ctx, "wait", err)
	}

	duration := artifact.Duration
	if duration <= 0 {
		duration = audio.EstimateDuration(artifact.SizeBytes)
	}
	c.usage.Record(usage.ServiceTranscription, usage.Metric{AudioMinutes: duration.Minutes()})

	text := joinResults(resp)
	logger.Info("recognition complete",
		logging.String(logging.FieldJobID, op.Name()),
		logging.Int("segments", len(resp.GetResults())),
		logging.Int("characters", len([]rune(text))),
	)
	return Transcript{Text: text, Locator: loc, OperationName: op.Name(), Duration: duration}, nil
}

func (c *Client) requireBucket(ctx context.Context, bucket string) error {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "bucket", "storage bucket not configured", nil)
	}
	exists, err := c.store.BucketExists(ctx, bucket)
	if err != nil {
		return c.wrapRemote(ctx, "bucket attrs", err)
	}
	if !exists {
		return services.Wrap(services.ErrConfiguration, stageName, "bucket",
			fmt.Sprintf("bucket %q does not exist; create it first (gcloud storage buckets create gs://%s)", bucket, bucket), nil)
	}
	return nil
}

// UploadToStorage copies path to bucket under its base name.
func (c *Client) UploadToStorage(ctx context.Context, bucket, path string) (Locator, error) {
	file, err := os.Open(path)
	if err != nil {
		return Locator{}, services.Wrap(services.ErrValidation, stageName, "upload", "open input", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return Locator{}, services.Wrap(services.ErrValidation, stageName, "upload", "stat input", err)
	}

	loc := Locator{Bucket: strings.TrimSpace(bucket), Object: filepath.Base(path)}
	var source io.Reader = file
	if c.progress != nil {
		if counter := c.progress("storage upload", info.Size()); counter != nil {
			source = io.TeeReader(file, counter)
			if finisher, ok := counter.(interface{ Finish() }); ok {
				defer finisher.Finish()
			}
		}
	}
	if err := c.store.Put(ctx, loc, source, audio.ContentTypeFor(path)); err != nil {
		return Locator{}, c.wrapRemote(ctx, "storage upload", err)
	}
	c.logger.Info("audio staged",
		logging.String("locator", loc.String()),
		logging.Bytes("size", info.Size()),
	)
	return loc, nil
}

// Open returns the staged object at loc.
func (c *Client) Open(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	r, err := c.store.Open(ctx, loc)
	if err != nil {
		return nil, c.wrapRemote(ctx, "storage read", err)
	}
	return r, nil
}

func (c *Client) recognitionRequest(artifact audio.Artifact, loc Locator) *speechpb.LongRunningRecognizeRequest {
	rate := artifact.SampleRateHertz
	if rate <= 0 {
		rate = c.cfg.SampleRateHertz
	}
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   EncodingFor(artifact.Path),
			SampleRateHertz:            int32(rate),
			LanguageCode:               c.cfg.Language,
			EnableAutomaticPunctuation: true,
			EnableWordTimeOffsets:      true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: loc.String()},
		},
	}
}

func joinResults(resp *speechpb.LongRunningRecognizeResponse) string {
	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		parts = append(parts, alternatives[0].GetTranscript())
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (c *Client) wrapRemote(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrExternalTool, stageName, op, "google cloud request failed", newAPIError(op, err))
}

// TranscriptPath returns <dir>/<stem>.txt for audioPath. An empty dir keeps
// the transcript beside the audio.
func TranscriptPath(audioPath, dir string) string {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(audioPath)
	}
	return filepath.Join(dir, audio.Stem(audioPath)+".txt")
}

// SaveTranscript writes text to path, creating parent directories.
func SaveTranscript(text, path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "save transcript", path, err)
	}
	return nil
}
