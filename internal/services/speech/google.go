package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GoogleBackend holds the Google Cloud SDK clients.
type GoogleBackend struct {
	storage *storage.Client
	speech  *speechapi.Client
}

// NewGoogleBackend dials storage and speech using credentialsFile, or the
// application default credentials when it is empty.
func NewGoogleBackend(ctx context.Context, credentialsFile string) (*GoogleBackend, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	speechClient, err := speechapi.NewClient(ctx, opts...)
	if err != nil {
		_ = storageClient.Close()
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleBackend{storage: storageClient, speech: speechClient}, nil
}

// Store exposes Cloud Storage as an ObjectStore.
func (g *GoogleBackend) Store() ObjectStore { return gcsStore{client: g.storage} }

// Recognizer exposes Speech-to-Text as a Recognizer.
func (g *GoogleBackend) Recognizer() Recognizer { return speechRecognizer{client: g.speech} }

// Close releases both SDK clients.
func (g *GoogleBackend) Close() error {
	return errors.Join(g.speech.Close(), g.storage.Close())
}

type gcsStore struct {
	client *storage.Client
}

func (s gcsStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.Bucket(bucket).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrBucketNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (s gcsStore) Put(ctx context.Context, loc Locator, r io.Reader, contentType string) error {
	return putObject(ctx, func(ctx context.Context) io.WriteCloser {
		w := s.client.Bucket(loc.Bucket).Object(loc.Object).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}, r)
}

// putObject streams r into a writer bound to a cancelable context. Closing a
// storage writer commits the object, so a failed copy cancels the context
// first and the partial upload is discarded.
func putObject(ctx context.Context, open func(context.Context) io.WriteCloser, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := open(ctx)
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s gcsStore) Open(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	return s.client.Bucket(loc.Bucket).Object(loc.Object).NewReader(ctx)
}

type speechRecognizer struct {
	client *speechapi.Client
}

func (r speechRecognizer) LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (Operation, error) {
	op, err := r.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return speechOperation{op: op}, nil
}

type speechOperation struct {
	op *speechapi.LongRunningRecognizeOperation
}

func (o speechOperation) Name() string { return o.op.Name() }

func (o speechOperation) Wait(ctx context.Context) (*speechpb.LongRunningRecognizeResponse, error) {
	return o.op.Wait(ctx)
}
