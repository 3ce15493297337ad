package auphonic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/services"
)

const octetStream = "application/octet-stream"

type createRequest struct {
	Preset         string         `json:"preset,omitempty"`
	Metadata       createMetadata `json:"metadata"`
	OutputBasename string         `json:"output_basename"`
}

type createMetadata struct {
	Title string `json:"title"`
}

// Submit creates a production for artifact using presetID.
func (c *Client) Submit(ctx context.Context, artifact audio.Artifact, presetID string) (Production, error) {
	stem := artifact.Stem()
	if stem == "" {
		return Production{}, services.Wrap(services.ErrValidation, stageName, "submit", "input path required", nil)
	}
	payload := createRequest{
		Preset:         strings.TrimSpace(presetID),
		Metadata:       createMetadata{Title: stem},
		OutputBasename: stem,
	}
	body, err := c.postJSON(ctx, "productions.json", payload)
	if err != nil {
		return Production{}, c.wrapRequest(ctx, "submit", err)
	}
	production, err := decodeProduction(body)
	if err != nil {
		return Production{}, services.Wrap(services.ErrExternalTool, stageName, "submit", "decode production", err)
	}
	c.logger.Info("production created",
		logging.String(logging.FieldJobID, production.UUID),
		logging.String("preset", payload.Preset),
		logging.String("title", stem),
	)
	return production, nil
}

// Upload streams the artifact as the production input file.
func (c *Client) Upload(ctx context.Context, production Production, artifact audio.Artifact) error {
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = audio.ContentTypeFor(artifact.Path)
	}
	return c.upload(ctx, production.UUID, artifact, contentType)
}

func (c *Client) upload(ctx context.Context, id string, artifact audio.Artifact, contentType string) error {
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrValidation, stageName, "upload", "production id required", nil)
	}
	file, err := os.Open(artifact.Path)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "upload", "open input", err)
	}
	defer file.Close()

	var source io.Reader = file
	if c.progress != nil {
		if counter := c.progress("upload", artifact.SizeBytes); counter != nil {
			source = io.TeeReader(file, counter)
			if finisher, ok := counter.(interface{ Finish() }); ok {
				defer finisher.Finish()
			}
		}
	}

	reader, writer := io.Pipe()
	form := multipart.NewWriter(writer)
	go func() {
		writer.CloseWithError(writeMultipart(form, filepath.Base(artifact.Path), contentType, source))
	}()
	defer reader.Close()

	path := productionPath(id, "/upload.json")
	req, err := c.newRequest(ctx, http.MethodPost, path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.logger.Info("uploading input",
		logging.String(logging.FieldJobID, id),
		logging.String("content_type", contentType),
		logging.Bytes("size", artifact.SizeBytes),
	)
	if _, err := c.do(req, path); err != nil {
		return c.wrapRequest(ctx, "upload", err)
	}
	return nil
}

func writeMultipart(form *multipart.Writer, filename, contentType string, source io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="input_file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, source); err != nil {
		return err
	}
	return form.Close()
}

// UploadRetry recovers from an upload the service never acknowledged.
type UploadRetry interface {
	Retry(ctx context.Context, c *Client, production Production, artifact audio.Artifact) error
}

// OctetStreamRetry re-uploads the input once with a generic content type.
type OctetStreamRetry struct{}

func (OctetStreamRetry) Retry(ctx context.Context, c *Client, production Production, artifact audio.Artifact) error {
	return c.upload(ctx, production.UUID, artifact, octetStream)
}

// AwaitReady waits for the service to accept the uploaded file.
func (c *Client) AwaitReady(ctx context.Context, production Production, artifact audio.Artifact) (Production, error) {
	logger := c.logger.With(logging.String(logging.FieldJobID, production.UUID))
	waits := []time.Duration{c.timing.Settle, c.timing.ExtendedSettle}
	var cause error
	for i, wait := range waits {
		current, ready, err := c.checkReady(ctx, production.UUID, wait)
		if err != nil {
			return Production{}, err
		}
		if ready {
			return current, nil
		}
		logger.Info("upload not yet recognised",
			logging.Int("check", i+1),
			logging.String("status", current.StatusString),
		)
	}
	if c.retry != nil {
		logging.WarnWithContext(logger, "retrying upload", "upload_retry",
			logging.String(logging.FieldErrorHint, "service did not acknowledge the first upload"),
			logging.String(logging.FieldImpact, "input is uploaded again"),
		)
		if err := c.retry.Retry(ctx, c, production, artifact); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Production{}, ctxErr
			}
			logging.WarnWithContext(logger, "retry upload failed", "upload_retry_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the input file and the Auphonic account"),
				logging.String(logging.FieldImpact, "enhancement is abandoned"),
			)
			cause = err
		} else {
			current, ready, err := c.checkReady(ctx, production.UUID, c.timing.RetrySettle)
			if err != nil {
				return Production{}, err
			}
			if ready {
				return current, nil
			}
		}
	}
	return Production{}, services.Wrap(services.ErrNotReady, stageName, "await ready", "remote service did not recognize uploaded file", cause)
}

func (c *Client) checkReady(ctx context.Context, id string, wait time.Duration) (Production, bool, error) {
	if err := c.wait(ctx, wait); err != nil {
		return Production{}, false, err
	}
	current, err := c.FetchProduction(ctx, id)
	if err != nil {
		return Production{}, false, c.wrapRequest(ctx, "await ready", err)
	}
	return current, current.StartAllowed, nil
}

// Start begins processing. It refuses locally when the service has not
// allowed the start.
func (c *Client) Start(ctx context.Context, production Production) error {
	if !production.StartAllowed {
		return services.Wrap(services.ErrNotReady, stageName, "start", "production not ready to start", nil)
	}
	if _, err := c.postJSON(ctx, productionPath(production.UUID, "/start.json"), nil); err != nil {
		return c.wrapRequest(ctx, "start", err)
	}
	c.logger.Info("production started", logging.String(logging.FieldJobID, production.UUID))
	return nil
}

func (c *Client) wrapRequest(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, services.ErrConfiguration) || errors.Is(err, services.ErrValidation) {
		return err
	}
	return services.Wrap(services.ErrExternalTool, stageName, op, "request failed", err)
}
