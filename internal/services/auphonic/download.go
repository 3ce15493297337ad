package auphonic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"podtenuki/internal/fileutil"
	"podtenuki/internal/logging"
	"podtenuki/internal/services"
)

// DownloadOutputs fetches the processed files for production id into destDir.
// It tries the direct result path first, then each listed output file, and
// finally copies localInput so the pipeline can continue with the original
// audio. The returned list may be empty; the error is non-nil only when ctx
// ends.
func (c *Client) DownloadOutputs(ctx context.Context, id, destDir, localInput string) ([]string, error) {
	logger := c.logger.With(logging.String(logging.FieldJobID, id))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		logging.WarnWithContext(logger, "cannot create output directory", "download_failed",
			logging.String("dir", destDir),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no enhanced audio written"),
		)
		return nil, nil
	}

	production, err := c.awaitResult(ctx, id)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("result not confirmed; trying downloads anyway", logging.Error(err))
	}
	base := production.OutputBasename
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(localInput), filepath.Ext(localInput))
	}

	if base != "" {
		direct := c.endpoint("download/audio-result/" + url.PathEscape(id) + "/" + url.PathEscape(base) + ".mp3")
		ok, err := c.ProbeDirect(ctx, direct)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			logger.Debug("direct result probe failed", logging.Error(err))
		}
		if ok {
			dst := filepath.Join(destDir, base+".mp3")
			err := c.download(ctx, direct, dst)
			if err == nil {
				return []string{dst}, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("direct result download failed", logging.Error(err))
		}
	}

	var produced []string
	for _, output := range production.OutputFiles {
		target, name := outputSource(c.endpoint(""), id, base, output)
		if target == "" {
			continue
		}
		dst := filepath.Join(destDir, name)
		if err := c.download(ctx, target, dst); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return produced, ctxErr
			}
			logger.Warn("output download failed", logging.String("file", name), logging.Error(err))
			continue
		}
		produced = append(produced, dst)
	}
	if len(produced) > 0 {
		return produced, nil
	}

	if localInput != "" {
		if _, err := os.Stat(localInput); err == nil {
			dst := filepath.Join(destDir, filepath.Base(localInput))
			if sameFile(localInput, dst) {
				return []string{dst}, nil
			}
			if err := fileutil.CopyFileVerified(localInput, dst); err != nil {
				logger.Warn("input copy failed", logging.Error(err))
				return nil, nil
			}
			logging.WarnWithContext(logger, "no enhanced output available; using original audio", logging.EventEnhancementFallback,
				logging.String("path", dst),
				logging.String(logging.FieldImpact, "later stages use the unenhanced input"),
			)
			return []string{dst}, nil
		}
	}
	return nil, nil
}

func (c *Client) awaitResult(ctx context.Context, id string) (Production, error) {
	interval := c.timing.ResultPollInterval
	deadline := c.now().Add(c.timing.ResultPollTimeout)
	var last Production
	var lastErr error
	for {
		production, err := c.FetchProduction(ctx, id)
		if err == nil {
			last = production
			if int(production.StatusCode) == c.classifier.DoneCode {
				return production, nil
			}
			lastErr = nil
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, ctxErr
			}
			lastErr = err
		}
		if !c.now().Add(interval).Before(deadline) {
			if lastErr == nil {
				lastErr = errors.New("production not marked done before result deadline")
			}
			return last, lastErr
		}
		if err := c.wait(ctx, interval); err != nil {
			return last, err
		}
	}
}

func outputSource(root, id, base string, output OutputFile) (string, string) {
	name := strings.TrimSpace(output.Filename)
	ending := strings.TrimPrefix(strings.TrimSpace(output.Ending), ".")
	if output.DownloadURL == "" && ending != "" && strings.TrimSpace(base) != "" {
		name = strings.TrimSpace(base) + "." + ending
	}
	if name == "" && output.DownloadURL != "" {
		name = path.Base(output.DownloadURL)
	}
	if name == "" {
		return "", ""
	}
	name = filepath.Base(name)
	if output.DownloadURL != "" {
		return output.DownloadURL, name
	}
	return strings.TrimRight(root, "/") + "/download/audio-result/" + url.PathEscape(id) + "/" + url.PathEscape(name), name
}

// ProbeDirect reports whether target responds 200 to a HEAD request.
func (c *Client) ProbeDirect(ctx context.Context, target string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, services.Wrap(services.ErrTransient, stageName, "probe", "head request failed", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (c *Client) download(ctx context.Context, target, dst string) error {
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Del("Accept")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransient, stageName, "download", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Method: http.MethodGet, Path: target, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var body io.Reader = resp.Body
	if c.progress != nil {
		if counter := c.progress("download", resp.ContentLength); counter != nil {
			body = io.TeeReader(resp.Body, counter)
			if finisher, ok := counter.(interface{ Finish() }); ok {
				defer finisher.Finish()
			}
		}
	}
	written, err := fileutil.WriteAtomic(ctx, dst, body, 0o644)
	if err != nil {
		return err
	}
	c.logger.Info("downloaded output",
		logging.String("path", dst),
		logging.Bytes("size", written),
	)
	return nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
