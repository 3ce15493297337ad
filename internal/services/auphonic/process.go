package auphonic

import (
	"context"

	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/services"
	"podtenuki/internal/usage"
)

// Result summarizes one production.
type Result struct {
	Production Production
	Outputs    []string
}

// Process runs submit, upload, readiness, start, polling and download for
// artifact. Outputs are returned only when the production succeeded.
func (c *Client) Process(ctx context.Context, artifact audio.Artifact, presetID, destDir string) (Result, error) {
	ctx = services.WithStage(ctx, stageName)
	production, err := c.Submit(ctx, artifact, presetID)
	if err != nil {
		return Result{}, err
	}
	ctx = services.WithJobID(ctx, production.UUID)
	logger := logging.WithContext(ctx, c.logger)

	if err := c.Upload(ctx, production, artifact); err != nil {
		return Result{Production: production}, err
	}
	ready, err := c.AwaitReady(ctx, production, artifact)
	if err != nil {
		return Result{Production: production}, err
	}
	if err := c.Start(ctx, ready); err != nil {
		return Result{Production: ready}, err
	}
	done, err := c.PollUntilDone(ctx, production.UUID, c.timing.PollInterval, c.timing.PollTimeout)
	if err != nil {
		return Result{Production: production}, err
	}
	outputs, err := c.DownloadOutputs(ctx, production.UUID, destDir, artifact.Path)
	if err != nil {
		return Result{Production: done}, err
	}

	minutes := artifact.Minutes()
	if done.Length > 0 {
		minutes = done.Length / 60
	}
	c.usage.Record(usage.ServiceEnhancement, usage.Metric{AudioMinutes: minutes})
	logger.Info("enhancement complete",
		logging.Int("outputs", len(outputs)),
		logging.Float64("audio_minutes", minutes),
	)
	return Result{Production: done, Outputs: outputs}, nil
}
