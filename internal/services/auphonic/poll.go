package auphonic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"podtenuki/internal/logging"
	"podtenuki/internal/services"
)

// JobFailedError reports a production the service marked as failed.
type JobFailedError struct {
	ID     string
	Reason string
	Status Status
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("production %s failed: %s", e.ID, e.Reason)
}

func (e *JobFailedError) Unwrap() error { return services.ErrJobFailed }

// TimeoutError reports a production still unfinished when polling gave up.
type TimeoutError struct {
	ID      string
	Elapsed time.Duration
	Last    Status
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("production %s not finished after %s (last status %q)", e.ID, e.Elapsed.Round(time.Second), e.Last.Text)
}

func (e *TimeoutError) Unwrap() error { return services.ErrTimeout }

// PollUntilDone re-checks the production every interval until it succeeds,
// fails, or maxWait elapses. Request and decode errors are logged and retried.
func (c *Client) PollUntilDone(ctx context.Context, id string, interval, maxWait time.Duration) (Production, error) {
	if interval <= 0 {
		interval = c.timing.PollInterval
	}
	if maxWait <= 0 {
		maxWait = c.timing.PollTimeout
	}
	logger := c.logger.With(logging.String(logging.FieldJobID, id))
	started := c.now()
	var last Status
	for attempt := 1; ; attempt++ {
		production, err := c.FetchProduction(ctx, id)
		switch {
		case err == nil:
			last = production.Status()
			verdict := c.classifier.Classify(last)
			switch verdict.Verdict {
			case Success:
				logger.Info("production finished",
					logging.Int("checks", attempt),
					logging.Duration("elapsed", c.now().Sub(started)),
				)
				return production, nil
			case Failure:
				return production, &JobFailedError{ID: id, Reason: verdict.Reason, Status: last}
			}
			logger.Debug("production in progress",
				logging.Int("status_code", last.Code),
				logging.String("status", last.Text),
			)
		case ctx.Err() != nil:
			return Production{}, ctx.Err()
		case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
			return Production{}, err
		default:
			logger.Warn("status check failed; will retry",
				logging.Int("check", attempt),
				logging.Error(err),
			)
		}

		elapsed := c.now().Sub(started)
		if elapsed+interval > maxWait {
			return Production{}, &TimeoutError{ID: id, Elapsed: elapsed, Last: last}
		}
		if err := c.wait(ctx, interval); err != nil {
			return Production{}, err
		}
	}
}
