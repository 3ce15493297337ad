package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"podtenuki/internal/config"
	"podtenuki/internal/logging"
	"podtenuki/internal/progress"
	"podtenuki/internal/services"
	"podtenuki/internal/usage"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
	runID      string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	trackerOnce sync.Once
	tracker     *usage.Tracker
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		runID:      uuid.NewString(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "invalid configuration", err)
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		verbose := c.verbose != nil && *c.verbose
		logger, err := logging.NewFromConfig(cfg, verbose)
		if err != nil {
			c.loggerErr = services.Wrap(services.ErrConfiguration, "config", "logging", "configure logging", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// usageTracker returns the process-wide cost tracker.
func (c *commandContext) usageTracker() *usage.Tracker {
	c.trackerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			return
		}
		logger, _ := c.ensureLogger()
		c.tracker = usage.NewTracker(usage.PricingFromConfig(cfg.Pricing), logger)
	})
	return c.tracker
}

// runContext annotates ctx with the per-invocation run id.
func (c *commandContext) runContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return services.WithRunID(ctx, c.runID)
}

// progressWriter is the transfer meter factory handed to remote clients.
func (c *commandContext) progressWriter(phase string, total int64) io.Writer {
	return progress.New(phase, total, c.logger)
}
