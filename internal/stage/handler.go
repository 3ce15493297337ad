package stage

import (
	"context"
	"log/slog"

	"podtenuki/internal/episode"
)

// Handler describes the contract the pipeline needs from each stage.
type Handler interface {
	Name() string
	Prepare(context.Context, *episode.Episode) error
	Execute(context.Context, *episode.Episode) error
	HealthCheck(context.Context) Health
}

// LoggerAware handlers receive the stage-scoped logger before Prepare.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// Health reports whether a stage has what it needs to run.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy reports a ready stage.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy reports a stage that cannot run and why.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: detail}
}
