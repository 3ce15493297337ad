package services_test

import (
	"context"
	"testing"

	"podtenuki/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithStage(ctx, "enhancement")
	ctx = services.WithInput(ctx, "/tmp/episode.wav")
	ctx = services.WithJobID(ctx, "abc123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "enhancement" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if input, ok := services.InputFromContext(ctx); !ok || input != "/tmp/episode.wav" {
		t.Fatalf("unexpected input: %v %v", input, ok)
	}
	if job, ok := services.JobIDFromContext(ctx); !ok || job != "abc123" {
		t.Fatalf("unexpected job id: %v %v", job, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
