package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"podtenuki/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "concat", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"concat", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "poll", "status", "http 502", nil), true},
		{"job failed", services.Wrap(services.ErrJobFailed, "poll", "status", "bad audio", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "transcribe", "bucket", "missing", nil), false},
		{"canceled", fmt.Errorf("wait: %w", context.Canceled), false},
		{"plain", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: Retryable=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestExitCodeMapping(t *testing.T) {
	if code := services.ExitCode(nil); code != services.ExitOK {
		t.Fatalf("expected 0 for nil, got %d", code)
	}
	if code := services.ExitCode(fmt.Errorf("pipeline: %w", context.Canceled)); code != services.ExitInterrupted {
		t.Fatalf("expected 130 for cancellation, got %d", code)
	}
	validationErr := services.Wrap(services.ErrValidation, "pipeline", "inputs", "missing file", nil)
	if code := services.ExitCode(validationErr); code != services.ExitFailure {
		t.Fatalf("expected 1 for validation error, got %d", code)
	}
}
