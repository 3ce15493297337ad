package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podtenuki/internal/services"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	stdout, stderr, code := runCLI(t, "config", "init", "--path", target)
	if code != services.ExitOK {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if !strings.Contains(stdout, target) {
		t.Fatalf("expected target path in output, got %q", stdout)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[enhancement]") {
		t.Fatalf("sample config missing enhancement section")
	}

	_, stderr, code = runCLI(t, "config", "init", "--path", target)
	if code != services.ExitFailure || !strings.Contains(stderr, "already exists") {
		t.Fatalf("expected refusal to overwrite, got code %d stderr %q", code, stderr)
	}
	if _, _, code = runCLI(t, "config", "init", "--path", target, "--overwrite"); code != services.ExitOK {
		t.Fatalf("expected overwrite to succeed, got %d", code)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	clearCredentialEnv(t)
	cfgPath := writeTestConfig(t, "[enhancement]\napi_key = \"auphonic-secret-key\"\n")
	stdout, stderr, code := runCLI(t, "-c", cfgPath, "config", "show")
	if code != services.ExitOK {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, stderr)
	}
	if strings.Contains(stdout, "auphonic-secret-key") {
		t.Fatal("secret leaked in config show output")
	}
	if !strings.Contains(stdout, "auph****-key") {
		t.Fatalf("expected masked key, got %q", stdout)
	}
}

func TestConfigValidateReportsMissingCredentials(t *testing.T) {
	clearCredentialEnv(t)
	cfgPath := writeTestConfig(t, "")
	stdout, _, code := runCLI(t, "-c", cfgPath, "config", "validate")
	if code != services.ExitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(stdout, "Configuration valid") || !strings.Contains(stdout, "Warning:") {
		t.Fatalf("unexpected validate output %q", stdout)
	}
}
