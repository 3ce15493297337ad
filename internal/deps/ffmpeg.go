package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ResolveTool returns the executable path for a configured tool.
//
// A bare name that is not on PATH is looked up next to the running podtenuki
// executable, which is where release bundles ship ffmpeg. The configured value
// is returned unchanged when nothing is found so callers can report it.
func ResolveTool(configured string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		return ""
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	if self, err := os.Executable(); err == nil {
		if candidate, ok := sidecarCandidate(self, name); ok {
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				return candidate
			}
		}
	}
	return name
}

// ToolVersion runs "<binary> -version" and returns the first output line.
func ToolVersion(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	return "", fmt.Errorf("%s -version: empty output", binary)
}

func sidecarCandidate(selfPath, name string) (string, bool) {
	if selfPath == "" {
		return "", false
	}
	dir := filepath.Dir(selfPath)
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
