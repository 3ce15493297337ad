package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary and whether the pipeline can run
// without it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status is the outcome of resolving one Requirement.
type Status struct {
	Requirement
	// Path is the resolved executable, empty when unavailable.
	Path      string
	Version   string
	Available bool
	Detail    string
}

// CheckBinaries resolves every requirement through ResolveTool and records
// the version banner of the binaries it finds. A binary that runs but prints
// no banner still counts as available.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		status := Status{Requirement: req}
		if req.Command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved := ResolveTool(req.Command)
		path, err := exec.LookPath(resolved)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		if version, err := ToolVersion(ctx, path); err == nil {
			status.Version = version
		}
		results = append(results, status)
	}
	return results
}
