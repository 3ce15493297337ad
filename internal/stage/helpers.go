package stage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"podtenuki/internal/services"
)

// SkipError tells the runner a stage has nothing to do. It is not a failure.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "stage skipped: " + e.Reason
}

// Skip returns a SkipError carrying reason.
func Skip(reason string) error {
	return &SkipError{Reason: strings.TrimSpace(reason)}
}

// SkipReason reports whether err asks for the stage to be skipped.
func SkipReason(err error) (string, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip.Reason, true
	}
	return "", false
}

// RequireFile checks that path names an existing regular file.
// On failure it returns a services.ErrValidation suitable for stage Prepare methods.
func RequireFile(stageName, what, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrValidation, stageName, "require file",
			fmt.Sprintf("%s path is empty", what), nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageName, "require file",
			fmt.Sprintf("%s not found: %s", what, path), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, stageName, "require file",
			fmt.Sprintf("%s is a directory: %s", what, path), nil)
	}
	return nil
}
