package textutil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidName marks an output name that cannot be used as given.
var ErrInvalidName = errors.New("invalid output name")

// OutputFileName turns a user-supplied output name into a single file name
// inside the output directory. Names containing directory separators or
// starting with a dot are rejected. Characters that are unsafe on common
// filesystems are replaced or dropped. A name without an extension gets
// defaultExt; an existing extension is kept. An empty name returns "" so the
// caller can fall back to its own default.
func OutputFileName(name, defaultExt string) (string, error) {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return "", nil
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q must not contain directory separators", ErrInvalidName, name)
	}
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q must not start with a dot", ErrInvalidName, name)
	}

	cleaned := strings.TrimSpace(strings.Map(safeRune, name))
	ext := filepath.Ext(cleaned)
	if strings.TrimSpace(strings.TrimSuffix(cleaned, ext)) == "" {
		return "", fmt.Errorf("%w: %q has no usable characters", ErrInvalidName, name)
	}
	if ext == "" && defaultExt != "" {
		cleaned += "." + strings.TrimPrefix(defaultExt, ".")
	}
	return cleaned, nil
}

func safeRune(r rune) rune {
	switch r {
	case ':', '*':
		return '-'
	case '?', '"', '<', '>', '|':
		return -1
	}
	if unicode.IsControl(r) {
		return -1
	}
	return r
}
