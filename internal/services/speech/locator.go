package speech

import (
	"fmt"
	"strings"
)

const locatorScheme = "gs://"

// Locator addresses one object in cloud storage.
type Locator struct {
	Bucket string
	Object string
}

func (l Locator) String() string {
	return locatorScheme + l.Bucket + "/" + l.Object
}

// ParseLocator parses a gs://bucket/object URI.
func ParseLocator(raw string) (Locator, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, locatorScheme) {
		return Locator{}, fmt.Errorf("locator %q: missing %s prefix", raw, locatorScheme)
	}
	bucket, object, ok := strings.Cut(strings.TrimPrefix(trimmed, locatorScheme), "/")
	if !ok || bucket == "" || object == "" {
		return Locator{}, fmt.Errorf("locator %q: expected gs://bucket/object", raw)
	}
	return Locator{Bucket: bucket, Object: object}, nil
}
