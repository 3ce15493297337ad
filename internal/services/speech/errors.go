package speech

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
)

const maxErrorBody = 1024

// APIError carries the diagnostic detail of a failed Google Cloud call.
type APIError struct {
	Op         string
	StatusCode int
	GRPCCode   string
	Reason     string
	Details    string
	Message    string
	Body       string
	Header     http.Header
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": http %d", e.StatusCode)
	}
	if e.GRPCCode != "" {
		fmt.Fprintf(&b, ": %s", e.GRPCCode)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// newAPIError collects whatever the SDK exposes about err.
func newAPIError(op string, err error) *APIError {
	apiErr := &APIError{Op: op, Message: err.Error(), Err: err}
	if ae, ok := apierror.FromError(err); ok {
		if code := ae.HTTPCode(); code > 0 {
			apiErr.StatusCode = code
		}
		if st := ae.GRPCStatus(); st != nil {
			apiErr.GRPCCode = st.Code().String()
			if msg := st.Message(); msg != "" {
				apiErr.Message = msg
			}
		}
		apiErr.Reason = ae.Reason()
		apiErr.Details = formatMetadata(ae.Domain(), ae.Metadata())
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		apiErr.StatusCode = gerr.Code
		if gerr.Message != "" {
			apiErr.Message = gerr.Message
		}
		apiErr.Body = truncate(gerr.Body, maxErrorBody)
		apiErr.Header = gerr.Header.Clone()
	}
	return apiErr
}

func formatMetadata(domain string, metadata map[string]string) string {
	parts := make([]string, 0, len(metadata)+1)
	if domain != "" {
		parts = append(parts, "domain="+domain)
	}
	for _, key := range slices.Sorted(maps.Keys(metadata)) {
		parts = append(parts, key+"="+metadata[key])
	}
	return strings.Join(parts, " ")
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
