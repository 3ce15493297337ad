package auphonic

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OutputFile describes one processed file listed on a production.
type OutputFile struct {
	Filename    string `json:"filename"`
	Ending      string `json:"ending"`
	Format      string `json:"format"`
	DownloadURL string `json:"download_url"`
	Size        int64  `json:"size"`
}

// Production is the remote enhancement job as reported by the status endpoint.
type Production struct {
	UUID           string       `json:"uuid"`
	StatusCode     flexInt      `json:"status"`
	StatusString   string       `json:"status_string"`
	StartAllowed   bool         `json:"start_allowed"`
	ErrorMessage   flexString   `json:"error_message"`
	ErrorStatus    flexString   `json:"error_status"`
	WarningMessage flexString   `json:"warning_message"`
	OutputBasename string       `json:"output_basename"`
	InputFile      string       `json:"input_file"`
	Length         float64      `json:"length"`
	OutputFiles    []OutputFile `json:"output_files"`
}

// Status extracts the classification inputs.
func (p Production) Status() Status {
	return Status{
		Code:           int(p.StatusCode),
		Text:           p.StatusString,
		ErrorMessage:   string(p.ErrorMessage),
		ErrorStatus:    string(p.ErrorStatus),
		WarningMessage: string(p.WarningMessage),
	}
}

// Preset is a saved set of enhancement settings.
type Preset struct {
	UUID string `json:"uuid"`
	Name string `json:"preset_name"`
}

// errorEnvelope is the error shape returned alongside non-2xx statuses.
type errorEnvelope struct {
	StatusCode   int             `json:"status_code"`
	ErrorCode    json.RawMessage `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

// unwrapEnvelope returns the payload inside {"data": ...} or the body itself
// when the response is flat. This is the only place envelope shape is handled.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response body")
	}
	if trimmed[0] != '{' {
		return json.RawMessage(trimmed), nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	data, ok := probe["data"]
	if !ok {
		return json.RawMessage(trimmed), nil
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return json.RawMessage(trimmed), nil
	}
	return data, nil
}

func decodeProduction(body []byte) (Production, error) {
	payload, err := unwrapEnvelope(body)
	if err != nil {
		return Production{}, err
	}
	var production Production
	if err := json.Unmarshal(payload, &production); err != nil {
		return Production{}, fmt.Errorf("decode production: %w", err)
	}
	production.UUID = strings.TrimSpace(production.UUID)
	if production.UUID == "" {
		return Production{}, fmt.Errorf("production response missing uuid (body: %s)", snippet(body))
	}
	return production, nil
}

func decodePresets(body []byte) ([]Preset, error) {
	payload, err := unwrapEnvelope(body)
	if err != nil {
		return nil, err
	}
	var presets []Preset
	if err := json.Unmarshal(payload, &presets); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	return presets, nil
}

// flexString accepts strings, numbers, booleans and null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	if bytes.Equal(data, []byte("false")) || bytes.Equal(data, []byte("0")) {
		*f = ""
		return nil
	}
	*f = flexString(string(data))
	return nil
}

// flexInt accepts numbers and numeric strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	raw := strings.Trim(string(data), `"`)
	if raw == "" {
		*f = 0
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("status code %q: %w", raw, err)
	}
	*f = flexInt(int(value))
	return nil
}

func snippet(body []byte) string {
	clean := strings.Join(strings.Fields(string(body)), " ")
	const limit = 200
	runes := []rune(clean)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	if clean == "" {
		return "<empty>"
	}
	return clean
}
