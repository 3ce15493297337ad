package testsupport

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

// WriteWAV creates path holding a silent 16-bit mono PCM recording of the
// given length.
func WriteWAV(t testing.TB, path string, sampleRate int, length time.Duration) {
	t.Helper()
	if sampleRate <= 0 {
		t.Fatalf("invalid sample rate %d", sampleRate)
	}
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	samples := int(length.Seconds() * float64(sampleRate))
	dataSize := samples * blockAlign

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	le := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("encode wav header: %v", err)
		}
	}
	le(uint32(36 + dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	le(uint32(16))
	le(uint16(1))
	le(uint16(channels))
	le(uint32(sampleRate))
	le(uint32(sampleRate * blockAlign))
	le(uint16(blockAlign))
	le(uint16(bitsPerSample))
	buf.WriteString("data")
	le(uint32(dataSize))
	buf.Write(make([]byte, dataSize))

	writeBytes(t, path, buf.Bytes())
}
