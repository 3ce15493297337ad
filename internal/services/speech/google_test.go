package speech

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// committingWriter mimics storage.Writer: Close commits unless the context
// the writer was opened with is already canceled.
type committingWriter struct {
	ctx       context.Context
	buf       bytes.Buffer
	committed bool
	closed    bool
}

func (w *committingWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *committingWriter) Close() error {
	w.closed = true
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.committed = true
	return nil
}

type failingReader struct {
	data []byte
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, r.err
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestPutObjectCommitsCompleteUpload(t *testing.T) {
	var w *committingWriter
	err := putObject(context.Background(), func(ctx context.Context) io.WriteCloser {
		w = &committingWriter{ctx: ctx}
		return w
	}, strings.NewReader("full audio"))
	require.NoError(t, err)
	assert.True(t, w.committed)
	assert.Equal(t, "full audio", w.buf.String())
}

func TestPutObjectDiscardsPartialUpload(t *testing.T) {
	readErr := errors.New("disk went away")
	var w *committingWriter
	err := putObject(context.Background(), func(ctx context.Context) io.WriteCloser {
		w = &committingWriter{ctx: ctx}
		return w
	}, &failingReader{data: []byte("partial"), err: readErr})
	require.ErrorIs(t, err, readErr)
	assert.True(t, w.closed)
	assert.False(t, w.committed, "truncated object must not be committed")
}
