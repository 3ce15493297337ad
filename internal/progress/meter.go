package progress

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"podtenuki/internal/logging"
)

// Meter counts bytes flowing through a transfer. On a terminal it draws a
// progress bar on stderr; otherwise it logs sampled percentages.
type Meter struct {
	phase   string
	total   int64
	logger  *slog.Logger
	sampler *logging.ProgressSampler
	bar     *progressbar.ProgressBar

	mu   sync.Mutex
	done int64
}

type options struct {
	terminal *bool
	output   io.Writer
}

// Option customizes a Meter.
type Option func(*options)

// WithTerminal forces bar rendering on or off instead of probing stderr.
func WithTerminal(enabled bool) Option {
	return func(o *options) { o.terminal = &enabled }
}

// WithOutput redirects the bar away from stderr.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// StderrIsTerminal reports whether stderr is attached to a terminal.
func StderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// New starts a meter for phase. total may be <= 0 when unknown.
func New(phase string, total int64, logger *slog.Logger, opts ...Option) *Meter {
	cfg := options{output: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}
	terminal := StderrIsTerminal()
	if cfg.terminal != nil {
		terminal = *cfg.terminal
	}
	m := &Meter{
		phase:   phase,
		total:   total,
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(10),
	}
	if terminal {
		limit := total
		if limit <= 0 {
			limit = -1
		}
		m.bar = progressbar.NewOptions64(limit,
			progressbar.OptionSetWriter(cfg.output),
			progressbar.OptionSetDescription(phase),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	return m
}

// Write records len(p) transferred bytes. It never fails.
func (m *Meter) Write(p []byte) (int, error) {
	n := len(p)
	if m == nil || n == 0 {
		return n, nil
	}
	if m.bar != nil {
		_ = m.bar.Add(n)
	}
	m.mu.Lock()
	m.done += int64(n)
	done := m.done
	m.mu.Unlock()
	if m.bar == nil && m.total > 0 {
		percent := float64(done) / float64(m.total) * 100
		if m.sampler.ShouldLog(percent, m.phase) {
			m.logger.Debug("transfer progress",
				logging.String("phase", m.phase),
				logging.Float64("percent", percent),
				logging.Bytes("transferred", done),
			)
		}
	}
	return n, nil
}

// Transferred returns the byte count seen so far.
func (m *Meter) Transferred() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Finish completes the bar.
func (m *Meter) Finish() {
	if m == nil || m.bar == nil {
		return
	}
	_ = m.bar.Finish()
}
