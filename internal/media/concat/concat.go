package concat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/services"
	"podtenuki/internal/textutil"
)

const (
	defaultOutputDir = "output"
	multiSuffix      = "_concatenated"
	mp3Bitrate       = "192k"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Options controls where the combined file is written.
type Options struct {
	OutputDir  string
	OutputName string
}

// Concatenator joins audio files into a single MP3 with ffmpeg.
type Concatenator struct {
	ffmpeg string
	logger *slog.Logger
	run    commandRunner
}

// Option customizes the concatenator.
type Option func(*Concatenator)

// WithCommandRunner allows injecting a custom command runner for tests.
func WithCommandRunner(r func(ctx context.Context, name string, args ...string) error) Option {
	return func(c *Concatenator) {
		if r != nil {
			c.run = r
		}
	}
}

// New constructs a Concatenator bound to the ffmpeg binary.
func New(ffmpegBinary string, logger *slog.Logger, opts ...Option) *Concatenator {
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}
	c := &Concatenator{
		ffmpeg: ffmpegBinary,
		logger: logging.NewComponentLogger(logger, "concat"),
		run:    defaultCommandRunner,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShouldConcatenate reports whether inputs form a multi-file WAV set.
func ShouldConcatenate(inputs []string) bool {
	if len(inputs) < 2 {
		return false
	}
	for _, input := range inputs {
		if !audio.IsWAV(input) {
			return false
		}
	}
	return true
}

// OutputPath resolves the destination file for inputs. An explicit name wins;
// otherwise the first input's stem is used, marked when several files are joined.
func OutputPath(inputs []string, opts Options) (string, error) {
	if len(inputs) == 0 {
		return "", services.Wrap(services.ErrValidation, "concat", "output path", "no input files", nil)
	}
	dir := strings.TrimSpace(opts.OutputDir)
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("concat: resolve working directory: %w", err)
		}
		dir = filepath.Join(cwd, defaultOutputDir)
	}
	name, err := textutil.OutputFileName(opts.OutputName, "mp3")
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "concat", "output path", "unusable output name", err)
	}
	if name == "" {
		name = audio.Stem(inputs[0])
		if len(inputs) > 1 {
			name += multiSuffix
		}
		name += ".mp3"
	}
	return filepath.Join(dir, name), nil
}

// Concatenate joins inputs in order and returns the output path. The inputs
// are not modified.
func (c *Concatenator) Concatenate(ctx context.Context, inputs []string, opts Options) (string, error) {
	if len(inputs) == 0 {
		return "", services.Wrap(services.ErrValidation, "concat", "inputs", "no input files", nil)
	}
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil || info.IsDir() {
			return "", services.Wrap(services.ErrValidation, "concat", "inputs", fmt.Sprintf("input file %q not found", input), err)
		}
	}

	output, err := OutputPath(inputs, opts)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "concat", "output dir", "create output directory", err)
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("concatenating audio",
		logging.Int("input_count", len(inputs)),
		logging.String("output", output),
	)

	if err := c.run(ctx, c.ffmpeg, buildArgs(inputs, output)...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, "concat", "ffmpeg", "concatenation failed", err)
	}
	if _, err := os.Stat(output); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "concat", "ffmpeg", "ffmpeg produced no output", err)
	}
	logger.Info("concatenation complete", logging.String("output", output))
	return output, nil
}

func buildArgs(inputs []string, output string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	var filter strings.Builder
	for i, input := range inputs {
		args = append(args, "-i", input)
		filter.WriteString("[" + strconv.Itoa(i) + ":a]")
	}
	filter.WriteString("concat=n=" + strconv.Itoa(len(inputs)) + ":v=0:a=1[out]")
	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[out]",
		"-c:a", "libmp3lame",
		"-b:a", mp3Bitrate,
		output,
	)
	return args
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
