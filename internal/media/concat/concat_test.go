package concat

import (
	"context"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podtenuki/internal/logging"
	"podtenuki/internal/media/ffprobe"
	"podtenuki/internal/services"
	"podtenuki/internal/testsupport"
)

func writeInputs(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
			t.Fatalf("write input: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

type recordingRunner struct {
	name string
	args []string
	err  error
}

func (r *recordingRunner) run(_ context.Context, name string, args ...string) error {
	r.name = name
	r.args = append([]string(nil), args...)
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(args[len(args)-1], []byte("ID3"), 0o644)
}

func TestOutputPathRules(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	single := []string{"/in/show.wav"}
	multi := []string{"/in/part1.wav", "/in/part2.wav"}
	cases := []struct {
		name   string
		inputs []string
		opts   Options
		want   string
	}{
		{"dir and name", multi, Options{OutputDir: "/out", OutputName: "final.mp3"}, "/out/final.mp3"},
		{"dir only multi", multi, Options{OutputDir: "/out"}, "/out/part1_concatenated.mp3"},
		{"dir only single", single, Options{OutputDir: "/out"}, "/out/show.mp3"},
		{"name only", multi, Options{OutputName: "final.mp3"}, filepath.Join(cwd, "output", "final.mp3")},
		{"unsafe name", multi, Options{OutputDir: "/out", OutputName: "b:c?.mp3"}, "/out/b-c.mp3"},
		{"name without extension", multi, Options{OutputDir: "/out", OutputName: "final"}, "/out/final.mp3"},
		{"neither", multi, Options{}, filepath.Join(cwd, "output", "part1_concatenated.mp3")},
	}
	for _, tc := range cases {
		got, err := OutputPath(tc.inputs, tc.opts)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestOutputPathRejectsEscapingName(t *testing.T) {
	for _, name := range []string{"../final.mp3", "sub/final.mp3", ".final.mp3"} {
		_, err := OutputPath([]string{"/in/a.wav", "/in/b.wav"}, Options{OutputDir: "/out", OutputName: name})
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", name, err)
		}
	}
}

func TestShouldConcatenate(t *testing.T) {
	if ShouldConcatenate([]string{"a.wav"}) {
		t.Fatal("single file must not concatenate")
	}
	if !ShouldConcatenate([]string{"a.wav", "b.WAV"}) {
		t.Fatal("expected multiple wav files to concatenate")
	}
	if ShouldConcatenate([]string{"a.wav", "b.mp3"}) {
		t.Fatal("mixed inputs must not concatenate")
	}
}

func TestConcatenateBuildsFFmpegInvocation(t *testing.T) {
	inputs := writeInputs(t, "part1.wav", "part2.wav", "part3.wav")
	outDir := filepath.Join(t.TempDir(), "out")
	runner := &recordingRunner{}
	c := New("ffmpeg-test", logging.NewNop(), WithCommandRunner(runner.run))

	output, err := c.Concatenate(context.Background(), inputs, Options{OutputDir: outDir})
	if err != nil {
		t.Fatalf("Concatenate returned error: %v", err)
	}
	if output != filepath.Join(outDir, "part1_concatenated.mp3") {
		t.Fatalf("unexpected output %q", output)
	}
	if runner.name != "ffmpeg-test" {
		t.Fatalf("unexpected binary %q", runner.name)
	}
	joined := strings.Join(runner.args, " ")
	for _, fragment := range []string{
		"-i " + inputs[0] + " -i " + inputs[1] + " -i " + inputs[2],
		"[0:a][1:a][2:a]concat=n=3:v=0:a=1[out]",
		"-c:a libmp3lame",
		"-b:a 192k",
	} {
		if !strings.Contains(joined, fragment) {
			t.Fatalf("expected %q in args %q", fragment, joined)
		}
	}
	for _, input := range inputs {
		if _, err := os.Stat(input); err != nil {
			t.Fatalf("input %s must remain untouched: %v", input, err)
		}
	}
}

func TestConcatenateRejectsMissingInput(t *testing.T) {
	inputs := writeInputs(t, "part1.wav")
	inputs = append(inputs, filepath.Join(t.TempDir(), "missing.wav"))
	c := New("ffmpeg", logging.NewNop(), WithCommandRunner((&recordingRunner{}).run))
	_, err := c.Concatenate(context.Background(), inputs, Options{OutputDir: t.TempDir()})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcatenateRejectsEmptyInput(t *testing.T) {
	c := New("ffmpeg", logging.NewNop())
	if _, err := c.Concatenate(context.Background(), nil, Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConcatenateWrapsToolFailure(t *testing.T) {
	inputs := writeInputs(t, "a.wav", "b.wav")
	runner := &recordingRunner{err: errors.New("exit status 1: invalid data")}
	c := New("ffmpeg", logging.NewNop(), WithCommandRunner(runner.run))
	_, err := c.Concatenate(context.Background(), inputs, Options{OutputDir: t.TempDir()})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid data") {
		t.Fatalf("expected tool output in error, got %v", err)
	}
}

// requireTools skips unless ffmpeg with an MP3 encoder and ffprobe are installed.
func requireTools(t *testing.T) (string, string) {
	t.Helper()
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}
	encoders, err := exec.Command(ffmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil || !strings.Contains(string(encoders), "libmp3lame") {
		t.Skip("ffmpeg built without libmp3lame")
	}
	return ffmpegPath, ffprobePath
}

func TestConcatenateJoinsRecordingsEndToEnd(t *testing.T) {
	ffmpegPath, ffprobePath := requireTools(t)

	dir := t.TempDir()
	lengths := []time.Duration{2 * time.Second, 3 * time.Second, 1500 * time.Millisecond}
	inputs := make([]string, 0, len(lengths))
	var want time.Duration
	for i, length := range lengths {
		path := filepath.Join(dir, []string{"intro.wav", "main.wav", "outro.wav"}[i])
		testsupport.WriteWAV(t, path, 16000, length)
		inputs = append(inputs, path)
		want += length
	}

	outDir := filepath.Join(dir, "out")
	c := New(ffmpegPath, logging.NewNop())
	output, err := c.Concatenate(context.Background(), inputs, Options{OutputDir: outDir})
	if err != nil {
		t.Fatalf("Concatenate returned error: %v", err)
	}
	if !strings.HasSuffix(filepath.Base(output), "_concatenated.mp3") {
		t.Fatalf("output %q lacks concatenation marker", output)
	}

	result, err := ffprobe.Inspect(context.Background(), ffprobePath, output)
	if err != nil {
		t.Fatalf("inspect output: %v", err)
	}
	got, ok := result.Duration()
	if !ok {
		t.Fatalf("output duration unknown: %+v", result)
	}
	// MP3 framing pads the stream by up to a few frames.
	if diff := math.Abs(got.Seconds() - want.Seconds()); diff > 0.25 {
		t.Fatalf("duration = %v, want %v (diff %.3fs)", got, want, diff)
	}
	for _, input := range inputs {
		if _, err := os.Stat(input); err != nil {
			t.Fatalf("input %s must remain untouched: %v", input, err)
		}
	}
}
