package shownotes

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"podtenuki/internal/fileutil"
	"podtenuki/internal/logging"
	"podtenuki/internal/media/audio"
	"podtenuki/internal/services"
	"podtenuki/internal/services/llm"
)

const stageName = "summarization"

// Completer is the chat-completion surface the generator needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Completion, error)
}

// Options tune prompt construction and parsing.
type Options struct {
	Temperature        float64
	MaxTokens          int
	MaxTranscriptChars int
	MaxTitleLength     int
	// Language is used when the transcript language cannot be detected.
	Language string
}

// DefaultOptions mirrors the configured defaults.
func DefaultOptions() Options {
	return Options{
		Temperature:        0.7,
		MaxTokens:          1024,
		MaxTranscriptChars: 15000,
		MaxTitleLength:     100,
		Language:           "ja-JP",
	}
}

// Generator turns transcripts into show notes.
type Generator struct {
	client Completer
	opts   Options
	logger *slog.Logger
}

// NewGenerator returns a generator using client.
func NewGenerator(client Completer, opts Options, logger *slog.Logger) *Generator {
	defaults := DefaultOptions()
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.MaxTranscriptChars <= 0 {
		opts.MaxTranscriptChars = defaults.MaxTranscriptChars
	}
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = defaults.MaxTitleLength
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = defaults.Language
	}
	return &Generator{
		client: client,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "shownotes"),
	}
}

// Generate asks the model for a title, description and topic list.
func (g *Generator) Generate(ctx context.Context, transcript string) (Notes, error) {
	if strings.TrimSpace(transcript) == "" {
		return Notes{}, services.Wrap(services.ErrValidation, stageName, "generate", "transcript is empty", nil)
	}
	logger := logging.WithContext(ctx, g.logger)
	text, truncated := truncateRunes(transcript, g.opts.MaxTranscriptChars)
	if truncated {
		logger.Warn("transcript truncated for prompt",
			logging.Int("characters", utf8.RuneCountInString(transcript)),
			logging.Int("limit", g.opts.MaxTranscriptChars),
		)
	}
	lang := g.detectLanguage(text)
	completion, err := g.client.Complete(ctx, llm.Request{
		System:      systemPrompt(lang),
		User:        userPrompt(lang, text, g.opts.MaxTitleLength),
		Temperature: g.opts.Temperature,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		return Notes{}, err
	}
	notes := Parse(llm.StripCodeFence(completion.Content), g.opts.MaxTitleLength)
	if notes.Title == "" {
		return Notes{}, services.Wrap(services.ErrExternalTool, stageName, "generate", "model returned no usable text", nil)
	}
	notes.Language = lang
	notes.Model = completion.Model
	logger.Info("show notes generated",
		logging.String("title", notes.Title),
		logging.Bool("title_truncated", notes.TitleTruncated),
		logging.Int("topics", len(notes.Topics)),
		logging.String("language", lang),
	)
	return notes, nil
}

// detectLanguage returns a two-letter code for text, falling back to the
// configured language when detection is unreliable.
func (g *Generator) detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if info.IsReliable() {
		if code := info.Lang.Iso6391(); code != "" {
			return code
		}
	}
	tag, err := language.Parse(g.opts.Language)
	if err != nil {
		return "ja"
	}
	base, _ := tag.Base()
	return base.String()
}

func truncateRunes(value string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(value) <= limit {
		return value, false
	}
	runes := []rune(value)
	return string(runes[:limit]) + ellipsis, true
}

// SummaryPath returns <dir>/<stem>.summary.md for transcriptPath. An empty
// dir keeps the summary beside the transcript.
func SummaryPath(transcriptPath, dir string) string {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Dir(transcriptPath)
	}
	return filepath.Join(dir, audio.Stem(transcriptPath)+".summary.md")
}

// Render formats notes as markdown.
func Render(notes Notes) string {
	if notes.Body == "" {
		return fmt.Sprintf("# %s\n", notes.Title)
	}
	return fmt.Sprintf("# %s\n\n%s", notes.Title, notes.Body)
}

// Save writes the rendered notes to path, creating parent directories.
func Save(notes Notes, path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(Render(notes)), 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "save", path, err)
	}
	return nil
}
