package shownotes

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

const ellipsis = "..."

var titlePrefixes = []string{"title:", "タイトル:", "題名:"}

var topicHeadings = []string{"topic", "トピック", "keyword", "キーワード", "話題"}

// Notes is the parsed show-notes response.
type Notes struct {
	Title          string
	Body           string
	Topics         []string
	TitleTruncated bool
	Language       string
	Model          string
}

// Parse extracts a title, body and topic list from free-form model output.
// The title comes from the first markdown heading or "Title:"-style line,
// else the first non-blank line. Only the title is
// truncated. Body is the response text minus the line that supplied the
// title.
func Parse(text string, maxTitle int) Notes {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	index, title := findTitle(lines)

	var notes Notes
	if index >= 0 {
		notes.Title, notes.TitleTruncated = TruncateTitle(title, maxTitle)
		rest := append(append([]string(nil), lines[:index]...), lines[index+1:]...)
		notes.Body = strings.Trim(strings.Join(rest, "\n"), "\n")
	} else {
		notes.Body = strings.Trim(text, "\n")
	}
	notes.Topics = parseTopics(lines)
	return notes
}

func findTitle(lines []string) (int, string) {
	for i, line := range lines {
		if title, ok := headingText(line); ok && title != "" && !mentionsTopics(title) {
			return i, title
		}
		if title, ok := prefixedTitle(line); ok && title != "" {
			return i, title
		}
	}
	for i, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return i, cleanTitle(trimmed)
		}
	}
	return -1, ""
}

func headingText(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	text := strings.TrimLeft(trimmed, "#")
	if text != "" && text[0] != ' ' && text[0] != '\t' {
		return "", false
	}
	return cleanTitle(text), true
}

func prefixedTitle(line string) (string, bool) {
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*_"))
	folded := strings.ToLower(width.Fold.String(trimmed))
	for _, prefix := range titlePrefixes {
		if strings.HasPrefix(folded, prefix) {
			// Folding can change byte length, so cut by rune count.
			runes := []rune(trimmed)
			cut := utf8.RuneCountInString(prefix)
			if cut > len(runes) {
				return "", false
			}
			return cleanTitle(string(runes[cut:])), true
		}
	}
	return "", false
}

func cleanTitle(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, "*_")
	value = strings.TrimSpace(value)
	for _, pair := range [][2]string{{`"`, `"`}, {"「", "」"}, {"『", "』"}} {
		if strings.HasPrefix(value, pair[0]) && strings.HasSuffix(value, pair[1]) && len(value) > len(pair[0])+len(pair[1]) {
			value = strings.TrimSpace(value[len(pair[0]) : len(value)-len(pair[1])])
		}
	}
	return value
}

// TruncateTitle shortens title to at most limit runes, ending in an ellipsis
// when cut. A non-positive limit disables truncation.
func TruncateTitle(title string, limit int) (string, bool) {
	runes := []rune(title)
	if limit <= 0 || len(runes) <= limit {
		return title, false
	}
	keep := limit - utf8.RuneCountInString(ellipsis)
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + ellipsis, true
}

func parseTopics(lines []string) []string {
	var topics []string
	inSection := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isSectionHeading(trimmed) {
			inSection = mentionsTopics(trimmed)
			continue
		}
		if !inSection {
			continue
		}
		if item, ok := bulletText(trimmed); ok {
			topics = append(topics, item)
			continue
		}
		inSection = false
	}
	return topics
}

func isSectionHeading(line string) bool {
	if strings.HasPrefix(line, "#") {
		return true
	}
	folded := width.Fold.String(strings.Trim(line, "*_ "))
	return strings.HasSuffix(folded, ":") && !strings.HasPrefix(folded, "-")
}

func mentionsTopics(line string) bool {
	lower := strings.ToLower(width.Fold.String(line))
	for _, marker := range topicHeadings {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func bulletText(line string) (string, bool) {
	for _, marker := range []string{"- ", "* ", "• ", "・"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits+1 < len(line) && (line[digits] == '.' || line[digits] == ')') {
		return strings.TrimSpace(line[digits+1:]), true
	}
	return "", false
}
