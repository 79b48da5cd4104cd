package lines

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SplitText breaks raw newline-separated input into line texts, dropping
// blank lines and normalizing each entry.
func SplitText(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	parts := strings.Split(raw, "\n")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		text := normalizeText(part)
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}

// CharCount returns the number of characters billed for a text.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// Snippet truncates text to at most limit characters.
func Snippet(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

func normalizeText(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}
