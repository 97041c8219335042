package inject

import "strings"

// WrapWordsPerLine is the line width used when wrapping helper errors for display.
const WrapWordsPerLine = 7

// Formatter turns raw helper stderr into display text.
type Formatter func(stderr string) string

// CollapseNewlines drops line breaks from helper output.
func CollapseNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "")
}

// WrapWords re-flows s to n whitespace-separated words per line.
func WrapWords(s string, n int) string {
	words := strings.Fields(s)
	if n <= 0 || len(words) == 0 {
		return strings.Join(words, " ")
	}

	var lines []string
	for start := 0; start < len(words); start += n {
		end := start + n
		if end > len(words) {
			end = len(words)
		}
		lines = append(lines, strings.Join(words[start:end], " "))
	}
	return strings.Join(lines, "\n")
}

// WrapSeven wraps at WrapWordsPerLine words.
func WrapSeven(s string) string {
	return WrapWords(s, WrapWordsPerLine)
}
