package visual

import (
	"strings"

	"github.com/seenimoa/crmreport/pkg/utils"
)

const ellipsis = "..."

// Wrap breaks text into lines no wider than maxWidth, on word boundaries.
// A single word wider than maxWidth is cut with an ellipsis so no line
// overflows. Empty text yields no lines.
func Wrap(m Measurer, text string, f Font, maxWidth float64) []string {
	var lines []string
	var cur []string
	curWidth := 0.0
	space := m.StringWidth(" ", f)

	for _, word := range strings.Fields(text) {
		w := m.StringWidth(word, f)
		if w > maxWidth {
			word = Fit(m, word, f, maxWidth)
			w = m.StringWidth(word, f)
		}
		next := curWidth + w
		if len(cur) > 0 {
			next += space
		}
		if len(cur) > 0 && next > maxWidth {
			lines = append(lines, strings.Join(cur, " "))
			cur, curWidth = nil, 0
			next = w
		}
		cur = append(cur, word)
		curWidth = next
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}

// Fit shortens s with a trailing ellipsis until it fits maxWidth.
func Fit(m Measurer, s string, f Font, maxWidth float64) string {
	if m.StringWidth(s, f) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for n := len(runes) - 1; n > 0; n-- {
		cand := string(runes[:n]) + ellipsis
		if m.StringWidth(cand, f) <= maxWidth {
			return cand
		}
	}
	if m.StringWidth(ellipsis, f) <= maxWidth {
		return ellipsis
	}
	return ""
}

// Truncate cuts s to n characters without an ellipsis.
func Truncate(s string, n int) string { return utils.Truncate(s, n) }

// FormatValue applies the value-label policy shared by the bar primitives.
func FormatValue(v float64, unit string) string { return utils.FormatValue(v, unit) }
