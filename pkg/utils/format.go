// Package utils provides number, text and time formatting shared by the
// report renderers and the CLI.
package utils

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer groups thousands with commas ("1,234,567").
var printer = message.NewPrinter(language.English)

// FormatGrouped formats n rounded to decimals places with thousands grouping.
// e.g., FormatGrouped(1234.56, 1) → "1,234.6"
func FormatGrouped(n float64, decimals int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Sprint(n)
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", decimals), n)
}

// FormatInt formats an integer with thousands grouping.
func FormatInt(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatValue applies the chart value-label policy:
//
//	unit "%"      → "+12.3%"
//	|v| < 1       → "+0.25"
//	|v| < 100     → "+12.3"
//	otherwise     → "1,235"
//
// Any other non-empty unit is appended after a space.
func FormatValue(v float64, unit string) string {
	var s string
	switch {
	case unit == "%":
		s = fmt.Sprintf("%+.1f%%", v)
	case math.Abs(v) < 1:
		s = fmt.Sprintf("%+.2f", v)
	case math.Abs(v) < 100:
		s = fmt.Sprintf("%+.1f", v)
	default:
		s = FormatGrouped(v, 0)
	}
	if unit != "" && unit != "%" {
		s += " " + unit
	}
	return s
}

// FormatPct formats a percentage with sign and one decimal.
// e.g., 2.45 → "+2.5%", -1.23 → "-1.2%"
func FormatPct(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Plural returns "<n> <word>" with an "s" appended when n != 1.
func Plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// Humanize turns a snake_case key into space separated words.
func Humanize(key string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " ")
}
