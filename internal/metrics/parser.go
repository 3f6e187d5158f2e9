// Package metrics extracts typed values from free-text metric strings such
// as "280 requests increase in Recreation" or "73.1% growth in Trees".
//
// Parsing is a total function: text that matches none of the known shapes
// yields a ParsedMetric without a value but always with a label.
package metrics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type classifies what a metric string talks about.
type Type string

const (
	TypeGrowth     Type = "growth"
	TypeVolume     Type = "volume"
	TypePercentage Type = "percentage"
	TypeTime       Type = "time"
	TypeUnknown    Type = "unknown"
)

// Units produced by the value ladder.
const (
	UnitPercent  = "%"
	UnitRequests = "requests"
	UnitUnits    = "units"
)

// Trend directions.
const (
	TrendUp   = "up"
	TrendDown = "down"
)

// ParsedMetric is the structured form of one metric string.
// It is never mutated after Parse returns.
type ParsedMetric struct {
	OriginalText string   `json:"original_text"`
	Value        *float64 `json:"value"`
	Unit         string   `json:"unit,omitempty"`
	Category     string   `json:"category,omitempty"`
	MetricType   Type     `json:"metric_type"`
	Trend        string   `json:"trend,omitempty"`
	Label        string   `json:"label"`
}

// HasValue reports whether a numeric value was recovered.
func (m ParsedMetric) HasValue() bool { return m.Value != nil }

// ValueOr returns the value, or def when none was recovered.
func (m ParsedMetric) ValueOr(def float64) float64 {
	if m.Value == nil {
		return def
	}
	return *m.Value
}

// ── value / unit ladder ──

type valueRule struct {
	name string
	re   *regexp.Regexp
	unit func(text string) string
}

func fixedUnit(u string) func(string) string { return func(string) string { return u } }

// valueLadder is evaluated top to bottom, first match wins. The plain
// percentage rule sits above the growth-percentage rule, so the latter only
// documents the shape; any "% growth" text is already caught by the former.
var valueLadder = []valueRule{
	{"percentage", regexp.MustCompile(`([+-]?\d+\.?\d*)\s*%`), fixedUnit(UnitPercent)},
	{"growth_percentage", regexp.MustCompile(`(?i)([+-]?\d+\.?\d*)\s*%\s*growth`), fixedUnit(UnitPercent)},
	{"requests", regexp.MustCompile(`(\d+)\s*requests?`), fixedUnit(UnitRequests)},
	{"increase", regexp.MustCompile(`(?i)([+-]?\d+)\s*(?:requests?|items?|units?)?\s*(?:increase|decrease)`), func(text string) string {
		if strings.Contains(strings.ToLower(text), "request") {
			return UnitRequests
		}
		return UnitUnits
	}},
	{"count", regexp.MustCompile(`(\d+)\s*(?:requests?|items?|units?|cases?)`), fixedUnit(UnitUnits)},
	{"number", regexp.MustCompile(`([+-]?\d+\.?\d*)`), fixedUnit("")},
}

func extractValue(text string) (*float64, string) {
	for _, rule := range valueLadder {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// Out-of-range numbers skip the rule; an infinite value has no
		// drawable bar length.
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		return &v, rule.unit(text)
	}
	return nil, ""
}

// ── keyword tables ──

type keywordSet struct {
	key      string
	keywords []string
}

var typeKeywords = []keywordSet{
	{string(TypeGrowth), []string{"growth", "increase", "decrease", "change", "trend"}},
	{string(TypeVolume), []string{"requests", "volume", "total", "count"}},
	{string(TypePercentage), []string{"%", "percent", "percentage"}},
	{string(TypeTime), []string{"time", "duration", "hours", "days", "minutes"}},
}

var trendKeywords = []keywordSet{
	{TrendUp, []string{"increase", "growth", "up", "rise", "higher", "+"}},
	{TrendDown, []string{"decrease", "decline", "down", "fall", "lower", "-"}},
}

func firstKeywordMatch(text string, table []keywordSet) string {
	lower := strings.ToLower(text)
	for _, set := range table {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.key
			}
		}
	}
	return ""
}

func determineType(text string) Type {
	if t := firstKeywordMatch(text, typeKeywords); t != "" {
		return Type(t)
	}
	return TypeUnknown
}

func determineTrend(text string) string {
	if t := firstKeywordMatch(text, trendKeywords); t != "" {
		return t
	}
	if strings.Contains(text, "+") {
		return TrendUp
	}
	if strings.Contains(text, "-") && !strings.HasPrefix(text, "-") {
		return TrendDown
	}
	return ""
}

// ── category extraction ──

var categoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`in\s+([A-Z][a-zA-Z\s&,]+?)(?:\s|$|,|\.)`),
	regexp.MustCompile(`([A-Z][a-zA-Z\s&,]+?)\s+(?:with|shows|has|is)`),
	regexp.MustCompile(`([A-Z][a-zA-Z\s&,]+?)\s+(?:requests?|growth|increase)`),
}

var categoryFiller = regexp.MustCompile(`(?i)\s+(with|shows|has|is|requests?|growth|increase)`)

// extractCategory is heuristic: ambiguous text can yield a wrong phrase.
func extractCategory(text string) string {
	for _, re := range categoryPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		category := strings.TrimSpace(m[1])
		category = categoryFiller.ReplaceAllString(category, "")
		if len(category) > 3 {
			return category
		}
	}
	return ""
}

// ── labels ──

var (
	labelNumbers = regexp.MustCompile(`\d+\.?\d*\s*%?`)
	labelFiller  = regexp.MustCompile(`(?i)\b(in|with|shows|has|is|requests?|growth|increase|decrease)\b`)
	titleCaser   = cases.Title(language.Und)
)

// TitleCase title-cases s word by word.
func TitleCase(s string) string { return titleCaser.String(s) }

func generateLabel(text string, m ParsedMetric) string {
	switch m.MetricType {
	case TypeGrowth:
		if m.Value != nil {
			return fmt.Sprintf("%+.1f%% Growth", *m.Value)
		}
		return "Growth Rate"
	case TypeVolume:
		if m.Value != nil {
			unit := m.Unit
			if unit == "" {
				unit = "Items"
			}
			return fmt.Sprintf("%d %s", int64(*m.Value), unit)
		}
		return "Volume"
	case TypePercentage:
		if m.Value != nil {
			return fmt.Sprintf("%.1f%%", *m.Value)
		}
		return "Percentage"
	}

	label := labelNumbers.ReplaceAllString(text, "")
	label = labelFiller.ReplaceAllString(label, "")
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return "Metric"
	}
	return TitleCase(label)
}

// Parse turns one metric string into a ParsedMetric. It never fails.
func Parse(text string) ParsedMetric {
	text = strings.TrimSpace(text)
	m := ParsedMetric{OriginalText: text}
	m.Value, m.Unit = extractValue(text)
	m.MetricType = determineType(text)
	m.Category = extractCategory(text)
	m.Trend = determineTrend(text)
	m.Label = generateLabel(text, m)
	return m
}

// ParseAll parses every string, preserving order.
func ParseAll(texts []string) []ParsedMetric {
	out := make([]ParsedMetric, 0, len(texts))
	for _, t := range texts {
		out = append(out, Parse(t))
	}
	return out
}

// WithValue returns the metrics that carry a value.
func WithValue(ms []ParsedMetric) []ParsedMetric {
	var out []ParsedMetric
	for _, m := range ms {
		if m.HasValue() {
			out = append(out, m)
		}
	}
	return out
}

// CountType counts metrics of type t.
func CountType(ms []ParsedMetric, t Type) int {
	n := 0
	for _, m := range ms {
		if m.MetricType == t {
			n++
		}
	}
	return n
}
