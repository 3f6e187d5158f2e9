package narrative

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/seenimoa/crmreport/internal/metrics"
	"github.com/seenimoa/crmreport/pkg/utils"
)

// Fallback texts name categories and use qualitative descriptors only; the
// figures themselves are shown by the charts.

// ════════════════════════════════════════════════════════════════════
// Metric helpers
// ════════════════════════════════════════════════════════════════════

func abs(v float64) float64 { return math.Abs(v) }

// nonZero returns the metrics of type t with a non-zero value, in order.
func nonZero(ms []metrics.ParsedMetric, t metrics.Type) []metrics.ParsedMetric {
	var out []metrics.ParsedMetric
	for _, m := range ms {
		if m.MetricType == t && m.Value != nil && *m.Value != 0 {
			out = append(out, m)
		}
	}
	return out
}

func byMagnitude(ms []metrics.ParsedMetric) []metrics.ParsedMetric {
	out := append([]metrics.ParsedMetric(nil), ms...)
	sort.SliceStable(out, func(i, j int) bool { return abs(*out[i].Value) > abs(*out[j].Value) })
	return out
}

func byValue(ms []metrics.ParsedMetric) []metrics.ParsedMetric {
	out := append([]metrics.ParsedMetric(nil), ms...)
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Value > *out[j].Value })
	return out
}

// GrowthDescriptor buckets a growth percentage: >75 exceptional, >50
// substantial, >20 moderate, else notable.
func GrowthDescriptor(pct float64) string {
	switch a := abs(pct); {
	case a > 75:
		return "exceptional"
	case a > 50:
		return "substantial"
	case a > 20:
		return "moderate"
	default:
		return "notable"
	}
}

// ════════════════════════════════════════════════════════════════════
// Category detection
// ════════════════════════════════════════════════════════════════════

// longNames expands short category names to the full CRM category title.
var longNames = map[string]string{
	"roads":       "Roads, traffic and sidewalks",
	"engineering": "Engineering, infrastructure and construction",
}

// mentioned returns the known categories that text mentions, in list order.
func (s *Synthesizer) mentioned(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, c := range s.categories() {
		if c != "" && strings.Contains(lower, strings.ToLower(c)) {
			out = append(out, c)
		}
	}
	return out
}

// keyword is the lower-case stem used to spot a category in an insight:
// the name up to its first comma or " and ".
func keyword(category string) string {
	k := strings.ToLower(category)
	if i := strings.Index(k, ","); i >= 0 {
		k = k[:i]
	}
	if i := strings.Index(k, " and "); i >= 0 {
		k = k[:i]
	}
	return strings.TrimSpace(k)
}

func containsAny(text string, words ...string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var sentenceEnd = regexp.MustCompile(`\.(\s|$)`)

// firstSentence returns the text up to the first full stop that ends a
// sentence, and whether anything follows it.
func firstSentence(text string) (string, bool) {
	loc := sentenceEnd.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text), false
	}
	return strings.TrimSpace(text[:loc[0]]), strings.TrimSpace(text[loc[1]:]) != ""
}

// ════════════════════════════════════════════════════════════════════
// Sections
// ════════════════════════════════════════════════════════════════════

func (s *Synthesizer) fallbackIntroduction(in Input) string {
	if in.Answer == "" {
		return "This report presents a comprehensive analysis of CRM service request trends and patterns based on quantitative data analysis."
	}
	intro := "This report presents a comprehensive analysis of CRM service request trends and patterns across key service categories"
	if cats := s.mentioned(in.Answer); len(cats) > 0 {
		intro += " including " + strings.Join(firstN(cats, 3), ", ")
	}
	intro += "."
	if containsAny(in.Answer, "trending", "increase", "growth") {
		intro += " The analysis identifies significant growth patterns and emerging trends that impact service delivery and resource allocation."
	} else {
		intro += " The analysis examines request volumes, growth rates, and category distributions to inform strategic planning."
	}
	return intro
}

func fallbackExecutiveSummary(in Input, valued []metrics.ParsedMetric) string {
	var parts []string
	if growth := byMagnitude(nonZero(valued, metrics.TypeGrowth)); len(growth) > 0 {
		top := growth[0]
		var cats []string
		for _, m := range firstN(growth, 2) {
			if m.Category != "" {
				cats = append(cats, m.Category)
			}
		}
		desc := GrowthDescriptor(*top.Value) + " growth"
		if abs(*top.Value) <= 20 {
			desc = "notable changes"
		}
		subject := "key service categories"
		switch {
		case len(cats) >= 2:
			subject = strings.Join(cats, ", ")
		case top.Category != "":
			subject = top.Category
		}
		parts = append(parts, fmt.Sprintf(
			"This analysis reveals %s are experiencing %s, requiring strategic resource allocation to maintain service quality.", subject, desc))
	}
	if volume := byValue(nonZero(valued, metrics.TypeVolume)); len(parts) < 2 && len(volume) > 0 && volume[0].Category != "" {
		parts = append(parts, volume[0].Category+" represents a high-volume service area requiring focused capacity planning.")
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}

	if in.Answer != "" {
		if first, more := firstSentence(in.Answer); more {
			return "This analysis reveals significant trends in service request patterns. " + qualitative(first) + "."
		}
		return "This analysis reveals significant trends: " + qualitative(in.Answer)
	}
	return "This analysis reveals significant trends in service request patterns that require strategic attention."
}

func fallbackInsights(valued []metrics.ParsedMetric) []string {
	var insights []string
	growth := nonZero(valued, metrics.TypeGrowth)
	volume := nonZero(valued, metrics.TypeVolume)

	// Leading growth compared with the runner-up.
	if len(growth) >= 2 {
		sorted := byMagnitude(growth)
		top, second := sorted[0], sorted[1]
		comparison, implication := "somewhat higher", "shows emerging importance"
		switch diff := abs(*top.Value) - abs(*second.Value); {
		case diff > 30:
			comparison, implication = "significantly higher", "represents a distinct priority area"
		case diff > 15:
			comparison, implication = "notably higher", "warrants focused attention"
		}
		if top.Category != "" && second.Category != "" {
			insights = append(insights, fmt.Sprintf(
				"Comparative analysis reveals %s demonstrates %s growth momentum compared to %s, which %s for strategic resource allocation and capacity planning.",
				top.Category, comparison, second.Category, implication))
		} else {
			insights = append(insights, fmt.Sprintf(
				"Growth rate analysis reveals the leading category demonstrates %s growth compared to other service areas, indicating accelerating demand that requires strategic attention.",
				comparison))
		}
	}

	// Fast growth with or without high volume.
	if len(growth) > 0 && len(volume) > 0 {
		var fast string
		for _, m := range byMagnitude(growth) {
			if abs(*m.Value) > 50 && m.Category != "" {
				fast = m.Category
				break
			}
		}
		if fast != "" {
			highVolume := false
			for _, m := range volume {
				if *m.Value > 300 && m.Category == fast {
					highVolume = true
				}
			}
			if highVolume {
				insights = append(insights, fast+" represents a critical service area experiencing both rapid growth and high volume, creating compounded operational challenges that require immediate capacity expansion and process optimization.")
			} else {
				insights = append(insights, "Emerging service categories like "+fast+" show rapid growth rates from smaller bases, suggesting new or expanding service demands that may require dedicated resource allocation and specialized process development.")
			}
		}
	}

	// Share of the largest category.
	if len(volume) > 0 {
		total := 0.0
		for _, m := range volume {
			total += *m.Value
		}
		if total > 0 {
			top := byValue(volume)[0]
			share, impact := "a notable share", "an important part of the service portfolio"
			switch pct := *top.Value / total * 100; {
			case pct > 40:
				share, impact = "a dominant share", "central to overall service delivery operations"
			case pct > 25:
				share, impact = "a substantial share", "a critical component of service delivery"
			}
			if top.Category != "" {
				insights = append(insights, fmt.Sprintf(
					"Volume distribution analysis reveals %s accounts for %s of total service requests, making it %s and highlighting the importance of maintaining robust capacity and response capabilities in this area.",
					top.Category, share, impact))
			} else {
				insights = append(insights, fmt.Sprintf(
					"Volume distribution analysis indicates the leading category accounts for %s of total service requests, highlighting its critical role in overall service delivery.", share))
			}
		}
	}

	// Broad positive growth.
	if len(growth) >= 3 {
		positive := 0
		for _, m := range growth {
			if *m.Value > 0 {
				positive++
			}
		}
		if positive >= 3 {
			insights = append(insights, "The widespread positive growth across multiple service categories suggests broader trends in citizen engagement and service utilization, indicating a need for comprehensive capacity planning rather than isolated category responses.")
		}
	}

	if len(insights) < 3 {
		switch {
		case len(valued) == 0:
			insights = append(insights, "The observed trends suggest a dynamic service landscape requiring adaptive resource management strategies.")
		case len(growth) > 0:
			insights = append(insights, "The observed growth trends across multiple service categories suggest a dynamic service landscape that requires adaptive resource management strategies and flexible capacity planning to respond effectively to changing demand patterns.")
		default:
			insights = append(insights, "The analysis reveals important patterns in service request distribution that inform strategic resource allocation and operational planning decisions.")
		}
		if len(insights) < 3 {
			insights = append(insights, "These patterns highlight the importance of continuous monitoring and proactive capacity planning to maintain service quality standards and ensure responsive citizen service delivery.")
		}
	}
	return firstN(insights, 4)
}

func (s *Synthesizer) fallbackRecommendations(rationale []string) []Recommendation {
	var recs []Recommendation
	for i, insight := range firstN(rationale, 4) {
		switch {
		case containsAny(insight, "growth", "increase"):
			target := "high-growth categories"
			lower := strings.ToLower(insight)
			for _, c := range s.categories() {
				if k := keyword(c); k != "" && strings.Contains(lower, k) {
					target = metrics.TitleCase(k)
					break
				}
			}
			priority := PriorityMedium
			if i == 0 {
				priority = PriorityHigh
			}
			recs = append(recs, Recommendation{
				Priority:    priority,
				Description: "Increase resource allocation and staffing for " + target + " to handle the growing demand and maintain service quality.",
				Impact:      "Will help prevent service delays and maintain citizen satisfaction as demand increases",
			})
		case containsAny(insight, "volume", "requests"):
			recs = append(recs, Recommendation{
				Priority:    PriorityMedium,
				Description: "Review and optimize resource allocation for high-volume service categories to improve response times.",
				Impact:      "Will improve operational efficiency and reduce wait times for citizens",
			})
		}
	}
	return recs
}

func (s *Synthesizer) fallbackConclusion(in Input) string {
	if in.Answer == "" {
		return "In summary, this analysis provides valuable insights into service request trends that can inform strategic decision-making and resource allocation."
	}
	var parts []string
	if cats := s.mentioned(in.Answer); len(cats) > 0 {
		parts = append(parts, "The analysis reveals significant trends across service categories including "+
			strings.Join(firstN(cats, 2), ", ")+", indicating shifts in citizen service needs and operational priorities.")
	} else {
		parts = append(parts, "The analysis reveals significant trends across multiple service categories, indicating shifts in citizen service needs and operational priorities.")
	}
	if containsAny(in.Answer, "growth", "increase") {
		parts = append(parts, "The observed growth patterns suggest that current resource allocation strategies may need adjustment to accommodate increasing demand while maintaining service quality standards.")
	}
	parts = append(parts,
		"These findings underscore the importance of proactive resource planning, capacity management, and strategic allocation to address emerging service demands effectively.",
		"Continued monitoring and adaptive resource strategies will be essential to ensure responsive service delivery as these trends evolve.")
	return strings.Join(parts, " ")
}

// ════════════════════════════════════════════════════════════════════
// Key takeaways
// ════════════════════════════════════════════════════════════════════

var (
	percentPattern = regexp.MustCompile(`\d+\.?\d*%`)
	requestPattern = regexp.MustCompile(`\d+(?:,\d{3})* requests?`)
	digitPattern   = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	spacePattern   = regexp.MustCompile(`\s+`)
	dotPattern     = regexp.MustCompile(`[,\s]+\.`)
)

// qualitative rewrites a sentence without figures: percentages become a
// growth descriptor, request counts "significant volume", other digits are
// dropped.
func qualitative(s string) string {
	s = percentPattern.ReplaceAllStringFunc(s, func(m string) string {
		v, _ := strconv.ParseFloat(strings.TrimSuffix(m, "%"), 64)
		switch {
		case v > 50:
			return "substantial growth"
		case v > 20:
			return "moderate growth"
		default:
			return "notable growth"
		}
	})
	s = requestPattern.ReplaceAllString(s, "significant volume")
	s = digitPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
	s = dotPattern.ReplaceAllString(s, ".")
	return dedupeWords(s)
}

const wordPunct = ".,;:()"

// dedupeWords collapses an immediately repeated word, as in
// "substantial growth growth".
func dedupeWords(s string) string {
	var out []string
	for _, w := range strings.Fields(s) {
		if n := len(out); n > 0 && out[n-1] == strings.Trim(out[n-1], wordPunct) &&
			strings.EqualFold(out[n-1], strings.Trim(w, wordPunct)) {
			out[n-1] = w
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// Takeaways condenses the answer and rationale into at most limit
// qualitative statements.
func (s *Synthesizer) Takeaways(answer string, rationale []string, limit int) []string {
	var out []string
	if answer != "" {
		var cats []string
		for _, c := range s.mentioned(answer) {
			if long, ok := longNames[strings.ToLower(c)]; ok {
				c = long
			}
			cats = append(cats, c)
		}
		if len(cats) > 0 {
			list := strings.Join(firstN(cats, 3), ", ")
			if containsAny(answer, "trending", "top") {
				out = append(out, "The top trending service request categories include "+list+", showing significant growth patterns.")
			} else {
				out = append(out, "Key service categories showing notable trends include "+list+".")
			}
		} else {
			first, _ := firstSentence(answer)
			first = percentPattern.ReplaceAllString(first, "significant")
			first = requestPattern.ReplaceAllString(first, "substantial volume")
			first = strings.TrimSpace(spacePattern.ReplaceAllString(digitPattern.ReplaceAllString(first, ""), " "))
			if runeLen(first) > 20 {
				out = append(out, first+".")
			}
		}
	}

	for _, insight := range firstN(rationale, limit-len(out)) {
		q := qualitative(insight)
		if runeLen(q) > 30 && !contains(out, q) {
			out = append(out, q)
		}
	}
	return firstN(out, limit)
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════════════
// Methodology
// ════════════════════════════════════════════════════════════════════

// MethodologyItem is one labelled line of the methodology section.
type MethodologyItem struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Methodology describes how the report was produced. parsed is every parsed
// metric, including those without a value.
func Methodology(parsed []metrics.ParsedMetric) []MethodologyItem {
	items := []MethodologyItem{
		{"Data Sources", "CRM Service Requests database"},
		{"Analysis Period", "Based on the specified date range in the report subtitle"},
		{"Metrics Calculation", "Quantitative analysis of request volumes, growth rates, and category distributions"},
	}
	var analyzed []string
	if n := metrics.CountType(parsed, metrics.TypeGrowth); n > 0 {
		analyzed = append(analyzed, utils.Plural(n, "growth rate metric"))
	}
	if n := metrics.CountType(parsed, metrics.TypeVolume); n > 0 {
		analyzed = append(analyzed, utils.Plural(n, "volume metric"))
	}
	if len(analyzed) > 0 {
		items = append(items, MethodologyItem{"Metrics Analyzed", strings.Join(analyzed, ", ")})
	}
	return append(items, MethodologyItem{"Insights Generation", "Pattern recognition and statistical analysis of trends"})
}
