package narrative

import (
	"fmt"
	"strings"

	"github.com/seenimoa/crmreport/internal/metrics"
	"github.com/seenimoa/crmreport/pkg/utils"
)

// SystemPrompt frames every narrative request.
const SystemPrompt = `You are a municipal operations analyst writing sections of a CRM service request analytics report for city management.

## Guidelines
1. Write plain prose: no markdown, no headings, no labels, no ellipses
2. Name the service categories the data is about
3. Charts in the report already show the exact figures; describe them qualitatively instead of repeating percentages or request counts
4. Keep a professional, concise tone focused on operational planning and resource allocation`

func bullets(items []string, limit int) string {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	var sb strings.Builder
	for _, it := range items {
		sb.WriteString("- ")
		sb.WriteString(it)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func metricName(m metrics.ParsedMetric) string {
	if m.Category != "" {
		return m.Category
	}
	return m.Label
}

// IntroductionPrompt asks for a 3-4 sentence opening paragraph.
func IntroductionPrompt(in Input) string {
	return fmt.Sprintf(`Write the introduction paragraph (3-4 sentences) of a CRM analytics report.

Main finding: %s

Key insights:
%s
Key metrics:
%s
The introduction should set the context by naming the service categories analyzed, explain what was examined (request trends, growth patterns, volume distribution), preview which categories are trending and say why this matters for operational planning.

Return only the paragraph.`, in.Answer, bullets(in.Rationale, 3), bullets(in.KeyMetrics, 5))
}

// ExecutiveSummaryPrompt asks for a 2-3 sentence overview.
func ExecutiveSummaryPrompt(in Input, valued []metrics.ParsedMetric) string {
	var ctx strings.Builder
	if top := firstN(nonZero(valued, metrics.TypeGrowth), 3); len(top) > 0 {
		ctx.WriteString("\nTop growth categories:\n")
		for _, m := range top {
			fmt.Fprintf(&ctx, "- %s: %s\n", metricName(m), utils.FormatPct(*m.Value))
		}
	}
	if top := firstN(nonZero(valued, metrics.TypeVolume), 3); len(top) > 0 {
		ctx.WriteString("\nTop volume categories:\n")
		for _, m := range top {
			fmt.Fprintf(&ctx, "- %s: %s requests\n", metricName(m), utils.FormatGrouped(*m.Value, 0))
		}
	}
	return fmt.Sprintf(`Write the executive summary (2-3 sentences at most) of a CRM analytics report.

Main finding: %s

Key insights:
%s%s
Give a high-level overview of the most critical findings, name the top one or two trending categories and state the main implication for resource allocation.

Return only the paragraph.`, in.Answer, bullets(in.Rationale, 3), ctx.String())
}

// InsightsPrompt asks for 3-4 numbered insights that go beyond the rationale.
func InsightsPrompt(in Input, valued []metrics.ParsedMetric) string {
	type pair struct{ growth, volume *float64 }
	var order []string
	byCat := map[string]*pair{}
	for _, m := range valued {
		if m.Category == "" {
			continue
		}
		p, ok := byCat[m.Category]
		if !ok {
			p = &pair{}
			byCat[m.Category] = p
			order = append(order, m.Category)
		}
		switch m.MetricType {
		case metrics.TypeGrowth:
			p.growth = m.Value
		case metrics.TypeVolume:
			p.volume = m.Value
		}
	}

	var ctx strings.Builder
	if len(order) > 0 {
		ctx.WriteString("\nCategory metrics:\n")
		for _, cat := range firstN(order, 5) {
			var parts []string
			if p := byCat[cat]; p.growth != nil {
				parts = append(parts, utils.FormatPct(*p.growth)+" growth")
			}
			if p := byCat[cat]; p.volume != nil {
				parts = append(parts, utils.FormatGrouped(*p.volume, 0)+" requests")
			}
			fmt.Fprintf(&ctx, "- %s: %s\n", cat, strings.Join(parts, ", "))
		}
	}
	return fmt.Sprintf(`Initial insights:
%s%s
Write 3-4 further insights as a numbered list, one complete sentence each. Go deeper than the initial insights rather than restating them: explain the operational implications, which categories need more resources and which are emerging priorities.`, bullets(in.Rationale, 3), ctx.String())
}

// RecommendationsPrompt asks for a JSON array of recommendations.
func RecommendationsPrompt(in Input, valued []metrics.ParsedMetric) string {
	var ctx strings.Builder
	ctx.WriteString(bullets(in.KeyMetrics, 0))

	var highGrowth, highVolume []metrics.ParsedMetric
	for _, m := range nonZero(valued, metrics.TypeGrowth) {
		if abs(*m.Value) > 50 {
			highGrowth = append(highGrowth, m)
		}
	}
	for _, m := range nonZero(valued, metrics.TypeVolume) {
		if *m.Value > 500 {
			highVolume = append(highVolume, m)
		}
	}
	if len(highGrowth) > 0 {
		ctx.WriteString("\nHigh growth categories:\n")
		for _, m := range firstN(highGrowth, 3) {
			fmt.Fprintf(&ctx, "- %s: %s\n", metricName(m), utils.FormatPct(*m.Value))
		}
	}
	if len(highVolume) > 0 {
		ctx.WriteString("\nHigh volume categories:\n")
		for _, m := range firstN(highVolume, 3) {
			fmt.Fprintf(&ctx, "- %s: %s requests\n", metricName(m), utils.FormatGrouped(*m.Value, 0))
		}
	}

	return fmt.Sprintf(`Insights from CRM service request analysis:
%s
Metrics:
%s
Write 4-6 specific, actionable recommendations for city management, tied to the categories and trends above. Respond with a JSON array of objects with the keys "priority" (HIGH, MEDIUM or LOW, based on growth, volume and impact), "description" (2-3 sentences on the action to take) and "impact" (one sentence on the expected benefit).`, bullets(in.Rationale, 0), ctx.String())
}

// ConclusionPrompt asks for a closing paragraph that ties in the top
// recommendations.
func ConclusionPrompt(in Input, recs []Recommendation) string {
	var descs []string
	for _, r := range firstN(recs, 3) {
		descs = append(descs, r.Description)
	}
	return fmt.Sprintf(`Write the conclusion paragraph (3-4 sentences) of a CRM analytics report.

Main finding: %s

Key insights:
%s
Top recommendations:
%s
Summarize the findings, naming the trending categories, explain their significance for capacity, service quality and citizen satisfaction, and close with the kind of action needed.

Return only the paragraph.`, in.Answer, bullets(in.Rationale, 3), bullets(descs, 0))
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
