package report

import (
	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/internal/narrative"
	"github.com/seenimoa/crmreport/internal/visual"
)

// ════════════════════════════════════════════════════════════════════
// Typography
// ════════════════════════════════════════════════════════════════════

var (
	textSecondary = visual.Hex("#4b5563")

	body        = visual.Font{Family: visual.Times, Size: 11}
	headingFont = visual.Font{Family: visual.Times, Bold: true, Size: 18}
)

var (
	titleStyle = document.ParagraphStyle{
		Font:  visual.Font{Family: visual.Helvetica, Bold: true, Size: 28},
		Color: visual.TextDark, Leading: 34, SpaceAfter: 8,
	}
	subtitleStyle = document.ParagraphStyle{
		Font: body, Color: textSecondary, Leading: 14, SpaceAfter: 24,
	}
	headingStyle = document.ParagraphStyle{
		Font: headingFont, Color: visual.TextDark, Leading: 22, SpaceBefore: 28, SpaceAfter: 14,
	}
	summaryStyle = document.ParagraphStyle{
		Font: body, Color: visual.TextDark, Leading: 20, SpaceAfter: 12, Align: document.AlignJustify,
	}
	insightStyle = document.ParagraphStyle{
		Font: body, Color: visual.TextDark, Leading: 16, SpaceBefore: 8, SpaceAfter: 8,
	}
	takeawayStyle = document.ParagraphStyle{
		Font: body, Color: visual.TextDark, Leading: 18, SpaceBefore: 6, SpaceAfter: 6,
	}
	metricStyle = document.ParagraphStyle{
		Font: body, Color: textSecondary, SpaceBefore: 8, SpaceAfter: 8,
	}
	methodologyStyle = document.ParagraphStyle{
		Font: body, Color: textSecondary, Leading: 16, SpaceBefore: 6, SpaceAfter: 6,
	}
	footerStyle = document.ParagraphStyle{
		Font: visual.Font{Family: visual.Times, Size: 9}, Color: visual.TextMuted,
		SpaceBefore: 40, Align: document.AlignCenter,
	}
)

// recommendationStyle draws the priority-colored rule along the left edge.
func recommendationStyle(c visual.Color) document.ParagraphStyle {
	return document.ParagraphStyle{
		Font: body, Color: visual.TextDark, Leading: 18,
		Indent: 8, LeftRule: 2, LeftRuleColor: c,
	}
}

// PriorityColor maps a recommendation priority to its accent color.
func PriorityColor(priority string) visual.Color {
	switch priority {
	case narrative.PriorityHigh:
		return visual.Red
	case narrative.PriorityMedium:
		return visual.Amber
	case narrative.PriorityLow:
		return visual.Green
	default:
		return visual.TextMuted
	}
}

func heading(text string) document.Heading {
	return document.Heading{Text: text, Level: 2, Style: headingStyle}
}

// ruled is a paragraph with a thin line underneath.
func ruled(p document.Paragraph) []document.Block {
	return []document.Block{p, document.Divider{Width: 0.5, Color: visual.Track}}
}
