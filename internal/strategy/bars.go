package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/seenimoa/crmreport/internal/classify"
	"github.com/seenimoa/crmreport/internal/dataset"
	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/internal/visual"
	"github.com/seenimoa/crmreport/pkg/utils"
)

const (
	maxBarWidth     = 45.0
	verticalBarH    = 100.0
	backlogRowH     = 28.0
	backlogSpacing  = 8.0
	backlogPadding  = 4.0
	backlogGroupCol = "Service Level 1"
	backlogAgeCol   = "avg_age_days"
)

// DistributionNote follows every distribution bar row.
const DistributionNote = "Note: Distribution data showing proportions. Consider using a pie chart visualization for better visual representation."

// BarWidth is the per-bar width of n side-by-side bars: 45 points each
// unless that would exceed 95% of the frame, in which case the 95% is shared.
func BarWidth(n int, width float64) float64 {
	if n <= 0 {
		return 0
	}
	w := float64(int(width))
	if float64(n)*maxBarWidth > w*0.95 {
		return w * 0.95 / float64(n)
	}
	return math.Min(w/float64(n), maxBarWidth)
}

type bar struct {
	label string
	value float64
}

func barRow(bars []bar, width float64) visual.Row {
	maxV := 0.0
	for _, b := range bars {
		maxV = math.Max(maxV, b.value)
	}
	bw := float64(int(BarWidth(len(bars), width)))
	var row visual.Row
	for _, b := range bars {
		row.Items = append(row.Items, visual.VerticalBar{
			Label: b.label, Value: b.value, Max: maxV,
			Width: bw, Height: verticalBarH, Color: visual.Blue,
		})
	}
	return row
}

// distributionBars draws a two-column name/value split as vertical bars
// labelled with each item's share of the displayed total.
func distributionBars(t *dataset.Table, width float64) []document.Block {
	if len(t.Columns) < 2 {
		return nil
	}
	name, value := 0, 1
	if t.IsNumeric(0) && !t.IsNumeric(1) {
		name, value = 1, 0
	}
	top := t.SortBy(dataset.SortKey{Col: value, Desc: true}).Head(MaxRows)

	total := 0.0
	for _, r := range top.Rows {
		v, _ := r[value].Float()
		total += v
	}
	var bars []bar
	for _, r := range top.Rows {
		v, _ := r[value].Float()
		pct := 0.0
		if total > 0 {
			pct = v / total * 100
		}
		bars = append(bars, bar{fmt.Sprintf("%s (%.1f%%)", utils.Truncate(label(r[name]), 20), pct), v})
	}

	blocks := []document.Block{}
	if len(bars) > 0 {
		blocks = append(blocks, document.Flow{Drawable: barRow(bars, width)})
	}
	note := document.ParagraphStyle{Font: visual.Font{Family: visual.Times, Italic: true, Size: 9}, Color: visual.TextMuted, Leading: 12}
	return append(blocks, document.Spacer{Height: 12}, document.NewParagraph(DistributionNote, note))
}

// categoryBars draws category totals as vertical bars. Tables without both a
// category and a numeric column fall back to the generic table.
func categoryBars(t *dataset.Table, width float64) []document.Block {
	value := -1
	if num := t.NumericColumns(); len(num) > 0 {
		value = num[0]
	}
	cat := firstMatching(t, classify.CategoryIndicators)
	if cat < 0 {
		cat = firstText(t, value)
	}
	if cat < 0 || value < 0 {
		return genericTable(t, width)
	}

	var bars []bar
	for _, r := range t.SortBy(dataset.SortKey{Col: value, Desc: true}).Head(MaxRows).Rows {
		v, _ := r[value].Float()
		bars = append(bars, bar{utils.Truncate(label(r[cat]), 25), v})
	}
	return []document.Block{document.Flow{Drawable: barRow(bars, width)}, document.Spacer{Height: 12}}
}

// backlogBars sums unresolved counts per service group over the worst rows
// and draws one red horizontal bar per group inside a border.
func backlogBars(t *dataset.Table, width float64) []document.Block {
	count := t.Index(classify.ColUnresolvedCount)
	keys := []dataset.SortKey{{Col: count, Desc: true}}
	if age := t.Index(backlogAgeCol); age >= 0 {
		keys = append(keys, dataset.SortKey{Col: age, Desc: true})
	}
	top := t.SortBy(keys...).Head(MaxRows)
	if top.Empty() {
		return nil
	}

	group := t.Index(backlogGroupCol)
	if group < 0 {
		group = firstText(t)
	}
	var order []string
	sums := map[string]float64{}
	for _, r := range top.Rows {
		name := "Unknown"
		if group >= 0 && !r[group].Null {
			name = r[group].Raw
		}
		v, _ := r[count].Float()
		if _, seen := sums[name]; !seen {
			order = append(order, name)
		}
		sums[name] += float64(int64(v))
	}
	sort.SliceStable(order, func(i, j int) bool { return sums[order[i]] > sums[order[j]] })
	if len(order) > MaxRows {
		order = order[:MaxRows]
	}

	groupW := float64(int(width))
	chartW := groupW - 2*backlogPadding - 2
	maxV := sums[order[0]]
	g := visual.BorderedGroup{Width: groupW, Padding: backlogPadding, Spacing: backlogSpacing}
	for _, name := range order {
		g.Items = append(g.Items, visual.HorizontalBar{
			Label: name, Value: sums[name], Max: maxV,
			Width: chartW, Height: backlogRowH, Color: visual.Red, Unit: "unresolved",
		})
	}
	return []document.Block{document.Flow{Drawable: g}}
}

func label(c dataset.Cell) string {
	if c.Null {
		return na
	}
	return c.Raw
}
