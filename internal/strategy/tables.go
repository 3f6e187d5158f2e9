package strategy

import (
	"fmt"
	"strings"

	"github.com/seenimoa/crmreport/internal/classify"
	"github.com/seenimoa/crmreport/internal/dataset"
	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/internal/visual"
	"github.com/seenimoa/crmreport/pkg/utils"
)

// RankingVolume30d is the ranking_type value shown in ranked tables.
const RankingVolume30d = "Volume (Last 30 Days)"

func tableFlow(tb visual.TableBlock) []document.Block {
	return []document.Block{document.Flow{Drawable: tb}}
}

// leftThenRight aligns the first column left and the remaining n right.
func leftThenRight(n int) []visual.Align {
	out := []visual.Align{visual.AlignLeft}
	for i := 0; i < n; i++ {
		out = append(out, visual.AlignRight)
	}
	return out
}

// lineTable shows the most recent rows of a time series, one column per
// series.
func lineTable(t *dataset.Table, width float64) []document.Block {
	timeCol := firstMatching(t, classify.TimeIndicators)
	if timeCol < 0 {
		timeCol = 0
	}
	series := numericExcept(t, timeCol)
	if len(series) == 0 {
		return nil
	}
	if len(series) > MaxLineSeries {
		series = series[:MaxLineSeries]
	}

	tb := visual.TableBlock{
		Headers: append([]string{t.Columns[timeCol].Name}, headers(t, series, 25)...),
		Widths:  fractions(0.2, len(series)),
		Aligns:  leftThenRight(len(series)),
		Width:   width,
		Style:   visual.StandardTableStyle(),
	}
	for _, r := range t.Tail(MaxRows).Rows {
		row := []string{text(r[timeCol], 15)}
		for _, c := range series {
			row = append(row, number(r[c], 0))
		}
		tb.Rows = append(tb.Rows, row)
	}
	return tableFlow(tb)
}

// scatterColumns picks the x, y and bubble-size columns among the numeric
// columns by name, then fills gaps with unused numeric columns in order.
func scatterColumns(t *dataset.Table) (x, y, size int) {
	x, y, size = -1, -1, -1
	num := t.NumericColumns()
	for _, i := range num {
		name := strings.ToLower(t.Columns[i].Name)
		switch {
		case strings.Contains(name, "time_to_close") || strings.Contains(name, "x"):
			x = i
		case strings.Contains(name, "request_count") || strings.Contains(name, "volume") || strings.Contains(name, "y"):
			y = i
		case strings.Contains(name, "bubble_size") || strings.Contains(name, "size") || strings.Contains(name, "open_count"):
			size = i
		}
	}
	next := func() int {
		for _, i := range num {
			if i != x && i != y && i != size {
				return i
			}
		}
		return -1
	}
	if x < 0 {
		x = next()
	}
	if y < 0 {
		y = next()
	}
	if size < 0 && len(num) >= 3 {
		size = next()
	}
	return x, y, size
}

// scatterLabel is the first remaining column that is text or is named like
// a group, category or name.
func scatterLabel(t *dataset.Table, used ...int) int {
	for i, c := range t.Columns {
		if contains(used, i) {
			continue
		}
		name := strings.ToLower(c.Name)
		if c.Kind == dataset.Text || strings.Contains(name, "group") || strings.Contains(name, "category") || strings.Contains(name, "name") {
			return i
		}
	}
	return -1
}

// scatterTable lists the points of a bubble chart: label, x, y and size.
func scatterTable(t *dataset.Table, width float64) []document.Block {
	x, y, size := scatterColumns(t)
	if x < 0 || y < 0 {
		return nil
	}
	label := scatterLabel(t, x, y, size)

	var cols []int
	if label >= 0 {
		cols = append(cols, label)
	}
	cols = append(cols, x, y)
	if size >= 0 {
		cols = append(cols, size)
	}

	tb := visual.TableBlock{
		Headers: headers(t, cols, 25),
		Width:   width,
		Style:   visual.StandardTableStyle(),
	}
	if label >= 0 {
		tb.Widths = fractions(0.4, len(cols)-1)
		tb.Aligns = leftThenRight(len(cols) - 1)
	} else {
		for range cols {
			tb.Aligns = append(tb.Aligns, visual.AlignRight)
		}
	}
	for _, r := range t.Head(MaxScatterRows).Rows {
		var row []string
		if label >= 0 {
			row = append(row, text(r[label], 30))
		}
		row = append(row, numberOrZero(r[x], 1), numberOrZero(r[y], 0))
		if size >= 0 {
			row = append(row, numberOrZero(r[size], 0))
		}
		tb.Rows = append(tb.Rows, row)
	}
	return tableFlow(tb)
}

// heatmapTable ranks locations by their first metric.
func heatmapTable(t *dataset.Table, width float64) []document.Block {
	loc := firstMatching(t, classify.GeoIndicators)
	if loc < 0 {
		loc = firstText(t)
	}
	if loc < 0 {
		loc = 0
	}
	metrics := numericExcept(t, loc)
	if len(metrics) == 0 {
		return nil
	}

	tb := visual.TableBlock{
		Headers: append([]string{utils.Truncate(t.Columns[loc].Name, 25)}, headers(t, metrics, 20)...),
		Widths:  fractions(0.3, len(metrics)),
		Aligns:  leftThenRight(len(metrics)),
		Width:   width,
		Style:   visual.StandardTableStyle(),
	}
	sorted := t.SortBy(dataset.SortKey{Col: metrics[0], Desc: true}).Head(MaxRows)
	for _, r := range sorted.Rows {
		row := []string{text(r[loc], 30)}
		for _, c := range metrics {
			row = append(row, number(r[c], 1))
		}
		tb.Rows = append(tb.Rows, row)
	}
	return tableFlow(tb)
}

// rankedTable is the top-ten volume ranking. Rows are filtered on the
// ranking type when the column exists. Tables without the ranking value
// columns fall back to the generic table.
func rankedTable(t *dataset.Table, width float64) []document.Block {
	kind := t.Index(classify.ColRankingType)
	cat, primary := t.Index("category"), t.Index("primary_metric")
	if cat < 0 || primary < 0 {
		return genericTable(t, width)
	}
	rank, secondary := t.Index(classify.ColRank), t.Index("secondary_metric")

	top := t
	if kind >= 0 {
		top = t.Filter(func(r []dataset.Cell) bool {
			return !r[kind].Null && r[kind].Raw == RankingVolume30d
		})
	}
	top = top.Head(MaxRankedRows)
	if top.Empty() {
		return nil
	}

	tb := visual.TableBlock{
		Headers: []string{"Rank", "Category", "Volume", "% of Total"},
		Widths:  []float64{0.08, 0.52, 0.20, 0.20},
		Aligns:  []visual.Align{visual.AlignCenter, visual.AlignLeft, visual.AlignRight, visual.AlignRight},
		Width:   width,
		Style:   visual.RankedTableStyle(),
	}
	for i, r := range top.Rows {
		pos := i + 1
		if rank >= 0 {
			if v, ok := r[rank].Float(); ok {
				pos = int(v)
			}
		}
		name := na
		if !r[cat].Null {
			name = r[cat].Raw
		}
		vol, _ := r[primary].Float()
		pct := na
		if secondary >= 0 {
			if v, ok := r[secondary].Float(); ok {
				pct = fmt.Sprintf("%.1f%%", v)
			}
		}
		tb.Rows = append(tb.Rows, []string{fmt.Sprint(pos), name, utils.FormatInt(int64(vol)), pct})
	}
	return tableFlow(tb)
}

// genericTable shows the first rows of any dataset with equal column widths.
func genericTable(t *dataset.Table, width float64) []document.Block {
	if t.Empty() {
		return nil
	}
	all := make([]int, len(t.Columns))
	for i := range all {
		all[i] = i
	}
	tb := visual.TableBlock{
		Headers: headers(t, all, 25),
		Width:   width,
		Style:   visual.StandardTableStyle(),
	}
	for _, r := range t.Head(MaxRows).Rows {
		row := make([]string, len(all))
		for c := range all {
			if t.IsNumeric(c) {
				row[c] = number(r[c], 1)
			} else {
				row[c] = text(r[c], 30)
			}
		}
		tb.Rows = append(tb.Rows, row)
	}
	return tableFlow(tb)
}
