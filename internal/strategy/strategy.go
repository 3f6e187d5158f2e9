// Package strategy turns a classified product dataset into document blocks:
// tables for time series, scatter, geographic, ranking and generic data,
// vertical bar rows for distributions and category totals, and a bordered
// group of horizontal bars for backlogs.
package strategy

import (
	"strings"

	"github.com/seenimoa/crmreport/internal/classify"
	"github.com/seenimoa/crmreport/internal/dataset"
	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/pkg/utils"
)

// Row limits per representation.
const (
	MaxRows        = 15
	MaxScatterRows = 20
	MaxRankedRows  = 10
	MaxLineSeries  = 5
)

// Render builds the blocks for t at the given frame width. An empty table
// yields no blocks.
func Render(t *dataset.Table, width float64) []document.Block {
	if t.Empty() {
		return nil
	}
	switch classify.Classify(t) {
	case classify.Line:
		return lineTable(t, width)
	case classify.Scatter:
		return scatterTable(t, width)
	case classify.Pie:
		return distributionBars(t, width)
	case classify.Heatmap:
		return heatmapTable(t, width)
	case classify.Bar:
		switch {
		case t.Has(classify.ColUnresolvedCount):
			return backlogBars(t, width)
		case t.Has(classify.ColRankingType), t.Has(classify.ColRank):
			return rankedTable(t, width)
		default:
			return categoryBars(t, width)
		}
	default:
		return genericTable(t, width)
	}
}

// Describe reports the chart type and deciding rule for t.
func Describe(t *dataset.Table) (classify.ChartType, string) {
	r := classify.Explain(t)
	return r.Result, r.Name
}

// ── column helpers ──

// firstMatching returns the first column whose lower-cased name contains one
// of the indicators, or -1.
func firstMatching(t *dataset.Table, indicators []string) int {
	for i, c := range t.Columns {
		name := strings.ToLower(c.Name)
		for _, ind := range indicators {
			if strings.Contains(name, ind) {
				return i
			}
		}
	}
	return -1
}

func firstText(t *dataset.Table, except ...int) int {
	for _, i := range t.TextColumns() {
		if !contains(except, i) {
			return i
		}
	}
	return -1
}

func numericExcept(t *dataset.Table, except int) []int {
	var out []int
	for _, i := range t.NumericColumns() {
		if i != except {
			out = append(out, i)
		}
	}
	return out
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// ── cell formatting ──

const na = "N/A"

// number formats a numeric cell with thousands grouping, "N/A" for nulls.
func number(c dataset.Cell, decimals int) string {
	v, ok := c.Float()
	if !ok {
		return na
	}
	return utils.FormatGrouped(v, decimals)
}

// numberOrZero formats nulls as zero.
func numberOrZero(c dataset.Cell, decimals int) string {
	v, _ := c.Float()
	return utils.FormatGrouped(v, decimals)
}

// text truncates a cell's raw text, "N/A" for nulls.
func text(c dataset.Cell, n int) string {
	if c.Null {
		return na
	}
	return utils.Truncate(c.Raw, n)
}

func headers(t *dataset.Table, cols []int, n int) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = utils.Truncate(t.Columns[c].Name, n)
	}
	return out
}

func fractions(first float64, rest int) []float64 {
	out := []float64{first}
	for i := 0; i < rest; i++ {
		out = append(out, (1-first)/float64(rest))
	}
	return out
}
