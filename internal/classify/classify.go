// Package classify picks a chart representation for a dataset from its
// column names and column kinds.
package classify

import (
	"strings"

	"github.com/seenimoa/crmreport/internal/dataset"
)

// ChartType is the representation chosen for a dataset.
type ChartType string

const (
	Line    ChartType = "line"
	Bar     ChartType = "bar"
	Scatter ChartType = "scatter"
	Pie     ChartType = "pie"
	Heatmap ChartType = "heatmap"
	Table   ChartType = "table"
)

// Column names with special handling downstream.
const (
	ColRank            = "rank"
	ColRankingType     = "ranking_type"
	ColUnresolvedCount = "unresolved_count"
)

// Name-fragment indicators, matched against lower-cased column names.
var (
	TimeIndicators     = []string{"time", "date", "period", "month", "year", "week"}
	ScatterIndicators  = []string{"time_to_close", "request_count", "bubble_size", "open_count"}
	GeoIndicators      = []string{"district", "location", "region", "area", "electoral"}
	CategoryIndicators = []string{"category", "group", "name", "label", "service level"}
)

// features are the facts every rule looks at, computed once per table.
type features struct {
	t        *dataset.Table
	lower    []string
	joined   string
	numeric  int
	hasTime  bool
	hasCateg bool
}

func extract(t *dataset.Table) features {
	f := features{t: t}
	for _, c := range t.Columns {
		f.lower = append(f.lower, strings.ToLower(c.Name))
	}
	f.joined = strings.Join(f.lower, " ")
	f.numeric = len(t.NumericColumns())
	f.hasTime = anyColumnContains(f.lower, TimeIndicators)
	f.hasCateg = anyColumnContains(f.lower, CategoryIndicators)
	return f
}

func anyColumnContains(cols, indicators []string) bool {
	for _, c := range cols {
		for _, ind := range indicators {
			if strings.Contains(c, ind) {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, indicators []string) bool {
	for _, ind := range indicators {
		if strings.Contains(s, ind) {
			return true
		}
	}
	return false
}

// Rule is one step of the ladder.
type Rule struct {
	Name   string
	Result ChartType
	match  func(f features) bool
}

// Rules is evaluated top to bottom; the first match decides. The order is
// the algorithm, so entries must not be reordered.
var Rules = []Rule{
	{"empty", Table, func(f features) bool {
		return f.t.Empty()
	}},
	{"ranking", Bar, func(f features) bool {
		return f.t.Has(ColRankingType) || f.t.Has(ColRank)
	}},
	{"backlog", Bar, func(f features) bool {
		return f.t.Has(ColUnresolvedCount)
	}},
	{"time_series", Line, func(f features) bool {
		return f.hasTime && f.numeric > 2
	}},
	{"scatter", Scatter, func(f features) bool {
		return containsAny(f.joined, ScatterIndicators) && f.numeric >= 2
	}},
	{"two_column_split", Pie, func(f features) bool {
		return len(f.t.Columns) == 2 && f.t.IsNumeric(0) != f.t.IsNumeric(1)
	}},
	{"geographic", Heatmap, func(f features) bool {
		return containsAny(f.joined, GeoIndicators) && f.numeric >= 2
	}},
	{"category", Bar, func(f features) bool {
		if !f.hasCateg || f.numeric < 1 {
			return false
		}
		return f.numeric == 1 || !f.hasTime
	}},
	{"default", Table, func(features) bool { return true }},
}

// Classify returns the chart type for t.
func Classify(t *dataset.Table) ChartType {
	return Explain(t).Result
}

// Explain returns the rule that decided t's chart type.
func Explain(t *dataset.Table) Rule {
	if t == nil {
		t = &dataset.Table{}
	}
	f := extract(t)
	for _, r := range Rules {
		if r.match(f) {
			return r
		}
	}
	return Rules[len(Rules)-1]
}
