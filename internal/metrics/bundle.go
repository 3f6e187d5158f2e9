package metrics

import (
	"math"
	"sort"
	"strings"
)

// Bundle gathers the growth, absolute increase and recent volume reported
// for one category, plus the pre-change volume derived from them.
type Bundle struct {
	Category      string
	Growth        *float64
	Increase      *float64
	RecentVolume  *float64
	OriginalValue *float64
}

// Renderable reports whether the bundle can be drawn as a before/after pair.
func (b Bundle) Renderable() bool {
	return b.OriginalValue != nil && b.Growth != nil
}

// deriveOriginal fills OriginalValue using the first applicable formula:
// recent-increase, then recent/(1+growth/100), then increase/(growth/100).
func (b *Bundle) deriveOriginal() {
	switch {
	case b.RecentVolume != nil && b.Increase != nil:
		v := *b.RecentVolume - *b.Increase
		b.OriginalValue = &v
	case b.RecentVolume != nil && b.Growth != nil:
		v := *b.RecentVolume
		if *b.Growth != 0 {
			v = *b.RecentVolume / (1 + *b.Growth/100)
		}
		b.OriginalValue = &v
	case b.Increase != nil && b.Growth != nil:
		v := 0.0
		if *b.Growth != 0 {
			v = *b.Increase / (*b.Growth / 100)
		}
		b.OriginalValue = &v
	}
}

type bundleSet struct {
	order   []string
	byCat   map[string]*Bundle
	pctRate map[string]bool // growth slot already holds a % value
}

func (s *bundleSet) get(category string) *Bundle {
	if b, ok := s.byCat[category]; ok {
		return b
	}
	b := &Bundle{Category: category}
	s.byCat[category] = b
	s.order = append(s.order, category)
	return b
}

func copyValue(m ParsedMetric) *float64 {
	v := *m.Value
	return &v
}

// BuildBundles groups parsed metrics per category and derives each
// category's original value. Only metrics with both a value and a category
// take part. Categories keep first-seen order: growth metrics, then increase
// metrics, then recent-volume metrics.
//
// When a category has several growth-typed metrics, a percentage metric
// wins over a count-shaped one ("280 requests increase" is growth-typed
// too, but it is the absolute delta, not the rate).
func BuildBundles(parsed []ParsedMetric) []Bundle {
	set := &bundleSet{byCat: make(map[string]*Bundle), pctRate: make(map[string]bool)}

	var increases, recents []ParsedMetric
	for _, m := range parsed {
		if m.Category == "" || !m.HasValue() {
			continue
		}
		lower := strings.ToLower(m.OriginalText)
		switch {
		case strings.Contains(lower, "increase"):
			increases = append(increases, m)
		case strings.Contains(lower, "recent"):
			recents = append(recents, m)
		case m.MetricType == TypeVolume && strings.Contains(lower, "decrease"):
			increases = appendIfNewCategory(increases, m)
		}
	}

	for _, m := range parsed {
		if m.MetricType != TypeGrowth || m.Category == "" || !m.HasValue() {
			continue
		}
		b := set.get(m.Category)
		if m.Unit != UnitPercent && set.pctRate[m.Category] {
			continue
		}
		b.Growth = copyValue(m)
		set.pctRate[m.Category] = m.Unit == UnitPercent
	}
	for _, m := range increases {
		set.get(m.Category).Increase = copyValue(m)
	}
	for _, m := range recents {
		set.get(m.Category).RecentVolume = copyValue(m)
	}

	out := make([]Bundle, 0, len(set.order))
	for _, cat := range set.order {
		b := set.byCat[cat]
		b.deriveOriginal()
		out = append(out, *b)
	}
	return out
}

func appendIfNewCategory(list []ParsedMetric, m ParsedMetric) []ParsedMetric {
	for _, x := range list {
		if x.Category == m.Category {
			return list
		}
	}
	return append(list, m)
}

// RankBundles keeps renderable bundles, sorted by absolute growth
// descending, at most limit of them. The second result is the largest
// original value across all renderable bundles (1000 when there are none),
// the shared scale for the original bars.
func RankBundles(bundles []Bundle, limit int) ([]Bundle, float64) {
	var valid []Bundle
	maxOriginal := math.Inf(-1)
	for _, b := range bundles {
		if !b.Renderable() {
			continue
		}
		valid = append(valid, b)
		maxOriginal = math.Max(maxOriginal, *b.OriginalValue)
	}
	if len(valid) == 0 {
		return nil, 1000
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return math.Abs(*valid[i].Growth) > math.Abs(*valid[j].Growth)
	})
	if limit > 0 && len(valid) > limit {
		valid = valid[:limit]
	}
	return valid, maxOriginal
}
