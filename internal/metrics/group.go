package metrics

// Default bucket keys for metrics missing a type or a category.
const (
	DefaultTypeKey     = "unknown"
	DefaultCategoryKey = "Other"
)

// Group is one bucket of a partition, in first-seen order.
type Group struct {
	Key     string
	Metrics []ParsedMetric
}

// Groups is an ordered partition of a metric list.
type Groups []Group

// Get returns the metrics filed under key, or nil.
func (g Groups) Get(key string) []ParsedMetric {
	for _, grp := range g {
		if grp.Key == key {
			return grp.Metrics
		}
	}
	return nil
}

// Keys lists the bucket keys in first-seen order.
func (g Groups) Keys() []string {
	keys := make([]string, len(g))
	for i, grp := range g {
		keys[i] = grp.Key
	}
	return keys
}

// Map flattens the partition into a map, losing key order.
func (g Groups) Map() map[string][]ParsedMetric {
	out := make(map[string][]ParsedMetric, len(g))
	for _, grp := range g {
		out[grp.Key] = grp.Metrics
	}
	return out
}

func groupBy(ms []ParsedMetric, key func(ParsedMetric) string) Groups {
	var groups Groups
	index := make(map[string]int)
	for _, m := range ms {
		k := key(m)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Metrics = append(groups[i].Metrics, m)
	}
	return groups
}

// GroupByType partitions metrics by MetricType.
func GroupByType(ms []ParsedMetric) Groups {
	return groupBy(ms, func(m ParsedMetric) string {
		if m.MetricType == "" {
			return DefaultTypeKey
		}
		return string(m.MetricType)
	})
}

// GroupByCategory partitions metrics by Category.
func GroupByCategory(ms []ParsedMetric) Groups {
	return groupBy(ms, func(m ParsedMetric) string {
		if m.Category == "" {
			return DefaultCategoryKey
		}
		return m.Category
	})
}
