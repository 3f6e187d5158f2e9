package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/crmreport/pkg/utils"
)

// Product describes where a product's dataset lives and how it is titled.
type Product struct {
	File  string `yaml:"file"`            // file name searched in each data directory
	Sheet string `yaml:"sheet,omitempty"` // XLSX sheet, first sheet when empty
	Table string `yaml:"table,omitempty"` // SQLite table, the product key when empty
	Title string `yaml:"title,omitempty"` // section title in reports
}

// Catalog maps product keys to their datasets.
type Catalog struct {
	Products map[string]Product `yaml:"products"`
}

// DefaultCatalog returns the built-in analytics products.
func DefaultCatalog() *Catalog {
	return &Catalog{Products: map[string]Product{
		"top10_volume_30d":     {File: "top10.csv", Title: "Top 10 Categories by Volume (Last 30 Days)"},
		"backlog_ranked_list":  {File: "backlog_ranked_list.csv", Title: "Backlog Analysis - Urgent Unresolved Items"},
		"frequency_over_time":  {File: "frequency_over_time.csv", Title: "Frequency Over Time - Request Trends"},
		"priority_quadrant":    {File: "priority_quadrant_data_p90.csv", Title: "Priority Quadrant Analysis"},
		"geographic_hot_spots": {File: "geographic_hot_spots.csv", Title: "Geographic Hot Spots Analysis"},
		"time_to_close":        {File: "time_to_close.csv", Title: "Time to Close Analysis"},
		"seasonality_heatmap":  {File: "seasonality_heatmap.csv", Title: "Seasonality Heatmap"},
		"backlog_distribution": {File: "backlog_distribution.csv", Title: "Backlog Distribution Analysis"},
	}}
}

// LoadCatalog reads a YAML catalog and layers it over the defaults. Entries
// in the file replace built-in entries of the same key.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var loaded Catalog
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", filepath.Base(path), err)
	}
	cat := DefaultCatalog()
	for k, p := range loaded.Products {
		cat.Products[k] = p
	}
	return cat, nil
}

// Lookup resolves a product key. Unknown keys map to "<key>.csv", or to the
// key itself when it already names a CSV file.
func (c *Catalog) Lookup(key string) Product {
	if c != nil {
		if p, ok := c.Products[key]; ok {
			if p.File == "" {
				p.File = defaultFile(key)
			}
			return p
		}
	}
	return Product{File: defaultFile(key)}
}

func defaultFile(key string) string {
	if strings.HasSuffix(key, ".csv") {
		return key
	}
	return key + ".csv"
}

var titleCaser = cases.Title(language.Und)

// Title returns the report section title of a product: the catalog title,
// else the title-cased key with " Analysis" appended unless the key already
// mentions analysis.
func (c *Catalog) Title(key string) string {
	if p := c.Lookup(key); p.Title != "" {
		return p.Title
	}
	title := titleCaser.String(utils.Humanize(key))
	if !strings.Contains(strings.ToLower(title), "analysis") {
		title += " Analysis"
	}
	return title
}

// Keys returns the catalog's product keys, sorted.
func (c *Catalog) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Products))
	for k := range c.Products {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
