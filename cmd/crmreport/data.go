package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seenimoa/crmreport/internal/classify"
	"github.com/seenimoa/crmreport/internal/datasource"
	"github.com/seenimoa/crmreport/internal/metrics"
	"github.com/seenimoa/crmreport/pkg/utils"
)

// --- Parse Command ---

var parseCmd = &cobra.Command{
	Use:   "parse [metric...]",
	Short: "Parse metric strings and show the derived chart bundles",
	Long: `Parse free-text metric strings the way the report's metrics section does.

Examples:
  crmreport parse "73.1% growth in Recreation and leisure" "280 requests increase in Recreation and leisure"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parsed := metrics.ParseAll(args)

		widths := []int{28, 16, 9, 24, 12}
		fmt.Println(headerStyle.Render(row(widths, "Label", "Value", "Type", "Category", "Trend")))
		for _, m := range parsed {
			value := mutedStyle.Render("n/a")
			if m.HasValue() {
				value = utils.FormatValue(*m.Value, m.Unit)
			}
			fmt.Println(row(widths,
				utils.Truncate(m.Label, 28), value, string(m.MetricType),
				utils.Truncate(orDefault(m.Category, "-"), 24), orDefault(m.Trend, "-")))
		}

		ranked, maxOriginal := metrics.RankBundles(metrics.BuildBundles(parsed), 0)
		if len(ranked) == 0 {
			fmt.Println()
			fmt.Println(mutedStyle.Render("No before/after bundles; the report would fall back to single bars."))
			return nil
		}
		fmt.Println()
		fmt.Println(headerStyle.Render(fmt.Sprintf("Bundles (scale %s)", utils.FormatGrouped(maxOriginal, 0))))
		for _, b := range ranked {
			fmt.Println(kv(b.Category, fmt.Sprintf("%s → %s",
				utils.FormatGrouped(*b.OriginalValue, 0), utils.FormatPct(*b.Growth))))
		}
		return nil
	},
}

// --- Classify Command ---

var classifyCmd = &cobra.Command{
	Use:   "classify [product]",
	Short: "Show the chart type chosen for a product's dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, cat, err := datasource.New(cfg.Data)
		if err != nil {
			return err
		}
		t, err := src.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		rule := classify.Explain(t)
		fmt.Println(titleStyle.Render(cat.Title(args[0])))
		fmt.Println(kv("Source", src.Name()))
		fmt.Println(kv("Shape", datasource.Describe(t)))
		fmt.Println(kv("Chart", okStyle.Render(string(rule.Result))))
		fmt.Println(kv("Rule", rule.Name))

		var cols []string
		for _, c := range t.Columns {
			cols = append(cols, fmt.Sprintf("%s (%s)", c.Name, c.Kind))
		}
		fmt.Println(kv("Columns", strings.Join(cols, ", ")))
		return nil
	},
}

// --- Products Command ---

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products and whether their datasets are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, cat, err := datasource.New(cfg.Data)
		if err != nil {
			return err
		}
		keys := cat.Keys()
		results := datasource.LoadAll(cmd.Context(), src, keys, cfg.Report.Concurrency)

		widths := []int{24, 44, 30}
		fmt.Println(headerStyle.Render(row(widths, "Product", "Title", "Status")))
		available := 0
		for _, res := range results {
			var status string
			switch {
			case res.Err == nil:
				available++
				status = okStyle.Render(datasource.Describe(res.Table))
			case datasource.Missing(res.Err):
				status = mutedStyle.Render("missing (" + cat.Lookup(res.Product).File + ")")
			default:
				status = badStyle.Render(utils.Truncate(res.Err.Error(), 60))
			}
			fmt.Println(row(widths, res.Product, utils.Truncate(cat.Title(res.Product), 44), status))
		}
		fmt.Println()
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d of %s available via %s",
			available, utils.Plural(len(keys), "product"), src.Name())))
		return nil
	},
}
