// Package report assembles analytics payloads into finished documents:
// narrative sections, metric charts and supporting-data visualizations in a
// fixed section order, serialized by a document renderer.
package report

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/datasource"
	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/internal/infra"
	"github.com/seenimoa/crmreport/internal/llm"
	"github.com/seenimoa/crmreport/internal/metrics"
	"github.com/seenimoa/crmreport/internal/narrative"
	"github.com/seenimoa/crmreport/internal/strategy"
	"github.com/seenimoa/crmreport/internal/visual"
	"github.com/seenimoa/crmreport/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Generator
// ════════════════════════════════════════════════════════════════════

const (
	DefaultTitle = "CRM Analytics Report"
	Footer       = "Report generated by CRM Analytics System"

	// DefaultWidth is the frame width of a Letter page with one-inch margins.
	DefaultWidth = 612.0 - 2*72

	maxMetricCharts = 10
)

// VisualizationRequest asks for the blocks of one product subsection.
type VisualizationRequest struct {
	Product string
	Why     string
	Width   float64
}

// Generator turns payloads into documents. It holds no per-call state, so
// one instance serves concurrent callers.
type Generator struct {
	Title    string
	Subtitle string // "Generated on ..." from Now when empty
	Width    float64

	Synth    *narrative.Synthesizer
	Source   datasource.Source // nil omits supporting data
	Catalog  *datasource.Catalog
	Renderer document.Renderer
	Now      func() time.Time
	Logger   logrus.FieldLogger
}

// Option configures a Generator.
type Option func(*Generator)

// WithTitle sets the report title.
func WithTitle(t string) Option {
	return func(g *Generator) {
		if t != "" {
			g.Title = t
		}
	}
}

// WithSubtitle sets a fixed subtitle.
func WithSubtitle(s string) Option {
	return func(g *Generator) {
		if s != "" {
			g.Subtitle = s
		}
	}
}

// WithSynthesizer sets the narrative writer.
func WithSynthesizer(s *narrative.Synthesizer) Option { return func(g *Generator) { g.Synth = s } }

// WithSource sets the dataset source and the catalog used for titles.
func WithSource(src datasource.Source, cat *datasource.Catalog) Option {
	return func(g *Generator) { g.Source, g.Catalog = src, cat }
}

// WithRenderer sets the output renderer.
func WithRenderer(r document.Renderer) Option { return func(g *Generator) { g.Renderer = r } }

// WithClock sets the time source for the default subtitle.
func WithClock(now func() time.Time) Option { return func(g *Generator) { g.Now = now } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(g *Generator) { g.Logger = l } }

// New returns a generator with the default title, a fallback-only
// synthesizer and an uncompressed PDF renderer.
func New(opts ...Option) *Generator {
	g := &Generator{
		Title:    DefaultTitle,
		Width:    DefaultWidth,
		Synth:    narrative.New(nil),
		Catalog:  datasource.DefaultCatalog(),
		Renderer: document.NewPDFRenderer(false),
		Now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FromConfig builds a generator from the report settings. p may be nil.
func FromConfig(cfg *config.Config, p llm.LLMProvider, src datasource.Source, cat *datasource.Catalog, log logrus.FieldLogger) *Generator {
	return New(
		WithTitle(cfg.Report.Title),
		WithSynthesizer(narrative.FromConfig(cfg, p, log)),
		WithSource(src, cat),
		WithRenderer(document.NewPDFRenderer(cfg.Report.Compress)),
		WithLogger(log),
	)
}

// With returns a copy of g with opts applied.
func (g *Generator) With(opts ...Option) *Generator {
	c := *g
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func (g *Generator) log() logrus.FieldLogger {
	if g.Logger == nil {
		return infra.DiscardLogger()
	}
	return g.Logger
}

func (g *Generator) subtitle() string {
	if g.Subtitle != "" {
		return g.Subtitle
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return utils.GeneratedOn(now())
}

// Generate validates p, builds the document and renders it. Renderer
// errors are returned unwrapped and no partial output is produced.
func (g *Generator) Generate(ctx context.Context, p Payload) ([]byte, error) {
	doc, err := g.Build(ctx, p)
	if err != nil {
		return nil, err
	}
	out, err := g.Renderer.Render(doc)
	if err != nil {
		return nil, err
	}
	g.log().WithFields(logrus.Fields{"bytes": len(out), "blocks": len(doc.Blocks)}).Info("report rendered")
	return out, nil
}

// Build validates p and assembles the document without rendering it.
func (g *Generator) Build(ctx context.Context, p Payload) (*document.Document, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	parsed := metrics.ParseAll(p.KeyMetrics)
	if n := len(parsed) - len(metrics.WithValue(parsed)); n > 0 {
		g.log().WithField("count", n).Warn("metrics without a recognisable value")
	}

	synth := g.Synth
	if synth == nil {
		synth = narrative.New(nil)
	}
	sec := synth.Synthesize(ctx, narrative.Input{
		Answer:     p.Answer,
		Rationale:  p.Rationale,
		KeyMetrics: p.KeyMetrics,
		Metrics:    parsed,
	})

	width := g.Width
	if width <= 0 {
		width = DefaultWidth
	}

	doc := &document.Document{Title: g.Title, Author: "CRM Analytics System"}
	doc.Add(g.titleBlocks()...)
	doc.Add(paragraphSection("Introduction", sec.Introduction))
	doc.Add(paragraphSection("Executive Summary", sec.ExecutiveSummary))
	doc.Add(takeawaysSection(sec.Takeaways)...)
	doc.Add(metricsSection(parsed, p.KeyMetrics, width)...)
	doc.Add(insightsSection(sec.Insights)...)
	doc.Add(recommendationsSection(sec.Recommendations)...)
	doc.Add(g.supportingData(ctx, p.Products, width)...)
	doc.Add(paragraphSection("Conclusion", sec.Conclusion))
	doc.Add(methodologySection(sec.Methodology))
	doc.Add(document.Spacer{Height: 20}, document.NewParagraph(Footer, footerStyle))
	return doc, nil
}

// ── Sections ──

func (g *Generator) titleBlocks() []document.Block {
	return []document.Block{
		document.NewParagraph(g.Title, titleStyle),
		document.Spacer{Height: 4},
		document.NewParagraph(g.subtitle(), subtitleStyle),
		document.Divider{Width: 1, Color: visual.Track},
		document.Spacer{Height: 20},
	}
}

func paragraphSection(title, text string) document.Block {
	return document.KeepTogether{Blocks: []document.Block{
		heading(title),
		document.NewParagraph(text, summaryStyle),
		document.Spacer{Height: 20},
	}}
}

// numbered builds a list of items with bold numbers, each followed by a
// spacer.
func numbered(title string, items []string, style document.ParagraphStyle) []document.Block {
	if len(items) == 0 {
		return nil
	}
	blocks := []document.Block{heading(title)}
	for i, it := range items {
		blocks = append(blocks,
			document.Paragraph{Runs: []document.Run{document.Bold(fmt.Sprintf("%d.", i+1)), document.Text(" " + it)}, Style: style},
			document.Spacer{Height: 8})
	}
	blocks = append(blocks, document.Spacer{Height: 12})
	return []document.Block{document.KeepTogether{Blocks: blocks}}
}

func takeawaysSection(items []string) []document.Block {
	return numbered("Key Takeaways", items, takeawayStyle)
}

func insightsSection(items []string) []document.Block {
	return numbered("Detailed Insights", items, insightStyle)
}

// metricsSection charts the parsed metrics: before/after bars per category
// when bundles can be built, else single bars for growth and volume
// metrics, else the raw metric strings.
func metricsSection(parsed []metrics.ParsedMetric, raw []string, width float64) []document.Block {
	if len(parsed) == 0 {
		return nil
	}
	if charts := MetricCharts(parsed, width); len(charts) > 0 {
		return []document.Block{
			heading("Metrics Analysis"),
			document.KeepTogether{Blocks: charts},
			document.Spacer{Height: 12},
		}
	}
	blocks := []document.Block{heading("Key Metrics")}
	for _, text := range raw {
		blocks = append(blocks, ruled(document.NewParagraph(text, metricStyle))...)
	}
	return append(blocks, document.Spacer{Height: 20})
}

// MetricCharts returns the chart blocks of the metrics section, or nil when
// no metric can be charted.
func MetricCharts(parsed []metrics.ParsedMetric, width float64) []document.Block {
	w := math.Trunc(width)
	var blocks []document.Block

	ranked, maxOriginal := metrics.RankBundles(metrics.BuildBundles(parsed), maxMetricCharts)
	for _, b := range ranked {
		blocks = append(blocks, document.Flow{Drawable: visual.DualComparisonBar{
			Label:           b.Category,
			Original:        *b.OriginalValue,
			PercentIncrease: *b.Growth,
			MaxOriginal:     maxOriginal,
			Width:           w,
			Height:          50,
		}}, document.Spacer{Height: 10})
	}
	if len(blocks) > 0 {
		return blocks
	}

	growth := categorized(parsed, metrics.TypeGrowth)
	volume := categorized(parsed, metrics.TypeVolume)
	charted := map[string]bool{}
	// Bars carry the metric's own unit, else the section default.
	bar := func(m metrics.ParsedMetric, scale float64, color visual.Color, unit string) {
		charted[m.Category] = true
		if m.Unit != "" {
			unit = m.Unit
		}
		blocks = append(blocks, document.Flow{Drawable: visual.HorizontalBar{
			Label: m.Category, Value: *m.Value, Max: scale,
			Width: w, Height: 30, Color: color, Unit: unit,
		}}, document.Spacer{Height: 8})
	}

	if len(growth) > 0 {
		scale := 0.0
		for _, m := range growth {
			scale = math.Max(scale, math.Abs(*m.Value))
		}
		sort.SliceStable(growth, func(i, j int) bool { return math.Abs(*growth[i].Value) > math.Abs(*growth[j].Value) })
		for _, m := range firstN(growth, maxMetricCharts) {
			color := visual.Red
			if *m.Value > 0 {
				color = visual.Green
			}
			bar(m, scale, color, metrics.UnitPercent)
		}
	}
	// Volume bars only top up a short chart list.
	if len(volume) > 0 && len(blocks) < 5 {
		scale := 0.0
		for _, m := range volume {
			scale = math.Max(scale, *m.Value)
		}
		sort.SliceStable(volume, func(i, j int) bool { return *volume[i].Value > *volume[j].Value })
		for _, m := range firstN(volume, maxMetricCharts) {
			if !charted[m.Category] {
				bar(m, scale, visual.Blue, metrics.UnitRequests)
			}
		}
	}
	return blocks
}

// categorized returns the metrics of type t with both a value and a
// category.
func categorized(parsed []metrics.ParsedMetric, t metrics.Type) []metrics.ParsedMetric {
	var out []metrics.ParsedMetric
	for _, m := range parsed {
		if m.MetricType == t && m.HasValue() && m.Category != "" {
			out = append(out, m)
		}
	}
	return out
}

func recommendationsSection(recs []narrative.Recommendation) []document.Block {
	if len(recs) == 0 {
		return nil
	}
	blocks := []document.Block{heading("Recommendations")}
	for i, r := range recs {
		color := PriorityColor(r.Priority)
		style := recommendationStyle(color)
		main := document.Paragraph{Style: style, Runs: []document.Run{
			document.Bold(fmt.Sprintf("%d. ", i+1)),
			document.Colored("["+r.Priority+"]", color, true),
			document.Text(" " + r.Description),
		}}
		if r.Impact == "" {
			main.Style.SpaceBefore, main.Style.SpaceAfter = 8, 8
			blocks = append(blocks, main)
		} else {
			main.Style.SpaceBefore = 8
			impactStyle := style
			impactStyle.SpaceAfter = 8
			blocks = append(blocks, main, document.Paragraph{Style: impactStyle, Runs: []document.Run{
				document.Italic("Expected Impact:"),
				document.Text(" " + r.Impact),
			}})
		}
		blocks = append(blocks, document.Spacer{Height: 10})
	}
	blocks = append(blocks, document.Spacer{Height: 8})
	return []document.Block{document.KeepTogether{Blocks: blocks}}
}

func methodologySection(items []narrative.MethodologyItem) document.Block {
	blocks := []document.Block{heading("Methodology")}
	for _, it := range items {
		blocks = append(blocks, ruled(document.Paragraph{Style: methodologyStyle, Runs: []document.Run{
			document.Bold(it.Label + ":"),
			document.Text(" " + it.Text),
		}})...)
	}
	return document.KeepTogether{Blocks: blocks}
}

// ── Supporting data ──

// supportingData renders one subsection per product with data. The section
// heading is kept with the first subsection that has content; products
// without a dataset are left out.
func (g *Generator) supportingData(ctx context.Context, refs []ProductRef, width float64) []document.Block {
	var out []document.Block
	first := true
	for _, ref := range refs {
		if ref.Product == "" {
			continue
		}
		viz := g.Visualize(ctx, VisualizationRequest{Product: ref.Product, Why: ref.Why, Width: width})
		if len(viz) == 0 {
			continue
		}
		content := []document.Block{heading(g.Catalog.Title(ref.Product)), document.Spacer{Height: 12}}
		content = append(content, viz...)
		content = append(content, document.Spacer{Height: 20})

		if first {
			first = false
			lead := []document.Block{document.Spacer{Height: 20}, heading("Supporting Data Analysis"), document.Spacer{Height: 12}}
			content = append(lead, content...)
		}
		out = append(out, document.KeepTogether{Blocks: content})
	}
	return out
}

// Visualize loads the product's dataset and renders it with the strategy
// its shape calls for. Missing or empty datasets yield no blocks.
func (g *Generator) Visualize(ctx context.Context, req VisualizationRequest) []document.Block {
	if g.Source == nil {
		return nil
	}
	log := g.log().WithField("product", req.Product)
	t, err := g.Source.Load(ctx, req.Product)
	switch {
	case datasource.Missing(err):
		log.Debug("no dataset for product, omitting")
		return nil
	case err != nil:
		log.WithError(err).Warn("dataset load failed, omitting")
		return nil
	case t.Empty():
		log.Debug("empty dataset, omitting")
		return nil
	}
	if ct, rule := strategy.Describe(t); ct != "" {
		log.WithFields(logrus.Fields{"chart": ct, "rule": rule}).Debug("dataset classified")
	}
	return strategy.Render(t, req.Width)
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
