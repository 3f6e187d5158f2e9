package narrative

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/seenimoa/crmreport/internal/llm"
	"github.com/seenimoa/crmreport/internal/metrics"
)

func pm(t metrics.Type, v float64, category string) metrics.ParsedMetric {
	return metrics.ParsedMetric{MetricType: t, Value: &v, Category: category, Label: "m"}
}

var digits = regexp.MustCompile(`\d`)

// ════════════════════════════════════════════════════════════════════
// fallback.go
// ════════════════════════════════════════════════════════════════════

func TestGrowthDescriptor(t *testing.T) {
	cases := map[float64]string{
		80: "exceptional", 75.1: "exceptional", 75: "substantial", 51: "substantial",
		50: "moderate", 21: "moderate", 20: "notable", 3: "notable", -90: "exceptional",
	}
	for v, want := range cases {
		if got := GrowthDescriptor(v); got != want {
			t.Errorf("GrowthDescriptor(%v): got %q, want %q", v, got, want)
		}
	}
}

func TestFallbackIntroduction(t *testing.T) {
	s := New(nil)
	got := s.fallbackIntroduction(Input{Answer: "Trees and Roads are trending upward"})
	want := "This report presents a comprehensive analysis of CRM service request trends and patterns across key service categories including Trees, Roads. " +
		"The analysis identifies significant growth patterns and emerging trends that impact service delivery and resource allocation."
	if got != want {
		t.Errorf("intro:\n got %q\nwant %q", got, want)
	}

	got = s.fallbackIntroduction(Input{Answer: "Volumes were stable"})
	if !strings.HasSuffix(got, "category distributions to inform strategic planning.") || strings.Contains(got, "including") {
		t.Errorf("intro without categories: got %q", got)
	}

	if got := s.fallbackIntroduction(Input{}); !strings.Contains(got, "based on quantitative data analysis") {
		t.Errorf("intro without answer: got %q", got)
	}
}

func TestFallbackIntroductionCustomCategories(t *testing.T) {
	s := New(nil, WithCategories([]string{"Parking", "Noise"}))
	got := s.fallbackIntroduction(Input{Answer: "noise complaints doubled"})
	if !strings.Contains(got, "including Noise.") {
		t.Errorf("custom categories: got %q", got)
	}
}

func TestFallbackExecutiveSummary(t *testing.T) {
	valued := []metrics.ParsedMetric{
		pm(metrics.TypeGrowth, 30, "Roads"),
		pm(metrics.TypeGrowth, 80, "Trees"),
		pm(metrics.TypeVolume, 500, "Building"),
	}
	got := fallbackExecutiveSummary(Input{}, valued)
	want := "This analysis reveals Trees, Roads are experiencing exceptional growth, requiring strategic resource allocation to maintain service quality. " +
		"Building represents a high-volume service area requiring focused capacity planning."
	if got != want {
		t.Errorf("summary:\n got %q\nwant %q", got, want)
	}
	if digits.MatchString(got) {
		t.Errorf("summary should not quote figures: %q", got)
	}

	small := []metrics.ParsedMetric{pm(metrics.TypeGrowth, 12, "")}
	if got := fallbackExecutiveSummary(Input{}, small); !strings.Contains(got, "key service categories are experiencing notable changes") {
		t.Errorf("small growth: got %q", got)
	}
}

func TestFallbackExecutiveSummaryFromAnswer(t *testing.T) {
	got := fallbackExecutiveSummary(Input{Answer: "Growth is up 4.5 points. More later."}, nil)
	if got != "This analysis reveals significant trends in service request patterns. Growth is up points." {
		t.Errorf("multi-sentence: got %q", got)
	}
	got = fallbackExecutiveSummary(Input{Answer: "Growth is up"}, nil)
	if got != "This analysis reveals significant trends: Growth is up" {
		t.Errorf("single sentence: got %q", got)
	}
	got = fallbackExecutiveSummary(Input{Answer: "Roads grew 45% to 1,200 requests"}, nil)
	if got != "This analysis reveals significant trends: Roads grew moderate growth to significant volume" {
		t.Errorf("figures: got %q", got)
	}
	if strings.ContainsAny(got, "0123456789") {
		t.Errorf("figures leaked: %q", got)
	}
	if got := fallbackExecutiveSummary(Input{}, nil); !strings.HasSuffix(got, "require strategic attention.") {
		t.Errorf("empty: got %q", got)
	}
}

func TestFallbackInsights(t *testing.T) {
	valued := []metrics.ParsedMetric{
		pm(metrics.TypeGrowth, 80, "Trees"),
		pm(metrics.TypeGrowth, 30, "Roads"),
		pm(metrics.TypeGrowth, 10, "Building"),
		pm(metrics.TypeVolume, 400, "Trees"),
		pm(metrics.TypeVolume, 100, "Roads"),
	}
	got := fallbackInsights(valued)
	if len(got) != 4 {
		t.Fatalf("insights: got %d, want 4: %q", len(got), got)
	}
	prefixes := []string{
		"Comparative analysis reveals Trees demonstrates significantly higher growth momentum compared to Roads, which represents a distinct priority area",
		"Trees represents a critical service area experiencing both rapid growth and high volume",
		"Volume distribution analysis reveals Trees accounts for a dominant share",
		"The widespread positive growth",
	}
	for i, p := range prefixes {
		if !strings.HasPrefix(got[i], p) {
			t.Errorf("insight %d: got %q, want prefix %q", i, got[i], p)
		}
		if digits.MatchString(got[i]) {
			t.Errorf("insight %d quotes figures: %q", i, got[i])
		}
	}
}

func TestFallbackInsightsEmergingCategory(t *testing.T) {
	valued := []metrics.ParsedMetric{
		pm(metrics.TypeGrowth, 60, "Engineering"),
		pm(metrics.TypeVolume, 50, "Engineering"),
	}
	got := fallbackInsights(valued)
	if !strings.HasPrefix(got[0], "Emerging service categories like Engineering") {
		t.Errorf("first insight: got %q", got[0])
	}
	if !strings.Contains(got[1], "a dominant share") {
		t.Errorf("second insight: got %q", got[1])
	}
	if len(got) != 3 || !strings.HasPrefix(got[2], "The observed growth trends") {
		t.Errorf("filler: got %q", got)
	}
}

func TestFallbackInsightsWithoutMetrics(t *testing.T) {
	got := fallbackInsights(nil)
	if len(got) != 2 || !strings.HasPrefix(got[0], "The observed trends suggest") || !strings.HasPrefix(got[1], "These patterns highlight") {
		t.Errorf("got %q", got)
	}
}

func TestFallbackRecommendations(t *testing.T) {
	s := New(nil)
	recs := s.fallbackRecommendations([]string{
		"Trees increased by 40% growth",
		"Volume of service requests rose",
		"Recreation and leisure shows growth",
		"Nothing to see",
		"Building increase ignored beyond the fourth item",
	})
	if len(recs) != 3 {
		t.Fatalf("recommendations: got %d, want 3: %+v", len(recs), recs)
	}
	if recs[0].Priority != PriorityHigh || !strings.Contains(recs[0].Description, "staffing for Trees to handle") {
		t.Errorf("first: got %+v", recs[0])
	}
	if recs[1].Priority != PriorityMedium || !strings.HasPrefix(recs[1].Description, "Review and optimize") {
		t.Errorf("second: got %+v", recs[1])
	}
	if recs[2].Priority != PriorityMedium || !strings.Contains(recs[2].Description, "for Recreation to") {
		t.Errorf("third: got %+v", recs[2])
	}

	generic := s.fallbackRecommendations([]string{"Overall growth in demand"})
	if !strings.Contains(generic[0].Description, "high-growth categories") {
		t.Errorf("generic target: got %q", generic[0].Description)
	}
}

func TestFallbackConclusion(t *testing.T) {
	s := New(nil)
	got := s.fallbackConclusion(Input{Answer: "Building and City General show growth; Trees too"})
	if !strings.Contains(got, "including Trees, Building, indicating") {
		t.Errorf("categories: got %q", got)
	}
	if !strings.Contains(got, "observed growth patterns") || !strings.HasSuffix(got, "as these trends evolve.") {
		t.Errorf("conclusion: got %q", got)
	}
	if got := s.fallbackConclusion(Input{}); !strings.HasPrefix(got, "In summary") {
		t.Errorf("empty: got %q", got)
	}
}

func TestTakeaways(t *testing.T) {
	s := New(nil)
	got := s.Takeaways("Top trending categories are Roads and Trees",
		[]string{"Recreation increased by 280 requests (73.1% growth)", "Too short 5%"}, 5)
	want := []string{
		"The top trending service request categories include Trees, Roads, traffic and sidewalks, showing significant growth patterns.",
		"Recreation increased by significant volume (substantial growth)",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("takeaways:\n got %q\nwant %q", got, want)
	}
}

func TestTakeawaysFromFirstSentence(t *testing.T) {
	s := New(nil)
	got := s.Takeaways("Requests rose 45% to 1200 requests in March. Later text.", nil, 5)
	if len(got) != 1 || got[0] != "Requests rose significant to substantial volume in March." {
		t.Errorf("got %q", got)
	}
}

func TestTakeawaysLimitAndDuplicates(t *testing.T) {
	s := New(nil)
	line := "Service demand rose sharply across the city this month"
	got := s.Takeaways("", []string{line, line, line + " again", line + " twice", line + " thrice", line + " more"}, 3)
	if len(got) != 2 {
		t.Errorf("got %d takeaways, want 2 (duplicate dropped within the first 3): %q", len(got), got)
	}
}

func TestMethodology(t *testing.T) {
	parsed := []metrics.ParsedMetric{
		pm(metrics.TypeGrowth, 10, "Trees"),
		{MetricType: metrics.TypeGrowth, Label: "Growth Rate"},
		pm(metrics.TypeVolume, 100, "Roads"),
	}
	items := Methodology(parsed)
	if len(items) != 5 {
		t.Fatalf("items: got %d, want 5", len(items))
	}
	if items[3].Label != "Metrics Analyzed" || items[3].Text != "2 growth rate metrics, 1 volume metric" {
		t.Errorf("metrics line: got %+v", items[3])
	}
	if items[4].Label != "Insights Generation" {
		t.Errorf("last: got %+v", items[4])
	}
	if got := Methodology(nil); len(got) != 4 {
		t.Errorf("without metrics: got %d items, want 4", len(got))
	}
}

// ════════════════════════════════════════════════════════════════════
// clean.go
// ════════════════════════════════════════════════════════════════════

func TestClean(t *testing.T) {
	cases := map[string]string{
		"**Bold** <p>Para one</p><p>two &amp; three</p>": "Bold Para one two & three",
		"## Heading\n\nSome *emphasis* here":             "Heading Some emphasis here",
		"Line one<br>line two":                            "Line one line two",
		"Roads & Trees < 5 days":                          "Roads & Trees < 5 days",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestParseList(t *testing.T) {
	raw := "Here are the insights:\n1. First insight that is definitely long enough\n2) Second insight that is definitely long enough\n- short\n* Third bullet insight that is long enough to keep"
	got := ParseList(raw, 30)
	want := []string{
		"First insight that is definitely long enough",
		"Second insight that is definitely long enough",
		"Third bullet insight that is long enough to keep",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("ParseList:\n got %q\nwant %q", got, want)
	}
}

func TestParseRecommendations(t *testing.T) {
	raw := "Here you go:\n```json\n[{\"priority\":\"high\",\"description\":\"Add **crews**\",\"impact\":\"Faster\"},{\"description\":\"Review routes\"},{\"priority\":\"LOW\",\"description\":\"\"}]\n```"
	recs, ok := ParseRecommendations(raw)
	if !ok || len(recs) != 2 {
		t.Fatalf("got %+v, %v", recs, ok)
	}
	if recs[0] != (Recommendation{Priority: PriorityHigh, Description: "Add crews", Impact: "Faster"}) {
		t.Errorf("first: got %+v", recs[0])
	}
	if recs[1].Priority != PriorityMedium {
		t.Errorf("missing priority: got %q, want MEDIUM", recs[1].Priority)
	}

	for _, bad := range []string{"no json here", "[not json]", "[]"} {
		if _, ok := ParseRecommendations(bad); ok {
			t.Errorf("ParseRecommendations(%q) should fail", bad)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// narrative.go
// ════════════════════════════════════════════════════════════════════

// scriptedProvider answers by recognising which section a prompt asks for.
type scriptedProvider struct {
	replies map[string]string
	errs    map[string]error
	block   bool
}

func (p *scriptedProvider) Name() string               { return "scripted" }
func (p *scriptedProvider) Models() []string           { return nil }
func (p *scriptedProvider) Ping(context.Context) error { return nil }

func (p *scriptedProvider) Chat(ctx context.Context, msgs []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	prompt := msgs[len(msgs)-1].Content
	for marker, err := range p.errs {
		if strings.Contains(prompt, marker) {
			return nil, err
		}
	}
	for marker, reply := range p.replies {
		if strings.Contains(prompt, marker) {
			return &llm.Response{Content: reply}, nil
		}
	}
	return &llm.Response{Content: ""}, nil
}

var sampleInput = Input{
	Answer:     "Recreation and leisure requests are trending upward.",
	Rationale:  []string{"Recreation increased by 280 requests (73.1% growth)"},
	KeyMetrics: []string{"280 requests increase in Recreation", "73.1% growth in Recreation"},
	Metrics:    metrics.ParseAll([]string{"280 requests increase in Recreation", "73.1% growth in Recreation"}),
}

func TestSynthesizeMixesGeneratedAndFallback(t *testing.T) {
	p := &scriptedProvider{
		replies: map[string]string{
			"introduction paragraph": "<p>This report examines how **Recreation and leisure** demand has evolved and what it means for staffing.</p>",
			"executive summary":      "Too short.",
			"numbered list": "1. Recreation demand is outpacing every other category in the period reviewed.\n" +
				"2. Seasonal programming drives most of the additional requests in recreation.\n" +
				"3. Staffing models built on last year's demand will fall short this season.",
			"JSON array": `[{"priority":"HIGH","description":"Add seasonal recreation staff.","impact":"Shorter queues"}]`,
		},
		errs: map[string]error{"conclusion paragraph": llm.ErrProviderDown},
	}
	logger, hook := logtest.NewNullLogger()
	s := New(p, WithLogger(logger))

	out := s.Synthesize(context.Background(), sampleInput)

	if out.Introduction != "This report examines how Recreation and leisure demand has evolved and what it means for staffing." {
		t.Errorf("introduction: got %q", out.Introduction)
	}
	if !strings.HasPrefix(out.ExecutiveSummary, "This analysis reveals") {
		t.Errorf("short summary should fall back, got %q", out.ExecutiveSummary)
	}
	if len(out.Insights) != 3 || !strings.HasPrefix(out.Insights[0], "Recreation demand") {
		t.Errorf("insights: got %q", out.Insights)
	}
	if len(out.Recommendations) != 1 || out.Recommendations[0].Description != "Add seasonal recreation staff." {
		t.Errorf("recommendations: got %+v", out.Recommendations)
	}
	if !strings.HasPrefix(out.Conclusion, "The analysis reveals significant trends across service categories including Recreation and leisure") {
		t.Errorf("conclusion should fall back, got %q", out.Conclusion)
	}

	want := []string{SectionRecommendations, SectionIntroduction, SectionInsights}
	if strings.Join(out.Generated, ",") != strings.Join(want, ",") {
		t.Errorf("Generated: got %v, want %v", out.Generated, want)
	}

	warned := map[string]bool{}
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned[e.Data["section"].(string)] = true
		}
	}
	if !warned[SectionExecutiveSummary] || !warned[SectionConclusion] {
		t.Errorf("expected warnings for summary and conclusion, got %v", warned)
	}
}

func TestSynthesizeWithoutProvider(t *testing.T) {
	out := New(nil).Synthesize(context.Background(), sampleInput)
	if len(out.Generated) != 0 {
		t.Errorf("Generated: got %v, want none", out.Generated)
	}
	if out.Introduction == "" || out.ExecutiveSummary == "" || out.Conclusion == "" {
		t.Errorf("every paragraph needs a fallback: %+v", out)
	}
	if len(out.Takeaways) == 0 || len(out.Methodology) == 0 || len(out.Recommendations) == 0 {
		t.Errorf("lists: %+v", out)
	}
}

func TestMissingCredentialFallsBack(t *testing.T) {
	p := &scriptedProvider{errs: map[string]error{"": llm.ErrNoAPIKey}}
	got, generated := New(p).Introduction(context.Background(), sampleInput)
	if generated || !strings.HasPrefix(got, "This report presents") {
		t.Errorf("got %q, generated=%v", got, generated)
	}
}

func TestTimeoutFallsBack(t *testing.T) {
	s := New(&scriptedProvider{block: true}, WithTimeout(10*time.Millisecond))
	start := time.Now()
	got, generated := s.Introduction(context.Background(), sampleInput)
	if generated || got == "" {
		t.Errorf("got %q, generated=%v", got, generated)
	}
	if time.Since(start) > time.Second {
		t.Errorf("timeout not applied: took %v", time.Since(start))
	}
}

func TestPromptsCarryContext(t *testing.T) {
	valued := metrics.WithValue(sampleInput.Metrics)
	if p := IntroductionPrompt(sampleInput); !strings.Contains(p, sampleInput.Answer) || !strings.Contains(p, "- 280 requests increase in Recreation") {
		t.Errorf("introduction prompt: %s", p)
	}
	if p := RecommendationsPrompt(sampleInput, valued); !strings.Contains(p, `"priority"`) {
		t.Errorf("recommendations prompt: %s", p)
	}
	recs := []Recommendation{{Priority: PriorityLow, Description: "Track weekly volumes."}}
	if p := ConclusionPrompt(sampleInput, recs); !strings.Contains(p, "- Track weekly volumes.") {
		t.Errorf("conclusion prompt: %s", p)
	}
}
