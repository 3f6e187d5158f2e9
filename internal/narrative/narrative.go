// Package narrative writes the prose sections of a report. Each section is
// first requested from the generative-text service; any failure, timeout,
// missing credential or too-short answer falls back to deterministic
// template text built from the parsed metrics.
package narrative

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/infra"
	"github.com/seenimoa/crmreport/internal/llm"
	"github.com/seenimoa/crmreport/internal/metrics"
)

// Recommendation priorities.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Section names, used in logs and Sections.Generated.
const (
	SectionIntroduction     = "introduction"
	SectionExecutiveSummary = "executive_summary"
	SectionInsights         = "detailed_insights"
	SectionRecommendations  = "recommendations"
	SectionConclusion       = "conclusion"
)

// Minimum lengths, in characters, for generated text to be accepted.
const (
	minIntroduction     = 50
	minExecutiveSummary = 100
	minConclusion       = 50
	minInsight          = 30
	minInsights         = 3
	maxInsights         = 4
	maxRecommendations  = 6
	maxTakeaways        = 5
)

// DefaultTimeout bounds each generative call.
const DefaultTimeout = 30 * time.Second

// Recommendation is one prioritised action item.
type Recommendation struct {
	Priority    string `json:"priority"`
	Description string `json:"description"`
	Impact      string `json:"impact,omitempty"`
}

// Input is what the narrative is written from.
type Input struct {
	Answer     string
	Rationale  []string
	KeyMetrics []string
	Metrics    []metrics.ParsedMetric // every parsed key metric, valued or not
}

// Sections holds the finished prose of a report.
type Sections struct {
	Introduction     string            `json:"introduction"`
	ExecutiveSummary string            `json:"executive_summary"`
	Takeaways        []string          `json:"takeaways"`
	Insights         []string          `json:"insights"`
	Recommendations  []Recommendation  `json:"recommendations"`
	Conclusion       string            `json:"conclusion"`
	Methodology      []MethodologyItem `json:"methodology"`

	// Generated lists the sections the model wrote; the rest are fallbacks.
	Generated []string `json:"generated,omitempty"`
}

// Synthesizer writes report sections. A nil Provider always uses the
// fallbacks. It holds no per-call state and is safe for concurrent use.
type Synthesizer struct {
	Provider   llm.LLMProvider
	Timeout    time.Duration
	Categories []string
	Options    *llm.ChatOptions
	Logger     logrus.FieldLogger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithTimeout bounds each generative call.
func WithTimeout(d time.Duration) Option { return func(s *Synthesizer) { s.Timeout = d } }

// WithCategories sets the category names recognised in free text.
func WithCategories(c []string) Option { return func(s *Synthesizer) { s.Categories = c } }

// WithChatOptions sets model, temperature and token limits.
func WithChatOptions(o *llm.ChatOptions) Option { return func(s *Synthesizer) { s.Options = o } }

// WithLogger sets the logger for fallback warnings.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Synthesizer) { s.Logger = l } }

// New returns a synthesizer backed by p, which may be nil.
func New(p llm.LLMProvider, opts ...Option) *Synthesizer {
	s := &Synthesizer{Provider: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromConfig builds a synthesizer from the llm and report settings. p may be
// nil, in which case every section uses its fallback.
func FromConfig(cfg *config.Config, p llm.LLMProvider, log logrus.FieldLogger) *Synthesizer {
	return New(p,
		WithTimeout(time.Duration(cfg.LLM.TimeoutSec)*time.Second),
		WithCategories(cfg.Report.KnownCategories),
		WithChatOptions(&llm.ChatOptions{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}),
		WithLogger(log),
	)
}

func (s *Synthesizer) log() logrus.FieldLogger {
	if s.Logger == nil {
		return infra.DiscardLogger()
	}
	return s.Logger
}

func (s *Synthesizer) categories() []string {
	if len(s.Categories) == 0 {
		return config.DefaultCategories
	}
	return s.Categories
}

// generate asks the model for one section. The second result is false when
// the caller should fall back.
func (s *Synthesizer) generate(ctx context.Context, section, prompt string) (string, bool) {
	if s.Provider == nil {
		return "", false
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := llm.Complete(cctx, s.Provider, SystemPrompt, prompt, s.Options)
	if err != nil {
		s.log().WithField("section", section).WithError(err).Warn("narrative generation failed, using fallback")
		return "", false
	}
	return text, true
}

// paragraph generates a single-paragraph section, accepting it only when
// the cleaned text is longer than minLen characters.
func (s *Synthesizer) paragraph(ctx context.Context, section, prompt string, minLen int) (string, bool) {
	raw, ok := s.generate(ctx, section, prompt)
	if !ok {
		return "", false
	}
	text := Clean(raw)
	if runeLen(text) <= minLen {
		s.log().WithFields(logrus.Fields{"section": section, "length": runeLen(text)}).
			Warn("generated text too short, using fallback")
		return "", false
	}
	return text, true
}

// ── Sections ──

// Introduction writes the opening paragraph.
func (s *Synthesizer) Introduction(ctx context.Context, in Input) (string, bool) {
	if text, ok := s.paragraph(ctx, SectionIntroduction, IntroductionPrompt(in), minIntroduction); ok {
		return text, true
	}
	return s.fallbackIntroduction(in), false
}

// ExecutiveSummary writes the high-level overview.
func (s *Synthesizer) ExecutiveSummary(ctx context.Context, in Input) (string, bool) {
	valued := metrics.WithValue(in.Metrics)
	if text, ok := s.paragraph(ctx, SectionExecutiveSummary, ExecutiveSummaryPrompt(in, valued), minExecutiveSummary); ok {
		return text, true
	}
	return fallbackExecutiveSummary(in, valued), false
}

// DetailedInsights writes 3-4 insights beyond the rationale.
func (s *Synthesizer) DetailedInsights(ctx context.Context, in Input) ([]string, bool) {
	valued := metrics.WithValue(in.Metrics)
	if raw, ok := s.generate(ctx, SectionInsights, InsightsPrompt(in, valued)); ok {
		if items := ParseList(raw, minInsight); len(items) >= minInsights {
			return firstN(items, maxInsights), true
		}
		s.log().WithField("section", SectionInsights).Warn("too few generated insights, using fallback")
	}
	return fallbackInsights(valued), false
}

// Recommendations writes up to six prioritised action items. The fallback
// derives them from keywords in the rationale.
func (s *Synthesizer) Recommendations(ctx context.Context, in Input) ([]Recommendation, bool) {
	valued := metrics.WithValue(in.Metrics)
	if raw, ok := s.generate(ctx, SectionRecommendations, RecommendationsPrompt(in, valued)); ok {
		if recs, ok := ParseRecommendations(raw); ok {
			return firstN(recs, maxRecommendations), true
		}
		s.log().WithField("section", SectionRecommendations).Warn("no recommendations in generated text, using fallback")
	}
	return firstN(s.fallbackRecommendations(in.Rationale), maxRecommendations), false
}

// Conclusion writes the closing paragraph.
func (s *Synthesizer) Conclusion(ctx context.Context, in Input, recs []Recommendation) (string, bool) {
	if text, ok := s.paragraph(ctx, SectionConclusion, ConclusionPrompt(in, recs), minConclusion); ok {
		return text, true
	}
	return s.fallbackConclusion(in), false
}

// Synthesize writes every section. It never fails; sections the model could
// not write use their fallbacks.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) *Sections {
	out := &Sections{
		Takeaways:   s.Takeaways(in.Answer, in.Rationale, maxTakeaways),
		Methodology: Methodology(in.Metrics),
	}
	mark := func(section string, generated bool) {
		if generated {
			out.Generated = append(out.Generated, section)
		}
	}

	var ok bool
	out.Recommendations, ok = s.Recommendations(ctx, in)
	mark(SectionRecommendations, ok)
	out.Introduction, ok = s.Introduction(ctx, in)
	mark(SectionIntroduction, ok)
	out.ExecutiveSummary, ok = s.ExecutiveSummary(ctx, in)
	mark(SectionExecutiveSummary, ok)
	out.Conclusion, ok = s.Conclusion(ctx, in, out.Recommendations)
	mark(SectionConclusion, ok)
	out.Insights, ok = s.DetailedInsights(ctx, in)
	mark(SectionInsights, ok)

	s.log().WithField("generated", len(out.Generated)).Debug("narrative sections ready")
	return out
}
