package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/infra"
)

// Router sends requests to the primary provider and falls back through the
// configured chain. Each provider is retried on transient errors. The router
// itself satisfies LLMProvider.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]LLMProvider
	primary    string
	fallbacks  []string
	maxRetries int
	retryDelay time.Duration
	limiter    *infra.RateLimiter
	log        logrus.FieldLogger
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithFallbacks sets the fallback provider chain.
func WithFallbacks(providers ...string) RouterOption {
	return func(r *Router) { r.fallbacks = providers }
}

// WithMaxRetries sets the number of retries per provider.
func WithMaxRetries(n int) RouterOption {
	return func(r *Router) { r.maxRetries = n }
}

// WithRetryDelay sets the base delay between retries; attempt n waits n×d.
func WithRetryDelay(d time.Duration) RouterOption {
	return func(r *Router) { r.retryDelay = d }
}

// WithRateLimiter makes every provider call take a token first.
func WithRateLimiter(rl *infra.RateLimiter) RouterOption {
	return func(r *Router) { r.limiter = rl }
}

// WithLogger sets the logger for fallback warnings.
func WithLogger(l logrus.FieldLogger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRouter creates a router with the given primary provider name.
func NewRouter(primary string, opts ...RouterOption) *Router {
	r := &Router{
		providers:  make(map[string]LLMProvider),
		primary:    primary,
		maxRetries: 2,
		retryDelay: time.Second,
		log:        infra.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProvider adds a provider under its Name.
func (r *Router) RegisterProvider(p LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// GetProvider returns a registered provider by name.
func (r *Router) GetProvider(name string) (LLMProvider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// ProviderNames returns the registered provider names, sorted.
func (r *Router) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain returns the order providers are tried in.
func (r *Router) Chain() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := []string{r.primary}
	for _, fb := range r.fallbacks {
		if fb != r.primary {
			chain = append(chain, fb)
		}
	}
	return chain
}

func (r *Router) Name() string { return "router/" + r.primary }

// Models returns the union of the registered providers' models.
func (r *Router) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []string
	seen := make(map[string]bool)
	for _, p := range r.providers {
		for _, m := range p.Models() {
			if !seen[m] {
				seen[m] = true
				all = append(all, m)
			}
		}
	}
	sort.Strings(all)
	return all
}

// Ping checks the primary provider.
func (r *Router) Ping(ctx context.Context) error {
	p, ok := r.GetProvider(r.primary)
	if !ok {
		return fmt.Errorf("%w: primary provider %q not registered", ErrNoProviders, r.primary)
	}
	return p.Ping(ctx)
}

// Chat tries each provider of the chain in turn. Authentication and model
// errors on one provider move on to the next without retrying it.
func (r *Router) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	var lastErr error
	tried := 0
	for _, name := range r.Chain() {
		p, ok := r.GetProvider(name)
		if !ok {
			continue
		}
		tried++
		resp, err := r.chatWithRetry(ctx, p, messages, opts)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		r.log.WithField("provider", name).WithError(err).Warn("llm provider failed, trying next")
	}
	if tried == 0 {
		return nil, ErrNoProviders
	}
	return nil, fmt.Errorf("llm/router: all providers failed: %w", lastErr)
}

func (r *Router) chatWithRetry(ctx context.Context, p LLMProvider, messages []Message, opts *ChatOptions) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.retryDelay * time.Duration(attempt)):
			}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		resp, err := p.Chat(ctx, messages, opts)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// retryable reports transient failures worth another attempt on the same
// provider.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrNoAPIKey), errors.Is(err, ErrInvalidModel), errors.Is(err, ErrContextLength):
		return false
	}
	return true
}

// HealthCheck pings every registered provider concurrently.
func (r *Router) HealthCheck(ctx context.Context) map[string]error {
	r.mu.RLock()
	providers := make(map[string]LLMProvider, len(r.providers))
	for k, v := range r.providers {
		providers[k] = v
	}
	r.mu.RUnlock()

	var mu sync.Mutex
	results := make(map[string]error, len(providers))
	var g errgroup.Group
	for name, p := range providers {
		g.Go(func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			err := p.Ping(pingCtx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// NewRouterFromConfig registers every provider that has credentials. The
// configured primary comes first, the others follow in registration order.
// It returns ErrNoProviders when generation is disabled or nothing is
// configured.
func NewRouterFromConfig(cfg config.LLMConfig, log logrus.FieldLogger) (*Router, error) {
	if !cfg.Enabled {
		return nil, ErrNoProviders
	}
	primary := strings.ToLower(cfg.Primary)
	if primary == "" {
		primary = ProviderGemini
	}

	opts := []RouterOption{WithMaxRetries(2), WithRetryDelay(time.Second), WithLogger(log)}
	if cfg.RequestsPerMinute > 0 {
		opts = append(opts, WithRateLimiter(infra.PerMinute(cfg.RequestsPerMinute)))
	}
	router := NewRouter(primary, opts...)

	client := newHTTPClient(time.Duration(cfg.TimeoutSec) * time.Second)
	modelFor := func(name, fallback string) string {
		if name == primary && cfg.Model != "" {
			return cfg.Model
		}
		return fallback
	}

	var registered []string
	register := func(p LLMProvider, err error) {
		if err != nil {
			return
		}
		router.RegisterProvider(p)
		registered = append(registered, p.Name())
	}

	register(NewGeminiProvider(cfg.GeminiKey,
		WithGeminiModel(modelFor(ProviderGemini, DefaultGeminiModel)), WithGeminiHTTPClient(client)))
	register(NewOpenAIProvider(cfg.OpenAIKey,
		WithOpenAIModel(modelFor(ProviderOpenAI, "")), WithOpenAIHTTPClient(client)))
	register(NewAnthropicProvider(cfg.AnthropicKey,
		WithAnthropicModel(modelFor(ProviderAnthropic, "")), WithAnthropicHTTPClient(client)))
	// The local server joins as the primary or as a fallback behind a keyed
	// provider.
	if cfg.OllamaURL != "" && (primary == ProviderOllama || len(registered) > 0) {
		register(NewOllamaProvider(cfg.OllamaURL,
			WithOllamaModel(modelFor(ProviderOllama, DefaultOllamaModel)), WithOllamaHTTPClient(client)))
	}

	if len(registered) == 0 {
		return nil, ErrNoProviders
	}

	var fallbacks []string
	for _, name := range registered {
		if name != primary {
			fallbacks = append(fallbacks, name)
		}
	}
	router.fallbacks = fallbacks
	return router, nil
}
