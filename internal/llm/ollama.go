package llm

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaModel is the local model used when none is configured.
const DefaultOllamaModel = "qwen2.5:7b"

var ollamaModels = []string{
	"qwen2.5:7b",
	"llama3.1:8b",
	"mistral:7b",
}

// OllamaProvider implements LLMProvider for a local Ollama server. It needs
// no API key.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// OllamaOption configures the Ollama provider.
type OllamaOption func(*OllamaProvider)

// WithOllamaModel sets the default model.
func WithOllamaModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(p *OllamaProvider) { p.client = client }
}

// NewOllamaProvider creates a provider for the server at baseURL.
func NewOllamaProvider(baseURL string, opts ...OllamaOption) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	p := &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   DefaultOllamaModel,
		client:  newHTTPClient(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *OllamaProvider) Name() string     { return ProviderOllama }
func (p *OllamaProvider) Models() []string { return ollamaModels }

// Ping checks the server by listing installed models.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return getStatus(ctx, p.client, ProviderOllama, p.baseURL+"/api/tags", nil)
}

// Chat sends a non-streaming /api/chat request.
func (p *OllamaProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	req := ollamaChatRequest{Model: resolveModel(opts, p.model)}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	if opts != nil && (opts.Temperature > 0 || opts.MaxTokens > 0 || opts.TopP > 0 || len(opts.Stop) > 0) {
		req.Options = &ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
			TopP:        opts.TopP,
			Stop:        opts.Stop,
		}
	}

	var raw ollamaChatResponse
	if err := postJSON(ctx, p.client, ProviderOllama, p.baseURL+"/api/chat", nil, req, &raw); err != nil {
		return nil, err
	}

	r := &Response{
		Content:      raw.Message.Content,
		Model:        raw.Model,
		Provider:     ProviderOllama,
		Latency:      time.Since(start),
		FinishReason: FinishStop,
		Usage: Usage{
			PromptTokens:     raw.PromptEvalCount,
			CompletionTokens: raw.EvalCount,
			TotalTokens:      raw.PromptEvalCount + raw.EvalCount,
		},
	}
	if r.Model == "" {
		r.Model = req.Model
	}
	if raw.DoneReason == "length" {
		r.FinishReason = FinishLength
	}
	return r, nil
}

// ── Wire types ──

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}
