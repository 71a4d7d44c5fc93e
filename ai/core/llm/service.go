package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/deepsearch/ai/models"
)

// Citation is a web source attached to generated text. Span indexes locate
// the supported segment inside GenResult.Text; both are -1 when the provider
// gave no span information.
type Citation struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	SpanStart   int    `json:"span_start"`
	SpanEnd     int    `json:"span_end"`
}

// CallStats records token usage and timing for a single call.
type CallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	CacheReadTokens  int   `json:"cache_read_tokens,omitempty"`
	DurationMs       int64 `json:"duration_ms"`
}

// GenResult is the outcome of one generation call.
type GenResult struct {
	Text         string     `json:"text"`
	Citations    []Citation `json:"citations,omitempty"`
	SourceURLs   []string   `json:"source_urls,omitempty"`
	HasGrounding bool       `json:"has_grounding"`
	Stats        CallStats  `json:"stats"`
}

// Options tune a single Generate call. Zero values mean "use the role
// defaults from the model router".
type Options struct {
	// WebSearch requests the provider's web search tool. When the provider
	// rejects the tool, the call is retried once without it.
	WebSearch bool

	MaxTokens   int
	Temperature *float32
}

// Service is the gateway every research phase calls the LLM through.
type Service interface {
	// Generate performs one synchronous completion for the given role.
	// The role decides model, token limit, and temperature unless opts
	// overrides them. Errors are classified; see Classify.
	Generate(ctx context.Context, role models.Role, prompt string, opts Options) (*GenResult, error)

	// Warmup sends a lightweight ping request to establish and warm up the
	// provider connection.
	Warmup(ctx context.Context)
}

// Config represents gateway configuration.
type Config struct {
	Provider string // deepseek, openai, siliconflow, zai, dashscope, openrouter, ollama
	APIKey   string
	BaseURL  string
	Timeout  int // Request timeout in seconds (default: 120)
}

type gateway struct {
	client   *openai.Client
	router   *models.Router
	provider string
	timeout  int // seconds
}

// NewService creates the LLM gateway for the given provider. The router
// supplies per-role model parameters.
func NewService(cfg *Config, router *models.Router) (Service, error) {
	if router == nil {
		return nil, fmt.Errorf("model router is required")
	}

	httpClient := newHTTPClient()
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = httpClient

	switch cfg.Provider {
	// --- Domestic Providers (China) ---
	case "deepseek":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://api.deepseek.com")
	case "siliconflow":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://api.siliconflow.cn/v1")
	case "zai":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://open.bigmodel.cn/api/paas/v4")
	case "dashscope":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://dashscope.aliyuncs.com/compatible-mode/v1")

	// --- International Providers ---
	case "openai":
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	case "openrouter":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://openrouter.ai/api/v1")

	// --- Local Providers ---
	case "ollama":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "http://localhost:11434")

	default:
		// Generic fallback for any other OpenAI-compatible provider
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120
	}

	return &gateway{
		client:   openai.NewClientWithConfig(clientConfig),
		router:   router,
		provider: cfg.Provider,
		timeout:  timeout,
	}, nil
}

func defaultBaseURL(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (g *gateway) Generate(ctx context.Context, role models.Role, prompt string, opts Options) (*GenResult, error) {
	params, err := g.router.Resolve(role)
	if err != nil {
		return nil, Classify(err)
	}

	maxTokens := params.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := params.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.timeout)*time.Second)
	defer cancel()

	slog.Debug("LLM: generate request",
		"role", role,
		"model", params.Model,
		"max_tokens", maxTokens,
		"web_search", opts.WebSearch,
	)

	req := openai.ChatCompletionRequest{
		Model:       params.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if opts.WebSearch {
		req.Tools = []openai.Tool{{Type: openai.ToolType("web_search")}}
	}

	startTime := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil && opts.WebSearch && isToolUnsupported(err) {
		// Provider has no web search tool; degrade to an ungrounded call.
		slog.Warn("LLM: web search tool unsupported, retrying ungrounded",
			"provider", g.provider, "model", params.Model)
		req.Tools = nil
		opts.WebSearch = false
		resp, err = g.client.CreateChatCompletion(ctx, req)
	}
	if err != nil {
		classified := Classify(err)
		slog.Error("LLM: generate request failed",
			"role", role, "class", classified.Class.String(), "error", err)
		return nil, classified
	}

	if len(resp.Choices) == 0 {
		slog.Warn("LLM: empty response", "role", role, "model", params.Model)
		return nil, Classify(fmt.Errorf("empty response from LLM"))
	}

	totalDuration := time.Since(startTime)

	result := &GenResult{
		Text: resp.Choices[0].Message.Content,
		Stats: CallStats{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			DurationMs:       totalDuration.Milliseconds(),
		},
	}
	if resp.Usage.PromptTokensDetails != nil && resp.Usage.PromptTokensDetails.CachedTokens > 0 {
		result.Stats.CacheReadTokens = resp.Usage.PromptTokensDetails.CachedTokens
	}

	if opts.WebSearch {
		result.Citations = ExtractCitations(result.Text)
		result.SourceURLs = uniqueURLs(result.Citations)
		result.HasGrounding = len(result.Citations) > 0
	}

	slog.Debug("LLM: generate response received",
		"role", role,
		"content_length", len(result.Text),
		"citations", len(result.Citations),
		"total_tokens", result.Stats.TotalTokens,
		"duration_ms", totalDuration.Milliseconds(),
	)

	return result, nil
}

func (g *gateway) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	params, err := g.router.Resolve(models.RoleTaskAnalysis)
	if err != nil {
		return
	}

	slog.Info("LLM: starting connection warmup", "provider", g.provider, "model", params.Model)

	startTime := time.Now()
	req := openai.ChatCompletionRequest{
		Model:       params.Model,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}
	_, err = g.client.CreateChatCompletion(warmupCtx, req)
	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("LLM: warmup ping failed (service will still work, first request may be slower)",
			"provider", g.provider,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	slog.Info("LLM: connection warmed up successfully",
		"provider", g.provider,
		"duration_ms", duration.Milliseconds(),
	)
}

// markdownLink matches inline [title](http...) links in generated text.
var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^)\s]+)\)`)

// ExtractCitations pulls inline markdown source links out of grounded text.
// OpenAI-compatible search providers weave sources into the content as
// [title](url); the surrounding sentence span is recorded as the citation
// span.
func ExtractCitations(text string) []Citation {
	matches := markdownLink.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	citations := make([]Citation, 0, len(matches))
	for _, m := range matches {
		citations = append(citations, Citation{
			Title:     text[m[2]:m[3]],
			URL:       text[m[4]:m[5]],
			SpanStart: m[0],
			SpanEnd:   m[1],
		})
	}
	return citations
}

func uniqueURLs(citations []Citation) []string {
	seen := make(map[string]struct{}, len(citations))
	urls := make([]string, 0, len(citations))
	for _, c := range citations {
		if _, ok := seen[c.URL]; ok {
			continue
		}
		seen[c.URL] = struct{}{}
		urls = append(urls, c.URL)
	}
	return urls
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
