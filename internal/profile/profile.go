package profile

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration to start the research server.
type Profile struct {
	// Unified LLM configuration (OpenAI-compatible protocol)
	// All providers (zai, deepseek, openai, siliconflow, dashscope,
	// openrouter, ollama) use the same config.
	LLMProvider string // Provider identifier
	LLMAPIKey   string // Unified LLM API key
	LLMBaseURL  string // Unified LLM base URL (optional, has default per provider)
	LLMTimeout  int    // LLM request timeout in seconds (default: 120)

	// Model roles. SearchModel must support provider-side web search;
	// ReasoningModel drives classification, reflection, and synthesis.
	SearchModel    string
	ReasoningModel string

	// Research engine tuning
	Effort            string  // default effort level: low, medium, high
	SearchesPerSecond float64 // grounded-search rate limit (default: 1)

	// Server configuration
	Mode    string
	Addr    string
	Port    int
	Version string

	AIEnabled bool
}

// Provider default configurations for the LLM gateway.
// Used when the base URL or models are not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL     string
	Model       string
	SearchModel string
}{
	"zai": {
		BaseURL:     "https://open.bigmodel.cn/api/paas/v4",
		Model:       "glm-4.7",
		SearchModel: "glm-4.7",
	},
	"deepseek": {
		BaseURL:     "https://api.deepseek.com",
		Model:       "deepseek-chat",
		SearchModel: "deepseek-chat",
	},
	"openai": {
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-5.2",
		SearchModel: "gpt-5.2",
	},
	"siliconflow": {
		BaseURL:     "https://api.siliconflow.cn/v1",
		Model:       "Qwen/Qwen2.5-72B-Instruct",
		SearchModel: "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:       "qwen-max-latest",
		SearchModel: "qwen-max-latest",
	},
	"openrouter": {
		BaseURL:     "https://openrouter.ai/api/v1",
		Model:       "deepseek/deepseek-chat",
		SearchModel: "perplexity/sonar", // native web search
	},
	"ollama": {
		BaseURL:     "http://localhost:11434",
		Model:       "llama3.1",
		SearchModel: "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float64 or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("DEEPSEARCH_AI_LLM_PROVIDER", "zai")
	p.LLMAPIKey = getEnvOrDefault("DEEPSEARCH_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("DEEPSEARCH_AI_LLM_BASE_URL", "")
	p.LLMTimeout = getEnvOrDefaultInt("DEEPSEARCH_AI_LLM_TIMEOUT_SECONDS", 120)

	// Model roles
	p.ReasoningModel = getEnvOrDefault("DEEPSEARCH_AI_LLM_MODEL", "")
	p.SearchModel = getEnvOrDefault("DEEPSEARCH_AI_SEARCH_MODEL", "")

	// Research engine tuning
	p.Effort = getEnvOrDefault("DEEPSEARCH_EFFORT", "medium")
	p.SearchesPerSecond = getEnvOrDefaultFloat("DEEPSEARCH_SEARCHES_PER_SECOND", 1)

	// AI is enabled if API key is configured
	p.AIEnabled = p.LLMAPIKey != ""

	// Validate and apply provider defaults if not explicitly set
	if p.LLMProvider != "" {
		if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
			slog.Warn("Unknown LLM provider, using default: zai", "provider", p.LLMProvider)
			p.LLMProvider = "zai"
		}
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.ReasoningModel == "" {
			p.ReasoningModel = defaults.Model
		}
		if p.SearchModel == "" {
			p.SearchModel = defaults.SearchModel
		}
	}
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Port < 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.Effort != "low" && p.Effort != "medium" && p.Effort != "high" {
		slog.Warn("Unknown effort level, using medium", "effort", p.Effort)
		p.Effort = "medium"
	}

	if p.SearchesPerSecond <= 0 {
		p.SearchesPerSecond = 1
	}

	return nil
}
