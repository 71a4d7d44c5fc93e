// Package ai wires the research stack together from a process profile.
package ai

import (
	"errors"

	"github.com/hrygo/deepsearch/ai/core/llm"
	"github.com/hrygo/deepsearch/internal/profile"
)

// Config represents the research AI configuration.
type Config struct {
	LLM            llm.Config
	SearchModel    string
	ReasoningModel string

	// DefaultEffort is the effort level used when a request names none.
	DefaultEffort string

	// SearchesPerSecond throttles grounded search calls.
	SearchesPerSecond float64

	Enabled bool
}

// NewConfigFromProfile creates the AI config from a profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.AIEnabled,
	}
	if !cfg.Enabled {
		return cfg
	}

	cfg.LLM = llm.Config{
		Provider: p.LLMProvider,
		APIKey:   p.LLMAPIKey,
		BaseURL:  p.LLMBaseURL,
		Timeout:  p.LLMTimeout,
	}
	cfg.SearchModel = p.SearchModel
	cfg.ReasoningModel = p.ReasoningModel
	cfg.DefaultEffort = p.Effort
	cfg.SearchesPerSecond = p.SearchesPerSecond

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	if c.SearchModel == "" {
		return errors.New("search model is required")
	}
	if c.ReasoningModel == "" {
		return errors.New("reasoning model is required")
	}

	return nil
}
