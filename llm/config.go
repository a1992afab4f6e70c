// Package llm provides the text generators that answer questions from the
// assembled context.
package llm

import (
	"fmt"
	"strings"

	"github.com/pevans/sitechat/answer"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
)

// Config selects and configures a generator. Zero values fall back to the
// provider's defaults.
type Config struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	APIKey      string  `yaml:"api_key" json:"-"`
	APIURL      string  `yaml:"api_url" json:"api_url,omitempty"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) temperature() float64 {
	if c.Temperature <= 0 {
		return DefaultTemperature
	}
	return c.Temperature
}

// NewGenerator returns the generator for cfg.Provider. An empty provider
// selects Anthropic.
func NewGenerator(cfg Config) (answer.Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is not configured", providerName(cfg.Provider))
	}

	switch providerName(cfg.Provider) {
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func providerName(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return ProviderAnthropic
	}
	return p
}
