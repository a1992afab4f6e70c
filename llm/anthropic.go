package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pevans/sitechat/answer"
)

const (
	defaultAnthropicURL   = "https://api.anthropic.com"
	defaultAnthropicModel = "claude-3-haiku-20240307"
	anthropicVersion      = "2023-06-01"
)

// Anthropic generates answers with the Anthropic Messages API.
type Anthropic struct {
	client      *http.Client
	apiKey      string
	apiURL      string
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropic creates a Messages API client from cfg.
func NewAnthropic(cfg Config) *Anthropic {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAnthropicURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		client:      &http.Client{Timeout: 60 * time.Second},
		apiKey:      cfg.APIKey,
		apiURL:      apiURL,
		model:       model,
		maxTokens:   cfg.maxTokens(),
		temperature: cfg.temperature(),
	}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends the whole prompt as a single user message and returns the
// first text block of the reply.
func (a *Anthropic) Generate(ctx context.Context, instructions, contextBlock, question string) (string, error) {
	reqBody := anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: answer.BuildPrompt(instructions, contextBlock, question),
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.apiKey)
	req.Header.Set("Anthropic-Version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}

	for _, block := range out.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("anthropic: response contained no text")
}
