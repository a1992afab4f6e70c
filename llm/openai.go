package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pevans/sitechat/answer"
	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAI generates answers with an OpenAI-compatible chat completion API.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAI creates a chat completion client. A non-empty cfg.APIURL points
// the client at any OpenAI-compatible server.
func NewOpenAI(cfg Config) *OpenAI {
	transportCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		transportCfg.BaseURL = cfg.APIURL
	}
	transportCfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(transportCfg),
		model:       model,
		maxTokens:   cfg.maxTokens(),
		temperature: float32(cfg.temperature()),
	}
}

// Generate sends the prompt as one user message and returns the first
// choice.
func (o *OpenAI) Generate(ctx context.Context, instructions, contextBlock, question string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: answer.BuildPrompt(instructions, contextBlock, question),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
