package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICapability is the secondary extraction variant, used when Gemini
// is out of quota or keeps failing.
type OpenAICapability struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates the OpenAI variant.
func NewOpenAI(apiKey, model string) *OpenAICapability {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAICapability{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAICapability) Name() string { return "openai" }

func (o *OpenAICapability) Extract(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   3000,
		Temperature: 0.2,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("empty OpenAI response")
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError distinguishes billing exhaustion (insufficient_quota)
// from transient throttling, both of which come back as HTTP 429.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			if apiErr.Type == "insufficient_quota" || strings.Contains(strings.ToLower(apiErr.Message), "quota") {
				return fmt.Errorf("%w: %s", ErrQuotaExhausted, apiErr.Message)
			}
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
	}
	return fmt.Errorf("openai request failed: %w", err)
}
