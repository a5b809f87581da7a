package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiCapability extracts items with a Gemini model. It is the primary
// variant in the production chain.
type GeminiCapability struct {
	client *genai.Client
	model  string
}

// NewGemini creates the Gemini variant.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiCapability, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCapability{client: client, model: model}, nil
}

func (g *GeminiCapability) Name() string { return "gemini" }

func (g *GeminiCapability) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func (g *GeminiCapability) Extract(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty Gemini response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(fmt.Sprintf("%v", part))
	}
	return b.String(), nil
}

// classifyGeminiError maps provider errors onto the capability sentinel
// errors. 429 with a quota message means the daily budget is gone;
// plain 429 is transient throttling.
func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 {
			if quotaMessage(apiErr.Message) {
				return fmt.Errorf("%w: %s", ErrQuotaExhausted, apiErr.Message)
			}
			return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
		}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota") {
		return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
	}
	if strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("gemini request failed: %w", err)
}

func quotaMessage(msg string) bool {
	lowered := strings.ToLower(msg)
	return strings.Contains(lowered, "quota") || strings.Contains(lowered, "resource_exhausted") ||
		strings.Contains(lowered, "exceeded")
}
