package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements the Client interface against Google's Gemini API,
// grounded on the genai wiring pattern used for thinktank's gemini client:
// a cached *genai.GenerativeModel configured once at construction time and
// reused across calls.
type GeminiClient struct {
	client      *genai.Client
	model       *genai.GenerativeModel
	modelName   string
	temperature float64
}

// NewGeminiClient creates a Gemini-backed Client for the given purpose
// configuration. APIKey is required; an empty key is an error (callers read
// it from GOOGLE_API_KEY).
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required (set GOOGLE_API_KEY or config.api_key)")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini: model name is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(float32(cfg.Temperature))

	return &GeminiClient{
		client:      client,
		model:       model,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends the conversation to Gemini, retrying transient failures
// with a bounded exponential backoff (the fixer and evaluator both depend
// on this since a provider hiccup should not waste a whole autofix attempt).
func (c *GeminiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if maxTok, ok := req.Options["max_output_tokens"]; ok {
		if tok, ok := maxTok.(int); ok {
			c.model.SetMaxOutputTokens(int32(tok))
		}
	}

	prompt := buildGeminiPrompt(req)

	var resp *genai.GenerateContentResponse
	operation := func() error {
		r, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("gemini: generation failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("gemini: no candidates returned")
	}

	candidate := resp.Candidates[0]
	var content strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content.WriteString(string(text))
			}
		}
	}

	var tokensUsed int
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &Response{
		Content:    content.String(),
		Model:      c.modelName,
		TokensUsed: tokensUsed,
		Metadata: map[string]any{
			"finish_reason": candidate.FinishReason.String(),
		},
	}, nil
}

func buildGeminiPrompt(req Request) string {
	var systemPrompt string
	var body strings.Builder

	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			systemPrompt = msg.Content
		default:
			body.WriteString(msg.Content)
			body.WriteString("\n")
		}
	}

	if systemPrompt == "" {
		return strings.TrimSpace(body.String())
	}
	return systemPrompt + "\n\n" + strings.TrimSpace(body.String())
}

// GetModel returns the model name.
func (c *GeminiClient) GetModel() string {
	return c.modelName
}

// GetProvider returns "gemini".
func (c *GeminiClient) GetProvider() string {
	return "gemini"
}

// IsAvailable does a cheap token-count call to confirm the API key and
// model are reachable.
func (c *GeminiClient) IsAvailable(ctx context.Context) bool {
	_, err := c.model.CountTokens(ctx, genai.Text("ping"))
	return err == nil
}
