package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient wraps Google's Generative AI SDK, used for any model_id
// prefixed "gemini", text or vision (SPEC_FULL.md §6).
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a new Gemini API client. model defaults to
// "gemini-2.0-flash" when empty.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger := slog.Default().With("component", "gemini", "model", model)
	return &GeminiClient{client: client, model: model, logger: logger}, nil
}

// Complete sends a plain-text prompt and returns the text response.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, nil, nil, "")
}

// CompleteJSON sends a prompt and requests Gemini's native JSON mode.
func (c *GeminiClient) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, nil, nil, "application/json")
}

// CompleteVision sends an image alongside a prompt (C7 image analysis).
func (c *GeminiClient) CompleteVision(ctx context.Context, systemPrompt, userPrompt string, imageData []byte, imageMIME string) (string, error) {
	return c.generate(ctx, systemPrompt, userPrompt, imageData, &imageMIME, "application/json")
}

func (c *GeminiClient) generate(ctx context.Context, systemPrompt, userPrompt string, imageData []byte, imageMIME *string, responseMIME string) (string, error) {
	var systemInstruction *genai.Content
	if systemPrompt != "" {
		systemInstruction = genai.Text(systemPrompt)[0]
	}

	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       ptrFloat32(0.0), // deterministic (SPEC_FULL.md §4.5)
	}
	if responseMIME != "" {
		genConfig.ResponseMIMEType = responseMIME
	}

	contents := genai.Text(userPrompt)
	if len(imageData) > 0 && imageMIME != nil {
		contents = []*genai.Content{{
			Parts: []*genai.Part{
				{Text: userPrompt},
				{InlineData: &genai.Blob{Data: imageData, MIMEType: *imageMIME}},
			},
			Role: "user",
		}}
	}

	resp, err := c.generateWithRetry(ctx, c.model, contents, genConfig)
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	c.logger.Debug("gemini completion", "response_length", len(text))
	return text, nil
}

// generateWithRetry retries only on rate-limit responses; the shared
// Client.Complete retry loop handles everything else, so this stays
// narrowly scoped to 429/RESOURCE_EXHAUSTED.
func (c *GeminiClient) generateWithRetry(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	const maxRetries = 2
	const baseDelay = 3 * time.Second

	for attempt := 0; ; attempt++ {
		resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
		if err == nil {
			return resp, nil
		}

		msg := err.Error()
		is429 := strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
		if !is429 || attempt >= maxRetries {
			return nil, fmt.Errorf("gemini generation failed: %w", err)
		}

		delay := baseDelay * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close releases client resources. Gemini's SDK needs no explicit teardown.
func (c *GeminiClient) Close() error { return nil }

func ptrFloat32(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
