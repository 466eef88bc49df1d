// Package llm provides the shared completion client used by every analyzer
// (SPEC_FULL.md §4.5, §5, §6): deterministic, schema-constrained JSON
// completions with vision support, provider-tier retry, and rate limiting.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/config"
	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
)

// Provider identifies which backend serves a given model_id.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

func providerForModel(modelID string) Provider {
	if strings.HasPrefix(modelID, "gemini") {
		return ProviderGemini
	}
	return ProviderOpenAI
}

// JSONSchema describes a structured-output contract: the caller supplies
// the JSON Schema it expects the model's response to satisfy. Analyzers
// validate the decoded result against internal/models afterward — this is
// a completion-time constraint, not a substitute for that validation.
type JSONSchema struct {
	Name   string
	Schema map[string]any
	Strict bool
}

// Request is one completion call. ImageData/ImageMIME are set only for
// vision calls (C7 image analysis); everything else is a text call.
type Request struct {
	ModelID      string
	SystemPrompt string
	UserPrompt   string
	ImageData    []byte
	ImageMIME    string
	Schema       *JSONSchema
}

// Client dispatches completions to the provider a request's ModelID
// selects, applying a shared rate limiter and retry budget in front of
// both providers (SPEC_FULL.md §5.2, §6 provider_transient handling).
type Client struct {
	openai     *openai.Client
	gemini     *GeminiClient
	geminiKey  string
	limiter    Limiter
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// New builds a Client from resolved configuration. The Gemini backend is
// initialized lazily on first use so a pure-OpenAI deployment never pays
// for a genai.Client it never calls.
func New(cfg *config.Config, geminiAPIKey string) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, evterrors.ConfigurationError("llm client requires an API key")
	}

	limiter, err := NewLimiter(cfg.Redis.URL)
	if err != nil {
		return nil, evterrors.ConfigurationErrorf("failed to initialize rate limiter: %v", err)
	}

	return &Client{
		openai:     openai.NewClient(cfg.APIKey),
		geminiKey:  geminiAPIKey,
		limiter:    limiter,
		maxRetries: cfg.Core.LLMMaxRetries,
		timeout:    time.Duration(cfg.Core.LLMTimeoutSeconds) * time.Second,
		logger:     slog.Default().With("component", "llm"),
	}, nil
}

func (c *Client) ensureGemini(ctx context.Context) error {
	if c.gemini != nil {
		return nil
	}
	if c.geminiKey == "" {
		return evterrors.ConfigurationError("gemini model requested but no gemini api key configured")
	}
	gc, err := NewGeminiClient(ctx, c.geminiKey, "")
	if err != nil {
		return err
	}
	c.gemini = gc
	return nil
}

// Close releases the rate limiter's connection (and the Gemini client, if
// one was ever initialized).
func (c *Client) Close() error {
	var err error
	if c.limiter != nil {
		err = c.limiter.Close()
	}
	if c.gemini != nil {
		if gerr := c.gemini.Close(); gerr != nil && err == nil {
			err = gerr
		}
	}
	return err
}

// Complete runs one completion, applying the shared rate limiter and a
// bounded retry loop. A provider_transient error (network, 5xx, 429) is
// retried up to LLMMaxRetries with exponential backoff; anything else
// (a refusal, a bad request) is returned immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	estimatedTokens := int64(len(req.SystemPrompt)+len(req.UserPrompt)) / 4
	if err := c.limiter.Wait(ctx, estimatedTokens); err != nil {
		return "", evterrors.ProviderTransientError(err, "rate limiter wait failed")
	}

	var lastErr error
	baseDelay := time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var result string
		var err error

		if providerForModel(req.ModelID) == ProviderGemini {
			if err = c.ensureGemini(ctx); err == nil {
				result, err = c.completeGemini(ctx, req)
			}
		} else {
			result, err = c.completeOpenAI(ctx, req)
		}

		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isTransient(err) {
			return "", err
		}
		if attempt == c.maxRetries {
			break
		}

		delay := baseDelay * (1 << uint(attempt))
		c.logger.Warn("provider call failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", evterrors.ProviderTransientError(ctx.Err(), "context cancelled during retry backoff")
		}
	}

	return "", evterrors.ProviderTransientError(lastErr, fmt.Sprintf("provider call failed after %d retries", c.maxRetries))
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "resource_exhausted", "timeout", "connection reset", "503", "502", "500"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (c *Client) completeOpenAI(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
	}

	if len(req.ImageData) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.UserPrompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", req.ImageMIME, base64.StdEncoding.EncodeToString(req.ImageData)),
					},
				},
			},
		})
	} else {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})
	}

	request := openai.ChatCompletionRequest{
		Model:       req.ModelID,
		Messages:    messages,
		Temperature: 0.0, // deterministic (SPEC_FULL.md §4.5)
		MaxTokens:   4096,
	}

	if req.Schema != nil {
		schemaJSON, err := json.Marshal(req.Schema.Schema)
		if err != nil {
			return "", fmt.Errorf("failed to marshal json schema: %w", err)
		}
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: json.RawMessage(schemaJSON),
				Strict: req.Schema.Strict,
			},
		}
	}

	resp, err := c.openai.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", evterrors.ProviderRefusalError("openai returned no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", evterrors.ProviderRefusalError("openai refused the request (content filter)")
	}

	c.logger.Debug("openai completion", "model", req.ModelID, "tokens_used", resp.Usage.TotalTokens)
	return choice.Message.Content, nil
}

func (c *Client) completeGemini(ctx context.Context, req Request) (string, error) {
	if len(req.ImageData) > 0 {
		return c.gemini.CompleteVision(ctx, req.SystemPrompt, req.UserPrompt, req.ImageData, req.ImageMIME)
	}
	if req.Schema != nil {
		return c.gemini.CompleteJSON(ctx, req.SystemPrompt, req.UserPrompt)
	}
	return c.gemini.Complete(ctx, req.SystemPrompt, req.UserPrompt)
}
