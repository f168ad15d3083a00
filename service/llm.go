package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
)

// ErrGenerationFailed is returned when the model produced no usable text
// after all retries.
var ErrGenerationFailed = errors.New("failed to generate content")

// Completer generates a free-text completion for a prompt. No structural
// contract is enforced here; callers own all response validation.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiCompleter implements Completer on the Gemini SDK. A single-slot
// semaphore keeps at most one request in flight, which is how provider rate
// limits are respected across sequential batch work.
type GeminiCompleter struct {
	model *genai.GenerativeModel
	sem   chan struct{}
}

// NewGeminiCompleter creates a completer for the named model
func NewGeminiCompleter(client *genai.Client, modelName string) *GeminiCompleter {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	return &GeminiCompleter{
		model: model,
		sem:   make(chan struct{}, 1),
	}
}

// Complete sends the prompt and returns the concatenated candidate text,
// retrying transient failures with doubling backoff.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-c.sem }()

	backoff := initialBackoff
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
		}

		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", fmt.Errorf("generation canceled: %w", err)
			}
			continue
		}

		var builder strings.Builder
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					builder.WriteString(string(text))
				}
			}
		}
		if builder.Len() > 0 {
			return builder.String(), nil
		}
		lastErr = ErrGenerationFailed
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", maxRetries, lastErr)
}
