package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

const (
	embeddingAPI      = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:embedContent"
	batchEmbeddingAPI = "https://generativelanguage.googleapis.com/v1beta/models/gemini-embedding-001:batchEmbedContents"

	embeddingModel     = "models/gemini-embedding-001"
	embeddingDimension = 768
	embeddingBatchSize = 100 // Google's API limit

	maxRetries     = 3
	initialBackoff = time.Second
)

// Embedder converts texts into fixed-dimension numeric vectors
type Embedder interface {
	// EmbedTexts embeds documents for indexing, preserving input order
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)

	// EmbedQuery embeds a single retrieval query
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// EmbeddingRequest represents an embedding API request
type EmbeddingRequest struct {
	Model                string       `json:"model"`
	Content              ContentInput `json:"content"`
	TaskType             string       `json:"task_type,omitempty"`
	OutputDimensionality int          `json:"output_dimensionality,omitempty"`
}

// ContentInput represents content for embedding
type ContentInput struct {
	Parts []PartInput `json:"parts"`
}

// PartInput represents a part of content
type PartInput struct {
	Text string `json:"text"`
}

// EmbeddingResponse represents a single embedding API response
type EmbeddingResponse struct {
	Embedding EmbeddingData `json:"embedding"`
}

// EmbeddingData contains the embedding values
type EmbeddingData struct {
	Values []float64 `json:"values"`
}

// BatchEmbeddingItem is the structure returned by the batch API (no nested
// "embedding" key)
type BatchEmbeddingItem struct {
	Values []float64 `json:"values"`
}

// BatchEmbeddingRequest wraps multiple embedding requests
type BatchEmbeddingRequest struct {
	Requests []EmbeddingRequest `json:"requests"`
}

// BatchEmbeddingResponse carries the batch API results
type BatchEmbeddingResponse struct {
	Embeddings []BatchEmbeddingItem `json:"embeddings"`
}

// GeminiEmbedder implements Embedder against the Gemini embedding API
type GeminiEmbedder struct {
	apiKey string
	client *http.Client
}

// NewGeminiEmbedder creates an embedder using the given API key
func NewGeminiEmbedder(apiKey string) *GeminiEmbedder {
	return &GeminiEmbedder{
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// NewGeminiEmbedderFromEnv creates an embedder from GEMINI_API_KEY
func NewGeminiEmbedderFromEnv() (*GeminiEmbedder, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}
	return NewGeminiEmbedder(apiKey), nil
}

// EmbedTexts embeds a batch of document texts, splitting into API-sized
// batches. Returned vectors are L2-normalized.
func (e *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))

	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		requests := make([]EmbeddingRequest, len(batch))
		for j, text := range batch {
			requests[j] = EmbeddingRequest{
				Model: embeddingModel,
				Content: ContentInput{
					Parts: []PartInput{{Text: text}},
				},
				TaskType:             "RETRIEVAL_DOCUMENT",
				OutputDimensionality: embeddingDimension,
			}
		}

		body, err := json.Marshal(BatchEmbeddingRequest{Requests: requests})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal batch request: %w", err)
		}

		respBody, err := e.post(ctx, batchEmbeddingAPI, body)
		if err != nil {
			return nil, err
		}

		var apiResp BatchEmbeddingResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		if len(apiResp.Embeddings) != len(batch) {
			return nil, fmt.Errorf("mismatch: got %d embeddings for %d texts in batch", len(apiResp.Embeddings), len(batch))
		}

		for k, item := range apiResp.Embeddings {
			if len(item.Values) == 0 {
				return nil, fmt.Errorf("text %d has empty embedding", i+k)
			}
			normalizeVector(item.Values)
			vectors = append(vectors, item.Values)
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a single retrieval query, L2-normalized
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	reqBody := EmbeddingRequest{
		Model: embeddingModel,
		Content: ContentInput{
			Parts: []PartInput{{Text: text}},
		},
		TaskType:             "RETRIEVAL_QUERY",
		OutputDimensionality: embeddingDimension,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, err := e.post(ctx, embeddingAPI, body)
	if err != nil {
		return nil, err
	}

	var apiResp EmbeddingResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(apiResp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	normalizeVector(apiResp.Embedding.Values)
	return apiResp.Embedding.Values, nil
}

// post sends the request with retries and doubling backoff. 400 and 401
// responses are not retried.
func (e *GeminiEmbedder) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to send request: %w", err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			respBody, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = fmt.Errorf("failed to read response body: %w", err)
				continue
			}
			return respBody, nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		// Don't retry on 400 or 401 errors
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("API error: %d - %s", resp.StatusCode, string(errBody))
		}
		lastErr = fmt.Errorf("API error: %d - %s", resp.StatusCode, string(errBody))
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// normalizeVector scales the vector to unit L2 norm in place
func normalizeVector(vec []float64) {
	var sumSq float64
	for _, v := range vec {
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}
