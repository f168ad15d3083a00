package service

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
)

// stubEmbedder produces deterministic vectors derived from the text hash so
// identical texts always embed identically.
type stubEmbedder struct {
	dim  int
	err  error
	fn   func(text string) []float64
	seen []string
}

func newStubEmbedder(dim int) *stubEmbedder {
	return &stubEmbedder{dim: dim}
}

// vector returns an L2-normalized pseudo-random vector so dot-product
// scores behave like cosine similarity and an exact text match always
// ranks first.
func (e *stubEmbedder) vector(text string) []float64 {
	if e.fn != nil {
		return e.fn(text)
	}
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float64, e.dim)
	var norm float64
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float64(seed%1000)/1000.0 + 0.001
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func (e *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.seen = append(e.seen, texts...)
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func (e *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

// stubCompleter replays canned responses in order, or fails with err
type stubCompleter struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (c *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", errors.New("no canned response")
	}
	resp := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return resp, nil
}
