package gemini

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// Embedder turns text into a fixed-width vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type TextEmbedder struct {
	c     *Client
	model string
	dims  int
}

func NewTextEmbedder(c *Client, model string, dims int) *TextEmbedder {
	if model == "" {
		model = "models/text-embedding-004"
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	return &TextEmbedder{c: c, model: model, dims: dims}
}

func (e *TextEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.c.Configured() {
		return nil, errNotConfigured
	}
	var cfg *genai.EmbedContentConfig
	if e.dims > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.dims))}
	}
	resp, err := e.c.genai.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, apiError(err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini api: empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}
