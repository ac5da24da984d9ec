package llm

import (
	"context"
	"errors"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	model     *vertexgenai.GenerativeModel
	jsonModel *vertexgenai.GenerativeModel
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	if projectID == "" {
		return nil, errors.New("vertex project id is required")
	}
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	m := c.GenerativeModel(modelName)
	m.SetTemperature(0.7)

	jm := c.GenerativeModel(modelName)
	jm.SetTemperature(0.2)
	jm.ResponseMIMEType = "application/json"

	return &VertexGemini{client: c, model: m, jsonModel: jm}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Generate(ctx context.Context, prompt string) (string, error) {
	return collect(ctx, v.model, prompt)
}

func (v *VertexGemini) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return collect(ctx, v.jsonModel, prompt)
}

// collect drains a content stream into one string.
func collect(ctx context.Context, m *vertexgenai.GenerativeModel, prompt string) (string, error) {
	var out strings.Builder

	it := m.GenerateContentStream(ctx, vertexgenai.Text(prompt))
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", err
		}

		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(vertexgenai.Text); ok {
					out.WriteString(string(t))
				}
			}
		}
	}

	if out.Len() == 0 {
		return "", errors.New("empty model response")
	}
	return out.String(), nil
}
