package llm

import "context"

type Provider interface {
	// Generate returns the model's full text reply.
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateJSON asks for an application/json reply.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	Close() error
}
