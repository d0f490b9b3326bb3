package llm

import "context"

// Provider is the text-generation backend. Output carries no structural
// guarantee: it may be JSON, fenced JSON or prose.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
