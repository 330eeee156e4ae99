// Package oracle estimates prices with an LLM when the market has no
// answer, abstracted behind interfaces for testability. Estimates are
// opinions, not data; callers must keep them tagged as such.
package oracle

import (
	"context"
)

// FormatJSON is the format string for requesting JSON mode from LLM backends.
const FormatJSON = "json"

// GenerateRequest defines the input for an LLM generation call.
type GenerateRequest struct {
	Prompt      string
	SystemMsg   string
	Format      string // FormatJSON for JSON mode
	Temperature float64
	MaxTokens   int
}

// TokenUsage tracks LLM token consumption.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// GenerateResponse holds the result of an LLM generation call.
type GenerateResponse struct {
	Content string
	Model   string
	Usage   TokenUsage
}

// LLMBackend defines the interface for LLM text generation.
type LLMBackend interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
	Name() string
}
