package adapters

import (
	"context"

	"github.com/swapspot/swapspot/internal/adapters/llm"
)

// LLM defines the interface for language model operations
type LLM interface {
	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error)
	// ReviewReport asks the model for a second opinion on a flagged item
	ReviewReport(ctx context.Context, content string, reasons []string) (llm.ReviewOpinion, error)
}
