package service

import (
	"context"
)

// AIClient is the interface for language-model providers
type AIClient interface {
	// Complete runs a non-streaming chat completion and returns the reply text
	Complete(ctx context.Context, req ChatCompletionRequest) (string, error)

	// CompleteStream runs a streaming chat completion; onDelta receives each
	// content fragment in order
	CompleteStream(ctx context.Context, req ChatCompletionRequest, onDelta func(delta string) error) error

	// CreateEmbeddings generates embeddings for texts
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the client is configured and ready
	IsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content
	Content string

	// Reasoning content, sent by some providers before the answer
	ThinkingContent string

	// Whether this is the final chunk
	Done bool
}

// Ensure OpenAIClient implements AIClient
var _ AIClient = (*OpenAIClient)(nil)
