package service

import (
	"context"
	"strings"
	"sync"

	"propchat/internal/config"
	"propchat/internal/model"
)

// fakeAIClient replays canned completions in order
type fakeAIClient struct {
	mu        sync.Mutex
	enabled   bool
	responses []string
	err       error
	streamErr error
	requests  []ChatCompletionRequest
	embedding []float32
}

func newFakeAIClient(responses ...string) *fakeAIClient {
	return &fakeAIClient{enabled: true, responses: responses}
}

func (f *fakeAIClient) Complete(_ context.Context, req ChatCompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", model.ErrModelUnavailable
	}
	out := f.responses[0]
	f.responses = f.responses[1:]
	return out, nil
}

func (f *fakeAIClient) CompleteStream(ctx context.Context, req ChatCompletionRequest, onDelta func(string) error) error {
	if f.streamErr != nil {
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()
		return f.streamErr
	}
	out, err := f.Complete(ctx, req)
	if err != nil {
		return err
	}
	for _, word := range strings.SplitAfter(out, " ") {
		if err := onDelta(word); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAIClient) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedding == nil {
		return nil, model.ErrModelUnavailable
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.embedding
	}
	return out, nil
}

func (f *fakeAIClient) IsEnabled() bool { return f.enabled }

func (f *fakeAIClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeAIClient) request(i int) ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func testLLMConfig() *config.LLMConfig {
	return &config.LLMConfig{
		APIKey:            "test-key",
		ChatModel:         "llama-3.1-8b-instant",
		IntentTemperature: 0.3,
		IntentMaxTokens:   500,
		ReplyTemperature:  0.7,
		ReplyMaxTokens:    150,
		Timeout:           5,
		MaxRetries:        2,
		MaxConcurrency:    2,
		RatePerSec:        1000,
		Enabled:           true,
	}
}

// staticCatalog serves fixed records or a fixed error
type staticCatalog struct {
	records []model.PropertyRecord
	err     error
	loads   int
}

func (c *staticCatalog) Load(context.Context) ([]model.PropertyRecord, error) {
	c.loads++
	if c.err != nil {
		return nil, c.err
	}
	return c.records, nil
}

func intPtr(v int) *int {
	return &v
}

func float64Ptr(v float64) *float64 {
	return &v
}

func strPtr(v string) *string {
	return &v
}
