package service

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"propchat/internal/config"
	"propchat/internal/model"
)

// OpenAIClient handles OpenAI-compatible API interactions (Groq, OpenAI, NVIDIA, ...)
type OpenAIClient struct {
	config      *config.LLMConfig
	httpClient  *http.Client
	limiter     *rate.Limiter
	sem         *semaphore.Weighted
	backoffBase time.Duration
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(cfg *config.LLMConfig) *OpenAIClient {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &OpenAIClient{
		config:      cfg,
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		sem:         semaphore.NewWeighted(int64(concurrency)),
		backoffBase: 200 * time.Millisecond,
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	return c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete performs a chat completion request and returns the first choice's content.
// Every failure is wrapped with model.ErrModelUnavailable or model.ErrModelMalformedOutput.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatCompletionRequest) (string, error) {
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", model.ErrModelMalformedOutput)
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("%w: API key not configured", model.ErrModelUnavailable)
	}
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	req.Stream = false

	ctx, cancel := c.invocationContext(ctx)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}
	defer c.sem.Release(1)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/chat/completions", reqBody, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", model.ErrModelUnavailable, err)
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %w", model.ErrModelMalformedOutput, err)
	}

	log.Debug().
		Str("model", result.Model).
		Int("prompt_tokens", result.Usage.PromptTokens).
		Int("completion_tokens", result.Usage.CompletionTokens).
		Msg("chat completion")

	return &result, nil
}

// CompleteStream performs a streaming chat completion request.
// Retries happen only before the first byte of the stream is read.
func (c *OpenAIClient) CompleteStream(ctx context.Context, req ChatCompletionRequest, onDelta func(delta string) error) error {
	if !c.config.Enabled {
		return fmt.Errorf("%w: API key not configured", model.ErrModelUnavailable)
	}
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	req.Stream = true

	ctx, cancel := c.invocationContext(ctx)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}
	defer c.sem.Release(1)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/chat/completions", reqBody, true)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	var (
		parsed   int
		finished bool
		thinking strings.Builder
	)
	err = readEventStream(resp.Body, func(chunk *StreamChunk) error {
		parsed++
		thinking.WriteString(chunk.ThinkingContent)
		finished = finished || chunk.Done
		if chunk.Content == "" {
			return nil
		}
		return onDelta(chunk.Content)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}

	if thinking.Len() > 0 {
		log.Debug().
			Int("reasoning_chars", thinking.Len()).
			Str("reasoning", truncate(thinking.String(), 200)).
			Msg("model reasoning received")
	}
	if parsed == 0 {
		return fmt.Errorf("%w: stream carried no parseable chunks", model.ErrModelMalformedOutput)
	}
	if !finished {
		log.Debug().Int("chunks", parsed).Msg("reply stream ended without finish_reason")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CreateEmbeddings creates embeddings for the given texts
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled || c.config.EmbeddingModel == "" {
		return nil, fmt.Errorf("%w: embeddings not configured", model.ErrModelUnavailable)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := c.invocationContext(ctx)
	defer cancel()

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}
	defer c.sem.Release(1)

	reqBody, err := json.Marshal(EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/embeddings", reqBody, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	var result EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %w", model.ErrModelMalformedOutput, err)
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index >= 0 && item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}
	return embeddings, nil
}

func (c *OpenAIClient) invocationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
}

// post sends a JSON POST with client-side rate limiting and bounded retries.
// Retries on network errors, 429 and transient 5xx, honoring Retry-After.
// The caller owns the returned response body.
func (c *OpenAIClient) post(ctx context.Context, path string, body []byte, stream bool) (*http.Response, error) {
	url := c.config.APIBase + path
	maxRetries := c.config.MaxRetries

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		if stream {
			httpReq.Header.Set("Accept", "text/event-stream")
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("failed to send request: %w", err)
			if attempt < maxRetries && sleepCtx(ctx, c.backoff(attempt)) {
				continue
			}
			break
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if isRetryableStatus(resp.StatusCode) {
			wait := retryAfter(resp)
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("API request failed with status %d", resp.StatusCode)
			if wait == 0 {
				wait = c.backoff(attempt)
			}
			if attempt < maxRetries && sleepCtx(ctx, wait) {
				log.Debug().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("retrying model request")
				continue
			}
			break
		}

		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt made")
	}
	return nil, lastErr
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles the base delay per attempt with up to +50% jitter.
func (c *OpenAIClient) backoff(attempt int) time.Duration {
	base := time.Duration(1<<attempt) * c.backoffBase
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}

// readEventStream reads an SSE body of "data: {...}" lines until [DONE] or EOF
func readEventStream(body io.Reader, callback func(chunk *StreamChunk) error) error {
	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			done, cbErr := handleEventLine(bytes.TrimSpace(line), callback)
			if cbErr != nil {
				return cbErr
			}
			if done {
				return nil
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}
	}
}

func handleEventLine(line []byte, callback func(chunk *StreamChunk) error) (bool, error) {
	if !bytes.HasPrefix(line, []byte("data:")) {
		return false, nil
	}
	data := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
	if bytes.Equal(data, []byte("[DONE]")) {
		return true, nil
	}

	chunk, err := parseStreamChunk(data)
	if err != nil {
		log.Warn().Err(err).Msg("failed to parse stream chunk")
		return false, nil
	}
	if err := callback(chunk); err != nil {
		return false, fmt.Errorf("callback error: %w", err)
	}
	return false, nil
}

// parseStreamChunk understands the OpenAI delta format plus the reasoning
// fields some providers add (reasoning_content on NVIDIA/DeepSeek, reasoning on Groq)
func parseStreamChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
				Reasoning        *string `json:"reasoning,omitempty"`
			} `json:"delta"`
			FinishReason *string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{}
	if len(raw.Choices) > 0 {
		choice := raw.Choices[0]
		chunk.Content = choice.Delta.Content
		switch {
		case choice.Delta.ReasoningContent != nil:
			chunk.ThinkingContent = *choice.Delta.ReasoningContent
		case choice.Delta.Reasoning != nil:
			chunk.ThinkingContent = *choice.Delta.Reasoning
		}
		chunk.Done = choice.FinishReason != nil && *choice.FinishReason != ""
	}
	return chunk, nil
}
