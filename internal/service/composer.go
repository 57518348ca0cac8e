package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"propchat/internal/config"
	"propchat/internal/model"
	"propchat/internal/observability"
)

const (
	defaultReply = "Here are your search results!"
	noResultsMsg = "I couldn't find any properties matching your criteria. Try adjusting your search parameters."
	oneResultMsg = "I found 1 property that matches your requirements!"
)

const replyPromptTemplate = `You are a friendly real estate assistant. Generate a brief, conversational response (1-2 sentences) about the search results.

Search criteria:
- Location: %s
- Bedrooms: %s
- Max Price: %s
- Amenities: %s

Results found: %d

Generate a helpful, friendly response.`

var pricePrinter = message.NewPrinter(language.English)

// ResponseComposer writes the conversational reply for a finished search
type ResponseComposer struct {
	aiClient AIClient
	config   *config.LLMConfig
}

// NewResponseComposer creates a new response composer
func NewResponseComposer(aiClient AIClient, cfg *config.LLMConfig) *ResponseComposer {
	return &ResponseComposer{
		aiClient: aiClient,
		config:   cfg,
	}
}

// Compose never fails: model problems yield FallbackReply(count).
func (c *ResponseComposer) Compose(ctx context.Context, f model.SearchFilter, count int) string {
	if c.aiClient == nil || !c.aiClient.IsEnabled() {
		observability.ObserveLLM("reply", "fallback", 0)
		return FallbackReply(count)
	}

	start := time.Now()
	reply, err := c.aiClient.Complete(ctx, c.request(f, count))
	if err != nil {
		log.Warn().Err(err).Int("results", count).Msg("reply generation failed, using fallback")
		observability.ObserveLLM("reply", "fallback", time.Since(start))
		return FallbackReply(count)
	}
	observability.ObserveLLM("reply", "ok", time.Since(start))

	if reply = strings.TrimSpace(reply); reply == "" {
		return defaultReply
	}
	return reply
}

// ComposeStream streams the reply through onDelta and returns the full text.
// If the model fails before producing anything, the fallback is sent as a
// single delta.
func (c *ResponseComposer) ComposeStream(ctx context.Context, f model.SearchFilter, count int, onDelta func(delta string) error) (string, error) {
	if c.aiClient == nil || !c.aiClient.IsEnabled() {
		observability.ObserveLLM("reply_stream", "fallback", 0)
		reply := FallbackReply(count)
		return reply, onDelta(reply)
	}

	start := time.Now()
	var sb strings.Builder
	var deltaErr error

	err := c.aiClient.CompleteStream(ctx, c.request(f, count), func(delta string) error {
		sb.WriteString(delta)
		if err := onDelta(delta); err != nil {
			deltaErr = err
			return err
		}
		return nil
	})
	if deltaErr != nil {
		return sb.String(), deltaErr
	}

	if err != nil {
		observability.ObserveLLM("reply_stream", "fallback", time.Since(start))
		if sb.Len() > 0 {
			log.Warn().Err(err).Msg("reply stream interrupted")
			return sb.String(), nil
		}
		log.Warn().Err(err).Int("results", count).Msg("reply stream failed, using fallback")
		reply := FallbackReply(count)
		return reply, onDelta(reply)
	}
	observability.ObserveLLM("reply_stream", "ok", time.Since(start))

	if strings.TrimSpace(sb.String()) == "" {
		return defaultReply, onDelta(defaultReply)
	}
	return sb.String(), nil
}

func (c *ResponseComposer) request(f model.SearchFilter, count int) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model: c.config.ChatModel,
		Messages: []ChatMessage{
			{Role: "user", Content: BuildReplyPrompt(f, count)},
		},
		Temperature: c.config.ReplyTemperature,
		MaxTokens:   c.config.ReplyMaxTokens,
	}
}

// BuildReplyPrompt describes the criteria in plain words for the reply model
func BuildReplyPrompt(f model.SearchFilter, count int) string {
	location := "any"
	if f.Location != "" {
		location = f.Location
	}
	bedrooms := "any"
	if f.Bedrooms != nil {
		bedrooms = strconv.Itoa(*f.Bedrooms)
	}
	maxPrice := "any budget"
	if f.MaxPrice != nil {
		maxPrice = FormatPrice(*f.MaxPrice)
	}
	amenities := "none specified"
	if len(f.Amenities) > 0 {
		amenities = strings.Join(f.Amenities, ", ")
	}
	return fmt.Sprintf(replyPromptTemplate, location, bedrooms, maxPrice, amenities, count)
}

// FormatPrice renders a price with thousands separators, e.g. $500,000
func FormatPrice(price float64) string {
	return pricePrinter.Sprintf("$%v", number.Decimal(price, number.MaxFractionDigits(2)))
}

// FallbackReply is the deterministic reply used when the model is unavailable
func FallbackReply(count int) string {
	switch {
	case count <= 0:
		return noResultsMsg
	case count == 1:
		return oneResultMsg
	default:
		return fmt.Sprintf("I found %d properties that match what you're looking for!", count)
	}
}
