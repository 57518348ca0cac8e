package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"propchat/internal/config"
	"propchat/internal/model"
	"propchat/internal/observability"
	"propchat/internal/utils"
)

const intentPromptTemplate = `You are a real estate search assistant. Extract search criteria from the user's message and return ONLY a valid JSON object with these exact fields:

{
  "location": "city or area name (empty string if not mentioned)",
  "bedrooms": number or null (e.g., 2, 3, 4),
  "maxPrice": number or null (in dollars, e.g., 500000 for $500k),
  "amenities": array of strings (e.g., ["parking", "gym", "pool"])
}

User message: %q

IMPORTANT: Return ONLY the JSON object, no additional text or explanation.`

// IntentExtractor turns free text into a SearchFilter with a language-model call
type IntentExtractor struct {
	aiClient AIClient
	config   *config.LLMConfig
}

// NewIntentExtractor creates a new intent extractor
func NewIntentExtractor(aiClient AIClient, cfg *config.LLMConfig) *IntentExtractor {
	return &IntentExtractor{
		aiClient: aiClient,
		config:   cfg,
	}
}

// Extract never fails: any model, transport or parse problem yields the
// unconstrained filter.
func (e *IntentExtractor) Extract(ctx context.Context, text string) model.SearchFilter {
	if e.aiClient == nil || !e.aiClient.IsEnabled() {
		log.Warn().Msg("language model is not configured, searching without filters")
		observability.ObserveLLM("intent", "fallback", 0)
		return model.UnconstrainedFilter()
	}

	start := time.Now()
	filter, err := e.extract(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("kind", model.ErrorKind(err)).Msg("intent extraction failed, using unconstrained filter")
		observability.ObserveLLM("intent", "fallback", time.Since(start))
		return model.UnconstrainedFilter()
	}

	observability.ObserveLLM("intent", "ok", time.Since(start))
	log.Debug().
		Str("location", filter.Location).
		Interface("bedrooms", filter.Bedrooms).
		Interface("max_price", filter.MaxPrice).
		Strs("amenities", filter.Amenities).
		Msg("extracted filters")
	return filter
}

func (e *IntentExtractor) extract(ctx context.Context, text string) (model.SearchFilter, error) {
	content, err := e.aiClient.Complete(ctx, ChatCompletionRequest{
		Model: e.config.ChatModel,
		Messages: []ChatMessage{
			{Role: "user", Content: BuildIntentPrompt(text)},
		},
		Temperature: e.config.IntentTemperature,
		MaxTokens:   e.config.IntentMaxTokens,
	})
	if err != nil {
		return model.SearchFilter{}, err
	}

	raw, err := utils.TryParseJSONObject(content)
	if err != nil {
		return model.SearchFilter{}, fmt.Errorf("%w: %w", model.ErrModelMalformedOutput, err)
	}
	return NormalizeFilter(raw), nil
}

// BuildIntentPrompt embeds the user's text in the extraction instructions
func BuildIntentPrompt(text string) string {
	return fmt.Sprintf(intentPromptTemplate, text)
}

// NormalizeFilter coerces an untrusted decoded object into a SearchFilter.
// Fields of the wrong shape fall back to their unconstrained value.
func NormalizeFilter(raw map[string]any) model.SearchFilter {
	filter := model.UnconstrainedFilter()
	if raw == nil {
		return filter
	}

	if s, ok := raw["location"].(string); ok {
		filter.Location = strings.TrimSpace(s)
	}
	if n, ok := toNumber(raw["bedrooms"]); ok && n >= 0 && n == math.Trunc(n) && n <= math.MaxInt32 {
		bedrooms := int(n)
		filter.Bedrooms = &bedrooms
	}
	if n, ok := toNumber(raw["maxPrice"]); ok && n >= 0 {
		maxPrice := n
		filter.MaxPrice = &maxPrice
	}
	if items, ok := raw["amenities"].([]any); ok {
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				filter.Amenities = append(filter.Amenities, s)
			}
		}
	}
	return filter
}

// toNumber accepts finite JSON numbers and strings holding one
func toNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
