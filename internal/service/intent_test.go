package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propchat/internal/model"
)

func TestIntentExtractor_FencedOutput(t *testing.T) {
	client := newFakeAIClient("```json\n{\"location\":\"Austin\",\"bedrooms\":3}\n```")
	extractor := NewIntentExtractor(client, testLLMConfig())

	got := extractor.Extract(context.Background(), "3 bedrooms in Austin")

	assert.Equal(t, model.SearchFilter{
		Location:  "Austin",
		Bedrooms:  intPtr(3),
		MaxPrice:  nil,
		Amenities: []string{},
	}, got)
}

func TestIntentExtractor_RequestShape(t *testing.T) {
	client := newFakeAIClient(`{"location":"","bedrooms":null,"maxPrice":null,"amenities":[]}`)
	extractor := NewIntentExtractor(client, testLLMConfig())

	extractor.Extract(context.Background(), `cheap "quoted" flat`)

	require.Equal(t, 1, client.calls())
	req := client.request(0)
	assert.Equal(t, 0.3, req.Temperature)
	assert.Equal(t, 500, req.MaxTokens)
	assert.Equal(t, "llama-3.1-8b-instant", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, `User message: "cheap \"quoted\" flat"`)
	assert.Contains(t, req.Messages[0].Content, `"maxPrice": number or null`)
}

func TestIntentExtractor_FailuresDegrade(t *testing.T) {
	unconstrained := model.SearchFilter{Amenities: []string{}}

	tests := []struct {
		name   string
		client *fakeAIClient
	}{
		{name: "transport error", client: &fakeAIClient{enabled: true, err: model.ErrModelUnavailable}},
		{name: "timeout", client: &fakeAIClient{enabled: true, err: context.DeadlineExceeded}},
		{name: "prose without json", client: newFakeAIClient("Sure! You want a house.")},
		{name: "json array", client: newFakeAIClient(`["Austin"]`)},
		{name: "json null", client: newFakeAIClient(`null`)},
		{name: "empty reply", client: newFakeAIClient("")},
		{name: "disabled client", client: &fakeAIClient{enabled: false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewIntentExtractor(tt.client, testLLMConfig())
			got := extractor.Extract(context.Background(), "anything")
			assert.Equal(t, unconstrained, got)
		})
	}

	t.Run("nil client", func(t *testing.T) {
		got := NewIntentExtractor(nil, testLLMConfig()).Extract(context.Background(), "anything")
		assert.Equal(t, unconstrained, got)
	})
}

func TestIntentExtractor_DisabledClientMakesNoCall(t *testing.T) {
	client := &fakeAIClient{enabled: false}
	NewIntentExtractor(client, testLLMConfig()).Extract(context.Background(), "2 bed")
	assert.Equal(t, 0, client.calls())
}

func TestNormalizeFilter(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want model.SearchFilter
	}{
		{
			name: "nil object",
			raw:  nil,
			want: model.SearchFilter{Amenities: []string{}},
		},
		{
			name: "all fields well formed",
			raw: map[string]any{
				"location":  "  Miami ",
				"bedrooms":  float64(2),
				"maxPrice":  float64(500000),
				"amenities": []any{"pool", "gym"},
			},
			want: model.SearchFilter{Location: "Miami", Bedrooms: intPtr(2), MaxPrice: float64Ptr(500000), Amenities: []string{"pool", "gym"}},
		},
		{
			name: "numeric strings are accepted",
			raw:  map[string]any{"bedrooms": "3", "maxPrice": " 750000.5 "},
			want: model.SearchFilter{Bedrooms: intPtr(3), MaxPrice: float64Ptr(750000.5), Amenities: []string{}},
		},
		{
			name: "zero bedrooms kept",
			raw:  map[string]any{"bedrooms": float64(0)},
			want: model.SearchFilter{Bedrooms: intPtr(0), Amenities: []string{}},
		},
		{
			name: "wrong shapes fall back",
			raw: map[string]any{
				"location":  42.0,
				"bedrooms":  "three",
				"maxPrice":  true,
				"amenities": "pool",
			},
			want: model.SearchFilter{Amenities: []string{}},
		},
		{
			name: "fractional or negative counts rejected",
			raw:  map[string]any{"bedrooms": 2.5, "maxPrice": -100.0},
			want: model.SearchFilter{Amenities: []string{}},
		},
		{
			name: "non-finite strings rejected",
			raw:  map[string]any{"bedrooms": "Inf", "maxPrice": "NaN"},
			want: model.SearchFilter{Amenities: []string{}},
		},
		{
			name: "null fields are unconstrained",
			raw:  map[string]any{"location": nil, "bedrooms": nil, "maxPrice": nil, "amenities": nil},
			want: model.SearchFilter{Amenities: []string{}},
		},
		{
			name: "non-string amenities dropped",
			raw:  map[string]any{"amenities": []any{"pool", 3.0, "", "  ", nil, map[string]any{}, " gym "}},
			want: model.SearchFilter{Amenities: []string{"pool", "gym"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFilter(tt.raw))
		})
	}
}

func TestBuildIntentPrompt(t *testing.T) {
	prompt := BuildIntentPrompt("2 bed in Austin")
	assert.True(t, strings.HasPrefix(prompt, "You are a real estate search assistant."))
	assert.Contains(t, prompt, `User message: "2 bed in Austin"`)
	assert.True(t, strings.HasSuffix(prompt, "no additional text or explanation."))
}

func TestIntentExtractor_ErrorKindsAreModelErrors(t *testing.T) {
	client := newFakeAIClient("not json at all")
	extractor := NewIntentExtractor(client, testLLMConfig())

	_, err := extractor.extract(context.Background(), "x")
	assert.True(t, errors.Is(err, model.ErrModelMalformedOutput))
}
