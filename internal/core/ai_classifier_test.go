package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIClassifierUsesModelDecision(t *testing.T) {
	llm := &fakeLLM{decision: &Decision{Delete: true, Reason: "marketing", Category: "promotional", Confidence: 0.7, Strategy: "gemini-1.5-flash"}}
	c := NewAIClassifier(llm, nil, time.Second, nil)

	d := c.Classify(context.Background(), &MessageSummary{ID: "1"}, DefaultPreferences())
	assert.Equal(t, 1, llm.calls)
	assert.True(t, d.Delete)
	assert.Equal(t, "promotional", d.Category)
	assert.Equal(t, "gemini-1.5-flash", d.Strategy)
}

func TestAIClassifierFallsBackToRules(t *testing.T) {
	prefs := noFilters()
	prefs.BlockedSenders = []string{"spam@x.com"}
	msg := &MessageSummary{ID: "1", CleanSender: "spam@x.com"}

	tests := []struct {
		name string
		llm  LLMClient
	}{
		{"service error", &fakeLLM{err: errors.New("quota exceeded")}},
		{"parse failure", &fakeLLM{err: ErrInvalidDecision}},
		{"nil decision", &fakeLLM{}},
		{"panic", &fakeLLM{panics: true}},
		{"no client", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewAIClassifier(tt.llm, NewRuleClassifier(nil), 0, nil)
			d := c.Classify(context.Background(), msg, prefs)
			assert.True(t, d.Delete)
			assert.Equal(t, "blocked", d.Category)
			assert.Equal(t, StrategyRules, d.Strategy)
		})
	}
}

func TestClassifyNilSummaryKeeps(t *testing.T) {
	llm := &fakeLLM{decision: &Decision{Delete: true, Confidence: 0.9}}
	classifiers := map[string]Classifier{
		"ai":    NewAIClassifier(llm, NewRuleClassifier(nil), time.Second, nil),
		"rules": NewRuleClassifier(nil),
	}
	for name, c := range classifiers {
		t.Run(name, func(t *testing.T) {
			var d Decision
			require.NotPanics(t, func() {
				d = c.Classify(context.Background(), nil, DefaultPreferences())
			})
			assert.False(t, d.Delete)
			assert.Equal(t, StrategyRules, d.Strategy)
		})
	}
	assert.Zero(t, llm.calls)
}

func TestParseDecision(t *testing.T) {
	d, err := ParseDecision("```json\n{\"delete\": true, \"reason\": \"Spam\", \"category\": \"Spam\", \"confidence\": 0.92}\n```", "m")
	require.NoError(t, err)
	assert.True(t, d.Delete)
	assert.Equal(t, "spam", d.Category)
	assert.Equal(t, "Spam", d.Reason)
	assert.InDelta(t, 0.92, d.Confidence, 1e-9)
	assert.Equal(t, "m", d.Strategy)

	d, err = ParseDecision(`Sure! Here is my answer: {"delete": false, "confidence": 0.3} Hope it helps.`, "m")
	require.NoError(t, err)
	assert.False(t, d.Delete)
	assert.Equal(t, "unknown", d.Category)
	assert.Equal(t, "AI classification", d.Reason)
}

func TestParseDecisionRejects(t *testing.T) {
	inputs := []string{
		"",
		"no json here",
		`{"reason": "missing delete", "confidence": 0.5}`,
		`{"delete": true, "reason": "missing confidence"}`,
		`{"delete": true, "confidence": 1.5}`,
		`{"delete": true, "confidence": -0.1}`,
		`{"delete": "yes", "confidence": 0.5}`,
	}
	for _, in := range inputs {
		_, err := ParseDecision(in, "m")
		assert.ErrorIs(t, err, ErrInvalidDecision, in)
	}
}

func TestBuildPromptEmbedsPreferencesAndMessage(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.BlockedSenders = []string{"bad@x.com"}
	msg := &MessageSummary{
		Sender:      "Shop <deals@shop.com>",
		Subject:     "Sale",
		BodyExcerpt: strings.Repeat("a", 800),
		Labels:      []string{"CATEGORY_PROMOTIONS"},
	}

	p := BuildPrompt(msg, prefs)
	assert.Contains(t, p, `["bad@x.com"]`)
	assert.Contains(t, p, "From: Shop <deals@shop.com>")
	assert.Contains(t, p, "Subject: Sale")
	assert.Contains(t, p, `"CATEGORY_PROMOTIONS"`)
	assert.Contains(t, p, `"personal"`)
	assert.Contains(t, p, strings.Repeat("a", 500)+"...")
	assert.NotContains(t, p, strings.Repeat("a", 501))
}
