package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

type decisionResponse struct {
	Delete     *bool    `json:"delete"`
	Reason     string   `json:"reason"`
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
}

// ParseDecision parses a model reply into a Decision. The reply may be
// wrapped in a markdown fence or surrounded by prose.
func ParseDecision(text, strategy string) (*Decision, error) {
	text = stripFence(strings.TrimSpace(text))

	var resp decisionResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidDecision)
		}
		resp = decisionResponse{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
		}
	}

	if resp.Delete == nil {
		return nil, fmt.Errorf("%w: missing delete field", ErrInvalidDecision)
	}
	if resp.Confidence == nil {
		return nil, fmt.Errorf("%w: missing confidence field", ErrInvalidDecision)
	}
	if *resp.Confidence < 0 || *resp.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrInvalidDecision, *resp.Confidence)
	}

	d := &Decision{
		Delete:     *resp.Delete,
		Reason:     strings.TrimSpace(resp.Reason),
		Category:   strings.ToLower(strings.TrimSpace(resp.Category)),
		Confidence: *resp.Confidence,
		Strategy:   strategy,
	}
	if d.Reason == "" {
		d.Reason = "AI classification"
	}
	if d.Category == "" {
		d.Category = "unknown"
	}
	return d, nil
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
