package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// StrategyRules names decisions produced by the rule cascade
const StrategyRules = "rules"

var (
	promotionalLabels = []string{"CATEGORY_PROMOTIONS", "PROMOTIONS"}
	socialLabels      = []string{"CATEGORY_SOCIAL", "SOCIAL"}

	spamKeywords = []string{
		"viagra", "casino", "lottery", "winner", "congratulations",
		"free money", "click here", "act now", "limited time",
	}
	newsletterKeywords = []string{"unsubscribe", "newsletter", "weekly digest", "monthly update"}
	newsletterSenders  = []string{"newsletter@", "noreply@", "no-reply@", "updates@", "news@"}
	jobKeywords        = []string{"job", "career", "position", "hiring", "interview", "resume"}
)

// RuleClassifier is the deterministic cascade. First matching rule wins.
type RuleClassifier struct {
	logger *zap.Logger
}

// NewRuleClassifier creates a rule classifier
func NewRuleClassifier(logger *zap.Logger) *RuleClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleClassifier{logger: logger}
}

// Classify implements Classifier
func (c *RuleClassifier) Classify(_ context.Context, msg *MessageSummary, prefs *Preferences) Decision {
	d := ClassifyByRules(msg, prefs)
	if msg == nil {
		return d
	}
	c.logger.Debug("Rule decision",
		zap.String("id", msg.ID),
		zap.String("category", d.Category),
		zap.Bool("delete", d.Delete),
		zap.Float64("confidence", d.Confidence))
	return d
}

// ClassifyByRules evaluates the cascade against msg
func ClassifyByRules(msg *MessageSummary, prefs *Preferences) Decision {
	if msg == nil || prefs == nil {
		return keep("No deletion criteria met", "unknown", 0.5)
	}

	sender := strings.ToLower(msg.CleanSender)
	for _, blocked := range prefs.BlockedSenders {
		b := strings.ToLower(strings.TrimSpace(blocked))
		if b != "" && strings.Contains(sender, b) {
			return remove(fmt.Sprintf("Sender %s is in blocked list", blocked), "blocked", 1.0)
		}
	}

	if prefs.DeletePromotional && hasAnyLabel(msg.Labels, promotionalLabels) {
		return remove("Email is in Gmail Promotional category", "promotional", 0.95)
	}

	if prefs.DeleteSocial && hasAnyLabel(msg.Labels, socialLabels) {
		return remove("Email is in Gmail Social category", "social", 0.95)
	}

	content := strings.ToLower(msg.Subject + " " + msg.BodyExcerpt)
	if prefs.DeleteSpam && containsAny(content, spamKeywords) {
		return remove("Contains spam keywords", "spam", 0.9)
	}

	if prefs.DeleteNewsletters {
		if containsAny(content, newsletterKeywords) {
			return remove("Newsletter content detected", "newsletter", 0.8)
		}
		if containsAny(sender, newsletterSenders) {
			return remove("Newsletter sender pattern detected", "newsletter", 0.8)
		}
	}

	if containsAny(content, jobKeywords) {
		return keep("Job-related email - keeping for review", "career", 0.8)
	}

	return keep("No deletion criteria met", "unknown", 0.5)
}

func remove(reason, category string, confidence float64) Decision {
	return Decision{Delete: true, Reason: reason, Category: category, Confidence: confidence, Strategy: StrategyRules}
}

func keep(reason, category string, confidence float64) Decision {
	return Decision{Delete: false, Reason: reason, Category: category, Confidence: confidence, Strategy: StrategyRules}
}

func hasAnyLabel(labels, wanted []string) bool {
	for _, l := range labels {
		for _, w := range wanted {
			if l == w {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
