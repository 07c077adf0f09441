package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// promptBodyRunes bounds the body preview inside the prompt
const promptBodyRunes = 500

const promptFormat = `You are an email cleanup assistant. Decide whether the following email should be deleted based on the user's preferences.

USER PREFERENCES:
- Blocked senders: %s
- Delete promotional emails: %t
- Delete spam: %t
- Delete newsletters: %t
- Delete social notifications: %t
- Keep important categories: %s

EMAIL TO ANALYZE:
From: %s
Subject: %s
Body Preview: %s...
Gmail Labels: %s

INSTRUCTIONS:
1. Check if sender is in blocked list
2. Determine email category (promotional, spam, newsletter, personal, work, financial, travel, etc.)
3. Assess importance and relevance
4. Never delete emails that belong to one of the categories to keep

Respond with ONLY a JSON object in this exact format:
{
    "delete": true,
    "reason": "Brief explanation of why this email should or shouldn't be deleted",
    "category": "email category (promotional, spam, personal, work, etc.)",
    "confidence": 0.9
}`

// BuildPrompt renders the classification prompt for msg
func BuildPrompt(msg *MessageSummary, prefs *Preferences) string {
	body := []rune(msg.BodyExcerpt)
	if len(body) > promptBodyRunes {
		body = body[:promptBodyRunes]
	}
	return fmt.Sprintf(promptFormat,
		jsonList(prefs.BlockedSenders),
		prefs.DeletePromotional,
		prefs.DeleteSpam,
		prefs.DeleteNewsletters,
		prefs.DeleteSocial,
		jsonList(prefs.KeepCategories),
		msg.Sender,
		msg.Subject,
		string(body),
		jsonList(msg.Labels),
	)
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[" + strings.Join(items, ", ") + "]"
	}
	return string(b)
}
