package core

import (
	"fmt"
	"strings"
)

// DefaultCandidateReason is attached when no specific rule explains a match
const DefaultCandidateReason = "Matched Gmail search filters"

var (
	querySpamKeywords = []string{
		"viagra", "casino", "lottery", "winner", "congratulations", "prize", "free money",
	}
	queryNewsletterSenders  = []string{"newsletter@", "unsubscribe@", "mailings@", "digest@"}
	queryNewsletterSubjects = []string{"newsletter", "unsubscribe", "weekly digest", "monthly update"}
)

// BuildQuery renders prefs as a Gmail search query. It returns
// ErrNothingToDo when no clause is active.
func BuildQuery(prefs *Preferences) (string, error) {
	var clauses []string

	if senders := TargetSenders(prefs); len(senders) > 0 {
		parts := make([]string, 0, len(senders))
		for _, s := range senders {
			if strings.Contains(s, "@") {
				parts = append(parts, fmt.Sprintf(`from:"%s"`, s))
			} else {
				parts = append(parts, fmt.Sprintf(`from:"@%s"`, s))
			}
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}

	if prefs.DeletePromotional {
		clauses = append(clauses, "category:promotions")
	}

	if prefs.DeleteSocial {
		clauses = append(clauses, "category:social")
	}

	if prefs.DeleteSpam {
		parts := make([]string, 0, len(querySpamKeywords))
		for _, k := range querySpamKeywords {
			parts = append(parts, fmt.Sprintf(`subject:"%s"`, k))
		}
		clauses = append(clauses, "( "+strings.Join(parts, " OR ")+" )")
	}

	if prefs.DeleteNewsletters {
		parts := make([]string, 0, len(queryNewsletterSenders)+len(queryNewsletterSubjects))
		for _, s := range queryNewsletterSenders {
			parts = append(parts, fmt.Sprintf(`from:"%s"`, s))
		}
		for _, s := range queryNewsletterSubjects {
			parts = append(parts, fmt.Sprintf(`subject:"%s"`, s))
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", ErrNothingToDo
	}
	return strings.Join(clauses, " OR "), nil
}

// TargetSenders is the ordered union of to_delete_senders and
// blocked_senders, trimmed, lowercased and deduplicated.
func TargetSenders(prefs *Preferences) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{prefs.ToDeleteSenders, prefs.BlockedSenders} {
		for _, s := range list {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// CandidateReason explains why a provider-filtered message was selected
func CandidateReason(msg *MessageSummary, prefs *Preferences) string {
	clean := strings.ToLower(msg.CleanSender)
	targets := TargetSenders(prefs)

	for _, t := range targets {
		if clean == t {
			return fmt.Sprintf("Sender '%s' in delete list", msg.CleanSender)
		}
	}

	if at := strings.LastIndex(clean, "@"); at >= 0 {
		domain := clean[at+1:]
		for _, t := range targets {
			if strings.HasSuffix(clean, "@"+t) || domain == t {
				return fmt.Sprintf("Domain '%s' in delete list", domain)
			}
		}
		switch {
		case strings.HasPrefix(clean, "noreply@"), strings.HasPrefix(clean, "no-reply@"):
			return "Newsletter sender pattern (noreply)"
		case strings.HasPrefix(clean, "newsletter@"), strings.HasPrefix(clean, "unsubscribe@"):
			return "Newsletter sender pattern"
		case strings.HasPrefix(clean, "mailings@"), strings.HasPrefix(clean, "digest@"):
			return "Newsletter/Digest sender"
		}
		subject := strings.ToLower(msg.Subject)
		if prefs.DeletePromotional && (strings.Contains(subject, "promotional") || strings.Contains(subject, "unsubscribe")) {
			return "Promotional content in subject"
		}
	}

	if d := ClassifyByRules(msg, prefs); d.Delete {
		return d.Reason
	}
	return DefaultCandidateReason
}
