package core

import (
	"context"
)

// MailProvider is the mailbox the cleanup runs against
type MailProvider interface {
	// ListMessages returns one page of message references matching query
	ListMessages(ctx context.Context, query, pageToken string, maxPageSize int) (*MessagePage, error)

	// GetMessage fetches the full message. Returns ErrNotFound for unknown ids.
	GetMessage(ctx context.Context, id string) (*RawMessage, error)

	// TrashMessage moves a message to the trash
	TrashMessage(ctx context.Context, id string) error

	// DeleteMessage permanently removes a message
	DeleteMessage(ctx context.Context, id string) error

	// BatchDelete permanently removes a set of messages
	BatchDelete(ctx context.Context, ids []string) error
}

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// AnalyzeEmail asks the model for a cleanup decision on one message
	AnalyzeEmail(ctx context.Context, msg *MessageSummary, prefs *Preferences) (*Decision, error)
}

// Classifier decides whether a message should be removed. Implementations
// never fail: any internal error is absorbed into a rule-based decision.
type Classifier interface {
	Classify(ctx context.Context, msg *MessageSummary, prefs *Preferences) Decision
}

// PreferencesStore persists the preferences record
type PreferencesStore interface {
	// Load returns the stored preferences, or defaults if absent or unreadable
	Load() *Preferences

	// Save persists prefs and reports success
	Save(prefs *Preferences) bool
}

// Confirmer asks the user to approve a deletion
type Confirmer interface {
	Confirm(ctx context.Context, preview Preview) (bool, error)
}

// Unsubscriber attempts to unsubscribe from a sender, using messageID as evidence
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, sender, messageID string) UnsubscribeResult
}

// ProtectedSenders reports senders that must never be removed
type ProtectedSenders interface {
	IsWhitelisted(from string) bool
}

// RunJournal keeps an audit trail of cleanup runs
type RunJournal interface {
	// Record stores a finished run
	Record(ctx context.Context, report *RunReport) error

	// Recent returns the latest n runs, newest first
	Recent(ctx context.Context, n int) ([]RunReport, error)

	// Cleanup removes runs older than the retention window
	Cleanup(ctx context.Context) error
}
