package core

import (
	"time"
)

// Preferences is the persisted cleanup rule set
type Preferences struct {
	BlockedSenders      []string `json:"blocked_senders" mapstructure:"blocked_senders"`
	ToDeleteSenders     []string `json:"to_delete_senders" mapstructure:"to_delete_senders"`
	DeletePromotional   bool     `json:"delete_promotional" mapstructure:"delete_promotional"`
	DeleteSpam          bool     `json:"delete_spam" mapstructure:"delete_spam"`
	DeleteNewsletters   bool     `json:"delete_newsletters" mapstructure:"delete_newsletters"`
	DeleteSocial        bool     `json:"delete_social" mapstructure:"delete_social"`
	UnsubscribeEmails   bool     `json:"unsubscribe_emails" mapstructure:"unsubscribe_emails"`
	KeepCategories      []string `json:"keep_categories" mapstructure:"keep_categories"`
	ConfidenceThreshold float64  `json:"confidence_threshold" mapstructure:"confidence_threshold"`
	MaxEmailsPerRun     *int     `json:"max_emails_per_run" mapstructure:"max_emails_per_run"`
}

// DefaultKeepCategories are the categories an assistant is told never to delete
var DefaultKeepCategories = []string{"personal", "work", "financial", "travel", "health", "legal", "family"}

// DefaultPreferences returns the preferences used when nothing is stored yet
func DefaultPreferences() *Preferences {
	return &Preferences{
		BlockedSenders:      []string{},
		ToDeleteSenders:     []string{},
		DeletePromotional:   false,
		DeleteSpam:          true,
		DeleteNewsletters:   true,
		DeleteSocial:        false,
		UnsubscribeEmails:   false,
		KeepCategories:      append([]string(nil), DefaultKeepCategories...),
		ConfidenceThreshold: 0.6,
		MaxEmailsPerRun:     nil,
	}
}

// Clone returns a deep copy
func (p *Preferences) Clone() *Preferences {
	c := *p
	c.BlockedSenders = append([]string{}, p.BlockedSenders...)
	c.ToDeleteSenders = append([]string{}, p.ToDeleteSenders...)
	c.KeepCategories = append([]string{}, p.KeepCategories...)
	if p.MaxEmailsPerRun != nil {
		n := *p.MaxEmailsPerRun
		c.MaxEmailsPerRun = &n
	}
	return &c
}

// Normalize fills nil slices and clamps values that fell out of range
// in a hand-edited record.
func (p *Preferences) Normalize() {
	if p.BlockedSenders == nil {
		p.BlockedSenders = []string{}
	}
	if p.ToDeleteSenders == nil {
		p.ToDeleteSenders = []string{}
	}
	if p.KeepCategories == nil {
		p.KeepCategories = []string{}
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		p.ConfidenceThreshold = 0.6
	}
	if p.MaxEmailsPerRun != nil && *p.MaxEmailsPerRun <= 0 {
		p.MaxEmailsPerRun = nil
	}
}

// MessageRef identifies a message returned by a search
type MessageRef struct {
	ID       string
	ThreadID string
}

// MessagePage is one page of search results
type MessagePage struct {
	Messages      []MessageRef
	NextPageToken string
}

// Header is a single message header
type Header struct {
	Name  string
	Value string
}

// MessagePart is a node of the provider's MIME tree. Data holds the
// base64url encoded body as delivered by the provider.
type MessagePart struct {
	MimeType string
	Headers  []Header
	Data     string
	Parts    []*MessagePart
}

// RawMessage is a fully fetched message
type RawMessage struct {
	ID       string
	ThreadID string
	LabelIDs []string
	Snippet  string
	Payload  *MessagePart
}

// MessageSummary is the normalized view used for classification
type MessageSummary struct {
	ID          string
	Sender      string
	CleanSender string
	Subject     string
	BodyExcerpt string
	Labels      []string
}

// Decision is the outcome of classifying one message
type Decision struct {
	Delete     bool    `json:"delete"`
	Reason     string  `json:"reason"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"-"`
}

// Accept reports whether the decision clears the confidence gate
func (d Decision) Accept(threshold float64) bool {
	return d.Delete && d.Confidence > threshold
}

// DeletionCandidate is a message selected for removal
type DeletionCandidate struct {
	ID      string
	Sender  string
	Subject string
	Reason  string
}

// Preview is what the confirmation channel is shown
type Preview struct {
	Total      int
	Candidates []DeletionCandidate
}

// DeletionFailure records a message that could not be removed
type DeletionFailure struct {
	ID     string
	Reason string
}

// UnsubscribeOutcome classifies an unsubscribe attempt
type UnsubscribeOutcome string

const (
	UnsubscribeSucceeded       UnsubscribeOutcome = "succeeded"
	UnsubscribeRequested       UnsubscribeOutcome = "requested"
	UnsubscribeFormSubmitted   UnsubscribeOutcome = "form_submitted"
	UnsubscribeMailtoOnly      UnsubscribeOutcome = "mailto_only"
	UnsubscribeNoMechanism     UnsubscribeOutcome = "no_mechanism"
	UnsubscribeHTTPError       UnsubscribeOutcome = "http_error"
	UnsubscribeTimeout         UnsubscribeOutcome = "timeout"
	UnsubscribeTLSError        UnsubscribeOutcome = "tls_error"
	UnsubscribeConnectionError UnsubscribeOutcome = "connection_error"
	UnsubscribeFetchFailed     UnsubscribeOutcome = "fetch_failed"
)

// Succeeded reports whether the outcome counts towards the unsubscribed total.
// A mailto target is a partial success.
func (o UnsubscribeOutcome) Succeeded() bool {
	switch o {
	case UnsubscribeSucceeded, UnsubscribeRequested, UnsubscribeFormSubmitted, UnsubscribeMailtoOnly:
		return true
	}
	return false
}

// UnsubscribeResult is the per-sender record of an unsubscribe attempt
type UnsubscribeResult struct {
	Sender  string
	Target  string
	Outcome UnsubscribeOutcome
	Detail  string
}

// Phase is a cleanup run state
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseQueryBuilt           Phase = "query_built"
	PhaseFetching             Phase = "fetching"
	PhaseClassifying          Phase = "classifying"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseDeleting             Phase = "deleting"
	PhaseDone                 Phase = "done"
	PhaseAborted              Phase = "aborted"
)

// RunReport summarises one cleanup run
type RunReport struct {
	RunID        string
	Mode         string
	Query        string
	State        Phase
	AbortReason  string
	Fetched      int
	Candidates   []DeletionCandidate
	Kept         int
	Skipped      int
	Deleted      int
	Failed       int
	Unsubscribed int
	Failures     []DeletionFailure
	Unsubscribes []UnsubscribeResult
	FetchError   string
	StartedAt    time.Time
	FinishedAt   time.Time
}
