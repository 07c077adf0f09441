package core

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrSaveFailed is returned when the store refuses an edit
var ErrSaveFailed = errors.New("failed to save preferences")

// SenderList names one of the editable sender lists
type SenderList string

const (
	ListBlocked  SenderList = "blocked_senders"
	ListToDelete SenderList = "to_delete_senders"
)

// Toggle names for boolean preferences
const (
	ToggleDeletePromotional = "delete_promotional"
	ToggleDeleteSpam        = "delete_spam"
	ToggleDeleteNewsletters = "delete_newsletters"
	ToggleDeleteSocial      = "delete_social"
	ToggleUnsubscribe       = "unsubscribe_emails"
)

// Toggles lists every boolean preference in display order
var Toggles = []string{
	ToggleDeletePromotional,
	ToggleDeleteSpam,
	ToggleDeleteNewsletters,
	ToggleDeleteSocial,
	ToggleUnsubscribe,
}

type editKind int

const (
	editAddSender editKind = iota
	editRemoveSender
	editClearSenders
	editToggle
	editThreshold
	editMaxPerRun
)

// Edit is a single structured change to the preferences
type Edit struct {
	kind      editKind
	list      SenderList
	value     string
	enabled   bool
	threshold float64
	maxPerRun *int
}

// AddSender appends sender to list
func AddSender(list SenderList, sender string) Edit {
	return Edit{kind: editAddSender, list: list, value: sender}
}

// RemoveSender drops sender from list
func RemoveSender(list SenderList, sender string) Edit {
	return Edit{kind: editRemoveSender, list: list, value: sender}
}

// ClearSenders empties list
func ClearSenders(list SenderList) Edit {
	return Edit{kind: editClearSenders, list: list}
}

// SetToggle sets a boolean preference by name
func SetToggle(name string, enabled bool) Edit {
	return Edit{kind: editToggle, value: name, enabled: enabled}
}

// SetThreshold sets the confidence threshold
func SetThreshold(v float64) Edit {
	return Edit{kind: editThreshold, threshold: v}
}

// SetMaxPerRun sets the per-run cap; nil removes it
func SetMaxPerRun(n *int) Edit {
	return Edit{kind: editMaxPerRun, maxPerRun: n}
}

// SessionOutcome is the terminal state of an edit session
type SessionOutcome string

const (
	SessionOpen      SessionOutcome = "open"
	SessionConfirmed SessionOutcome = "confirmed"
	SessionCancelled SessionOutcome = "cancelled"
)

// EditSession is the single contract every preferences front end drives.
// Each applied edit is saved immediately.
type EditSession struct {
	store   PreferencesStore
	prefs   *Preferences
	outcome SessionOutcome
	logger  *zap.Logger
}

// NewEditSession loads the current preferences from store
func NewEditSession(store PreferencesStore, logger *zap.Logger) *EditSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefs := store.Load()
	prefs.Normalize()
	return &EditSession{
		store:   store,
		prefs:   prefs,
		outcome: SessionOpen,
		logger:  logger,
	}
}

// Current returns a copy of the session's preferences
func (s *EditSession) Current() *Preferences {
	return s.prefs.Clone()
}

// Apply validates and persists a single edit. On a save failure the
// in-memory preferences are left unchanged.
func (s *EditSession) Apply(e Edit) error {
	if s.outcome != SessionOpen {
		return fmt.Errorf("%w: session already %s", ErrInvalidEdit, s.outcome)
	}

	next := s.prefs.Clone()
	if err := applyEdit(next, e); err != nil {
		return err
	}
	if !s.store.Save(next) {
		return ErrSaveFailed
	}
	s.prefs = next
	s.logger.Debug("Preferences updated")
	return nil
}

// ApplyAll applies edits in order and stops at the first error
func (s *EditSession) ApplyAll(edits ...Edit) error {
	for _, e := range edits {
		if err := s.Apply(e); err != nil {
			return err
		}
	}
	return nil
}

// Confirm closes the session and returns the final preferences
func (s *EditSession) Confirm() *Preferences {
	s.outcome = SessionConfirmed
	return s.prefs.Clone()
}

// Cancel closes the session without starting a cleanup
func (s *EditSession) Cancel() {
	s.outcome = SessionCancelled
}

// Outcome reports how the session ended
func (s *EditSession) Outcome() SessionOutcome {
	return s.outcome
}

func applyEdit(p *Preferences, e Edit) error {
	switch e.kind {
	case editAddSender:
		list, err := senderList(p, e.list)
		if err != nil {
			return err
		}
		v := strings.ToLower(strings.TrimSpace(e.value))
		if v == "" {
			return fmt.Errorf("%w: empty sender", ErrInvalidEdit)
		}
		if e.list == ListToDelete && !strings.Contains(v, "@") {
			return fmt.Errorf("%w: %q is not an email address", ErrInvalidEdit, v)
		}
		for _, existing := range *list {
			if strings.EqualFold(existing, v) {
				return fmt.Errorf("%w: %q is already in %s", ErrInvalidEdit, v, e.list)
			}
		}
		*list = append(*list, v)

	case editRemoveSender:
		list, err := senderList(p, e.list)
		if err != nil {
			return err
		}
		v := strings.TrimSpace(e.value)
		for i, existing := range *list {
			if strings.EqualFold(existing, v) {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: %q is not in %s", ErrInvalidEdit, v, e.list)

	case editClearSenders:
		list, err := senderList(p, e.list)
		if err != nil {
			return err
		}
		*list = []string{}

	case editToggle:
		switch e.value {
		case ToggleDeletePromotional:
			p.DeletePromotional = e.enabled
		case ToggleDeleteSpam:
			p.DeleteSpam = e.enabled
		case ToggleDeleteNewsletters:
			p.DeleteNewsletters = e.enabled
		case ToggleDeleteSocial:
			p.DeleteSocial = e.enabled
		case ToggleUnsubscribe:
			p.UnsubscribeEmails = e.enabled
		default:
			return fmt.Errorf("%w: unknown toggle %q", ErrInvalidEdit, e.value)
		}

	case editThreshold:
		if e.threshold < 0 || e.threshold > 1 {
			return fmt.Errorf("%w: threshold %v must be between 0 and 1", ErrInvalidEdit, e.threshold)
		}
		p.ConfidenceThreshold = e.threshold

	case editMaxPerRun:
		if e.maxPerRun != nil && *e.maxPerRun <= 0 {
			return fmt.Errorf("%w: max emails per run must be positive", ErrInvalidEdit)
		}
		if e.maxPerRun == nil {
			p.MaxEmailsPerRun = nil
		} else {
			n := *e.maxPerRun
			p.MaxEmailsPerRun = &n
		}

	default:
		return fmt.Errorf("%w: unknown edit", ErrInvalidEdit)
	}
	return nil
}

func senderList(p *Preferences, list SenderList) (*[]string, error) {
	switch list {
	case ListBlocked:
		return &p.BlockedSenders, nil
	case ListToDelete:
		return &p.ToDeleteSenders, nil
	}
	return nil, fmt.Errorf("%w: unknown sender list %q", ErrInvalidEdit, list)
}

// ToggleValue reads a boolean preference by name
func ToggleValue(p *Preferences, name string) (bool, error) {
	switch name {
	case ToggleDeletePromotional:
		return p.DeletePromotional, nil
	case ToggleDeleteSpam:
		return p.DeleteSpam, nil
	case ToggleDeleteNewsletters:
		return p.DeleteNewsletters, nil
	case ToggleDeleteSocial:
		return p.DeleteSocial, nil
	case ToggleUnsubscribe:
		return p.UnsubscribeEmails, nil
	}
	return false, fmt.Errorf("%w: unknown toggle %q", ErrInvalidEdit, name)
}
