package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type listCall struct {
	Query    string
	Token    string
	PageSize int
}

// fakeProvider is an in-memory mailbox with scripted failures
type fakeProvider struct {
	mu sync.Mutex

	refs     []MessageRef
	messages map[string]*RawMessage

	listErrs  []error
	getErrs   map[string]error
	batchErr  error
	trashErrs map[string]error
	deleted   map[string]bool

	listCalls  []listCall
	getCalls   []string
	trashCalls []string
	batchCalls [][]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		messages:  make(map[string]*RawMessage),
		getErrs:   make(map[string]error),
		trashErrs: make(map[string]error),
		deleted:   make(map[string]bool),
	}
}

func (f *fakeProvider) add(msg *RawMessage) {
	f.refs = append(f.refs, MessageRef{ID: msg.ID})
	f.messages[msg.ID] = msg
}

func (f *fakeProvider) ListMessages(_ context.Context, query, pageToken string, maxPageSize int) (*MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, listCall{Query: query, Token: pageToken, PageSize: maxPageSize})

	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	var live []MessageRef
	for _, r := range f.refs {
		if !f.deleted[r.ID] {
			live = append(live, r)
		}
	}

	start := 0
	if pageToken != "" {
		start, _ = strconv.Atoi(pageToken)
	}
	end := start + maxPageSize
	if end > len(live) {
		end = len(live)
	}
	page := &MessagePage{Messages: append([]MessageRef(nil), live[start:end]...)}
	if end < len(live) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeProvider) GetMessage(_ context.Context, id string) (*RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, id)
	if err := f.getErrs[id]; err != nil {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok || f.deleted[id] {
		return nil, ErrNotFound
	}
	return msg, nil
}

func (f *fakeProvider) TrashMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trashCalls = append(f.trashCalls, id)
	if err := f.trashErrs[id]; err != nil {
		return err
	}
	f.deleted[id] = true
	return nil
}

func (f *fakeProvider) DeleteMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[id] = true
	return nil
}

func (f *fakeProvider) BatchDelete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls = append(f.batchCalls, append([]string(nil), ids...))
	if f.batchErr != nil {
		return f.batchErr
	}
	for _, id := range ids {
		f.deleted[id] = true
	}
	return nil
}

// fakeConfirmer records the preview and answers with a fixed reply
type fakeConfirmer struct {
	answer  bool
	err     error
	calls   int
	preview Preview
}

func (c *fakeConfirmer) Confirm(_ context.Context, p Preview) (bool, error) {
	c.calls++
	c.preview = p
	return c.answer, c.err
}

type unsubscribeCall struct {
	Sender    string
	MessageID string
}

type fakeUnsubscriber struct {
	calls   []unsubscribeCall
	outcome UnsubscribeOutcome
}

func (u *fakeUnsubscriber) Unsubscribe(_ context.Context, sender, messageID string) UnsubscribeResult {
	u.calls = append(u.calls, unsubscribeCall{Sender: sender, MessageID: messageID})
	out := u.outcome
	if out == "" {
		out = UnsubscribeSucceeded
	}
	return UnsubscribeResult{Sender: sender, Outcome: out}
}

type fakeLLM struct {
	decision *Decision
	err      error
	panics   bool
	calls    int
}

func (l *fakeLLM) AnalyzeEmail(_ context.Context, _ *MessageSummary, _ *Preferences) (*Decision, error) {
	l.calls++
	if l.panics {
		panic("boom")
	}
	return l.decision, l.err
}

type fakeJournal struct {
	reports []RunReport
}

func (j *fakeJournal) Record(_ context.Context, r *RunReport) error {
	j.reports = append(j.reports, *r)
	return nil
}

func (j *fakeJournal) Recent(_ context.Context, n int) ([]RunReport, error) {
	if n > len(j.reports) {
		n = len(j.reports)
	}
	return j.reports[:n], nil
}

func (j *fakeJournal) Cleanup(context.Context) error { return nil }

type memStore struct {
	prefs     *Preferences
	saves     int
	failSaves bool
}

func (m *memStore) Load() *Preferences {
	if m.prefs == nil {
		return DefaultPreferences()
	}
	return m.prefs.Clone()
}

func (m *memStore) Save(p *Preferences) bool {
	if m.failSaves {
		return false
	}
	m.saves++
	m.prefs = p.Clone()
	return true
}

// noSleep records requested delays without waiting
type noSleep struct {
	delays []time.Duration
}

func (n *noSleep) sleep(_ context.Context, d time.Duration) error {
	n.delays = append(n.delays, d)
	return nil
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func plainMessage(id, from, subject, body string, labels ...string) *RawMessage {
	return &RawMessage{
		ID:       id,
		LabelIDs: labels,
		Payload: &MessagePart{
			MimeType: "text/plain",
			Headers: []Header{
				{Name: "From", Value: from},
				{Name: "Subject", Value: subject},
			},
			Data: b64(body),
		},
	}
}

func transientErr(op string) error {
	return &ProviderError{Op: op, Code: 503, Transient: true, Err: fmt.Errorf("backend unavailable")}
}

func fatalErr(op string) error {
	return &ProviderError{Op: op, Code: 401, Transient: false, Err: fmt.Errorf("token expired")}
}

func intPtr(n int) *int { return &n }
