package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/mikey/inbox-sweeper/internal/core"
)

const (
	actionAddBlocked  = "add_blocked"
	actionAddToDelete = "add_to_delete"
	actionRemove      = "remove"
	actionToggles     = "toggles"
	actionThreshold   = "threshold"
	actionMaxPerRun   = "max_per_run"
	actionDone        = "done"
	actionCancel      = "cancel"
)

type senderRef struct {
	List   core.SenderList
	Sender string
}

// Editor drives a core.EditSession with huh forms
type Editor struct {
	session     *core.EditSession
	out         io.Writer
	accessible  bool
	suggestions []string
}

// NewEditor creates an editor for session
func NewEditor(session *core.EditSession, out io.Writer, accessible bool) *Editor {
	return &Editor{session: session, out: out, accessible: accessible}
}

// WithSuggestions offers senders (usually recent inbox senders) when adding to a list
func (e *Editor) WithSuggestions(senders []string) *Editor {
	e.suggestions = senders
	return e
}

// Run loops until the user finishes or cancels. It returns the final
// preferences, or nil when the session was cancelled.
func (e *Editor) Run(ctx context.Context) (*core.Preferences, error) {
	for {
		action, err := e.chooseAction(ctx)
		if errors.Is(err, huh.ErrUserAborted) {
			e.session.Cancel()
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		switch action {
		case actionDone:
			return e.session.Confirm(), nil
		case actionCancel:
			e.session.Cancel()
			return nil, nil
		}

		edits, err := e.collect(ctx, action)
		if errors.Is(err, huh.ErrUserAborted) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := e.session.ApplyAll(edits...); err != nil {
			fmt.Fprintln(e.out, errorStyle.Render(err.Error()))
			continue
		}
		if len(edits) > 0 {
			fmt.Fprintln(e.out, okStyle.Render("Saved."))
		}
	}
}

func (e *Editor) run(ctx context.Context, fields ...huh.Field) error {
	return huh.NewForm(huh.NewGroup(fields...)).WithAccessible(e.accessible).RunWithContext(ctx)
}

func (e *Editor) chooseAction(ctx context.Context) (string, error) {
	p := e.session.Current()
	var action string
	err := e.run(ctx,
		huh.NewSelect[string]().
			Title("Edit cleanup preferences").
			Description(fmt.Sprintf("%d blocked, %d to delete, threshold %.2f",
				len(p.BlockedSenders), len(p.ToDeleteSenders), p.ConfidenceThreshold)).
			Options(
				huh.NewOption("Block a sender or domain", actionAddBlocked),
				huh.NewOption("Add a sender to delete", actionAddToDelete),
				huh.NewOption("Remove a sender", actionRemove),
				huh.NewOption("Choose cleanup categories", actionToggles),
				huh.NewOption("Set confidence threshold", actionThreshold),
				huh.NewOption("Set max emails per run", actionMaxPerRun),
				huh.NewOption("Done, start cleanup", actionDone),
				huh.NewOption("Cancel", actionCancel),
			).
			Value(&action),
	)
	return action, err
}

func (e *Editor) collect(ctx context.Context, action string) ([]core.Edit, error) {
	p := e.session.Current()

	switch action {
	case actionAddBlocked, actionAddToDelete:
		list := core.ListBlocked
		if action == actionAddToDelete {
			list = core.ListToDelete
		}
		return e.collectSenders(ctx, list, p)

	case actionRemove:
		var opts []huh.Option[senderRef]
		for _, s := range p.BlockedSenders {
			opts = append(opts, huh.NewOption("blocked: "+s, senderRef{core.ListBlocked, s}))
		}
		for _, s := range p.ToDeleteSenders {
			opts = append(opts, huh.NewOption("to delete: "+s, senderRef{core.ListToDelete, s}))
		}
		if len(opts) == 0 {
			fmt.Fprintln(e.out, "No senders to remove.")
			return nil, nil
		}
		var picked []senderRef
		err := e.run(ctx, huh.NewMultiSelect[senderRef]().Title("Remove senders").Options(opts...).Value(&picked))
		if err != nil {
			return nil, err
		}
		edits := make([]core.Edit, 0, len(picked))
		for _, r := range picked {
			edits = append(edits, core.RemoveSender(r.List, r.Sender))
		}
		return edits, nil

	case actionToggles:
		var opts []huh.Option[string]
		var selected []string
		for _, name := range core.Toggles {
			on, _ := core.ToggleValue(p, name)
			opts = append(opts, huh.NewOption(name, name).Selected(on))
			if on {
				selected = append(selected, name)
			}
		}
		err := e.run(ctx, huh.NewMultiSelect[string]().Title("Cleanup categories").Options(opts...).Value(&selected))
		if err != nil {
			return nil, err
		}
		return ToggleEdits(p, selected), nil

	case actionThreshold:
		v := strconv.FormatFloat(p.ConfidenceThreshold, 'f', -1, 64)
		err := e.run(ctx, huh.NewInput().
			Title("Confidence threshold (0 to 1)").
			Value(&v).
			Validate(func(s string) error { _, err := ParseThreshold(s); return err }))
		if err != nil {
			return nil, err
		}
		t, _ := ParseThreshold(v)
		return []core.Edit{core.SetThreshold(t)}, nil

	case actionMaxPerRun:
		var v string
		if p.MaxEmailsPerRun != nil {
			v = strconv.Itoa(*p.MaxEmailsPerRun)
		}
		err := e.run(ctx, huh.NewInput().
			Title("Max emails per run").
			Description("Leave empty for no limit").
			Value(&v).
			Validate(func(s string) error { _, err := ParseMaxPerRun(s); return err }))
		if err != nil {
			return nil, err
		}
		n, _ := ParseMaxPerRun(v)
		return []core.Edit{core.SetMaxPerRun(n)}, nil
	}
	return nil, fmt.Errorf("unknown action %q", action)
}

func (e *Editor) collectSenders(ctx context.Context, list core.SenderList, p *core.Preferences) ([]core.Edit, error) {
	existing := p.BlockedSenders
	if list == core.ListToDelete {
		existing = p.ToDeleteSenders
	}

	var fields []huh.Field
	var picked []string
	if opts := suggestionOptions(e.suggestions, existing); len(opts) > 0 {
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("Recent senders").
			Options(opts...).
			Value(&picked))
	}
	var typed string
	fields = append(fields, huh.NewInput().
		Title("Sender address or domain").
		Description("Separate several with commas").
		Value(&typed))

	if err := e.run(ctx, fields...); err != nil {
		return nil, err
	}

	var edits []core.Edit
	for _, s := range append(picked, SplitSenders(typed)...) {
		edits = append(edits, core.AddSender(list, s))
	}
	return edits, nil
}

func suggestionOptions(suggestions, existing []string) []huh.Option[string] {
	have := make(map[string]bool, len(existing))
	for _, s := range existing {
		have[strings.ToLower(s)] = true
	}
	var opts []huh.Option[string]
	for _, s := range suggestions {
		if !have[strings.ToLower(s)] {
			opts = append(opts, huh.NewOption(s, s))
		}
	}
	return opts
}

// SplitSenders splits a comma or whitespace separated list
func SplitSenders(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
}

// ToggleEdits returns the edits that turn p's toggles into exactly selected
func ToggleEdits(p *core.Preferences, selected []string) []core.Edit {
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		want[s] = true
	}
	var edits []core.Edit
	for _, name := range core.Toggles {
		cur, _ := core.ToggleValue(p, name)
		if cur != want[name] {
			edits = append(edits, core.SetToggle(name, want[name]))
		}
	}
	return edits
}

// ParseThreshold parses a confidence threshold in [0,1]
func ParseThreshold(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("threshold must be between 0 and 1")
	}
	return v, nil
}

// ParseMaxPerRun parses a positive limit; empty or "none" means unlimited
func ParseMaxPerRun(s string) (*int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "none" || s == "unlimited" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%q is not a whole number", s)
	}
	if n <= 0 {
		return nil, fmt.Errorf("max emails per run must be positive")
	}
	return &n, nil
}

// ParseSenderList maps a command line list name onto a sender list
func ParseSenderList(name string) (core.SenderList, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blocked", "blocked_senders", "keep":
		return core.ListBlocked, nil
	case "delete", "to-delete", "to_delete", "to_delete_senders":
		return core.ListToDelete, nil
	}
	return "", fmt.Errorf("unknown sender list %q (use blocked or delete)", name)
}

// SettingEdit turns a key and value typed on the command line into an edit
func SettingEdit(key, value string) (core.Edit, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "confidence_threshold", "threshold":
		v, err := ParseThreshold(value)
		if err != nil {
			return core.Edit{}, err
		}
		return core.SetThreshold(v), nil
	case "max_emails_per_run", "max":
		n, err := ParseMaxPerRun(value)
		if err != nil {
			return core.Edit{}, err
		}
		return core.SetMaxPerRun(n), nil
	}
	for _, name := range core.Toggles {
		if name == key {
			on, err := strconv.ParseBool(strings.TrimSpace(value))
			if err != nil {
				return core.Edit{}, fmt.Errorf("%q is not true or false", value)
			}
			return core.SetToggle(name, on), nil
		}
	}
	return core.Edit{}, fmt.Errorf("unknown setting %q", key)
}
