package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// LineConfirmer prints the preview and reads a yes/no answer from in
type LineConfirmer struct {
	in  io.Reader
	out io.Writer
}

// NewLineConfirmer creates a line-based confirmer
func NewLineConfirmer(in io.Reader, out io.Writer) *LineConfirmer {
	return &LineConfirmer{in: in, out: out}
}

// Confirm implements core.Confirmer. Only "y" or "yes" approve.
func (c *LineConfirmer) Confirm(_ context.Context, preview core.Preview) (bool, error) {
	fmt.Fprint(c.out, RenderPreview(preview))
	fmt.Fprintf(c.out, "\nDelete these %d emails? (yes/no): ", preview.Total)

	sc := bufio.NewScanner(c.in)
	if !sc.Scan() {
		return false, sc.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(sc.Text()))
	return answer == "y" || answer == "yes", nil
}

// FormConfirmer asks with an interactive huh form
type FormConfirmer struct {
	out        io.Writer
	accessible bool
}

// NewFormConfirmer creates a form confirmer. Accessible mode falls back to
// plain prompts for screen readers and dumb terminals.
func NewFormConfirmer(out io.Writer, accessible bool) *FormConfirmer {
	return &FormConfirmer{out: out, accessible: accessible}
}

// Confirm implements core.Confirmer. Aborting the form is a decline.
func (c *FormConfirmer) Confirm(ctx context.Context, preview core.Preview) (bool, error) {
	fmt.Fprint(c.out, RenderPreview(preview))

	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d emails?", preview.Total)).
				Description("Messages are moved to the trash unless the batch strategy is configured.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&ok),
		),
	).WithAccessible(c.accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("failed to run confirmation form: %w", err)
	}
	return ok, nil
}

// AutoConfirmer approves every deletion. Used with --yes.
type AutoConfirmer struct {
	out io.Writer
}

// NewAutoConfirmer creates a confirmer that prints the preview and approves
func NewAutoConfirmer(out io.Writer) *AutoConfirmer {
	return &AutoConfirmer{out: out}
}

// Confirm implements core.Confirmer
func (c *AutoConfirmer) Confirm(_ context.Context, preview core.Preview) (bool, error) {
	if c.out != nil {
		fmt.Fprint(c.out, RenderPreview(preview))
	}
	return true, nil
}
