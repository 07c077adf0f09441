package terminal

import (
	"fmt"
	"strings"

	"github.com/mikey/inbox-sweeper/internal/core"
)

const maxSubjectRunes = 60

// RenderPreview formats the candidates shown before confirmation
func RenderPreview(p core.Preview) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Found %d emails to delete", p.Total)))
	b.WriteString("\n\n")
	for i, c := range p.Candidates {
		fmt.Fprintf(&b, "%3d. %s\n", i+1, senderStyle.Render(c.Sender))
		fmt.Fprintf(&b, "     %s %s\n", labelStyle.Render("Subject:"), shorten(c.Subject, maxSubjectRunes))
		fmt.Fprintf(&b, "     %s\n", reasonStyle.Render(c.Reason))
	}
	if rest := p.Total - len(p.Candidates); rest > 0 {
		fmt.Fprintf(&b, "\n... and %d more\n", rest)
	}
	return b.String()
}

func shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
