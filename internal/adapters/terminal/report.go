package terminal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/inbox-sweeper/internal/core"
)

// PrintReport writes the summary of a cleanup run
func PrintReport(w io.Writer, r *core.RunReport) {
	fmt.Fprintf(w, "\n%s\n", titleStyle.Render("=== Cleanup Summary ==="))
	fmt.Fprintf(w, "Run: %s (%s mode)\n", r.RunID, r.Mode)
	if r.Query != "" {
		fmt.Fprintf(w, "Query: %s\n", r.Query)
	}
	fmt.Fprintf(w, "State: %s\n", r.State)
	if r.AbortReason != "" {
		fmt.Fprintf(w, "Reason: %s\n", r.AbortReason)
	}
	fmt.Fprintf(w, "Fetched: %d  Candidates: %d  Kept: %d  Skipped: %d\n",
		r.Fetched, len(r.Candidates), r.Kept, r.Skipped)
	if r.FetchError != "" {
		fmt.Fprintf(w, "%s %s\n", errorStyle.Render("Fetch stopped early:"), r.FetchError)
	}

	if r.State == core.PhaseDone {
		fmt.Fprintf(w, "%s %d\n", okStyle.Render("Deleted:"), r.Deleted)
		fmt.Fprintf(w, "Failed: %d\n", r.Failed)
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  - %s: %s\n", f.ID, f.Reason)
		}
		if len(r.Unsubscribes) > 0 {
			fmt.Fprintf(w, "Unsubscribed: %d of %d senders\n", r.Unsubscribed, len(r.Unsubscribes))
			for _, u := range r.Unsubscribes {
				fmt.Fprintf(w, "  - %s: %s %s\n", u.Sender, u.Outcome, u.Detail)
			}
		}
	}
	fmt.Fprintf(w, "Duration: %v\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}

// PrintDecision writes the outcome of classifying a single message
func PrintDecision(w io.Writer, s *core.MessageSummary, d core.Decision, threshold float64, verbose bool, took time.Duration) {
	fmt.Fprintf(w, "\n=== Email Summary ===\n")
	fmt.Fprintf(w, "From: %s\n", s.Sender)
	fmt.Fprintf(w, "Subject: %s\n", s.Subject)
	if len(s.Labels) > 0 {
		fmt.Fprintf(w, "Labels: %s\n", strings.Join(s.Labels, ", "))
	}
	fmt.Fprintf(w, "Body excerpt: %d characters\n", len([]rune(s.BodyExcerpt)))
	if verbose && s.BodyExcerpt != "" {
		fmt.Fprintf(w, "\nBody preview:\n%s\n", shorten(s.BodyExcerpt, 500))
	}

	fmt.Fprintf(w, "\n=== Decision ===\n")
	fmt.Fprintf(w, "Delete: %t\n", d.Delete)
	fmt.Fprintf(w, "Category: %s\n", d.Category)
	fmt.Fprintf(w, "Confidence: %.2f\n", d.Confidence)
	fmt.Fprintf(w, "Reason: %s\n", d.Reason)
	fmt.Fprintf(w, "Strategy: %s\n", d.Strategy)
	verdict := "keep"
	if d.Accept(threshold) {
		verdict = "delete"
	}
	fmt.Fprintf(w, "Verdict at threshold %.2f: %s\n", threshold, verdict)
	fmt.Fprintf(w, "Processing time: %v\n", took.Round(time.Millisecond))
}

// PrintHistory writes one line per journal entry
func PrintHistory(w io.Writer, runs []core.RunReport) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No cleanup runs recorded.")
		return
	}
	for _, r := range runs {
		line := fmt.Sprintf("%s  %-8s %-9s deleted=%d failed=%d unsubscribed=%d",
			r.FinishedAt.Local().Format("2006-01-02 15:04"), r.Mode, r.State, r.Deleted, r.Failed, r.Unsubscribed)
		if r.AbortReason != "" {
			line += "  (" + r.AbortReason + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// PrintPreferences writes the preferences record in a readable form
func PrintPreferences(w io.Writer, p *core.Preferences) {
	fmt.Fprintln(w, titleStyle.Render("Preferences"))
	printList(w, "Blocked senders", p.BlockedSenders)
	printList(w, "Senders to delete", p.ToDeleteSenders)
	for _, name := range core.Toggles {
		v, _ := core.ToggleValue(p, name)
		fmt.Fprintf(w, "%s %t\n", labelStyle.Render(name+":"), v)
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("keep_categories:"), strings.Join(p.KeepCategories, ", "))
	fmt.Fprintf(w, "%s %.2f\n", labelStyle.Render("confidence_threshold:"), p.ConfidenceThreshold)
	limit := "unlimited"
	if p.MaxEmailsPerRun != nil {
		limit = fmt.Sprint(*p.MaxEmailsPerRun)
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("max_emails_per_run:"), limit)
}

func printList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s (%d)\n", labelStyle.Render(title+":"), len(items))
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}
