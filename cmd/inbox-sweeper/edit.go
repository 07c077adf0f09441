package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/terminal"
	"github.com/mikey/inbox-sweeper/internal/core"
	"github.com/mikey/inbox-sweeper/internal/factory"
)

const (
	recentScan  = 30
	recentLimit = 15
)

func editCmd() *cobra.Command {
	var (
		recent bool
		run    bool
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit preferences interactively",
		Long: `Open the interactive preferences editor. Every change is saved as soon as
it is made. With --run a cleanup starts when you finish editing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, out := cmd.Context(), cmd.OutOrStdout()

			if !recent && !run {
				return withContainer(cmd, false, false, nil, func(store core.PreferencesStore, logger *zap.Logger) error {
					_, err := editPreferences(ctx, out, store, nil, logger)
					return err
				})
			}

			return withContainer(cmd, true, yes, nil, func(
				store core.PreferencesStore,
				provider core.MailProvider,
				svc *core.CleanupService,
				journal factory.Journal,
				logger *zap.Logger,
			) error {
				defer stopJournal(journal)

				var suggestions []string
				if recent {
					senders, err := core.RecentSenders(ctx, provider, recentScan, recentLimit, logger)
					if err != nil {
						logger.Warn("Failed to load recent senders", zap.Error(err))
					}
					suggestions = senders
				}

				prefs, err := editPreferences(ctx, out, store, suggestions, logger)
				if err != nil || prefs == nil || !run {
					return err
				}
				return runCleanup(ctx, out, svc, prefs, logger)
			})
		},
	}

	cmd.Flags().BoolVar(&recent, "recent", false, "Suggest senders from recent inbox messages")
	cmd.Flags().BoolVar(&run, "run", false, "Start a cleanup after editing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation when running")

	return cmd
}

// editPreferences runs the editor and returns the confirmed preferences,
// or nil when the session was cancelled.
func editPreferences(ctx context.Context, out io.Writer, store core.PreferencesStore, suggestions []string, logger *zap.Logger) (*core.Preferences, error) {
	session := core.NewEditSession(store, logger)
	prefs, err := terminal.NewEditor(session, out, plain).WithSuggestions(suggestions).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("editor failed: %w", err)
	}
	if prefs == nil {
		fmt.Fprintln(out, "Cancelled.")
		return nil, nil
	}
	terminal.PrintPreferences(out, prefs)
	return prefs, nil
}
