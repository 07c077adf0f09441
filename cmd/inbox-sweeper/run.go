package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/terminal"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
	"github.com/mikey/inbox-sweeper/internal/factory"
)

type runFlags struct {
	dryRun   bool
	yes      bool
	mode     string
	strategy string
}

func (f runFlags) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("dry-run") {
			cfg.Set("cleanup.dry_run", f.dryRun)
		}
		if f.mode != "" {
			cfg.Set("cleanup.mode", f.mode)
		}
		if f.strategy != "" {
			cfg.Set("cleanup.delete_strategy", f.strategy)
		}
	}
}

func runCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a cleanup against the mailbox",
		Long: `Select messages from your sender lists or by classification, preview them
and delete them once confirmed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, true, flags.yes, flags.apply(cmd), func(
				svc *core.CleanupService,
				store core.PreferencesStore,
				journal factory.Journal,
				logger *zap.Logger,
			) error {
				defer stopJournal(journal)
				return runCleanup(cmd.Context(), cmd.OutOrStdout(), svc, store.Load(), logger)
			})
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Show what would be deleted without deleting")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Delete without asking for confirmation")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "Selection mode: auto, query or classify")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "Delete strategy: trash or batch")

	return cmd
}

func runCleanup(ctx context.Context, out io.Writer, svc *core.CleanupService, prefs *core.Preferences, logger *zap.Logger) error {
	report, err := svc.Run(ctx, prefs)
	if report != nil {
		terminal.PrintReport(out, report)
	}
	if err != nil {
		logger.Error("Cleanup run failed", zap.Error(err))
		return fmt.Errorf("cleanup failed: %w", err)
	}
	return nil
}
