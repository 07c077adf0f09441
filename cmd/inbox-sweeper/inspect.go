package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/eml"
	"github.com/mikey/inbox-sweeper/internal/adapters/terminal"
	"github.com/mikey/inbox-sweeper/internal/core"
	"github.com/mikey/inbox-sweeper/internal/factory"
	"github.com/mikey/inbox-sweeper/internal/utils"
)

func sendersCmd() *cobra.Command {
	var (
		scan  int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "senders",
		Short: "Inspect mailbox senders",
	}

	recent := &cobra.Command{
		Use:   "recent",
		Short: "List distinct senders of recent inbox messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, true, false, nil, func(provider core.MailProvider, logger *zap.Logger) error {
				senders, err := core.RecentSenders(cmd.Context(), provider, scan, limit, logger)
				if err != nil {
					return err
				}
				if len(senders) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No recent senders found.")
					return nil
				}
				for i, s := range senders {
					fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, s)
				}
				return nil
			})
		},
	}
	recent.Flags().IntVar(&scan, "scan", recentScan, "Number of inbox messages to scan")
	recent.Flags().IntVar(&limit, "limit", recentLimit, "Maximum number of senders to list")
	cmd.AddCommand(recent)

	return cmd
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent cleanup runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, false, false, nil, func(journal factory.Journal) error {
				if journal == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "The run journal is disabled.")
					return nil
				}
				defer journal.Stop()

				runs, err := journal.Recent(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("failed to read run journal: %w", err)
				}
				terminal.PrintHistory(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE.eml",
		Short: "Classify a saved message without touching the mailbox",
		Long: `Parse a saved .eml file and print the decision the classifier would make
for it under the stored preferences.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, false, false, nil, func(
				classifier core.Classifier,
				store core.PreferencesStore,
				tp *utils.TextProcessor,
				logger *zap.Logger,
			) error {
				msg, err := eml.ReadFile(args[0])
				if err != nil {
					return err
				}
				summary, err := core.ExtractSummary(msg, tp)
				if err != nil {
					return fmt.Errorf("failed to extract %s: %w", args[0], err)
				}

				prefs := store.Load()
				logger.Debug("Classifying message", zap.String("id", summary.ID), zap.String("sender", summary.Sender))

				start := time.Now()
				decision := classifier.Classify(cmd.Context(), summary, prefs)
				terminal.PrintDecision(cmd.OutOrStdout(), summary, decision, prefs.ConfidenceThreshold, verbose, time.Since(start))
				return nil
			})
		},
	}
}
