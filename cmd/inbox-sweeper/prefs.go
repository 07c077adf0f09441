package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/terminal"
	"github.com/mikey/inbox-sweeper/internal/core"
)

func prefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change cleanup preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the stored preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, false, false, nil, func(store core.PreferencesStore) {
				terminal.PrintPreferences(cmd.OutOrStdout(), store.Load())
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add LIST SENDER...",
		Short: "Add senders to the blocked or delete list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := terminal.ParseSenderList(args[0])
			if err != nil {
				return err
			}
			var edits []core.Edit
			for _, sender := range args[1:] {
				edits = append(edits, core.AddSender(list, sender))
			}
			return editPrefs(cmd, edits...)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove LIST SENDER...",
		Short: "Remove senders from the blocked or delete list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := terminal.ParseSenderList(args[0])
			if err != nil {
				return err
			}
			var edits []core.Edit
			for _, sender := range args[1:] {
				edits = append(edits, core.RemoveSender(list, sender))
			}
			return editPrefs(cmd, edits...)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear LIST",
		Short: "Empty the blocked or delete list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := terminal.ParseSenderList(args[0])
			if err != nil {
				return err
			}
			return editPrefs(cmd, core.ClearSenders(list))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change a toggle, confidence_threshold or max_emails_per_run",
		Example: `  inbox-sweeper prefs set delete_social true
  inbox-sweeper prefs set confidence_threshold 0.8
  inbox-sweeper prefs set max_emails_per_run none`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			edit, err := terminal.SettingEdit(args[0], args[1])
			if err != nil {
				return err
			}
			return editPrefs(cmd, edit)
		},
	})

	return cmd
}

// editPrefs applies edits through an edit session and prints the result
func editPrefs(cmd *cobra.Command, edits ...core.Edit) error {
	return withContainer(cmd, false, false, nil, func(store core.PreferencesStore, logger *zap.Logger) error {
		session := core.NewEditSession(store, logger)
		if err := session.ApplyAll(edits...); err != nil {
			session.Cancel()
			return err
		}
		terminal.PrintPreferences(cmd.OutOrStdout(), session.Confirm())
		return nil
	})
}
