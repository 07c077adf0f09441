package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/gmail"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/credential"
	"github.com/mikey/inbox-sweeper/internal/factory"
)

var llmProviders = []string{factory.ProviderGemini, factory.ProviderOpenAI}

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage Gmail authorization and stored API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Authorize Gmail access and show the mailbox address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, true, false, nil, func(client *gmail.Client) error {
				addr, err := client.Profile(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to read profile: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Authorized as %s\n", addr)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Forget the cached Gmail token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, true, false, nil, func(f *factory.ProviderFactory) error {
				if err := f.CreateAuthenticator().Reset(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Gmail token removed.")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "set-key PROVIDER",
		Short:     "Store an LLM API key in the system keyring",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: llmProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyring(cmd, func(store *credential.Store, logger *zap.Logger) error {
				key, err := promptSecret(cmd, fmt.Sprintf("%s API key", args[0]))
				if err != nil {
					return err
				}
				if err := store.Set(credential.APIKeyName(args[0]), key); err != nil {
					return err
				}
				logger.Debug("Stored API key", zap.String("provider", args[0]))
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key.\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "delete-key PROVIDER",
		Short:     "Remove an LLM API key from the system keyring",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: llmProviders,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKeyring(cmd, func(store *credential.Store, _ *zap.Logger) error {
				err := store.Delete(credential.APIKeyName(args[0]))
				if errors.Is(err, credential.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No %s API key stored.\n", args[0])
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s API key.\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func withKeyring(cmd *cobra.Command, fn func(*credential.Store, *zap.Logger) error) error {
	return withContainer(cmd, false, false, nil, func(cfg *config.Config, logger *zap.Logger) error {
		store, err := credential.Open(cfg.GetString("keyring.file_dir"))
		if err != nil {
			return err
		}
		return fn(store, logger)
	})
}

// promptSecret reads a secret without echo, or as a plain line with --plain
func promptSecret(cmd *cobra.Command, title string) (string, error) {
	var value string
	if plain {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ", title)
		sc := bufio.NewScanner(cmd.InOrStdin())
		if sc.Scan() {
			value = sc.Text()
		} else if err := sc.Err(); err != nil {
			return "", fmt.Errorf("failed to read %s: %w", title, err)
		}
	} else {
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&value),
		)).RunWithContext(cmd.Context())
		if err != nil {
			return "", err
		}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("empty key")
	}
	return value, nil
}
