package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/di"
	"github.com/mikey/inbox-sweeper/internal/factory"
	"github.com/mikey/inbox-sweeper/internal/logging"
)

var (
	cfgFile string
	verbose bool
	jsonLog bool
	plain   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "inbox-sweeper",
		Short: "Inbox Sweeper - clean up a Gmail mailbox",
		Long: `Inbox Sweeper finds unwanted Gmail messages, shows what it is about to
remove and deletes them after you confirm.

Messages are selected from your sender lists or classified with an AI
model, falling back to built-in rules when no model is available.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches /etc/inbox-sweeper, $HOME/.inbox-sweeper, ./configs and .)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "Log in JSON format")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Use plain line prompts instead of forms")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(prefsCmd())
	rootCmd.AddCommand(editCmd())
	rootCmd.AddCommand(sendersCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(checkCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the logger for a command
func loadConfig() (*config.Config, *zap.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.NewFromFile(cfgFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var logger *zap.Logger
	if verbose || jsonLog {
		logger, err = logging.InitConsoleLogger(verbose, jsonLog)
	} else {
		logger, err = logging.InitLogger(cfg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// newRuntime assembles the command's runtime settings
func newRuntime(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, assumeYes bool) di.Runtime {
	return di.Runtime{
		Context:    cmd.Context(),
		Config:     cfg,
		Logger:     logger,
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
		AssumeYes:  assumeYes,
		PlainInput: plain,
	}
}

// withContainer builds a container and invokes fn with it. When online is
// set the Gmail provider and the cleanup service are registered too.
func withContainer(cmd *cobra.Command, online, assumeYes bool, configure func(*config.Config), fn interface{}) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if configure != nil {
		configure(cfg)
	}

	rt := newRuntime(cmd, cfg, logger, assumeYes)
	var container *dig.Container
	if online {
		container, err = di.BuildContainer(rt)
	} else {
		container, err = di.BuildOfflineContainer(rt)
	}
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(fn)
}

// stopJournal ends the journal's background cleanup task
func stopJournal(j factory.Journal) {
	if j != nil {
		j.Stop()
	}
}
