package di

import (
	"context"
	"io"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/adapters/gmail"
	"github.com/mikey/inbox-sweeper/internal/adapters/prefs"
	"github.com/mikey/inbox-sweeper/internal/adapters/terminal"
	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
	"github.com/mikey/inbox-sweeper/internal/credential"
	"github.com/mikey/inbox-sweeper/internal/factory"
	"github.com/mikey/inbox-sweeper/internal/unsubscribe"
	"github.com/mikey/inbox-sweeper/internal/utils"
	"github.com/mikey/inbox-sweeper/internal/whitelist"
)

// Runtime carries what the command line decides outside the config file
type Runtime struct {
	Context    context.Context
	Config     *config.Config
	Logger     *zap.Logger
	In         io.Reader
	Out        io.Writer
	AssumeYes  bool
	PlainInput bool
}

// BuildOfflineContainer registers everything that works without a mailbox:
// configuration, preferences, classification, journal and keyring.
func BuildOfflineContainer(rt Runtime) (*dig.Container, error) {
	container := dig.New()

	if err := container.Provide(func() Runtime { return rt }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *config.Config { return rt.Config }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *zap.Logger { return rt.Logger }); err != nil {
		return nil, err
	}
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	if err := container.Provide(func(cfg *config.Config) factory.KeySource {
		return credential.NewLazy(cfg.GetString("keyring.file_dir"))
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewJournalFactory); err != nil {
		return nil, err
	}

	if err := container.Provide(func(f *factory.LLMFactory) core.Classifier {
		return f.CreateClassifier(rt.Context)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(f *factory.JournalFactory) (factory.Journal, error) {
		return f.CreateJournal()
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.PreferencesStore {
		return prefs.NewFileStore(cfg.GetCleanup().PreferencesFile, logger)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.ProtectedSenders {
		return whitelist.NewChecker(cfg.GetCleanup().ProtectedDomains, logger)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(rt Runtime) core.Confirmer {
		switch {
		case rt.AssumeYes:
			return terminal.NewAutoConfirmer(rt.Out)
		case rt.PlainInput:
			return terminal.NewLineConfirmer(rt.In, rt.Out)
		default:
			return terminal.NewFormConfirmer(rt.Out, false)
		}
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// BuildContainer adds the Gmail provider, the unsubscribe resolver and the
// cleanup service on top of the offline container.
func BuildContainer(rt Runtime) (*dig.Container, error) {
	container, err := BuildOfflineContainer(rt)
	if err != nil {
		return nil, err
	}

	if err := container.Provide(func(cfg *config.Config, rt Runtime, logger *zap.Logger) *factory.ProviderFactory {
		return factory.NewProviderFactory(cfg, rt.In, rt.Out, logger)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(f *factory.ProviderFactory) (*gmail.Client, error) {
		return f.CreateGmailClient(rt.Context)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(f *factory.ProviderFactory, client *gmail.Client) core.MailProvider {
		return f.CreateMailProvider(client)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(
		provider core.MailProvider,
		cfg *config.Config,
		tp *utils.TextProcessor,
		logger *zap.Logger,
	) core.Unsubscriber {
		return unsubscribe.NewResolver(provider, cfg.GetUnsubscribe(), tp, logger)
	}); err != nil {
		return nil, err
	}

	if err := container.Provide(func(
		provider core.MailProvider,
		classifier core.Classifier,
		confirmer core.Confirmer,
		unsubscriber core.Unsubscriber,
		protected core.ProtectedSenders,
		journal factory.Journal,
		tp *utils.TextProcessor,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.CleanupService, error) {
		opts, err := factory.CleanupOptions(cfg)
		if err != nil {
			return nil, err
		}
		var runJournal core.RunJournal
		if journal != nil {
			runJournal = journal
		}
		return core.NewCleanupService(provider, classifier, confirmer, unsubscriber, protected, runJournal, tp, logger, opts), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
