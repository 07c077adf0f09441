package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sweeper/internal/config"
	"github.com/mikey/inbox-sweeper/internal/core"
	"github.com/mikey/inbox-sweeper/internal/credential"
)

func newConfig(t *testing.T, values map[string]interface{}) *config.Config {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.NewFromViper(config.NewEmptyViper())
	for k, v := range values {
		cfg.Set(k, v)
	}
	return cfg
}

func TestCreateClassifierRules(t *testing.T) {
	f := NewLLMFactory(newConfig(t, map[string]interface{}{"llm.provider": "rules"}), nil, zap.NewNop())
	c := f.CreateClassifier(context.Background())
	assert.IsType(t, &core.RuleClassifier{}, c)
}

func TestCreateClassifierFallsBackWithoutKey(t *testing.T) {
	f := NewLLMFactory(newConfig(t, map[string]interface{}{"llm.provider": "openai"}), nil, zap.NewNop())
	c := f.CreateClassifier(context.Background())
	assert.IsType(t, &core.RuleClassifier{}, c)
}

func TestCreateClassifierUsesKeyringKey(t *testing.T) {
	store := credential.NewStore(keyring.NewArrayKeyring(nil))
	require.NoError(t, store.Set(credential.APIKeyName("openai"), "sk-test"))

	f := NewLLMFactory(newConfig(t, map[string]interface{}{"llm.provider": "openai"}), store, zap.NewNop())
	c := f.CreateClassifier(context.Background())
	assert.IsType(t, &core.AIClassifier{}, c)
}

func TestUnsupportedProvider(t *testing.T) {
	f := NewLLMFactory(newConfig(t, map[string]interface{}{"llm.provider": "llama"}), nil, zap.NewNop())
	_, err := f.CreateLLMClient(context.Background())
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestAPIKeyPrefersConfig(t *testing.T) {
	key, err := apiKey("from-config", "gemini", nil)
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	_, err = apiKey("", "gemini", credential.NewStore(keyring.NewArrayKeyring(nil)))
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestCleanupOptions(t *testing.T) {
	opts, err := CleanupOptions(newConfig(t, map[string]interface{}{
		"cleanup.mode":            "query",
		"cleanup.delete_strategy": "batch",
		"cleanup.dry_run":         true,
	}))
	require.NoError(t, err)
	assert.Equal(t, core.ModeQuery, opts.Mode)
	assert.Equal(t, core.StrategyBatch, opts.DeleteStrategy)
	assert.True(t, opts.DryRun)
	assert.Equal(t, 500, opts.PageSize)

	_, err = CleanupOptions(newConfig(t, map[string]interface{}{"cleanup.mode": "everything"}))
	assert.Error(t, err)
	_, err = CleanupOptions(newConfig(t, map[string]interface{}{"cleanup.delete_strategy": "shred"}))
	assert.Error(t, err)
}

func TestCreateJournal(t *testing.T) {
	f := NewJournalFactory(newConfig(t, map[string]interface{}{"journal.enabled": false}), zap.NewNop())
	j, err := f.CreateJournal()
	require.NoError(t, err)
	assert.Nil(t, j)

	f = NewJournalFactory(newConfig(t, map[string]interface{}{"journal.type": "memory"}), zap.NewNop())
	j, err = f.CreateJournal()
	require.NoError(t, err)
	require.NotNil(t, j)
	j.Stop()

	path := filepath.Join(t.TempDir(), "data", "runs.db")
	f = NewJournalFactory(newConfig(t, map[string]interface{}{"journal.sqlite_path": path}), zap.NewNop())
	j, err = f.CreateJournal()
	require.NoError(t, err)
	require.NotNil(t, j)
	j.Stop()

	f = NewJournalFactory(newConfig(t, map[string]interface{}{"journal.type": "redis"}), zap.NewNop())
	_, err = f.CreateJournal()
	assert.Error(t, err)
}
