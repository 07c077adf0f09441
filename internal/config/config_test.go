package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := NewFromViper(NewEmptyViper())

	assert.Equal(t, "gemini", c.GetLLM().Provider)
	assert.Equal(t, "gemini-1.5-flash", c.GetGemini().ModelName)

	cl := c.GetCleanup()
	assert.Equal(t, "auto", cl.Mode)
	assert.Equal(t, "trash", cl.DeleteStrategy)
	assert.Equal(t, 500, cl.PageSize)
	assert.Equal(t, 100*time.Millisecond, cl.PageDelay)
	assert.Equal(t, time.Second, cl.UnsubscribeDelay)
	assert.Equal(t, 10, cl.PreviewSize)
	assert.Equal(t, "user_preferences.json", cl.PreferencesFile)

	r := c.GetRetry()
	assert.Equal(t, 3, r.MaxRetries)
	assert.Equal(t, time.Second, r.BaseDelay)

	assert.Equal(t, int64(1<<20), c.GetUnsubscribe().MaxBodyBytes)
	assert.Equal(t, uint32(5), c.GetGmail().Breaker.ConsecutiveFailures)
	assert.Equal(t, 720*time.Hour, c.GetJournal().Retention)
}

func TestNewFromFileWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
llm:
  provider: openai
cleanup:
  page_delay: 250ms
  protected_domains:
    - bank.com
    - gov.uk
journal:
  type: memory
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("INBOX_SWEEPER_CLEANUP_MODE", "query")
	t.Setenv("GEMINI_API_KEY", "from-env")

	c, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", c.GetLLM().Provider)
	assert.Equal(t, "query", c.GetCleanup().Mode)
	assert.Equal(t, 250*time.Millisecond, c.GetCleanup().PageDelay)
	assert.Equal(t, []string{"bank.com", "gov.uk"}, c.GetCleanup().ProtectedDomains)
	assert.Equal(t, "memory", c.GetJournal().Type)
	assert.Equal(t, "from-env", c.GetGemini().APIKey)
}

func TestInvalidDurationFallsBack(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cleanup.page_delay", "soon")
	c := NewFromViper(v)

	_, err := c.GetDuration("cleanup.page_delay")
	assert.Error(t, err)
	assert.Equal(t, 100*time.Millisecond, c.GetCleanup().PageDelay)
}

func TestNewFromFileMissing(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
