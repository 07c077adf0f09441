package config

import (
	"time"
)

// GmailConfig represents the Gmail connection settings
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	User            string
	RequestTimeout  time.Duration
	Breaker         BreakerConfig
}

// BreakerConfig tunes the circuit breaker around Gmail calls
type BreakerConfig struct {
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
	Timeout  time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// CleanupConfig holds the orchestrator settings
type CleanupConfig struct {
	Mode             string
	DeleteStrategy   string
	PageSize         int
	PageDelay        time.Duration
	UnsubscribeDelay time.Duration
	PreviewSize      int
	BatchSize        int
	ProgressEvery    int
	ProtectedDomains []string
	PreferencesFile  string
	DryRun           bool
}

// RetryConfig holds the backoff applied to transient provider errors
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// UnsubscribeConfig holds the HTTP settings of the unsubscribe resolver
type UnsubscribeConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// JournalConfig selects and tunes the run journal
type JournalConfig struct {
	Type             string
	Enabled          bool
	Retention        time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("gmail.credentials_file"),
		TokenFile:       c.GetString("gmail.token_file"),
		User:            c.GetString("gmail.user"),
		RequestTimeout:  c.durationOr("gmail.request_timeout", 30*time.Second),
		Breaker: BreakerConfig{
			MaxRequests:         uint32(c.GetInt("gmail.breaker.max_requests")),
			Interval:            c.durationOr("gmail.breaker.interval", time.Minute),
			Timeout:             c.durationOr("gmail.breaker.timeout", 30*time.Second),
			ConsecutiveFailures: uint32(c.GetInt("gmail.breaker.consecutive_failures")),
		},
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
		Timeout:  c.durationOr("llm.timeout", 30*time.Second),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetCleanup returns the orchestrator configuration
func (c *Config) GetCleanup() CleanupConfig {
	return CleanupConfig{
		Mode:             c.GetString("cleanup.mode"),
		DeleteStrategy:   c.GetString("cleanup.delete_strategy"),
		PageSize:         c.GetInt("cleanup.page_size"),
		PageDelay:        c.durationOr("cleanup.page_delay", 100*time.Millisecond),
		UnsubscribeDelay: c.durationOr("cleanup.unsubscribe_delay", time.Second),
		PreviewSize:      c.GetInt("cleanup.preview_size"),
		BatchSize:        c.GetInt("cleanup.batch_size"),
		ProgressEvery:    c.GetInt("cleanup.progress_every"),
		ProtectedDomains: c.GetStringSlice("cleanup.protected_domains"),
		PreferencesFile:  c.GetString("cleanup.preferences_file"),
		DryRun:           c.GetBool("cleanup.dry_run"),
	}
}

// GetRetry returns the retry configuration
func (c *Config) GetRetry() RetryConfig {
	return RetryConfig{
		MaxRetries: c.GetInt("retry.max_retries"),
		BaseDelay:  c.durationOr("retry.base_delay", time.Second),
		MaxDelay:   c.durationOr("retry.max_delay", 30*time.Second),
	}
}

// GetUnsubscribe returns the unsubscribe resolver configuration
func (c *Config) GetUnsubscribe() UnsubscribeConfig {
	return UnsubscribeConfig{
		Timeout:      c.durationOr("unsubscribe.timeout", 10*time.Second),
		MaxBodyBytes: int64(c.GetInt("unsubscribe.max_body_bytes")),
		UserAgent:    c.GetString("unsubscribe.user_agent"),
	}
}

// GetJournal returns the run journal configuration
func (c *Config) GetJournal() JournalConfig {
	return JournalConfig{
		Type:             c.GetString("journal.type"),
		Enabled:          c.GetBool("journal.enabled"),
		Retention:        c.durationOr("journal.retention", 30*24*time.Hour),
		CleanupFrequency: c.durationOr("journal.cleanup_frequency", time.Hour),
		SQLitePath:       c.GetString("journal.sqlite_path"),
		MySQLDSN:         c.GetString("journal.mysql_dsn"),
	}
}
