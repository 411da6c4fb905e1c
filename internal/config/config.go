package config

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Delay bounds for the pause between generation calls, in seconds.
const (
	MinDelaySecs = 1
	MaxDelaySecs = 10
)

// Config holds the full application configuration.
type Config struct {
	Generation  GenerationConfig  `yaml:"generation" mapstructure:"generation"`
	Credentials map[string]string `yaml:"credentials" mapstructure:"credentials"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Fetch       FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Jina        JinaConfig        `yaml:"jina" mapstructure:"jina"`
	Knowledge   KnowledgeConfig   `yaml:"knowledge" mapstructure:"knowledge"`
	Prompt      PromptConfig      `yaml:"prompt" mapstructure:"prompt"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// GenerationConfig selects the language model provider.
type GenerationConfig struct {
	Provider       string `yaml:"provider" mapstructure:"provider"` // "gemini" or "anthropic"
	GeminiModel    string `yaml:"gemini_model" mapstructure:"gemini_model"`
	AnthropicModel string `yaml:"anthropic_model" mapstructure:"anthropic_model"`
	MaxTokens      int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Model returns the model ID for the configured provider.
func (g GenerationConfig) Model() string {
	if g.Provider == ProviderAnthropic {
		return g.AnthropicModel
	}
	return g.GeminiModel
}

// Supported generation providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// BatchConfig configures the batch driver.
type BatchConfig struct {
	DelaySecs int `yaml:"delay_secs" mapstructure:"delay_secs"`
}

// FetchConfig configures the website fetcher.
type FetchConfig struct {
	Provider           string `yaml:"provider" mapstructure:"provider"` // "local" or "jina"
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxChars           int    `yaml:"max_chars" mapstructure:"max_chars"`
	UserAgent          string `yaml:"user_agent" mapstructure:"user_agent"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// KnowledgeConfig points at the static knowledge files.
type KnowledgeConfig struct {
	ProfilePath  string `yaml:"profile_path" mapstructure:"profile_path"`
	ExamplesPath string `yaml:"examples_path" mapstructure:"examples_path"`
}

// PromptConfig customizes the generation prompt.
type PromptConfig struct {
	Sender       string              `yaml:"sender" mapstructure:"sender"`
	TemplatePath string              `yaml:"template_path" mapstructure:"template_path"`
	Industries   []IndustryReference `yaml:"industries" mapstructure:"industries"`
}

// IndustryReference lists past clients quoted for an industry keyword.
type IndustryReference struct {
	Key     string   `yaml:"key" mapstructure:"key"`
	Clients []string `yaml:"clients" mapstructure:"clients"`
}

// OutputConfig configures spreadsheet export.
type OutputConfig struct {
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite", "postgres" or "none"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("generation.provider", ProviderGemini)
	v.SetDefault("generation.gemini_model", "gemini-1.5-flash")
	v.SetDefault("generation.anthropic_model", "claude-haiku-4-5-20251001")
	v.SetDefault("generation.max_tokens", 1024)
	v.SetDefault("batch.delay_secs", 2)
	v.SetDefault("fetch.provider", "local")
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.max_chars", 3500)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("fetch.insecure_skip_verify", false)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("knowledge.profile_path", "company_info.txt")
	v.SetDefault("knowledge.examples_path", "sample_emails.json")
	v.SetDefault("prompt.sender", "Cad & Cart")
	v.SetDefault("output.sheet_name", "Generated Emails")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outreach.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail mid-run.
func (c *Config) Validate() error {
	if c.Batch.DelaySecs < MinDelaySecs || c.Batch.DelaySecs > MaxDelaySecs {
		return eris.Errorf("config: batch.delay_secs must be between %d and %d, got %d", MinDelaySecs, MaxDelaySecs, c.Batch.DelaySecs)
	}
	switch c.Generation.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return eris.Errorf("config: unsupported generation.provider %q", c.Generation.Provider)
	}
	if c.Generation.Model() == "" {
		return eris.Errorf("config: no model configured for provider %s", c.Generation.Provider)
	}
	switch c.Fetch.Provider {
	case "local":
	case "jina":
		if c.Jina.Key == "" {
			return eris.New("config: fetch.provider jina requires jina.key (OUTREACH_JINA_KEY)")
		}
	default:
		return eris.Errorf("config: unsupported fetch.provider %q", c.Fetch.Provider)
	}
	if c.Fetch.MaxChars <= 0 {
		return eris.Errorf("config: fetch.max_chars must be positive, got %d", c.Fetch.MaxChars)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		return eris.Errorf("config: unsupported store.driver %q", c.Store.Driver)
	}
	return nil
}

// Credentials maps a human-readable label to an API key.
type Credentials map[string]string

// MergeCredentials combines durable credentials with session-only entries.
// Session entries win on label collision.
func MergeCredentials(durable, session map[string]string) Credentials {
	out := make(Credentials, len(durable)+len(session))
	for k, v := range durable {
		if v != "" {
			out[k] = v
		}
	}
	for k, v := range session {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// ParseCredential splits a "label=value" pair.
func ParseCredential(pair string) (string, string, error) {
	label, value, ok := strings.Cut(pair, "=")
	label = strings.TrimSpace(label)
	value = strings.TrimSpace(value)
	if !ok || label == "" || value == "" {
		return "", "", eris.Errorf("config: credential must be label=value, got %q", maskPair(pair))
	}
	return label, value, nil
}

func maskPair(pair string) string {
	label, _, ok := strings.Cut(pair, "=")
	if !ok {
		return "***"
	}
	return label + "=***"
}

// Labels returns the credential labels in sorted order.
func (c Credentials) Labels() []string {
	labels := make([]string, 0, len(c))
	for k := range c {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// Resolve returns the key for label. An empty label selects the only
// credential when exactly one is configured.
func (c Credentials) Resolve(label string) (string, string, error) {
	if len(c) == 0 {
		return "", "", eris.New("config: no API credentials configured; add one under credentials or pass --add-key label=value")
	}
	if label == "" {
		if len(c) > 1 {
			return "", "", eris.Errorf("config: several credentials configured, select one with --key (%s)", strings.Join(c.Labels(), ", "))
		}
		for k, v := range c {
			return k, v, nil
		}
	}
	v, ok := c[label]
	if !ok {
		return "", "", eris.Errorf("config: unknown credential %q (available: %s)", label, strings.Join(c.Labels(), ", "))
	}
	return label, v, nil
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
