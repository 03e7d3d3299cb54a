package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/clinic-intel/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Escalation EscalationConfig `yaml:"escalation" mapstructure:"escalation"`
	Oracle     OracleConfig     `yaml:"oracle" mapstructure:"oracle"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Pricing    []ModelPricing   `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// CrawlConfig configures the base crawl budget and the page fetcher.
type CrawlConfig struct {
	MaxPages     int      `yaml:"max_pages" mapstructure:"max_pages"`
	MaxDepth     int      `yaml:"max_depth" mapstructure:"max_depth"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxConns     int      `yaml:"max_conns" mapstructure:"max_conns"`
	RatePerSec   float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// EscalationConfig configures budget widening.
type EscalationConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	MaxTotalPages     int  `yaml:"max_total_pages" mapstructure:"max_total_pages"`
	MaxTotalDepth     int  `yaml:"max_total_depth" mapstructure:"max_total_depth"`
	Exhaustive        bool `yaml:"exhaustive" mapstructure:"exhaustive"`
	ExhaustivePageCap int  `yaml:"exhaustive_page_cap" mapstructure:"exhaustive_page_cap"`
}

// OracleConfig selects and tunes the extraction provider.
type OracleConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	// PayloadCap is in characters. Zero selects the provider default.
	PayloadCap  int    `yaml:"payload_cap" mapstructure:"payload_cap"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	Normalize   bool   `yaml:"normalize" mapstructure:"normalize"`
	PromptPath  string `yaml:"prompt_path" mapstructure:"prompt_path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentSeeds int `yaml:"max_concurrent_seeds" mapstructure:"max_concurrent_seeds"`
	// StorePath, when set, appends every seed outcome to a SQLite run log.
	StorePath string `yaml:"store_path" mapstructure:"store_path"`
}

// OutputConfig configures result files.
type OutputConfig struct {
	Path    string `yaml:"path" mapstructure:"path"`
	Compact bool   `yaml:"compact" mapstructure:"compact"`
}

// ModelPricing overrides the token rates for one model (USD per million
// tokens). Model names contain dots, so pricing is a list rather than a map.
type ModelPricing struct {
	Model         string  `yaml:"model" mapstructure:"model"`
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var knownProviders = []string{"gemini", "anthropic", "evidence"}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("anthropic.key", "CLINIC_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind anthropic key")
	}
	if err := v.BindEnv("gemini.key", "CLINIC_GEMINI_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind gemini key")
	}

	// Defaults
	v.SetDefault("crawl.max_pages", 20)
	v.SetDefault("crawl.max_depth", 2)
	v.SetDefault("crawl.timeout_secs", 20)
	v.SetDefault("crawl.max_conns", 10)
	v.SetDefault("crawl.rate_per_sec", 0)
	v.SetDefault("crawl.user_agent", "")
	v.SetDefault("crawl.exclude_paths", []string{})
	v.SetDefault("escalation.enabled", true)
	v.SetDefault("escalation.max_total_pages", 120)
	v.SetDefault("escalation.max_total_depth", 3)
	v.SetDefault("escalation.exhaustive", false)
	v.SetDefault("escalation.exhaustive_page_cap", 500)
	v.SetDefault("oracle.provider", "gemini")
	v.SetDefault("oracle.payload_cap", 0)
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.normalize", true)
	v.SetDefault("oracle.prompt_path", "AI_PROMPT.md")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 800)
	v.SetDefault("gemini.model", "gemini-2.5-pro")
	v.SetDefault("batch.max_concurrent_seeds", 1)
	v.SetDefault("batch.store_path", "")
	v.SetDefault("output.path", "results.jsonl")
	v.SetDefault("output.compact", false)
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

// APIKey returns the credential for the configured oracle provider.
func (c *Config) APIKey() string {
	switch strings.ToLower(strings.TrimSpace(c.Oracle.Provider)) {
	case "anthropic":
		return c.Anthropic.Key
	case "gemini":
		return c.Gemini.Key
	}
	return ""
}

// Rates returns the default token rates with configured overrides applied.
func (c *Config) Rates() cost.Rates {
	overrides := make(cost.Rates, len(c.Pricing))
	for _, p := range c.Pricing {
		if p.Model == "" {
			continue
		}
		overrides[p.Model] = cost.ModelRate{
			Input:         p.Input,
			Output:        p.Output,
			CacheWriteMul: p.CacheWriteMul,
			CacheReadMul:  p.CacheReadMul,
		}
	}
	return cost.DefaultRates().Merge(overrides)
}

// Validate checks the settings a command mode needs. Modes are "run",
// "batch" and "plan". All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	if c.Crawl.MaxPages <= 0 {
		errs = append(errs, "crawl.max_pages must be > 0")
	}
	if c.Crawl.MaxDepth < 0 {
		errs = append(errs, "crawl.max_depth must be >= 0")
	}
	if c.Escalation.MaxTotalPages <= 0 {
		errs = append(errs, "escalation.max_total_pages must be > 0")
	}
	if c.Escalation.MaxTotalDepth < 0 {
		errs = append(errs, "escalation.max_total_depth must be >= 0")
	}

	switch mode {
	case "plan":
	case "run", "batch":
		errs = append(errs, c.validateOracle()...)
		if c.Crawl.TimeoutSecs <= 0 {
			errs = append(errs, "crawl.timeout_secs must be > 0")
		}
		if c.Crawl.RatePerSec < 0 {
			errs = append(errs, "crawl.rate_per_sec must be >= 0")
		}
		if c.Escalation.Exhaustive && c.Escalation.ExhaustivePageCap <= 0 {
			errs = append(errs, "escalation.exhaustive_page_cap must be > 0")
		}
		if mode == "batch" && (c.Batch.MaxConcurrentSeeds < 1 || c.Batch.MaxConcurrentSeeds > 64) {
			errs = append(errs, "batch.max_concurrent_seeds must be between 1 and 64")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateOracle() []string {
	var errs []string
	provider := strings.ToLower(strings.TrimSpace(c.Oracle.Provider))

	known := false
	for _, p := range knownProviders {
		if provider == p {
			known = true
		}
	}
	if !known {
		errs = append(errs, "oracle.provider must be one of "+strings.Join(knownProviders, ", "))
	}

	switch provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required (ANTHROPIC_API_KEY)")
		}
		if c.Anthropic.MaxTokens <= 0 {
			errs = append(errs, "anthropic.max_tokens must be > 0")
		}
	case "gemini":
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required (GEMINI_API_KEY or GOOGLE_API_KEY)")
		}
	}

	if c.Oracle.PayloadCap < 0 {
		errs = append(errs, "oracle.payload_cap must be >= 0")
	}
	if c.Oracle.MaxAttempts < 1 {
		errs = append(errs, "oracle.max_attempts must be >= 1")
	}
	return errs
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
