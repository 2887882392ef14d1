package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SlackWebhookPlaceholder is what an unset webhook URL falls back to; the
// notifier treats it as "not configured" and skips sending.
const SlackWebhookPlaceholder = "https://hooks.slack.com/services/REPLACE/ME/PLEASE"

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Slack     SlackConfig     `yaml:"slack" mapstructure:"slack"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the analyze command.
type AnthropicConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMin float64 `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// SlackConfig holds the notification webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Channel    string `yaml:"channel" mapstructure:"channel"`
	Username   string `yaml:"username" mapstructure:"username"`
	IconEmoji  string `yaml:"icon_emoji" mapstructure:"icon_emoji"`
}

// Configured reports whether a real webhook URL is set.
func (s SlackConfig) Configured() bool {
	return s.WebhookURL != "" && s.WebhookURL != SlackWebhookPlaceholder
}

// RetryConfig holds the retry policy engine's timing knobs. Per-status
// multipliers and budgets live in the resilience package's policy table;
// these are the shared numbers the table is parameterized by.
type RetryConfig struct {
	BaseDelayMs     int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs      int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	JitterCeilingMs int `yaml:"jitter_ceiling_ms" mapstructure:"jitter_ceiling_ms"`
	GlobalCeiling   int `yaml:"global_ceiling" mapstructure:"global_ceiling"`
}

// ReportConfig configures reconciliation and rendering.
type ReportConfig struct {
	Company   string `yaml:"company" mapstructure:"company"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. Environment variables
// use the REPORT_ prefix (REPORT_SLACK_WEBHOOK_URL overrides
// slack.webhook_url); the bare SLACK_WEBHOOK_URL is honored too since
// that's what the workflow host exports.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("slack.webhook_url", "REPORT_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL")

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "report-cli.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.requests_per_min", 30)
	v.SetDefault("slack.webhook_url", SlackWebhookPlaceholder)
	v.SetDefault("slack.channel", "#competitive-intel")
	v.SetDefault("slack.username", "report-cli")
	v.SetDefault("slack.icon_emoji", ":bar_chart:")
	v.SetDefault("retry.base_delay_ms", 10000)
	v.SetDefault("retry.max_delay_ms", 300000)
	v.SetDefault("retry.jitter_ceiling_ms", 2000)
	v.SetDefault("retry.global_ceiling", 10)
	v.SetDefault("report.output_dir", ".")

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
