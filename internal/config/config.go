package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"uphold-trade-bot-go/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Uphold    Uphold    `mapstructure:"uphold"`
	Bot       Bot       `mapstructure:"bot"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
	Telemetry Telemetry `mapstructure:"telemetry"`
}

// Uphold holds the configuration for the Uphold API client.
type Uphold struct {
	ApiKey         string  `mapstructure:"apiKey"`
	Sandbox        bool    `mapstructure:"sandbox"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// Bot holds the initial runtime configuration of the trading core. It
// seeds the bot_configs row on first start; afterwards the stored row
// is authoritative and editable through the admin surface.
type Bot struct {
	Active               bool     `mapstructure:"active"`
	DryRun               bool     `mapstructure:"dry_run"`
	RiskTolerance        float64  `mapstructure:"risk_tolerance"`
	MinConfidence        float64  `mapstructure:"min_confidence"`
	TradeSizeAmount      float64  `mapstructure:"trade_size_amount"`
	TradeSizePercentage  float64  `mapstructure:"trade_size_percentage"`
	CheckIntervalSeconds int      `mapstructure:"check_interval_seconds"`
	CacheTTLSeconds      int      `mapstructure:"cache_ttl_seconds"`
	KeepCount            int      `mapstructure:"keep_count"`
	CycleTimeoutSeconds  int      `mapstructure:"cycle_timeout_seconds"`
	SnapshotKeepSeconds  int      `mapstructure:"snapshot_keep_seconds"`
	Pairs                []string `mapstructure:"pairs"`
}

// Server holds the ports of the two HTTP surfaces.
type Server struct {
	Port       int `mapstructure:"port"`        // admin API (cmd/ui)
	StatusPort int `mapstructure:"status_port"` // bot status + ws push (cmd/trader)
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Telemetry holds the observability endpoints.
type Telemetry struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
	Tracing     bool   `mapstructure:"tracing"`
}

// BindFlags wires the bootstrap command-line flags into viper so they
// override the config file when passed. The flag set must define
// dry-run, risk-level, min-confidence and interval.
func BindFlags(fs *pflag.FlagSet) error {
	bindings := map[string]string{
		"bot.dry_run":                "dry-run",
		"bot.risk_tolerance":         "risk-level",
		"bot.min_confidence":         "min-confidence",
		"bot.check_interval_seconds": "interval",
	}
	for key, name := range bindings {
		if f := fs.Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("uphold.rate_limit", 10) // requests per second
	viper.SetDefault("uphold.rate_limit_burst", 5)
	viper.SetDefault("uphold.timeout_seconds", 10)
	viper.SetDefault("bot.risk_tolerance", 0.5)
	viper.SetDefault("bot.min_confidence", 0.6)
	viper.SetDefault("bot.trade_size_percentage", 0.1)
	viper.SetDefault("bot.check_interval_seconds", 60)
	viper.SetDefault("bot.cache_ttl_seconds", 10)
	viper.SetDefault("bot.keep_count", 100)
	viper.SetDefault("bot.cycle_timeout_seconds", 30)
	viper.SetDefault("bot.snapshot_keep_seconds", 3600)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.status_port", 8081)
	viper.SetDefault("database.dsn", "uphold-bot.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	err = config.Runtime().Validate()
	return
}

// Runtime converts the bootstrap bot section into the stored runtime
// configuration used to seed the database on first start.
func (c *Config) Runtime() models.BotConfig {
	return models.BotConfig{
		Active:               c.Bot.Active,
		DryRun:               c.Bot.DryRun,
		RiskTolerance:        c.Bot.RiskTolerance,
		MinConfidence:        c.Bot.MinConfidence,
		TradeSizeAmount:      c.Bot.TradeSizeAmount,
		TradeSizePercentage:  c.Bot.TradeSizePercentage,
		CheckIntervalSeconds: c.Bot.CheckIntervalSeconds,
		CacheTTLSeconds:      c.Bot.CacheTTLSeconds,
		KeepCount:            c.Bot.KeepCount,
	}
}
