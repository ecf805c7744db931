// Package config defines the top-level configuration for the sniper bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SNIPEBOT_* environment variables.
type Config struct {
	Trading   TradingConfig   `toml:"trading"`
	Entry     EntryConfig     `toml:"entry"`
	Exit      ExitConfig      `toml:"exit"`
	Safety    SafetyConfig    `toml:"safety"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Scorer    ScorerConfig    `toml:"scorer"`
	Pricing   PricingConfig   `toml:"pricing"`
	Exec      ExecConfig      `toml:"exec"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// TradingConfig holds capital sizing and exposure ceilings.
type TradingConfig struct {
	// TotalCapital is the quote-currency capital the bot manages. It is an
	// explicit input, not inferred from any wallet balance.
	TotalCapital float64 `toml:"total_capital"`
	// QuotePerPosition is the quote amount committed to each new position.
	QuotePerPosition float64 `toml:"quote_per_position"`
	MaxPositions     int     `toml:"max_positions"`
	// MaxExposure caps the sum of committed quote across open positions.
	MaxExposure  float64  `toml:"max_exposure"`
	TickInterval duration `toml:"tick_interval"`
	// CallTimeout bounds each external call (price fetch, execution).
	CallTimeout duration `toml:"call_timeout"`
}

// EntryConfig holds entry-evaluation parameters.
type EntryConfig struct {
	MinScore     float64 `toml:"min_score"`     // 0-100 aggregate minimum
	MinSafety    float64 `toml:"min_safety"`    // 0-100, critical criterion
	MinHolders   float64 `toml:"min_holders"`   // 0-100, critical criterion
	MinLiquidity float64 `toml:"min_liquidity"` // quote-currency depth
	MinSentiment float64 `toml:"min_sentiment"` // 0-100, non-critical
	// PlanTTL is how long an entry plan stays executable before expiring.
	PlanTTL duration `toml:"plan_ttl"`
}

// ExitConfig holds exit-evaluation parameters. Percentages are fractions
// (0.25 = 25%).
type ExitConfig struct {
	StopLossPct float64  `toml:"stop_loss_pct"`
	MaxHold     duration `toml:"max_hold"`

	// Tiered take-profit. When disabled, TakeProfitPct applies to the whole
	// position in one shot.
	TieredEnabled  bool    `toml:"tiered_enabled"`
	TakeProfitPct  float64 `toml:"take_profit_pct"`
	Tier1TargetPct float64 `toml:"tier1_target_pct"`
	Tier1Fraction  float64 `toml:"tier1_fraction"`
	Tier2TargetPct float64 `toml:"tier2_target_pct"`
	Tier2Fraction  float64 `toml:"tier2_fraction"`

	// Trailing stop is inert until the peak has gained ActivationPct over
	// entry; once active it fires when price falls TrailingDistancePct below
	// the peak.
	TrailingEnabled     bool    `toml:"trailing_enabled"`
	ActivationPct       float64 `toml:"activation_pct"`
	TrailingDistancePct float64 `toml:"trailing_distance_pct"`
}

// SafetyConfig holds circuit-breaker thresholds.
type SafetyConfig struct {
	MaxDrawdownPct       float64  `toml:"max_drawdown_pct"` // fraction, 0-1
	MaxConsecutiveLosses int      `toml:"max_consecutive_losses"`
	MaxExternalFailures  int      `toml:"max_external_failures"`
	FailureWindow        duration `toml:"failure_window"`
	MinReserve           float64  `toml:"min_reserve"`
	HeatWarningPct       float64  `toml:"heat_warning_pct"` // fraction, 0-1
	CheckInterval        duration `toml:"check_interval"`
	// ManualStopFile is the sentinel path an operator touches to halt trading.
	ManualStopFile string `toml:"manual_stop_file"`
}

// DiscoveryConfig holds the discovery feed connection parameters.
type DiscoveryConfig struct {
	WsURL     string `toml:"ws_url"`
	QueueSize int    `toml:"queue_size"`
}

// ScorerConfig holds the external risk scorer endpoint.
type ScorerConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// PricingConfig holds the quote endpoint and the simulator parameters used in
// paper mode and as the live fallback.
type PricingConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
	// SimSeed seeds the price simulator; 0 means seed from the clock.
	SimSeed int64 `toml:"sim_seed"`
	// SimVolatility is the per-step stddev of the simulated random walk,
	// as a fraction of the current price.
	SimVolatility float64 `toml:"sim_volatility"`
	// SimDrift is the per-step mean move of the simulated walk.
	SimDrift float64 `toml:"sim_drift"`
	// SimSlippageBps is applied to paper fills on both sides.
	SimSlippageBps float64 `toml:"sim_slippage_bps"`
}

// ExecConfig holds the swap aggregator endpoint used for live execution.
// Kept separate from the quote endpoint; the two services usually run on
// different hosts.
type ExecConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout duration `toml:"timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible object storage parameters for the
// closed-trade archive.
type ArchiveConfig struct {
	Enabled        bool     `toml:"enabled"`
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	UseSSL         bool     `toml:"use_ssl"`
	ForcePathStyle bool     `toml:"force_path_style"`
	RetentionDays  int      `toml:"retention_days"`
	Interval       duration `toml:"interval"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "2h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "30m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Trading: TradingConfig{
			TotalCapital:     10.0,
			QuotePerPosition: 0.5,
			MaxPositions:     5,
			MaxExposure:      2.5,
			TickInterval:     duration{5 * time.Second},
			CallTimeout:      duration{3 * time.Second},
		},
		Entry: EntryConfig{
			MinScore:     60,
			MinSafety:    50,
			MinHolders:   40,
			MinLiquidity: 10.0,
			MinSentiment: 30,
			PlanTTL:      duration{30 * time.Second},
		},
		Exit: ExitConfig{
			StopLossPct:         0.25,
			MaxHold:             duration{2 * time.Hour},
			TieredEnabled:       true,
			TakeProfitPct:       0.50,
			Tier1TargetPct:      0.50,
			Tier1Fraction:       0.50,
			Tier2TargetPct:      1.00,
			Tier2Fraction:       0.50,
			TrailingEnabled:     true,
			ActivationPct:       0.20,
			TrailingDistancePct: 0.15,
		},
		Safety: SafetyConfig{
			MaxDrawdownPct:       0.20,
			MaxConsecutiveLosses: 5,
			MaxExternalFailures:  10,
			FailureWindow:        duration{5 * time.Minute},
			MinReserve:           0.1,
			HeatWarningPct:       0.60,
			CheckInterval:        duration{30 * time.Second},
			ManualStopFile:       "STOP",
		},
		Discovery: DiscoveryConfig{
			QueueSize: 64,
		},
		Scorer: ScorerConfig{
			Timeout: duration{5 * time.Second},
		},
		Pricing: PricingConfig{
			Timeout:        duration{3 * time.Second},
			SimVolatility:  0.02,
			SimDrift:       0.0,
			SimSlippageBps: 25,
		},
		Exec: ExecConfig{
			Timeout: duration{5 * time.Second},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "snipebot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "snipebot-data",
			ForcePathStyle: true,
			RetentionDays:  90,
			Interval:       duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Notify: NotifyConfig{
			Events: []string{"position_opened", "position_closed", "safety_tripped", "error"},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"paper":   true,
	"live":    true,
	"monitor": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: paper, live, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Trading
	if c.Trading.TotalCapital <= 0 {
		errs = append(errs, "trading: total_capital must be > 0")
	}
	if c.Trading.QuotePerPosition <= 0 {
		errs = append(errs, "trading: quote_per_position must be > 0")
	}
	if c.Trading.MaxPositions < 1 {
		errs = append(errs, "trading: max_positions must be >= 1")
	}
	if c.Trading.MaxExposure <= 0 {
		errs = append(errs, "trading: max_exposure must be > 0")
	}
	if c.Trading.MaxExposure > c.Trading.TotalCapital {
		errs = append(errs, "trading: max_exposure must not exceed total_capital")
	}
	if c.Trading.TickInterval.Duration <= 0 {
		errs = append(errs, "trading: tick_interval must be positive")
	}
	if c.Trading.CallTimeout.Duration <= 0 {
		errs = append(errs, "trading: call_timeout must be positive")
	}
	if c.Trading.CallTimeout.Duration >= c.Trading.TickInterval.Duration {
		errs = append(errs, "trading: call_timeout must be shorter than tick_interval")
	}

	// Entry
	if c.Entry.MinScore < 0 || c.Entry.MinScore > 100 {
		errs = append(errs, "entry: min_score must be 0-100")
	}
	if c.Entry.MinLiquidity < 0 {
		errs = append(errs, "entry: min_liquidity must be >= 0")
	}

	// Exit
	if c.Exit.StopLossPct <= 0 || c.Exit.StopLossPct >= 1 {
		errs = append(errs, "exit: stop_loss_pct must be in (0, 1)")
	}
	if c.Exit.MaxHold.Duration <= 0 {
		errs = append(errs, "exit: max_hold must be positive")
	}
	if c.Exit.TieredEnabled {
		if c.Exit.Tier1Fraction <= 0 || c.Exit.Tier1Fraction >= 1 {
			errs = append(errs, "exit: tier1_fraction must be in (0, 1)")
		}
		if c.Exit.Tier2Fraction <= 0 || c.Exit.Tier2Fraction > 1 {
			errs = append(errs, "exit: tier2_fraction must be in (0, 1]")
		}
		if c.Exit.Tier2TargetPct <= c.Exit.Tier1TargetPct {
			errs = append(errs, "exit: tier2_target_pct must exceed tier1_target_pct")
		}
	} else if c.Exit.TakeProfitPct <= 0 {
		errs = append(errs, "exit: take_profit_pct must be > 0 in single-target mode")
	}
	if c.Exit.TrailingEnabled {
		if c.Exit.ActivationPct < 0 {
			errs = append(errs, "exit: activation_pct must be >= 0")
		}
		if c.Exit.TrailingDistancePct <= 0 || c.Exit.TrailingDistancePct >= 1 {
			errs = append(errs, "exit: trailing_distance_pct must be in (0, 1)")
		}
	}

	// Safety
	if c.Safety.MaxDrawdownPct <= 0 || c.Safety.MaxDrawdownPct >= 1 {
		errs = append(errs, "safety: max_drawdown_pct must be in (0, 1)")
	}
	if c.Safety.MaxConsecutiveLosses < 1 {
		errs = append(errs, "safety: max_consecutive_losses must be >= 1")
	}
	if c.Safety.MaxExternalFailures < 1 {
		errs = append(errs, "safety: max_external_failures must be >= 1")
	}
	if c.Safety.FailureWindow.Duration <= 0 {
		errs = append(errs, "safety: failure_window must be positive")
	}
	if c.Safety.CheckInterval.Duration <= 0 {
		errs = append(errs, "safety: check_interval must be positive")
	}

	// Discovery — live mode cannot run without the launch feed.
	if c.Mode == "live" && c.Discovery.WsURL == "" {
		errs = append(errs, "discovery: ws_url is required for live mode")
	}
	if c.Discovery.QueueSize < 1 {
		errs = append(errs, "discovery: queue_size must be >= 1")
	}

	// Pricing — live mode needs a quote endpoint.
	if c.Mode == "live" && c.Pricing.BaseURL == "" {
		errs = append(errs, "pricing: base_url is required for live mode")
	}
	if c.Pricing.SimVolatility < 0 {
		errs = append(errs, "pricing: sim_volatility must be >= 0")
	}

	// Scorer — live mode needs the scoring service.
	if c.Mode == "live" && c.Scorer.BaseURL == "" {
		errs = append(errs, "scorer: base_url is required for live mode")
	}

	// Exec — live mode needs the swap aggregator.
	if c.Mode == "live" && c.Exec.BaseURL == "" {
		errs = append(errs, "exec: base_url is required for live mode")
	}
	if c.Exec.Timeout.Duration <= 0 {
		errs = append(errs, "exec: timeout must be positive")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Endpoint == "" {
			errs = append(errs, "archive: endpoint must not be empty when enabled")
		}
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
