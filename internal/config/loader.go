package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SNIPEBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SNIPEBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Trading ──
	setFloat64(&cfg.Trading.TotalCapital, "SNIPEBOT_TRADING_TOTAL_CAPITAL")
	setFloat64(&cfg.Trading.QuotePerPosition, "SNIPEBOT_TRADING_QUOTE_PER_POSITION")
	setInt(&cfg.Trading.MaxPositions, "SNIPEBOT_TRADING_MAX_POSITIONS")
	setFloat64(&cfg.Trading.MaxExposure, "SNIPEBOT_TRADING_MAX_EXPOSURE")
	setDuration(&cfg.Trading.TickInterval, "SNIPEBOT_TRADING_TICK_INTERVAL")
	setDuration(&cfg.Trading.CallTimeout, "SNIPEBOT_TRADING_CALL_TIMEOUT")

	// ── Entry ──
	setFloat64(&cfg.Entry.MinScore, "SNIPEBOT_ENTRY_MIN_SCORE")
	setFloat64(&cfg.Entry.MinSafety, "SNIPEBOT_ENTRY_MIN_SAFETY")
	setFloat64(&cfg.Entry.MinHolders, "SNIPEBOT_ENTRY_MIN_HOLDERS")
	setFloat64(&cfg.Entry.MinLiquidity, "SNIPEBOT_ENTRY_MIN_LIQUIDITY")
	setFloat64(&cfg.Entry.MinSentiment, "SNIPEBOT_ENTRY_MIN_SENTIMENT")
	setDuration(&cfg.Entry.PlanTTL, "SNIPEBOT_ENTRY_PLAN_TTL")

	// ── Exit ──
	setFloat64(&cfg.Exit.StopLossPct, "SNIPEBOT_EXIT_STOP_LOSS_PCT")
	setDuration(&cfg.Exit.MaxHold, "SNIPEBOT_EXIT_MAX_HOLD")
	setBool(&cfg.Exit.TieredEnabled, "SNIPEBOT_EXIT_TIERED_ENABLED")
	setFloat64(&cfg.Exit.TakeProfitPct, "SNIPEBOT_EXIT_TAKE_PROFIT_PCT")
	setFloat64(&cfg.Exit.Tier1TargetPct, "SNIPEBOT_EXIT_TIER1_TARGET_PCT")
	setFloat64(&cfg.Exit.Tier1Fraction, "SNIPEBOT_EXIT_TIER1_FRACTION")
	setFloat64(&cfg.Exit.Tier2TargetPct, "SNIPEBOT_EXIT_TIER2_TARGET_PCT")
	setFloat64(&cfg.Exit.Tier2Fraction, "SNIPEBOT_EXIT_TIER2_FRACTION")
	setBool(&cfg.Exit.TrailingEnabled, "SNIPEBOT_EXIT_TRAILING_ENABLED")
	setFloat64(&cfg.Exit.ActivationPct, "SNIPEBOT_EXIT_ACTIVATION_PCT")
	setFloat64(&cfg.Exit.TrailingDistancePct, "SNIPEBOT_EXIT_TRAILING_DISTANCE_PCT")

	// ── Safety ──
	setFloat64(&cfg.Safety.MaxDrawdownPct, "SNIPEBOT_SAFETY_MAX_DRAWDOWN_PCT")
	setInt(&cfg.Safety.MaxConsecutiveLosses, "SNIPEBOT_SAFETY_MAX_CONSECUTIVE_LOSSES")
	setInt(&cfg.Safety.MaxExternalFailures, "SNIPEBOT_SAFETY_MAX_EXTERNAL_FAILURES")
	setDuration(&cfg.Safety.FailureWindow, "SNIPEBOT_SAFETY_FAILURE_WINDOW")
	setFloat64(&cfg.Safety.MinReserve, "SNIPEBOT_SAFETY_MIN_RESERVE")
	setFloat64(&cfg.Safety.HeatWarningPct, "SNIPEBOT_SAFETY_HEAT_WARNING_PCT")
	setDuration(&cfg.Safety.CheckInterval, "SNIPEBOT_SAFETY_CHECK_INTERVAL")
	setStr(&cfg.Safety.ManualStopFile, "SNIPEBOT_SAFETY_MANUAL_STOP_FILE")

	// ── Discovery ──
	setStr(&cfg.Discovery.WsURL, "SNIPEBOT_DISCOVERY_WS_URL")
	setInt(&cfg.Discovery.QueueSize, "SNIPEBOT_DISCOVERY_QUEUE_SIZE")

	// ── Scorer ──
	setStr(&cfg.Scorer.BaseURL, "SNIPEBOT_SCORER_BASE_URL")
	setDuration(&cfg.Scorer.Timeout, "SNIPEBOT_SCORER_TIMEOUT")

	// ── Pricing ──
	setStr(&cfg.Pricing.BaseURL, "SNIPEBOT_PRICING_BASE_URL")
	setDuration(&cfg.Pricing.Timeout, "SNIPEBOT_PRICING_TIMEOUT")
	setInt64(&cfg.Pricing.SimSeed, "SNIPEBOT_PRICING_SIM_SEED")
	setFloat64(&cfg.Pricing.SimVolatility, "SNIPEBOT_PRICING_SIM_VOLATILITY")
	setFloat64(&cfg.Pricing.SimDrift, "SNIPEBOT_PRICING_SIM_DRIFT")
	setFloat64(&cfg.Pricing.SimSlippageBps, "SNIPEBOT_PRICING_SIM_SLIPPAGE_BPS")

	// ── Exec ──
	setStr(&cfg.Exec.BaseURL, "SNIPEBOT_EXEC_BASE_URL")
	setDuration(&cfg.Exec.Timeout, "SNIPEBOT_EXEC_TIMEOUT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "SNIPEBOT_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "SNIPEBOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "SNIPEBOT_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SNIPEBOT_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SNIPEBOT_DATABASE_NAME")
	setStr(&cfg.Database.User, "SNIPEBOT_DATABASE_USER")
	setStr(&cfg.Database.Password, "SNIPEBOT_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SNIPEBOT_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SNIPEBOT_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SNIPEBOT_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SNIPEBOT_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SNIPEBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SNIPEBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SNIPEBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SNIPEBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SNIPEBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SNIPEBOT_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SNIPEBOT_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "SNIPEBOT_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "SNIPEBOT_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "SNIPEBOT_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "SNIPEBOT_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "SNIPEBOT_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "SNIPEBOT_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "SNIPEBOT_ARCHIVE_FORCE_PATH_STYLE")
	setInt(&cfg.Archive.RetentionDays, "SNIPEBOT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "SNIPEBOT_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SNIPEBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SNIPEBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SNIPEBOT_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SNIPEBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SNIPEBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SNIPEBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SNIPEBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SNIPEBOT_MODE")
	setStr(&cfg.LogLevel, "SNIPEBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
