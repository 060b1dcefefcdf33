package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/irfndi/arbscan/internal/utils"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Scanner     ScannerConfig   `mapstructure:"scanner"`
	Exchanges   ExchangesConfig `mapstructure:"exchanges"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Reference   ReferenceConfig `mapstructure:"reference"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ScannerConfig holds the detection thresholds and cycle cadence.
type ScannerConfig struct {
	QuoteCurrency       string        `mapstructure:"quote_currency"`
	MinNetSpreadPct     float64       `mapstructure:"min_net_spread_pct"`
	MinBuyVolUSD        float64       `mapstructure:"min_buy_vol_usd"`
	MinSellVolUSD       float64       `mapstructure:"min_sell_vol_usd"`
	MaxRelInnerSpread   float64       `mapstructure:"max_rel_inner_spread"`
	TrustedExchanges    []string      `mapstructure:"trusted_exchanges"`
	KTrusted            float64       `mapstructure:"k_trusted"`
	KNonTrusted         float64       `mapstructure:"k_non_trusted"`
	MinExchangesPerPair int           `mapstructure:"min_exchanges_per_pair"`
	MinTrustedPerPair   int           `mapstructure:"min_trusted_per_pair"`
	MinTicksToShow      int           `mapstructure:"min_ticks_to_show"`
	MinSendInterval     time.Duration `mapstructure:"min_send_interval"`
	TopKPerCycle        int           `mapstructure:"top_k_per_cycle"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
	ConsoleReport       bool          `mapstructure:"console_report"`
}

type ExchangesConfig struct {
	Enabled            []string             `mapstructure:"enabled"`
	EnableExperimental bool                 `mapstructure:"enable_experimental"`
	DefaultFeePct      float64              `mapstructure:"default_fee_pct"`
	Fees               map[string]float64   `mapstructure:"fees"`
	BaseURLs           map[string]string    `mapstructure:"base_urls"`
	RequestTimeout     time.Duration        `mapstructure:"request_timeout"`
	UserAgent          string               `mapstructure:"user_agent"`
	Retry              RetryConfig          `mapstructure:"retry"`
	CircuitBreaker     CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID   string `mapstructure:"chat_id"`
	APIURL   string `mapstructure:"api_url"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ReferenceConfig struct {
	BlacklistFile string `mapstructure:"blacklist_file"`
	DataFile      string `mapstructure:"data_file"`
	UseRedis      bool   `mapstructure:"use_redis"`
	RedisKey      string `mapstructure:"redis_key"`
}

type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	Exporter     string `mapstructure:"exporter"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ExportLogs   bool   `mapstructure:"export_logs"`
}

// TelegramEnabled reports whether both credentials needed for alerting are present.
func (c TelegramConfig) TelegramEnabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_CHAT_ID environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	config.Scanner.QuoteCurrency = strings.ToUpper(config.Scanner.QuoteCurrency)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate rejects thresholds the pipeline cannot run with.
func (c *Config) Validate() error {
	s := c.Scanner
	switch {
	case s.QuoteCurrency != "USDT":
		return utils.NewValidationErrorf("scanner.quote_currency", "only USDT is supported, got %q", s.QuoteCurrency)
	case s.MinNetSpreadPct < 0:
		return utils.NewValidationError("scanner.min_net_spread_pct", "must not be negative")
	case s.MinBuyVolUSD < 0 || s.MinSellVolUSD < 0:
		return utils.NewValidationError("scanner.min_buy_vol_usd", "volume floors must not be negative")
	case s.MaxRelInnerSpread <= 0 || s.MaxRelInnerSpread >= 1:
		return utils.NewValidationErrorf("scanner.max_rel_inner_spread", "must be in (0, 1), got %v", s.MaxRelInnerSpread)
	case s.KTrusted <= 0 || s.KNonTrusted <= 0:
		return utils.NewValidationError("scanner.k_trusted", "band multipliers must be positive")
	case s.MinExchangesPerPair < 0 || s.MinTrustedPerPair < 0:
		return utils.NewValidationError("scanner.min_exchanges_per_pair", "floors must not be negative")
	case s.MinTicksToShow < 1:
		return utils.NewValidationErrorf("scanner.min_ticks_to_show", "must be at least 1, got %d", s.MinTicksToShow)
	case s.MinSendInterval < 0:
		return utils.NewValidationError("scanner.min_send_interval", "must not be negative")
	case s.TopKPerCycle < 1:
		return utils.NewValidationErrorf("scanner.top_k_per_cycle", "must be at least 1, got %d", s.TopKPerCycle)
	case s.PollInterval <= 0:
		return utils.NewValidationError("scanner.poll_interval", "must be positive")
	}

	e := c.Exchanges
	if e.RequestTimeout <= 0 {
		return utils.NewValidationError("exchanges.request_timeout", "must be positive")
	}
	if e.Retry.MaxAttempts < 1 {
		return utils.NewValidationErrorf("exchanges.retry.max_attempts", "must be at least 1, got %d", e.Retry.MaxAttempts)
	}
	if e.DefaultFeePct < 0 {
		return utils.NewValidationError("exchanges.default_fee_pct", "must not be negative")
	}
	for name, fee := range e.Fees {
		if fee < 0 {
			return utils.NewValidationErrorf("exchanges.fees."+name, "must not be negative, got %v", fee)
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return utils.NewValidationErrorf("server.port", "out of range: %d", c.Server.Port)
	}
	if c.Reference.UseRedis && !c.Redis.Enabled {
		return utils.NewValidationError("reference.use_redis", "requires redis.enabled")
	}
	return nil
}

// FeeFor returns the taker fee percentage for an exchange, falling back to the default.
func (e ExchangesConfig) FeeFor(exchange string) float64 {
	if fee, ok := e.Fees[strings.ToLower(exchange)]; ok {
		return fee
	}
	return e.DefaultFeePct
}

// BaseURLFor returns an override for the exchange's API root, or "" to keep the built-in one.
func (e ExchangesConfig) BaseURLFor(exchange string) string {
	return e.BaseURLs[strings.ToLower(exchange)]
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")

	// Scanner
	viper.SetDefault("scanner.quote_currency", "USDT")
	viper.SetDefault("scanner.min_net_spread_pct", 2.0)
	viper.SetDefault("scanner.min_buy_vol_usd", 300000.0)
	viper.SetDefault("scanner.min_sell_vol_usd", 300000.0)
	viper.SetDefault("scanner.max_rel_inner_spread", 0.010)
	viper.SetDefault("scanner.trusted_exchanges", []string{"Binance", "OKX", "Bybit", "KuCoin", "Bitget", "Gate", "MEXC"})
	viper.SetDefault("scanner.k_trusted", 6.0)
	viper.SetDefault("scanner.k_non_trusted", 4.0)
	viper.SetDefault("scanner.min_exchanges_per_pair", 0)
	viper.SetDefault("scanner.min_trusted_per_pair", 0)
	viper.SetDefault("scanner.min_ticks_to_show", 2)
	viper.SetDefault("scanner.min_send_interval", "600s")
	viper.SetDefault("scanner.top_k_per_cycle", 40)
	viper.SetDefault("scanner.poll_interval", "5s")
	viper.SetDefault("scanner.heartbeat_interval", "5m")
	viper.SetDefault("scanner.console_report", true)

	// Exchanges
	viper.SetDefault("exchanges.enabled", []string{"binance", "okx", "kucoin", "bybit", "gate", "mexc", "bitget", "htx"})
	viper.SetDefault("exchanges.enable_experimental", true)
	viper.SetDefault("exchanges.default_fee_pct", 0.20)
	viper.SetDefault("exchanges.request_timeout", "10s")
	viper.SetDefault("exchanges.user_agent", "arb-scanner/2.0")
	viper.SetDefault("exchanges.retry.max_attempts", 5)
	viper.SetDefault("exchanges.retry.initial_backoff", "300ms")
	viper.SetDefault("exchanges.retry.max_backoff", "3s")
	viper.SetDefault("exchanges.retry.multiplier", 2.0)
	viper.SetDefault("exchanges.circuit_breaker.failure_threshold", 3)
	viper.SetDefault("exchanges.circuit_breaker.success_threshold", 1)
	viper.SetDefault("exchanges.circuit_breaker.open_timeout", "1m")

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")
	viper.SetDefault("telegram.api_url", "")

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Reference data
	viper.SetDefault("reference.blacklist_file", "blacklist.txt")
	viper.SetDefault("reference.data_file", "")
	viper.SetDefault("reference.use_redis", false)
	viper.SetDefault("reference.redis_key", "arbscan:blacklist")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service_name", "arbscan")
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	viper.SetDefault("telemetry.export_logs", false)
}
