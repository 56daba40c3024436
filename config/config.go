package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/spooky-finn/go-okx-md-bridge/domain"
	"github.com/spooky-finn/go-okx-md-bridge/infrastructure/logger"
	"github.com/spooky-finn/go-okx-md-bridge/provider/okx"
)

const (
	envPrefix         = "MDBRIDGE"
	configFileEnv     = "MDBRIDGE_CONFIG"
	defaultConfigFile = "config.yaml"
)

var log = logrus.WithField("component", "config")

type OkxConfig struct {
	WsURL                    string   `mapstructure:"ws_url"`
	HTTPURL                  string   `mapstructure:"http_url"`
	Channel                  string   `mapstructure:"channel"`
	Tickers                  []string `mapstructure:"tickers"`
	ChannelTickersAmount     int      `mapstructure:"channel_tickers_amount"`
	PingFrequencySeconds     int      `mapstructure:"ping_frequency_seconds"`
	SubscribeIntervalMs      int      `mapstructure:"subscribe_interval_ms"`
	ReconnectGraceMs         int      `mapstructure:"reconnect_grace_ms"`
	MaxReconnectAttempts     int      `mapstructure:"max_reconnect_attempts"`
	RateLimitCooldownSeconds int      `mapstructure:"rate_limit_cooldown_seconds"`
	ReadTimeoutSeconds       int      `mapstructure:"read_timeout_seconds"`
	ResyncOnGap              bool     `mapstructure:"resync_on_gap"`
	BookDepth                int      `mapstructure:"book_depth"`
	SeedFromRest             bool     `mapstructure:"seed_from_rest"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type MetricsConfig struct {
	// Addr of the /metrics endpoint. Empty disables it.
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Okx                   OkxConfig     `mapstructure:"okx"`
	Logging               LoggingConfig `mapstructure:"logging"`
	Metrics               MetricsConfig `mapstructure:"metrics"`
	ReportIntervalSeconds int           `mapstructure:"report_interval_seconds"`
	Debug                 bool          `mapstructure:"debug"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("okx.ws_url", okx.DefaultWsURL)
	v.SetDefault("okx.http_url", okx.DefaultHTTPURL)
	v.SetDefault("okx.channel", okx.ChannelBooks)
	v.SetDefault("okx.tickers", []string{"BTC-USDT", "ETH-USDT"})
	v.SetDefault("okx.channel_tickers_amount", 60)
	v.SetDefault("okx.ping_frequency_seconds", 3)
	v.SetDefault("okx.subscribe_interval_ms", 100)
	v.SetDefault("okx.reconnect_grace_ms", 1000)
	v.SetDefault("okx.max_reconnect_attempts", 5)
	v.SetDefault("okx.rate_limit_cooldown_seconds", 60)
	v.SetDefault("okx.read_timeout_seconds", 30)
	v.SetDefault("okx.resync_on_gap", true)
	v.SetDefault("okx.book_depth", 400)
	v.SetDefault("okx.seed_from_rest", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	v.SetDefault("metrics.addr", ":8080")

	v.SetDefault("report_interval_seconds", 10)
	v.SetDefault("debug", false)
}

// Load reads a local .env, then the config file named by MDBRIDGE_CONFIG or
// ./config.yaml if present, then MDBRIDGE_ prefixed environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	file := os.Getenv(configFileEnv)
	if file == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			file = defaultConfigFile
		}
	}
	return load(viper.New(), file)
}

func load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		log.Infof("config loaded from %s", file)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	tickers, err := domain.ParseMarketSymbols(config.Okx.Tickers)
	if err != nil {
		return nil, fmt.Errorf("invalid okx.tickers: %w", err)
	}
	if len(tickers) == 0 {
		return nil, errors.New("okx.tickers must not be empty")
	}
	config.Okx.Tickers = tickers

	if config.Debug {
		config.Logging.Level = logrus.DebugLevel.String()
	}
	return &config, nil
}

func (c *Config) MdConnection() okx.MdConnectionConfig {
	return okx.MdConnectionConfig{
		WsURL:                c.Okx.WsURL,
		Channel:              c.Okx.Channel,
		ChannelTickersAmount: c.Okx.ChannelTickersAmount,
		PingFrequency:        time.Duration(c.Okx.PingFrequencySeconds) * time.Second,
		SubscribeInterval:    time.Duration(c.Okx.SubscribeIntervalMs) * time.Millisecond,
		ReconnectGrace:       time.Duration(c.Okx.ReconnectGraceMs) * time.Millisecond,
		MaxReconnectAttempts: c.Okx.MaxReconnectAttempts,
		RateLimitCooldown:    time.Duration(c.Okx.RateLimitCooldownSeconds) * time.Second,
		ReadTimeout:          time.Duration(c.Okx.ReadTimeoutSeconds) * time.Second,
		ResyncOnGap:          c.Okx.ResyncOnGap,
	}
}

func (c *Config) Poller() okx.PollerConfig {
	config := okx.DefaultPollerConfig()
	config.HTTPURL = c.Okx.HTTPURL
	config.BookDepth = c.Okx.BookDepth
	return config
}

func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}

func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.ReportIntervalSeconds) * time.Second
}
