package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Amp     AmpConfig     `mapstructure:"amp"`
	Query   QueryConfig   `mapstructure:"query"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
	Sample  SampleConfig  `mapstructure:"sample"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// AmpConfig represents the remote query endpoint configuration
type AmpConfig struct {
	EndpointURL    string        `mapstructure:"endpoint_url"`
	Dataset        string        `mapstructure:"dataset"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// QueryConfig represents the default whale query parameters
type QueryConfig struct {
	MinEth           float64 `mapstructure:"min_eth"`
	WindowHours      int     `mapstructure:"window_hours"`
	TransferLimit    int     `mapstructure:"transfer_limit"`
	LeaderboardLimit int     `mapstructure:"leaderboard_limit"`
}

// RefreshConfig represents refresh loop configuration
type RefreshConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	AutoEnabled     bool `mapstructure:"auto_enabled"`
}

// Interval returns the refresh tick interval as a duration
func (c RefreshConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// CacheConfig represents result cache configuration
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	Retention  time.Duration `mapstructure:"retention"`
	MaxEntries int           `mapstructure:"max_entries"`
	Redis      RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents the optional Redis cache backend
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AlertsConfig represents whale alert publishing configuration
type AlertsConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	MinEth  float64    `mapstructure:"min_eth"`
	NATS    NATSConfig `mapstructure:"nats"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	StreamName        string        `mapstructure:"stream_name"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
}

// SampleConfig represents the generated data source used for demos
type SampleConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	Seed    int64 `mapstructure:"seed"`
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	// Pick up a local .env if one exists
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/amp-whale-tracker")

	// Environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	// Map environment variables to nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Default values
	setDefaults()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.log_format", "json")
	viper.SetDefault("app.http_port", 8080)

	// Amp endpoint defaults
	viper.SetDefault("amp.endpoint_url", "http://localhost:1603")
	viper.SetDefault("amp.dataset", "ethereum/eth_rpc@latest")
	viper.SetDefault("amp.query_timeout", "10s")
	viper.SetDefault("amp.max_attempts", 3)
	viper.SetDefault("amp.retry_base_delay", "500ms")

	// Query defaults
	viper.SetDefault("query.min_eth", 50.0)
	viper.SetDefault("query.window_hours", 6)
	viper.SetDefault("query.transfer_limit", 200)
	viper.SetDefault("query.leaderboard_limit", 20)

	// Refresh defaults
	viper.SetDefault("refresh.interval_seconds", 30)
	viper.SetDefault("refresh.auto_enabled", true)

	// Cache defaults
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl", "30s")
	viper.SetDefault("cache.retention", "1h")
	viper.SetDefault("cache.max_entries", 32)
	viper.SetDefault("cache.redis.addr", "localhost:6379")
	viper.SetDefault("cache.redis.password", "")
	viper.SetDefault("cache.redis.db", 0)
	viper.SetDefault("cache.redis.dial_timeout", "5s")
	viper.SetDefault("cache.redis.read_timeout", "3s")
	viper.SetDefault("cache.redis.write_timeout", "3s")

	// Alert defaults
	viper.SetDefault("alerts.enabled", false)
	viper.SetDefault("alerts.min_eth", 500.0)
	viper.SetDefault("alerts.nats.url", "nats://localhost:4222")
	viper.SetDefault("alerts.nats.stream_name", "WHALE_ALERTS")
	viper.SetDefault("alerts.nats.subject_prefix", "whales")
	viper.SetDefault("alerts.nats.connect_timeout", "10s")
	viper.SetDefault("alerts.nats.reconnect_attempts", 5)
	viper.SetDefault("alerts.nats.reconnect_delay", "2s")

	// Sample data defaults
	viper.SetDefault("sample.enabled", false)
	viper.SetDefault("sample.seed", 0)

	// Bind env aliases kept from earlier deployments
	viper.BindEnv("amp.endpoint_url", "AMP_ENDPOINT_URL", "ENDPOINT_URL")
	viper.BindEnv("query.min_eth", "QUERY_MIN_ETH", "MIN_VALUE_THRESHOLD")
	viper.BindEnv("query.window_hours", "QUERY_WINDOW_HOURS", "WINDOW_HOURS")
	viper.BindEnv("refresh.auto_enabled", "REFRESH_AUTO_ENABLED", "AUTO_REFRESH_ENABLED")
	viper.BindEnv("alerts.nats.url", "NATS_URL")
}
