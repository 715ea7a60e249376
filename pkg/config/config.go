package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Ledger gateway configuration
	Ledger LedgerConfig `mapstructure:"ledger"`

	// Auth configuration
	Auth AuthConfig `mapstructure:"auth"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// LedgerConfig holds configuration for the signing bridge the client
// issues ledger queries and commands through.
type LedgerConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	ContractAddress string `mapstructure:"contract_address"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	ConfirmInterval int    `mapstructure:"confirm_interval"`
	ConfirmTimeout  int    `mapstructure:"confirm_timeout"`
	EventPollDelay  int    `mapstructure:"event_poll_delay"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/healthchain")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with environment variables
	overrideWithEnv(&config)

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)

	// Ledger defaults
	viper.SetDefault("ledger.endpoint", "http://localhost:8545")
	viper.SetDefault("ledger.request_timeout", 15)
	viper.SetDefault("ledger.confirm_interval", 2)
	viper.SetDefault("ledger.confirm_timeout", 120)
	viper.SetDefault("ledger.event_poll_delay", 3)

	// Auth defaults
	viper.SetDefault("auth.issuer", "healthchain-ledger-client")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.health_path", "/health")

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// overrideWithEnv overrides configuration with environment variables
func overrideWithEnv(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if endpoint := os.Getenv("LEDGER_ENDPOINT"); endpoint != "" {
		config.Ledger.Endpoint = endpoint
	}

	if contract := os.Getenv("LEDGER_CONTRACT_ADDRESS"); contract != "" {
		config.Ledger.ContractAddress = contract
	}

	if jwtSecret := os.Getenv("JWT_SECRET_KEY"); jwtSecret != "" {
		config.Auth.JWTSecret = jwtSecret
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.LogLevel = logLevel
	}
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Ledger.Endpoint == "" {
		return fmt.Errorf("ledger endpoint is required")
	}

	if config.Ledger.ContractAddress == "" {
		return fmt.Errorf("ledger contract address is required")
	}

	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret key is required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	return nil
}
