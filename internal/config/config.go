// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	IPFS     IPFSConfig
	Chain    ChainConfig
	Coinbase CoinbaseConfig
	Media    MediaConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// SessionConfig contains cookie session configuration.
type SessionConfig struct {
	Secret string
	Name   string
	MaxAge int
}

// IPFSConfig contains the content store node API configuration.
type IPFSConfig struct {
	APIAddress string
	Timeout    time.Duration
}

// ChainConfig contains the chain event queue and relay configuration.
type ChainConfig struct {
	Host         string
	User         string
	Password     string
	Exchange     string
	Queue        string
	RoutingKey   string
	SubmitterURL string
	Port         int
}

// CoinbaseConfig contains the OAuth provider configuration.
type CoinbaseConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	FrontendURL  string
}

// MediaConfig contains upload and preview generation configuration.
type MediaConfig struct {
	MaxUploadSize     int64
	PreviewPercentage int
	TempDir           string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.SetEnvPrefix("BTUBE")
	// Nested keys map to BTUBE_SECTION_KEY environment variables.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// DSN returns the keyword/value connection string for the configured database.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the URL-form connection string, as the migration tooling
// expects it.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// AMQPURL returns the connection URL for the chain event broker.
func (c ChainConfig) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.User, c.Password, c.Host, c.Port)
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "video_platform")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 30*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Session
	viper.SetDefault("session.name", "btube_session")
	viper.SetDefault("session.maxage", 86400*7)

	// IPFS
	viper.SetDefault("ipfs.apiaddress", "http://127.0.0.1:5001/api/v0")
	viper.SetDefault("ipfs.timeout", 60*time.Second)

	// Chain
	viper.SetDefault("chain.host", "localhost")
	viper.SetDefault("chain.port", 5672)
	viper.SetDefault("chain.user", "guest")
	viper.SetDefault("chain.password", "guest")
	viper.SetDefault("chain.exchange", "btube.chain")
	viper.SetDefault("chain.queue", "btube.chain.events")
	viper.SetDefault("chain.routingkey", "chain.event")
	viper.SetDefault("chain.submitterurl", "")

	// Coinbase
	viper.SetDefault("coinbase.redirecturl", "http://localhost:8000/auth/callback")
	viper.SetDefault("coinbase.frontendurl", "http://localhost:3000")

	// Media
	viper.SetDefault("media.maxuploadsize", 1<<30) // 1GB
	viper.SetDefault("media.previewpercentage", 10)
	viper.SetDefault("media.tempdir", "")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
