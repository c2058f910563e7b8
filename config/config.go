package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Checkout CheckoutConfig
	Chain    ChainConfig
	Tracker  TrackerConfig
	Queue    QueueConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimit       int // requests per window per client IP
	RateLimitWindow time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret         string
	TokenExpiry       time.Duration
	Issuer            string
	AdminPasswordHash string // bcrypt hash; admin login disabled when empty
}

// CheckoutConfig configures the card-payment gateway client.
type CheckoutConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
}

// ChainConfig configures on-chain token-transfer verification.
type ChainConfig struct {
	RPCURL           string
	ReceivingAddress string
	TokenDecimals    int // USDC-style 6 by default
}

type TrackerConfig struct {
	Token string
	Owner string
	Repo  string
}

type QueueConfig struct {
	MaxRequestChars   int
	ThroughputPerHour int
	PollInterval      time.Duration
}

type LoggerConfig struct {
	Level string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            env("PORT", "8090"),
			Env:             env("ENV", "development"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			RateLimit:       envInt("RATE_LIMIT", 60),
			RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SEC", 60)) * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             env("DATABASE_DSN", "buildline:buildline@tcp(localhost:3306)/buildline?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Auth: AuthConfig{
			JWTSecret:         env("JWT_SECRET", "change-me-in-production"),
			TokenExpiry:       12 * time.Hour,
			Issuer:            "buildline",
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Checkout: CheckoutConfig{
			SecretKey:     os.Getenv("CHECKOUT_SECRET_KEY"),
			WebhookSecret: os.Getenv("CHECKOUT_WEBHOOK_SECRET"),
			SuccessURL:    env("CHECKOUT_SUCCESS_URL", "https://buildline.dev/thanks"),
			CancelURL:     env("CHECKOUT_CANCEL_URL", "https://buildline.dev/"),
			Currency:      env("CHECKOUT_CURRENCY", "usd"),
		},
		Chain: ChainConfig{
			RPCURL:           env("CHAIN_RPC_URL", "https://api.mainnet-beta.solana.com"),
			ReceivingAddress: os.Getenv("CHAIN_RECEIVING_ADDRESS"),
			TokenDecimals:    envInt("CHAIN_TOKEN_DECIMALS", 6),
		},
		Tracker: TrackerConfig{
			Token: os.Getenv("TRACKER_TOKEN"),
			Owner: env("TRACKER_OWNER", "buildline"),
			Repo:  env("TRACKER_REPO", "build-queue"),
		},
		Queue: QueueConfig{
			MaxRequestChars:   120,
			ThroughputPerHour: envInt("QUEUE_THROUGHPUT_PER_HOUR", 2),
			PollInterval:      time.Duration(envInt("QUEUE_POLL_INTERVAL_SEC", 30)) * time.Second,
		},
		Logger: LoggerConfig{
			Level: env("LOG_LEVEL", "info"),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
