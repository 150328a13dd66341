package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	HTTP          ServerConfig
	MySQL         MySQLConfig
	Log           LogConfig
	BinancePay    BinancePayConfig
	Cryptomus     CryptomusConfig
	Distribution  DistributionConfig
	Notifications NotificationsConfig
	Jobs          JobsConfig
}

type AppConfig struct {
	ServiceName string
	AuthSecret  string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type BinancePayConfig struct {
	APIKey                    string
	APISecret                 string
	BaseURL                   string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type CryptomusConfig struct {
	MerchantID    string
	PaymentAPIKey string
	PayoutAPIKey  string
	BaseURL       string
	HTTPTimeout   time.Duration
}

type DistributionConfig struct {
	TithingPercent float64
	GrowerPercent  float64
	OrderExpiry    time.Duration
}

type NotificationsConfig struct {
	MessagingBaseURL string
	HTTPTimeout      time.Duration
	MaxAttempts      int32
	RetryInterval    time.Duration
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	NotificationsInterval time.Duration
	BatchSize             int32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "bestowals-service"),
			AuthSecret:  getEnv("APP_AUTH_SECRET", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		BinancePay: BinancePayConfig{
			APIKey:                    getEnv("BINANCE_PAY_API_KEY", ""),
			APISecret:                 getEnv("BINANCE_PAY_API_SECRET", ""),
			BaseURL:                   getEnv("BINANCE_PAY_BASE_URL", "https://bpay.binanceapi.com"),
			SignatureToleranceSeconds: int64(getIntEnv("BINANCE_PAY_SIGNATURE_TOLERANCE_SECONDS", 300)),
			HTTPTimeout:               getSecondsEnv("BINANCE_PAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Cryptomus: CryptomusConfig{
			MerchantID:    getEnv("CRYPTOMUS_MERCHANT_ID", ""),
			PaymentAPIKey: getEnv("CRYPTOMUS_PAYMENT_API_KEY", ""),
			PayoutAPIKey:  getEnv("CRYPTOMUS_PAYOUT_API_KEY", ""),
			BaseURL:       getEnv("CRYPTOMUS_BASE_URL", "https://api.cryptomus.com"),
			HTTPTimeout:   getSecondsEnv("CRYPTOMUS_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Distribution: DistributionConfig{
			TithingPercent: getFloatEnv("DISTRIBUTION_TITHING_PERCENT", 0.15),
			GrowerPercent:  getFloatEnv("DISTRIBUTION_GROWER_PERCENT", 0.10),
			OrderExpiry:    getMinutesEnv("DISTRIBUTION_ORDER_EXPIRY_MINUTES", 30*time.Minute),
		},
		Notifications: NotificationsConfig{
			MessagingBaseURL: getEnv("NOTIFICATIONS_MESSAGING_BASE_URL", ""),
			HTTPTimeout:      getSecondsEnv("NOTIFICATIONS_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			MaxAttempts:      int32(getIntEnv("NOTIFICATIONS_MAX_ATTEMPTS", 10)),
			RetryInterval:    getMinutesEnv("NOTIFICATIONS_RETRY_INTERVAL_MINUTES", 5*time.Minute),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("JOBS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			NotificationsInterval: getMinutesEnv("JOBS_NOTIFICATIONS_INTERVAL_MINUTES", time.Minute),
			BatchSize:             int32(getIntEnv("JOBS_BATCH_SIZE", 100)),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
