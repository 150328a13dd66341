package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/bestowals?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "bestowals-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_MAX_IDLE_CONNS", "8")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "DISTRIBUTION_TITHING_PERCENT", "0.2")
	setEnv(t, "DISTRIBUTION_GROWER_PERCENT", "0.05")
	setEnv(t, "DISTRIBUTION_ORDER_EXPIRY_MINUTES", "15")
	setEnv(t, "NOTIFICATIONS_MAX_ATTEMPTS", "5")
	setEnv(t, "NOTIFICATIONS_RETRY_INTERVAL_MINUTES", "7")
	setEnv(t, "JOBS_BATCH_SIZE", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "bestowals-test" {
		t.Fatalf("unexpected app service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 || cfg.MySQL.MaxIdleConns != 8 {
		t.Fatalf("unexpected mysql pool config: %+v", cfg.MySQL)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected mysql lifetime: %v", cfg.MySQL.ConnMaxLifetime)
	}
	if cfg.Distribution.TithingPercent != 0.2 || cfg.Distribution.GrowerPercent != 0.05 {
		t.Fatalf("unexpected distribution percents: %+v", cfg.Distribution)
	}
	if cfg.Distribution.OrderExpiry != 15*time.Minute {
		t.Fatalf("unexpected order expiry: %v", cfg.Distribution.OrderExpiry)
	}
	if cfg.Notifications.MaxAttempts != 5 {
		t.Fatalf("unexpected notification max attempts: %d", cfg.Notifications.MaxAttempts)
	}
	if cfg.Notifications.RetryInterval != 7*time.Minute {
		t.Fatalf("unexpected notification retry interval: %v", cfg.Notifications.RetryInterval)
	}
	if cfg.Jobs.BatchSize != 99 {
		t.Fatalf("unexpected job batch size: %d", cfg.Jobs.BatchSize)
	}
}

func TestLoadProviderDefaults(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/bestowals?parseTime=true")
	unsetEnv(t, "BINANCE_PAY_BASE_URL")
	unsetEnv(t, "CRYPTOMUS_BASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.BinancePay.BaseURL != "https://bpay.binanceapi.com" {
		t.Fatalf("unexpected binance base url: %s", cfg.BinancePay.BaseURL)
	}
	if cfg.BinancePay.SignatureToleranceSeconds != 300 {
		t.Fatalf("unexpected binance signature tolerance: %d", cfg.BinancePay.SignatureToleranceSeconds)
	}
	if cfg.Cryptomus.BaseURL != "https://api.cryptomus.com" {
		t.Fatalf("unexpected cryptomus base url: %s", cfg.Cryptomus.BaseURL)
	}
}
