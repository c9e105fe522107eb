package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// clearEnv сбрасывает переменные, влияющие на Load
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SERVER_PORT", "SERVER_HOST", "DB_PORT", "DB_NAME",
		"CHAIN_DRIVER", "CHAIN_ENDPOINT",
		"ACCOUNT_REFRESH_INTERVAL", "PRICE_REFRESH_INTERVAL", "RETRY_PAUSES",
		"RIPE_THRESHOLD", "WORTHWHILE_THRESHOLD",
		"BALANCE_TARGETS", "ACTION_THRESHOLD", "ADJUSTMENT_FACTOR",
		"DRY_RUN", "MAX_CONSECUTIVE_FAILURES",
		"STALE_ACCOUNTS_AFTER", "STALE_PRICES_AFTER",
		"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID",
		"API_TOKEN_HASH", "LOG_LEVEL", "LOG_FORMAT", "EVENT_RETENTION",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

// TestLoad_Defaults проверяет значения по умолчанию
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Chain.Driver != "sim" {
		t.Errorf("Chain.Driver = %s, want sim", cfg.Chain.Driver)
	}
	if !cfg.Engine.DryRun {
		t.Errorf("Engine.DryRun must default to true")
	}
	if cfg.Engine.PriceRefreshInterval != time.Second {
		t.Errorf("PriceRefreshInterval = %v, want 1s", cfg.Engine.PriceRefreshInterval)
	}
	if len(cfg.Engine.RetryPauses) != 3 {
		t.Errorf("RetryPauses = %v, want 3 pauses", cfg.Engine.RetryPauses)
	}
	if !cfg.Engine.RipeThreshold.Equal(dec("1.05")) {
		t.Errorf("RipeThreshold = %s, want 1.05", cfg.Engine.RipeThreshold)
	}
	if len(cfg.Engine.Targets) != 0 {
		t.Errorf("Targets must default to empty, got %v", cfg.Engine.Targets)
	}
}

// TestLoad_Overrides проверяет чтение переменных окружения
func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RIPE_THRESHOLD", "1.1")
	t.Setenv("RETRY_PAUSES", "100ms,200ms")
	t.Setenv("BALANCE_TARGETS", "SOL:20%,USDC:1000")
	t.Setenv("MAX_CONSECUTIVE_FAILURES", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Engine.RipeThreshold.Equal(dec("1.1")) {
		t.Errorf("RipeThreshold = %s, want 1.1", cfg.Engine.RipeThreshold)
	}
	if len(cfg.Engine.RetryPauses) != 2 || cfg.Engine.RetryPauses[0] != 100*time.Millisecond {
		t.Errorf("RetryPauses = %v", cfg.Engine.RetryPauses)
	}
	if len(cfg.Engine.Targets) != 2 {
		t.Fatalf("Targets = %v, want 2 targets", cfg.Engine.Targets)
	}
	if !cfg.Engine.Targets[0].IsPercentage {
		t.Errorf("first target must be percentage-based")
	}
	if cfg.Engine.MaxConsecutiveFailures != 3 {
		t.Errorf("MaxConsecutiveFailures = %d, want 3", cfg.Engine.MaxConsecutiveFailures)
	}
}

// TestLoad_LiveRequiresAuth: боевой режим без API токена - ошибка
func TestLoad_LiveRequiresAuth(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRY_RUN", "false")

	if _, err := Load(); err == nil {
		t.Fatal("Load must fail when DRY_RUN=false and API_TOKEN_HASH is empty")
	}

	t.Setenv("API_TOKEN_HASH", "$2a$12$fakehashfortestingpurposesonly")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with token hash: %v", err)
	}
}

// TestLoad_TelegramPairValidation: токен без чата - ошибка
func TestLoad_TelegramPairValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TELEGRAM_CHAT_ID") {
		t.Fatalf("Load error = %v, want TELEGRAM_CHAT_ID error", err)
	}

	t.Setenv("TELEGRAM_CHAT_ID", "-100500")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notifications.TelegramChatID != -100500 {
		t.Errorf("TelegramChatID = %d, want -100500", cfg.Notifications.TelegramChatID)
	}
}

// TestLoad_InvalidRanges проверяет отказ на недопустимых значениях
func TestLoad_InvalidRanges(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad server port", "SERVER_PORT", "70000"},
		{"zero refresh interval", "PRICE_REFRESH_INTERVAL", "0s"},
		{"negative ripe threshold", "RIPE_THRESHOLD", "-1"},
		{"action threshold above one", "ACTION_THRESHOLD", "1.5"},
		{"zero failure limit", "MAX_CONSECUTIVE_FAILURES", "0"},
		{"bad retry pauses", "RETRY_PAUSES", "1s,notaduration"},
		{"bad balance targets", "BALANCE_TARGETS", "SOL:200%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load must fail with %s=%s", tt.key, tt.value)
			}
		})
	}
}

// TestDatabaseConfig_DSN проверяет сборку строки подключения
func TestDatabaseConfig_DSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db", Port: 5432, User: "liq", Password: "secret",
		Name: "liquidator", SSLMode: "disable",
	}

	dsn := db.DSN()
	if !strings.Contains(dsn, "password=secret") {
		t.Errorf("DSN missing password: %s", dsn)
	}

	safe := db.DSNWithoutPassword()
	if strings.Contains(safe, "secret") {
		t.Errorf("DSNWithoutPassword leaked password: %s", safe)
	}
}
