package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"liquidator/internal/models"
	"liquidator/pkg/retry"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Chain         ChainConfig
	Engine        EngineConfig
	Notifications NotificationsConfig
	Security      SecurityConfig
	Logging       LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ChainConfig - настройки подключения к цепочке
type ChainConfig struct {
	// Driver выбирает реализацию считывателя/исполнителя ("sim" для dry-run)
	Driver   string
	Endpoint string
}

// EngineConfig - настройки движка ликвидаций
type EngineConfig struct {
	// Интервалы опроса фидов
	AccountRefreshInterval time.Duration
	PriceRefreshInterval   time.Duration

	// RetryPauses - паузы между повторами одного фетча ("1s,2s,5s")
	RetryPauses []time.Duration

	// Пороги риска
	RipeThreshold       decimal.Decimal // коэффициент обеспеченности ликвидации
	WorthwhileThreshold decimal.Decimal // минимальная нетто-стоимость аккаунта

	// Балансировщик кошелька
	Targets          []models.BalanceTarget
	ActionThreshold  decimal.Decimal // доля стоимости кошелька, ниже которой дисбаланс игнорируется
	AdjustmentFactor decimal.Decimal // допустимое проскальзывание корректирующей сделки

	// DryRun подменяет боевые стратегии на Null-варианты
	DryRun bool

	// Здоровье процессора
	MaxConsecutiveFailures int
	StaleAccountsAfter     time.Duration
	StalePricesAfter       time.Duration
	HealthCheckInterval    time.Duration

	// Автоочистка журнала событий (0 = отключена)
	EventRetention int
}

// NotificationsConfig - настройки каналов уведомлений
type NotificationsConfig struct {
	TelegramToken  string
	TelegramChatID int64
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// APITokenHash - bcrypt хеш API токена; пустой = auth отключен
	APITokenHash string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	pauses, err := retry.ParsePauses(getEnv("RETRY_PAUSES", "1s,2s,5s"))
	if err != nil {
		return nil, fmt.Errorf("RETRY_PAUSES: %w", err)
	}

	targets, err := models.ParseBalanceTargets(getEnv("BALANCE_TARGETS", ""))
	if err != nil {
		return nil, fmt.Errorf("BALANCE_TARGETS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "liquidator"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Chain: ChainConfig{
			Driver:   getEnv("CHAIN_DRIVER", "sim"),
			Endpoint: getEnv("CHAIN_ENDPOINT", ""),
		},
		Engine: EngineConfig{
			AccountRefreshInterval: getEnvAsDuration("ACCOUNT_REFRESH_INTERVAL", 5*time.Second),
			PriceRefreshInterval:   getEnvAsDuration("PRICE_REFRESH_INTERVAL", 1*time.Second),
			RetryPauses:            pauses,

			RipeThreshold:       getEnvAsDecimal("RIPE_THRESHOLD", "1.05"),
			WorthwhileThreshold: getEnvAsDecimal("WORTHWHILE_THRESHOLD", "1"),

			Targets:          targets,
			ActionThreshold:  getEnvAsDecimal("ACTION_THRESHOLD", "0.01"),
			AdjustmentFactor: getEnvAsDecimal("ADJUSTMENT_FACTOR", "0.005"),

			DryRun: getEnvAsBool("DRY_RUN", true),

			MaxConsecutiveFailures: getEnvAsInt("MAX_CONSECUTIVE_FAILURES", 5),
			StaleAccountsAfter:     getEnvAsDuration("STALE_ACCOUNTS_AFTER", 60*time.Second),
			StalePricesAfter:       getEnvAsDuration("STALE_PRICES_AFTER", 30*time.Second),
			HealthCheckInterval:    getEnvAsDuration("HEALTH_CHECK_INTERVAL", 1*time.Second),

			EventRetention: getEnvAsInt("EVENT_RETENTION", 1000),
		},
		Notifications: NotificationsConfig{
			TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
			TelegramChatID: getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		},
		Security: SecurityConfig{
			APITokenHash: getEnv("API_TOKEN_HASH", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// Боевой режим без auth на API - ошибка конфигурации
	if !c.Engine.DryRun && c.Security.APITokenHash == "" {
		return fmt.Errorf("API_TOKEN_HASH is required when DRY_RUN is disabled")
	}

	// Telegram настраивается парой: токен без чата бесполезен
	if c.Notifications.TelegramToken != "" && c.Notifications.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Engine.AccountRefreshInterval <= 0 {
		return fmt.Errorf("ACCOUNT_REFRESH_INTERVAL must be positive, got %v", c.Engine.AccountRefreshInterval)
	}

	if c.Engine.PriceRefreshInterval <= 0 {
		return fmt.Errorf("PRICE_REFRESH_INTERVAL must be positive, got %v", c.Engine.PriceRefreshInterval)
	}

	if c.Engine.RipeThreshold.Sign() <= 0 {
		return fmt.Errorf("RIPE_THRESHOLD must be positive, got %s", c.Engine.RipeThreshold)
	}

	if c.Engine.WorthwhileThreshold.Sign() < 0 {
		return fmt.Errorf("WORTHWHILE_THRESHOLD cannot be negative, got %s", c.Engine.WorthwhileThreshold)
	}

	// ActionThreshold - доля от стоимости кошелька
	one := decimal.NewFromInt(1)
	if c.Engine.ActionThreshold.Sign() < 0 || c.Engine.ActionThreshold.GreaterThan(one) {
		return fmt.Errorf("ACTION_THRESHOLD must be between 0 and 1, got %s", c.Engine.ActionThreshold)
	}

	if c.Engine.AdjustmentFactor.Sign() < 0 || c.Engine.AdjustmentFactor.GreaterThan(one) {
		return fmt.Errorf("ADJUSTMENT_FACTOR must be between 0 and 1, got %s", c.Engine.AdjustmentFactor)
	}

	if c.Engine.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("MAX_CONSECUTIVE_FAILURES must be at least 1, got %d", c.Engine.MaxConsecutiveFailures)
	}

	if c.Engine.EventRetention < 0 {
		return fmt.Errorf("EVENT_RETENTION cannot be negative, got %d", c.Engine.EventRetention)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(key string, defaultValue string) decimal.Decimal {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return decimal.RequireFromString(defaultValue)
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.RequireFromString(defaultValue)
	}
	return value
}
