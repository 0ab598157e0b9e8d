// Пакет config — загрузка и валидация конфигурации Sign Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Sign Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Публичный базовый URL сервиса (для ссылок приглашений)
	PublicBaseURL string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
	// Максимальный размер пула подключений pgx
	DBMaxConns int

	// --- Blob-хранилище ---

	// Директория хранения PDF-файлов (SM_DATA_DIR)
	DataDir string

	// --- JWT / JWKS ---

	// URL JWKS endpoint провайдера идентичности
	JWTJWKSURL string
	// Ожидаемый issuer JWT (пусто — не проверять)
	JWTIssuer string
	// Путь к CA-сертификату для TLS к JWKS (опционально)
	JWTCACertPath string
	// Допустимое отклонение времени при валидации JWT
	JWTLeeway time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration

	// --- Приглашения подписантов ---

	// Секрет подписи invite-токенов (HS256), обязателен
	InviteSecret string
	// Время жизни invite-токена (по умолчанию 48h)
	InviteTTL time.Duration

	// --- Кэш метаданных документов ---

	// Максимальное количество записей LRU-кэша
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Аудит ---

	// Размер очереди асинхронного аудит-рекордера
	AuditQueueSize int

	// --- Dephealth (topologymetrics) ---

	// Имя группы в метриках графа зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для входной вершины графа
	DephealthIsEntry bool
}

// DatabaseDSN возвращает DSN подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("SM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("SM_PORT: %w", err)
	}

	// SM_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("SM_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("SM_LOG_LEVEL: %w", err)
	}

	// SM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// SM_PUBLIC_BASE_URL — публичный базовый URL (для invite-ссылок)
	cfg.PublicBaseURL = getEnvDefault("SM_PUBLIC_BASE_URL", "http://localhost:8040")

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("SM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("SM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("SM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// SM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("SM_DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("SM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SM_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("SM_DB_NAME", "docsign")
	cfg.DBUser, err = getEnvRequired("SM_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("SM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("SM_DB_SSL_MODE", "disable")

	// SM_DB_MAX_CONNS — максимальный размер пула подключений (по умолчанию 8)
	cfg.DBMaxConns, err = getEnvInt("SM_DB_MAX_CONNS", 8)
	if err != nil {
		return nil, fmt.Errorf("SM_DB_MAX_CONNS: %w", err)
	}
	if cfg.DBMaxConns < 1 {
		return nil, fmt.Errorf("SM_DB_MAX_CONNS: значение должно быть >= 1")
	}

	// --- Blob-хранилище ---

	cfg.DataDir = getEnvDefault("SM_DATA_DIR", "/var/lib/docsign/data")

	// --- JWT / JWKS ---

	cfg.JWTJWKSURL, err = getEnvRequired("SM_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("SM_JWT_ISSUER", "")
	cfg.JWTCACertPath = getEnvDefault("SM_JWT_CA_CERT", "")
	cfg.JWTLeeway, err = getEnvDuration("SM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("SM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("SM_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Приглашения ---

	cfg.InviteSecret, err = getEnvRequired("SM_INVITE_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.InviteTTL, err = getEnvDuration("SM_INVITE_TTL", 48*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SM_INVITE_TTL: %w", err)
	}

	// --- Кэш ---

	cfg.CacheSize, err = getEnvInt("SM_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("SM_CACHE_SIZE: %w", err)
	}
	cfg.CacheTTL, err = getEnvDuration("SM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_CACHE_TTL: %w", err)
	}

	// --- Аудит ---

	cfg.AuditQueueSize, err = getEnvInt("SM_AUDIT_QUEUE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("SM_AUDIT_QUEUE_SIZE: %w", err)
	}
	if cfg.AuditQueueSize < 1 {
		return nil, fmt.Errorf("SM_AUDIT_QUEUE_SIZE: значение должно быть >= 1")
	}

	// --- Dephealth ---

	cfg.DephealthGroup = getEnvDefault("SM_DEPHEALTH_GROUP", "docsign")
	cfg.DephealthCheckInterval, err = getEnvDuration("SM_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
