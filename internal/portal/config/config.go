// Управление конфигурацией сервиса редактора из переменных окружения.
//
// Основные возможности:
//   - Загрузка конфигурации из переменных окружения по тегам env.
//   - Значения по умолчанию через тег default.
//   - Маскировка секретных значений в логах.
//   - Проверка обязательных параметров и ограничение значений.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR" default:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" default:":2112"`
	// Токен доступа к API файлов для других порталов, пустой - без проверки
	APIToken string `env:"API_TOKEN"`

	SwaggerEnable bool `env:"SWAGGER"`

	WebURLRaw string `env:"WEB_URL"`
	WebURL    *url.URL

	DatabaseDSN string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	AWSAccessKey  string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey  string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint   string `env:"AWS_S3_ENDPOINT_URL"`
	AWSBucketName string `env:"AWS_S3_BUCKET_NAME" default:"portal-editor"`
	AWSUseSSL     bool   `env:"AWS_S3_USE_SSL"`

	// Файлы хранятся на другом портале, если задан адрес
	RemoteStorageURL   string `env:"REMOTE_STORAGE_URL"`
	RemoteStorageToken string `env:"REMOTE_STORAGE_TOKEN"`
	// Локальный каталог используется, если не задано ни S3, ни удаленное хранилище
	StorageDir string `env:"STORAGE_DIR" default:"./uploads"`

	EditorDebounceMs int `env:"EDITOR_DEBOUNCE_MS" default:"100"`
	UploadTimeoutSec int `env:"UPLOAD_TIMEOUT_SEC" default:"60"`
	MaxUploadSizeMB  int `env:"MAX_UPLOAD_SIZE_MB" default:"10"`
	MaxContentSizeMB int `env:"MAX_CONTENT_SIZE_MB" default:"16"`
	SessionIdleMin   int `env:"SESSION_IDLE_MIN" default:"30"`
	ContentCacheMin  int `env:"CONTENT_CACHE_TTL_MIN" default:"60"`
	ImageMaxSide     int `env:"IMAGE_MAX_SIDE" default:"2560"`

	LimiterPluginPath string `env:"LIMITER_PLUGIN"`
	LimiterURLRaw     string `env:"LIMITER_URL"`
	LimiterURL        *url.URL

	LegacyMigrationSchedule string `env:"LEGACY_MIGRATION_SCHEDULE"`
	LegacySources           string `env:"LEGACY_SOURCES"`
	MigrationWorkers        int    `env:"MIGRATION_WORKERS" default:"4"`
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.EditorDebounceMs) * time.Millisecond
}

func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutSec) * time.Second
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMin) * time.Minute
}

func (c *Config) ContentCacheTTL() time.Duration {
	return time.Duration(c.ContentCacheMin) * time.Minute
}

func (c *Config) MaxUploadSize() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

func (c *Config) MaxContentSize() int {
	return c.MaxContentSizeMB * 1024 * 1024
}

// ReadConfig загружает конфигурацию из переменных окружения и проверяет ее.
func ReadConfig() (*Config, error) {
	return readConfig(os.LookupEnv)
}

func readConfig(lookup func(string) (string, bool)) (*Config, error) {
	config := &Config{}

	if err := envConfig(config, lookup); err != nil {
		return nil, err
	}

	if config.WebURLRaw == "" {
		return nil, errors.New("WEB_URL is required")
	}
	var err error
	config.WebURL, err = url.Parse(config.WebURLRaw)
	if err != nil {
		return nil, fmt.Errorf("WEB_URL incorrect: %w", err)
	}

	if config.LimiterURLRaw != "" {
		config.LimiterURL, err = url.Parse(config.LimiterURLRaw)
		if err != nil {
			return nil, fmt.Errorf("LIMITER_URL incorrect: %w", err)
		}
	}

	if config.EditorDebounceMs <= 0 || config.EditorDebounceMs > 10000 {
		config.EditorDebounceMs = 100
	}
	if config.UploadTimeoutSec <= 0 {
		config.UploadTimeoutSec = 60
	}
	if config.SessionIdleMin <= 0 {
		config.SessionIdleMin = 30
	}
	if config.ImageMaxSide < 0 {
		config.ImageMaxSide = 0
	}
	if config.MigrationWorkers <= 0 {
		config.MigrationWorkers = 4
	}

	return config, nil
}

// envConfig присваивает полям структуры значения переменных окружения из тега env,
// при отсутствии переменной - значение из тега default.
func envConfig(s any, lookup func(string) (string, bool)) error {
	v := reflect.ValueOf(s).Elem()
	typeParam := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := typeParam.Field(i)
		envTag := field.Tag.Get("env")
		if envTag == "" {
			continue
		}

		value, ok := lookup(envTag)
		source := "ENVIRONMENT"
		if !ok || value == "" {
			value, ok = field.Tag.Lookup("default")
			source = "DEFAULT"
		}
		if !ok || value == "" {
			continue
		}

		if source == "ENVIRONMENT" {
			slog.Info("Set config value",
				slog.String("key", typeParam.Name()+"."+field.Name),
				slog.String("value", maskSecret(field.Name, value)),
				slog.String("source", source),
			)
		}

		switch v.Field(i).Kind() {
		case reflect.String:
			v.Field(i).SetString(value)
		case reflect.Int:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%s: expected integer, got %q", envTag, value)
			}
			v.Field(i).SetInt(int64(n))
		case reflect.Bool:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%s: expected boolean, got %q", envTag, value)
			}
			v.Field(i).SetBool(b)
		}
	}
	return nil
}

func maskSecret(name, value string) string {
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "pass") && !strings.Contains(lower, "secret") && !strings.Contains(lower, "token") && !strings.Contains(lower, "dsn") {
		return value
	}
	runes := []rune(value)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1])
}
