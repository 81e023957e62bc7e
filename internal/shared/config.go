package shared

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names an optional YAML file layered between the defaults
// and the environment.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	AppEnv      string `koanf:"app_env"`
	LogLevel    string `koanf:"log_level"`
	HTTPAddr    string `koanf:"http_addr" validate:"required"`
	MetricsAddr string `koanf:"metrics_addr"`

	CatalogBackend string `koanf:"catalog_backend" validate:"oneof=mysql memory"`
	CatalogFixture string `koanf:"catalog_fixture" validate:"required_if=CatalogBackend memory"`
	MySQLDSN       string `koanf:"mysql_dsn" validate:"required_if=CatalogBackend mysql"`
	SeedWorkers    int    `koanf:"seed_workers" validate:"min=1"`

	RedisAddr string        `koanf:"redis_addr"`
	RedisPass string        `koanf:"redis_password"`
	RedisDB   int           `koanf:"redis_db" validate:"min=0"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`

	RateLimitEnabled bool          `koanf:"rate_limit_enabled"`
	RateLimitWindow  time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitMax     int64         `koanf:"rate_limit_max_requests" validate:"min=1"`

	APIKeyPrefix   string        `koanf:"api_key_prefix"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

func defaultConfig() Config {
	return Config{
		AppEnv:           "prod",
		LogLevel:         "info",
		HTTPAddr:         ":8080",
		MetricsAddr:      ":9100",
		CatalogBackend:   "mysql",
		CatalogFixture:   "fixtures/catalog.json",
		MySQLDSN:         "root:root@tcp(localhost:3306)/catalog?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		SeedWorkers:      4,
		RedisAddr:        "localhost:6379",
		CacheTTL:         15 * time.Minute,
		RateLimitEnabled: true,
		RateLimitWindow:  time.Minute,
		RateLimitMax:     100,
		APIKeyPrefix:     "osk_",
		CORSOrigins:      []string{"*"},
		RequestTimeout:   10 * time.Second,
	}
}

// Load layers struct defaults, the optional CONFIG_PATH YAML file and the
// environment, in that order of precedence (env wins). Variable names are the
// upper-case keys, e.g. RATE_LIMIT_WINDOW=30s.
func Load() (Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(&defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if err := splitList(k, "cors_origins"); err != nil {
		return Config{}, err
	}

	var c Config
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// splitList turns a comma-separated env value into a slice; YAML lists pass
// through untouched.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}
