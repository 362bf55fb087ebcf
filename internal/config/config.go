package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ESTIMATOR"

// Config holds application configuration sourced from config.yaml, .env and
// environment variables, in increasing order of precedence.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	DB         DBConfig         `mapstructure:"db"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
	Log        LogConfig        `mapstructure:"log"`
	Session    SessionConfig    `mapstructure:"session"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
}

// AppConfig names the deployment environment. "dev" enables
// migrations on start.
type AppConfig struct {
	Env string `mapstructure:"env"`
}

// HTTPConfig is the listening port of the API server.
type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

// DBConfig locates the sqlite database file.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// MigrationsConfig locates the goose migration files.
type MigrationsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LogConfig sets the zap level and output format (json or console).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SessionConfig selects the session backend (memory or redis) and the idle
// TTL. A zero TTL keeps sessions forever.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig is used when the session backend is redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CatalogConfig controls seeding of the default catalog at startup.
type CatalogConfig struct {
	Seed bool `mapstructure:"seed"`
}

// IsDev reports whether the app runs in the development environment.
func (c Config) IsDev() bool {
	return c.App.Env == "dev"
}

// Load reads ./.env and ./config.yaml when present and applies environment
// overrides such as ESTIMATOR_HTTP_PORT.
func Load() (Config, error) {
	return load(".env", ".")
}

func load(envFile string, configPaths ...string) (Config, error) {
	// Existing environment variables win over the file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("http.port", "8080")
	v.SetDefault("db.path", "./dev.db")
	v.SetDefault("migrations.dir", "migrations")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("catalog.seed", true)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when session.backend is redis")
		}
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend)
	}
	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must not be negative")
	}
	if c.HTTP.Port == "" {
		return fmt.Errorf("http.port is required")
	}
	return nil
}
