// Package config loads service configuration from an optional .env file and
// the environment through viper.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
	Breaker  BreakerConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// AllowedOrigins lists the CORS origins allowed to call the API. It
	// defaults to the service's own localhost origin.
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type LedgerConfig struct {
	// MaxRetries bounds optimistic-concurrency retries after the first attempt.
	MaxRetries int
	// Store is "memory" or "postgres".
	Store string
	// KeyScheme is "hash" or "concat".
	KeyScheme   string
	EventsQueue string
}

type BreakerConfig struct {
	Enabled             bool
	ConsecutiveFailures uint32
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

var envBindings = map[string]string{
	"server.port":                  "PORT",
	"server.allowed_origins":       "ALLOWED_ORIGINS",
	"database.host":                "DATABASE_HOST",
	"database.port":                "DATABASE_PORT",
	"database.user":                "DATABASE_USER",
	"database.password":            "DATABASE_PASSWORD",
	"database.name":                "DATABASE_NAME",
	"database.ssl_mode":            "DATABASE_SSL_MODE",
	"database.auto_migrate":        "DATABASE_AUTO_MIGRATE",
	"redis.enabled":                "REDIS_ENABLED",
	"redis.host":                   "REDIS_HOST",
	"redis.port":                   "REDIS_PORT",
	"redis.password":               "REDIS_PASSWORD",
	"redis.db":                     "REDIS_DB",
	"ledger.max_retries":           "LEDGER_MAX_RETRIES",
	"ledger.store":                 "LEDGER_STORE",
	"ledger.key_scheme":            "LEDGER_KEY_SCHEME",
	"ledger.events_queue":          "LEDGER_EVENTS_QUEUE",
	"breaker.enabled":              "BREAKER_ENABLED",
	"breaker.consecutive_failures": "BREAKER_CONSECUTIVE_FAILURES",
	"breaker.timeout":              "BREAKER_TIMEOUT",
	"log.level":                    "LOG_LEVEL",
	"log.format":                   "LOG_FORMAT",
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "bank_ledger")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ledger.max_retries", 5)
	v.SetDefault("ledger.store", "memory")
	v.SetDefault("ledger.key_scheme", "hash")
	v.SetDefault("ledger.events_queue", "ledger_events")

	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", 0)
	v.SetDefault("breaker.timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads envFile if present, lets environment variables override it and
// returns the resulting Config. A missing file is not an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
		// .env keys arrive flat (DATABASE_HOST); lift them under their dotted
		// names as defaults so real environment variables still win.
		for key, env := range envBindings {
			if flat := strings.ToLower(env); v.InConfig(flat) {
				v.SetDefault(key, v.Get(flat))
			}
		}
	}

	return FromViper(v), nil
}

// FromViper materialises a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	port := v.GetString("server.port")
	origins := splitList(v.GetStringSlice("server.allowed_origins"))
	if len(origins) == 0 {
		origins = []string{"http://localhost:" + port}
	}

	return &Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  origins,
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Ledger: LedgerConfig{
			MaxRetries:  v.GetInt("ledger.max_retries"),
			Store:       v.GetString("ledger.store"),
			KeyScheme:   v.GetString("ledger.key_scheme"),
			EventsQueue: v.GetString("ledger.events_queue"),
		},
		Breaker: BreakerConfig{
			Enabled:             v.GetBool("breaker.enabled"),
			ConsecutiveFailures: v.GetUint32("breaker.consecutive_failures"),
			MaxRequests:         v.GetUint32("breaker.max_requests"),
			Interval:            v.GetDuration("breaker.interval"),
			Timeout:             v.GetDuration("breaker.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

// splitList flattens comma or whitespace separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
