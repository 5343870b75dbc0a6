package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	PurgeCascade  = "cascade"
	PurgeDeferred = "deferred"
	PurgeRetain   = "retain"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	StoreDriver string `mapstructure:"STORE_DRIVER" validate:"required,oneof=postgres memory"`
	DatabaseURL string `mapstructure:"DATABASE_URL" validate:"required_if=StoreDriver postgres"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int    `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`
	OrphanSweepSpec  string `mapstructure:"ORPHAN_SWEEP_SPEC"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	JWTSecret     string `mapstructure:"JWT_SECRET" validate:"required,min=16"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL" validate:"required,url"`

	VersionPurgePolicy string `mapstructure:"VERSION_PURGE_POLICY" validate:"required,oneof=cascade deferred retain"`

	RateLimitBackend string        `mapstructure:"RATE_LIMIT_BACKEND" validate:"required,oneof=memory redis"`
	RateLimitWindow  time.Duration `mapstructure:"RATE_LIMIT_WINDOW" validate:"required"`
	AIRateLimit      int           `mapstructure:"AI_RATE_LIMIT" validate:"gte=1"`
	ShareRateLimit   int           `mapstructure:"SHARE_RATE_LIMIT" validate:"gte=1"`
	GlobalRPS        float64       `mapstructure:"GLOBAL_RPS" validate:"gt=0"`
	GlobalBurst      int           `mapstructure:"GLOBAL_BURST" validate:"gte=1"`

	GeminiAPIKeys []string `mapstructure:"GEMINI_API_KEYS"`
	GeminiModels  []string `mapstructure:"GEMINI_MODELS" validate:"min=1,dive,required"`

	OtelEnabled     bool   `mapstructure:"OTEL_ENABLED"`
	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME" validate:"required"`
}

// IsDevelopment reports whether the app runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var keys = []string{
	"APP_ENV",
	"HTTP_ADDR",
	"SHUTDOWN_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
	"STORE_DRIVER",
	"DATABASE_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"ASYNQ_CONCURRENCY",
	"ORPHAN_SWEEP_SPEC",
	"GOMAXPROCS",
	"JWT_SECRET",
	"PUBLIC_BASE_URL",
	"VERSION_PURGE_POLICY",
	"RATE_LIMIT_BACKEND",
	"RATE_LIMIT_WINDOW",
	"AI_RATE_LIMIT",
	"SHARE_RATE_LIMIT",
	"GLOBAL_RPS",
	"GLOBAL_BURST",
	"GEMINI_API_KEYS",
	"GEMINI_MODELS",
	"OTEL_ENABLED",
	"OTEL_SERVICE_NAME",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("ORPHAN_SWEEP_SPEC", "@every 1h")
	v.SetDefault("GOMAXPROCS", 0)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("VERSION_PURGE_POLICY", PurgeCascade)
	v.SetDefault("RATE_LIMIT_BACKEND", "memory")
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("AI_RATE_LIMIT", 30)
	v.SetDefault("SHARE_RATE_LIMIT", 60)
	v.SetDefault("GLOBAL_RPS", 20)
	v.SetDefault("GLOBAL_BURST", 40)
	v.SetDefault("GEMINI_MODELS", "gemini-2.5-flash,gemini-2.5-pro,gemini-2.5-flash-lite")
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "logicflow-engine")

	_ = v.ReadInConfig()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	// Durations and lists may arrive as plain strings from the environment.
	for key, dst := range map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT":  &c.ShutdownTimeout,
		"RATE_LIMIT_WINDOW": &c.RateLimitWindow,
	} {
		if s := v.GetString(key); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
	}
	c.GeminiAPIKeys = splitList(v.GetString("GEMINI_API_KEYS"))
	c.GeminiModels = splitList(v.GetString("GEMINI_MODELS"))

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if c.OrphanSweepSpec != "" {
		if _, err := cron.ParseStandard(c.OrphanSweepSpec); err != nil {
			return nil, fmt.Errorf("invalid ORPHAN_SWEEP_SPEC: %w", err)
		}
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}
