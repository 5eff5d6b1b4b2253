package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Customers CustomersConfig `yaml:"customers"`
	Events    EventsConfig    `yaml:"events"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	// Isolation is "serializable" or "read_committed". The latter makes the
	// scheduler take per-table advisory locks instead.
	Isolation string `yaml:"isolation"`
	LogLevel  string `yaml:"log_level"`
	// EnableConstraints adds postgres CHECK constraints mirroring the
	// geometry and party rules.
	EnableConstraints bool `yaml:"enable_constraints"`
}

// SchedulerConfig controls the reservation conflict rules.
type SchedulerConfig struct {
	// ServiceDurationMinutes is a pointer so an explicit 0 survives defaults.
	// Zero or negative means only identical timestamps conflict.
	ServiceDurationMinutes *int          `yaml:"service_duration_minutes"`
	ServiceDuration        time.Duration `yaml:"-"`
	HorizonPastDays        int           `yaml:"horizon_past_days"`
	HorizonFutureDays      int           `yaml:"horizon_future_days"`
	SlotCacheTTLSeconds    int           `yaml:"slot_cache_ttl_seconds"`
	RetryAttempts          int           `yaml:"retry_attempts"`
}

// CustomersConfig controls the customer directory boundary.
type CustomersConfig struct {
	NormalizePhone bool `yaml:"normalize_phone"`
}

// EventsConfig controls publishing of reservation events to RabbitMQ.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	AMQPURL string `yaml:"amqp_url"`
	Queue   string `yaml:"queue"`
}

// Load reads the configuration from the given path. A .env file in the
// working directory, when present, is loaded first so that environment
// overrides can live next to the binary.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load .env: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.Events.AMQPURL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	switch cfg.Database.Isolation {
	case "serializable", "read_committed":
	case "":
		cfg.Database.Isolation = "serializable"
	default:
		log.Printf("database.isolation %q is not supported; defaulting to serializable", cfg.Database.Isolation)
		cfg.Database.Isolation = "serializable"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	// Only an absent duration gets the default; 0 and negatives are kept.
	if cfg.Scheduler.ServiceDurationMinutes == nil {
		minutes := 120
		cfg.Scheduler.ServiceDurationMinutes = &minutes
	}
	cfg.Scheduler.ServiceDuration = time.Duration(*cfg.Scheduler.ServiceDurationMinutes) * time.Minute
	if cfg.Scheduler.SlotCacheTTLSeconds <= 0 {
		cfg.Scheduler.SlotCacheTTLSeconds = 600
	}
	if cfg.Scheduler.RetryAttempts <= 0 {
		log.Printf("scheduler.retry_attempts is not set or invalid; defaulting to 1")
		cfg.Scheduler.RetryAttempts = 1
	}

	if cfg.Events.Queue == "" {
		cfg.Events.Queue = "seating.reservations"
	}
}
