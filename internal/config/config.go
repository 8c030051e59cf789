package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Seed       SeedConfig       `yaml:"seed"`
	Export     ExportConfig     `yaml:"export"`
}

type AppConfig struct {
	Name        string `yaml:"name" env:"LABRESERVE_APP_NAME"`
	Environment string `yaml:"environment" env:"LABRESERVE_ENV"`
	Version     string `yaml:"version" env:"LABRESERVE_VERSION"`
}

type DatabaseConfig struct {
	Driver        string         `yaml:"driver" env:"LABRESERVE_DB_DRIVER"`
	Path          string         `yaml:"path" env:"LABRESERVE_DB_PATH"`
	BusyTimeoutMS int            `yaml:"busy_timeout_ms"`
	MaxOpenConns  int            `yaml:"max_open_conns"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env:"LABRESERVE_PG_HOST"`
	Port     int    `yaml:"port" env:"LABRESERVE_PG_PORT"`
	User     string `yaml:"user" env:"LABRESERVE_PG_USER"`
	Password string `yaml:"password" env:"LABRESERVE_PG_PASSWORD"`
	DBName   string `yaml:"dbname" env:"LABRESERVE_PG_DBNAME"`
	SSLMode  string `yaml:"sslmode" env:"LABRESERVE_PG_SSLMODE"`
}

// DSN renders the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	Address  string `yaml:"address" env:"LABRESERVE_REDIS_ADDR"`
	Password string `yaml:"password" env:"LABRESERVE_REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled" env:"LABRESERVE_PROMETHEUS_ENABLED"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" env:"LABRESERVE_LOG_LEVEL"`
	Format   string `yaml:"format" env:"LABRESERVE_LOG_FORMAT"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port         int           `yaml:"port" env:"LABRESERVE_HTTP_PORT"`
	Path         string        `yaml:"path"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type APIGRPCConfig struct {
	Enabled    bool `yaml:"enabled"`
	Port       int  `yaml:"port" env:"LABRESERVE_GRPC_PORT"`
	Reflection bool `yaml:"reflection"`
}

type APIRateLimitConfig struct {
	RPS    float64       `yaml:"rps"`
	Burst  int           `yaml:"burst"`
	Window time.Duration `yaml:"window"`
}

type APICORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin"`
}

type SeedConfig struct {
	LaboratoriesPath string `yaml:"laboratories_path" env:"LABRESERVE_LABORATORIES_PATH"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case DriverPostgres:
		if c.Database.Postgres.Host == "" || c.Database.Postgres.DBName == "" {
			return errors.New("postgres host and dbname are required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.API.RateLimit.RPS < 0 {
		return errors.New("api.rate_limit.rps must not be negative")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "labreserve"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.Path == "" {
		c.API.HTTP.Path = "/api/bookings"
	}
	if c.API.HTTP.ReadTimeout == 0 {
		c.API.HTTP.ReadTimeout = 5 * time.Second
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.RateLimit.RPS > 0 && c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 5
	}
	if c.API.RateLimit.Window == 0 {
		c.API.RateLimit.Window = time.Second
	}
	if c.API.CORS.AllowedOrigin == "" {
		c.API.CORS.AllowedOrigin = "*"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Export.Path == "" {
		c.Export.Path = "exports"
	}
}
