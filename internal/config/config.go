package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Cache       CacheConfig
	CatalogueDB CatalogueDBConfig
	Upstream    UpstreamConfig
	Sync        SyncConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"offerhub-catalogue-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// CacheConfig holds Redis settings for the access-token cache.
type CacheConfig struct {
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// CatalogueDBConfig holds catalogue database settings.
type CatalogueDBConfig struct {
	Type string `envconfig:"CATALOGUE_DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"CATALOGUE_DB_PATH" default:"./data/catalogue.db"`
	// MySQL settings
	Host     string `envconfig:"CATALOGUE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"CATALOGUE_DB_PORT" default:"3306"`
	Name     string `envconfig:"CATALOGUE_DB_NAME" default:"catalogue"`
	User     string `envconfig:"CATALOGUE_DB_USER" default:"root"`
	Password string `envconfig:"CATALOGUE_DB_PASS" default:""`
}

// UpstreamConfig holds settings for the external offers provider.
type UpstreamConfig struct {
	BaseURL      string        `envconfig:"OFFERS_SERVICE_BASE_URL" required:"true"`
	RefreshToken string        `envconfig:"OFFERS_SERVICE_REFRESH_TOKEN" required:"true"`
	Timeout      time.Duration `envconfig:"OFFERS_SERVICE_TIMEOUT" default:"10s"`
}

// SyncConfig holds offer reconciliation scheduling settings.
type SyncConfig struct {
	Enabled  bool          `envconfig:"SYNC_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"SYNC_INTERVAL" default:"1m"`
}

// MySQLDSN returns the MySQL data source name for the catalogue database.
func (c *CatalogueDBConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Name)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
