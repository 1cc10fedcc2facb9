// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/atlas/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Engine     EngineConfig       `mapstructure:"engine"`
	Layers     []domain.LayerSpec `mapstructure:"layers"`
	Clustering ClusteringConfig   `mapstructure:"clustering"`
	Render     RenderConfig       `mapstructure:"render"`
	Results    ResultsConfig      `mapstructure:"results"`
	Watcher    WatcherConfig      `mapstructure:"watcher"`
	Server     ServerConfig       `mapstructure:"server"`
	Metrics    MetricsConfig      `mapstructure:"metrics"`
	Logging    LoggingConfig      `mapstructure:"logging"`
}

// EngineConfig selects the rendering engine.
type EngineConfig struct {
	Kind         string  `mapstructure:"kind"` // planar, globe
	HitTolerance float64 `mapstructure:"hit_tolerance"`
}

// ClusteringConfig holds cluster engine configuration.
type ClusteringConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	ThresholdMeters float64 `mapstructure:"threshold_meters"`
	SelectedColor   string  `mapstructure:"selected_color"`
}

// RenderConfig holds geometry rendering configuration.
type RenderConfig struct {
	DefaultColor  string `mapstructure:"default_color"`
	StrictHandles bool   `mapstructure:"strict_handles"`
}

// ResultsConfig holds result loading configuration.
type ResultsConfig struct {
	Source         string           `mapstructure:"source"` // storage, geopackage
	Storage        StorageConfig    `mapstructure:"storage"`
	GeoPackage     GeoPackageConfig `mapstructure:"geopackage"`
	ReloadInterval time.Duration    `mapstructure:"reload_interval"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string      `mapstructure:"type"` // s3, azure, http, local
	LocalPath string      `mapstructure:"local_path"`
	S3        S3Config    `mapstructure:"s3"`
	Azure     AzureConfig `mapstructure:"azure"`
	HTTP      HTTPConfig  `mapstructure:"http"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Prefix           string `mapstructure:"prefix"`
}

// HTTPConfig holds HTTP download configuration.
type HTTPConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	IndexFile string        `mapstructure:"index_file"` // default: index.txt
	Timeout   time.Duration `mapstructure:"timeout"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
}

// GeoPackageConfig holds GeoPackage result source configuration. With Key
// set the package is fetched from the configured storage into Path.
type GeoPackageConfig struct {
	Path        string `mapstructure:"path"`
	Key         string `mapstructure:"key"`
	Table       string `mapstructure:"table"`
	IDColumn    string `mapstructure:"id_column"`
	ColorColumn string `mapstructure:"color_column"`
}

// WatcherConfig holds hot reload configuration.
type WatcherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values.
func Defaults(v *viper.Viper) {
	v.SetDefault("engine.kind", string(domain.EnginePlanar))
	v.SetDefault("engine.hit_tolerance", 50.0)

	v.SetDefault("clustering.enabled", true)
	v.SetDefault("clustering.threshold_meters", 50.0)
	v.SetDefault("clustering.selected_color", "#f5a623")

	v.SetDefault("render.default_color", "#3388ff")
	v.SetDefault("render.strict_handles", false)

	v.SetDefault("results.source", "storage")
	v.SetDefault("results.storage.type", "local")
	v.SetDefault("results.storage.local_path", "./results")
	v.SetDefault("results.storage.http.index_file", "index.txt")
	v.SetDefault("results.storage.http.timeout", time.Minute)
	v.SetDefault("results.geopackage.id_column", "fid")
	v.SetDefault("results.reload_interval", time.Duration(0))

	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce", 500*time.Millisecond)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "atlas")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// New returns a viper instance with defaults and ATLAS_ environment binding.
func New() *viper.Viper {
	v := viper.New()
	Defaults(v)
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load loads configuration from environment and config file.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/atlas")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch domain.EngineKind(c.Engine.Kind) {
	case domain.EnginePlanar, domain.EngineGlobe:
	default:
		return fmt.Errorf("unknown engine: %s", c.Engine.Kind)
	}

	if c.Clustering.ThresholdMeters <= 0 {
		return fmt.Errorf("invalid clustering threshold: %v", c.Clustering.ThresholdMeters)
	}
	if _, err := domain.ParseColor(c.Clustering.SelectedColor); err != nil {
		return fmt.Errorf("clustering selected_color: %w", err)
	}
	if _, err := domain.ParseColor(c.Render.DefaultColor); err != nil {
		return fmt.Errorf("render default_color: %w", err)
	}

	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Results.Source {
	case "storage":
		return c.Results.Storage.Validate()
	case "geopackage":
		if c.Results.GeoPackage.Path == "" {
			return fmt.Errorf("geopackage path is required")
		}
		if c.Results.GeoPackage.Key != "" {
			return c.Results.Storage.Validate()
		}
		return nil
	default:
		return fmt.Errorf("unknown results source: %s", c.Results.Source)
	}
}

// Validate validates the storage backend settings.
func (c *StorageConfig) Validate() error {
	switch c.Type {
	case "local":
		if c.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required")
		}
	case "azure":
		if c.Azure.Container == "" {
			return fmt.Errorf("azure container is required")
		}
		if c.Azure.AccountName == "" && c.Azure.ConnectionString == "" {
			return fmt.Errorf("azure account name or connection string is required")
		}
	case "http":
		if c.HTTP.BaseURL == "" {
			return fmt.Errorf("HTTP base URL is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Type)
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
