package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lineage-cli/internal/auth"
	"github.com/sells-group/lineage-cli/internal/db"
	"github.com/sells-group/lineage-cli/internal/ingest"
	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

// Config holds the full application configuration.
type Config struct {
	Lineage   LineageConfig   `yaml:"lineage" mapstructure:"lineage"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LineageConfig configures the lineage API client and traversals.
type LineageConfig struct {
	Project     string      `yaml:"project" mapstructure:"project"`
	Region      string      `yaml:"region" mapstructure:"region"`
	BaseURL     string      `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int         `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64     `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int         `yaml:"burst" mapstructure:"burst"`
	MaxDepth    int         `yaml:"max_depth" mapstructure:"max_depth"`
	MaxQueries  int         `yaml:"max_queries" mapstructure:"max_queries"`
	Retry       RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// Location returns the project/region pair lineage resources live under.
func (c LineageConfig) Location() datalineage.Location {
	return datalineage.Location{Project: c.Project, Region: c.Region}
}

// RetryConfig configures retries of transient API failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// AuthConfig configures how bearer tokens are obtained.
type AuthConfig struct {
	// Token is a static bearer token. When set the broker is never run.
	Token           string `yaml:"token" mapstructure:"token"`
	BrokerCommand   string `yaml:"broker_command" mapstructure:"broker_command"`
	TokenTTLSecs    int    `yaml:"token_ttl_secs" mapstructure:"token_ttl_secs"`
	ExpiryDeltaSecs int    `yaml:"expiry_delta_secs" mapstructure:"expiry_delta_secs"`
}

// TokenOptions converts the section into auth options.
func (c AuthConfig) TokenOptions() auth.Options {
	return auth.Options{
		Token:       c.Token,
		Command:     strings.Fields(c.BrokerCommand),
		TTL:         time.Duration(c.TokenTTLSecs) * time.Second,
		ExpiryDelta: time.Duration(c.ExpiryDeltaSecs) * time.Second,
	}
}

// StorageConfig configures where extract files are read from.
type StorageConfig struct {
	Driver       string `yaml:"driver" mapstructure:"driver"`
	Bucket       string `yaml:"bucket" mapstructure:"bucket"`
	Region       string `yaml:"region" mapstructure:"region"`
	Endpoint     string `yaml:"endpoint" mapstructure:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
	LocalRoot    string `yaml:"local_root" mapstructure:"local_root"`
	URIScheme    string `yaml:"uri_scheme" mapstructure:"uri_scheme"`
}

// WarehouseConfig configures the load target.
type WarehouseConfig struct {
	DatabaseURL  string        `yaml:"database_url" mapstructure:"database_url"`
	Schema       string        `yaml:"schema" mapstructure:"schema"`
	TargetPrefix string        `yaml:"target_prefix" mapstructure:"target_prefix"`
	Project      string        `yaml:"project" mapstructure:"project"`
	Pool         db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// IngestConfig configures the extract loader.
type IngestConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Upstream    string `yaml:"upstream" mapstructure:"upstream"`
	// Families are matched in order; the first suffix match wins.
	Families []ingest.Family `yaml:"families" mapstructure:"families"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (if present) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and environment. An empty path
// falls back to an optional ./config.yaml; a named file must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("LINEAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("lineage.timeout_secs", 30)
	v.SetDefault("lineage.rate_per_sec", 10)
	v.SetDefault("lineage.burst", 10)
	v.SetDefault("lineage.max_depth", 64)
	v.SetDefault("lineage.max_queries", 10000)
	v.SetDefault("lineage.retry.max_attempts", 3)
	v.SetDefault("lineage.retry.initial_backoff_ms", 500)
	v.SetDefault("lineage.retry.max_backoff_ms", 10000)
	v.SetDefault("auth.broker_command", strings.Join(auth.DefaultBrokerCommand, " "))
	v.SetDefault("auth.token_ttl_secs", 3300)
	v.SetDefault("auth.expiry_delta_secs", 60)
	v.SetDefault("storage.driver", "s3")
	v.SetDefault("storage.uri_scheme", "gs")
	v.SetDefault("warehouse.target_prefix", "bigquery:")
	v.SetDefault("ingest.concurrency", 4)
	v.SetDefault("ingest.batch_size", 5000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Env-only keys need binding so AutomaticEnv sees them during Unmarshal.
	for _, key := range []string{
		"lineage.project", "lineage.region", "lineage.base_url",
		"auth.token",
		"storage.bucket", "storage.region", "storage.endpoint", "storage.use_path_style", "storage.local_root",
		"warehouse.database_url", "warehouse.schema", "warehouse.project",
		"ingest.upstream",
	} {
		_ = v.BindEnv(key)
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode needs. Modes are
// "record", "trace", "ingest" and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "record", "trace", "ingest", "serve":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Lineage.Project == "" {
		errs = append(errs, "lineage.project is required")
	}
	if c.Lineage.Region == "" {
		errs = append(errs, "lineage.region is required")
	}
	if c.Lineage.RatePerSec <= 0 {
		errs = append(errs, "lineage.rate_per_sec must be > 0")
	}
	if c.Lineage.Retry.MaxAttempts < 1 {
		errs = append(errs, "lineage.retry.max_attempts must be >= 1")
	}

	switch mode {
	case "ingest":
		if c.Warehouse.DatabaseURL == "" {
			errs = append(errs, "warehouse.database_url is required")
		}
		if c.Warehouse.Schema == "" && !familiesHaveSchema(c.Ingest.Families) {
			errs = append(errs, "warehouse.schema is required")
		}
		switch c.Storage.Driver {
		case "s3":
			if c.Storage.Bucket == "" {
				errs = append(errs, "storage.bucket is required")
			}
		case "local":
			if c.Storage.LocalRoot == "" {
				errs = append(errs, "storage.local_root is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("storage.driver %q must be s3 or local", c.Storage.Driver))
		}
		if len(c.Ingest.Families) == 0 {
			errs = append(errs, "ingest.families must not be empty")
		}
		if c.Ingest.Concurrency < 1 || c.Ingest.Concurrency > 64 {
			errs = append(errs, "ingest.concurrency must be between 1 and 64")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func familiesHaveSchema(families []ingest.Family) bool {
	if len(families) == 0 {
		return false
	}
	for _, f := range families {
		if f.Schema == "" {
			return false
		}
	}
	return true
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
