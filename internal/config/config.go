package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Valhalla ValhallaConfig `yaml:"valhalla" mapstructure:"valhalla"`
	Engine   EngineConfig   `yaml:"engine" mapstructure:"engine"`
	Assign   AssignConfig   `yaml:"assign" mapstructure:"assign"`
	Mot      MotConfig      `yaml:"mot" mapstructure:"mot"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the results database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ValhallaConfig configures the routing engine HTTP client.
type ValhallaConfig struct {
	BaseURL            string  `yaml:"base_url" mapstructure:"base_url"`
	MaxConnections     int     `yaml:"max_connections" mapstructure:"max_connections"`
	RequestTimeoutSecs int     `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	RequestsPerSec     float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// RequestTimeout returns the per-request timeout as a duration.
func (c ValhallaConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// EngineConfig configures the managed routing engine container.
type EngineConfig struct {
	Managed            bool   `yaml:"managed" mapstructure:"managed"`
	Image              string `yaml:"image" mapstructure:"image"`
	ContainerName      string `yaml:"container_name" mapstructure:"container_name"`
	DataDir            string `yaml:"data_dir" mapstructure:"data_dir"`
	Port               int    `yaml:"port" mapstructure:"port"`
	HealthIntervalSecs int    `yaml:"health_interval_secs" mapstructure:"health_interval_secs"`
	HealthTimeoutSecs  int    `yaml:"health_timeout_secs" mapstructure:"health_timeout_secs"`
}

// HealthInterval returns the poll interval as a duration.
func (c EngineConfig) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalSecs) * time.Second
}

// HealthTimeout returns the readiness deadline as a duration.
func (c EngineConfig) HealthTimeout() time.Duration {
	return time.Duration(c.HealthTimeoutSecs) * time.Second
}

// AssignConfig configures the pharmacy assignment selector.
type AssignConfig struct {
	Candidates int   `yaml:"candidates" mapstructure:"candidates"`
	Seed       int64 `yaml:"seed" mapstructure:"seed"`
}

// MotConfig configures mode-of-transport inference.
type MotConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"`
	Seed      int64  `yaml:"seed" mapstructure:"seed"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit"`
}

// ReportConfig configures result export.
type ReportConfig struct {
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PHARMALINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "pharmalink.db")
	v.SetDefault("valhalla.base_url", "http://localhost:8002")
	v.SetDefault("valhalla.max_connections", 100)
	v.SetDefault("valhalla.request_timeout_secs", 600)
	v.SetDefault("valhalla.requests_per_sec", 0)
	v.SetDefault("engine.managed", true)
	v.SetDefault("engine.image", "ghcr.io/gis-ops/docker-valhalla/valhalla:latest")
	v.SetDefault("engine.container_name", "pharmalink-valhalla-server")
	v.SetDefault("engine.data_dir", "valhalla_data")
	v.SetDefault("engine.port", 8002)
	v.SetDefault("engine.health_interval_secs", 2)
	v.SetDefault("engine.health_timeout_secs", 300)
	v.SetDefault("assign.candidates", 3)
	v.SetDefault("assign.seed", 0)
	v.SetDefault("mot.seed", 0)
	v.SetDefault("batch.limit", 0)
	v.SetDefault("report.output_path", "trips.xlsx")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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
