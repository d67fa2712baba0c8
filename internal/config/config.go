package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stratabase/borecore/internal/blob"
	"github.com/stratabase/borecore/internal/directory"
)

// Config holds the full application configuration.
type Config struct {
	Blob      blob.Config      `yaml:"blob" mapstructure:"blob"`
	Directory directory.Config `yaml:"directory" mapstructure:"directory"`
	Catalog   CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Log       LogConfig        `yaml:"log" mapstructure:"log"`
}

// CatalogConfig tunes scan and join behavior.
type CatalogConfig struct {
	FetchConcurrency int `yaml:"fetch_concurrency" mapstructure:"fetch_concurrency"`
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
	v.SetEnvPrefix("BORECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.fs_root", "./data")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.requests_per_second", 0)
	v.SetDefault("blob.metrics", true)
	v.SetDefault("directory.driver", "sqlite")
	v.SetDefault("directory.dsn", "borecore.db")
	v.SetDefault("catalog.fetch_concurrency", 16)
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
