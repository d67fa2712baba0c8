package blob

import (
	"context"

	"github.com/rotisserie/eris"
)

// Config selects and tunes a storage backend. Populated from the
// application config (see internal/config).
type Config struct {
	Driver string   `yaml:"driver" mapstructure:"driver"`
	FSRoot string   `yaml:"fs_root" mapstructure:"fs_root"`
	S3     S3Config `yaml:"s3" mapstructure:"s3"`
	// RequestsPerSecond throttles store calls when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Retry enables retry-on-unavailable when MaxAttempts > 1.
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Metrics enables the prometheus instrumentation decorator.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
}

// Open builds a Store from config, wrapping it with the throttle, retry,
// and instrumentation decorators as configured.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch Driver(cfg.Driver) {
	case DriverMemory:
		s = NewMemory()
	case DriverFilesystem, "":
		s, err = NewFilesystem(cfg.FSRoot)
	case DriverS3:
		s, err = NewS3(ctx, cfg.S3)
	default:
		return nil, eris.Errorf("blob: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond > 0 {
		s = NewThrottled(s, cfg.RequestsPerSecond)
	}
	if cfg.Retry.MaxAttempts > 1 {
		s = NewRetried(s, cfg.Retry)
	}
	if cfg.Metrics {
		s = NewInstrumented(s)
	}
	return s, nil
}
