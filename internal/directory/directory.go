// Package directory is the relational user registry backing role checks for
// assignments and reviews. Users live in SQL, not in the object store, so
// lookups stay cheap while documents stay schema-free.
package directory

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/stratabase/borecore/internal/model"
)

// Directory defines the user registry contract.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	UsersByRole(ctx context.Context, role model.Role) ([]model.User, error)
	// HasRole reports whether the user exists and holds the role. Unknown
	// users are (false, nil), not an error.
	HasRole(ctx context.Context, userID string, role model.Role) (bool, error)
	UpsertUser(ctx context.Context, u model.User) error

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a directory driver.
type Config struct {
	Driver string      `yaml:"driver" mapstructure:"driver"` // sqlite | postgres
	DSN    string      `yaml:"dsn" mapstructure:"dsn"`
	Pool   *PoolConfig `yaml:"pool,omitempty" mapstructure:"pool"`
}

// Open builds the directory named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Directory, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "borecore.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DSN, cfg.Pool)
	default:
		return nil, eris.Errorf("directory: unknown driver %q", cfg.Driver)
	}
}
