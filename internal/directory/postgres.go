package directory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// Pool is the subset of pgxpool.Pool the directory uses; pgxmock's pool
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresDirectory implements Directory using pgxpool.
type PostgresDirectory struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for the
// hot role-check path.
var preparedStatements = map[string]string{
	"get_user":      `SELECT id, name, email, role, created_at FROM users WHERE id = $1`,
	"users_by_role": `SELECT id, name, email, role, created_at FROM users WHERE role = $1 ORDER BY name`,
	"upsert_user": `INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`,
}

// NewPostgres creates a PostgresDirectory with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresDirectory, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresDirectory{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	role       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

func (d *PostgresDirectory) Migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (d *PostgresDirectory) Close() error {
	d.pool.Close()
	return nil
}

func (d *PostgresDirectory) GetUser(ctx context.Context, userID string) (*model.User, error) {
	row := d.pool.QueryRow(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = $1`, userID)
	u, err := scanPgUser(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFound("user %s", userID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get user %s", userID)
	}
	return u, nil
}

func (d *PostgresDirectory) UsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE role = $1 ORDER BY name`, string(role))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: users by role %s", role)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanPgUser(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan user")
		}
		out = append(out, *u)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate users")
}

func (d *PostgresDirectory) HasRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	u, err := d.GetUser(ctx, userID)
	if fault.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

func (d *PostgresDirectory) UpsertUser(ctx context.Context, u model.User) error {
	if u.UserID == "" || u.Name == "" || u.Role == "" {
		return fault.Validation("user id, name and role are required")
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := d.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role`,
		u.UserID, u.Name, u.Email, string(u.Role), createdAt,
	)
	return eris.Wrapf(err, "postgres: upsert user %s", u.UserID)
}

func scanPgUser(scan func(dest ...any) error) (*model.User, error) {
	var (
		u     model.User
		email *string
		role  string
	)
	if err := scan(&u.UserID, &u.Name, &email, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	if email != nil {
		u.Email = *email
	}
	u.Role = model.Role(role)
	return &u, nil
}
