package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// SQLiteDirectory implements Directory using modernc.org/sqlite.
type SQLiteDirectory struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteDirectory{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT,
	role       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

func (d *SQLiteDirectory) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

func (d *SQLiteDirectory) GetUser(ctx context.Context, userID string) (*model.User, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE id = ?`, userID)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("user %s", userID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get user %s", userID)
	}
	return u, nil
}

func (d *SQLiteDirectory) UsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, email, role, created_at FROM users WHERE role = ? ORDER BY name`, string(role))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: users by role %s", role)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user")
		}
		out = append(out, *u)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate users")
}

func (d *SQLiteDirectory) HasRole(ctx context.Context, userID string, role model.Role) (bool, error) {
	u, err := d.GetUser(ctx, userID)
	if fault.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Role == role, nil
}

func (d *SQLiteDirectory) UpsertUser(ctx context.Context, u model.User) error {
	if u.UserID == "" || u.Name == "" || u.Role == "" {
		return fault.Validation("user id, name and role are required")
	}
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, role = excluded.role`,
		u.UserID, u.Name, u.Email, string(u.Role), createdAt,
	)
	return eris.Wrapf(err, "sqlite: upsert user %s", u.UserID)
}

// scanUser decodes one users row via the given Scan function, shared between
// QueryRow and Rows iteration.
func scanUser(scan func(dest ...any) error) (*model.User, error) {
	var (
		u     model.User
		email sql.NullString
		role  string
	)
	if err := scan(&u.UserID, &u.Name, &email, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Role = model.Role(role)
	return &u, nil
}
