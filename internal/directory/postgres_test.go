package directory

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratabase/borecore/internal/fault"
	"github.com/stratabase/borecore/internal/model"
)

// newMockPostgresDirectory creates a PostgresDirectory backed by pgxmock.
func newMockPostgresDirectory(t *testing.T) (*PostgresDirectory, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresDirectory{pool: mock}, mock
}

func userColumns() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "email", "role", "created_at"})
}

func TestPostgres_GetUser(t *testing.T) {
	d, mock := newMockPostgresDirectory(t)
	email := "zk@example.com"

	mock.ExpectQuery(`SELECT id, name, email, role, created_at FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(userColumns().AddRow("u1", "Z. Khan", &email, "lab_engineer", time.Now().UTC()))

	u, err := d.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleLabEngineer, u.Role)
	assert.Equal(t, "zk@example.com", u.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetUser_NotFound(t *testing.T) {
	d, mock := newMockPostgresDirectory(t)

	mock.ExpectQuery(`SELECT id, name, email, role, created_at FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := d.GetUser(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, fault.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_HasRole(t *testing.T) {
	d, mock := newMockPostgresDirectory(t)

	mock.ExpectQuery(`SELECT id, name, email, role, created_at FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(userColumns().AddRow("u1", "Z. Khan", nil, "lab_engineer", time.Now().UTC()))

	ok, err := d.HasRole(context.Background(), "u1", model.RoleLabEngineer)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(`SELECT id, name, email, role, created_at FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	ok, err = d.HasRole(context.Background(), "ghost", model.RoleLabEngineer)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UsersByRole(t *testing.T) {
	d, mock := newMockPostgresDirectory(t)

	mock.ExpectQuery(`SELECT id, name, email, role, created_at FROM users WHERE role = \$1 ORDER BY name`).
		WithArgs("site_engineer").
		WillReturnRows(userColumns().
			AddRow("u2", "Arun", nil, "site_engineer", time.Now().UTC()).
			AddRow("u1", "Zoya", nil, "site_engineer", time.Now().UTC()))

	users, err := d.UsersByRole(context.Background(), model.RoleSiteEngineer)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Arun", users[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertUser(t *testing.T) {
	d, mock := newMockPostgresDirectory(t)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("u1", "Z. Khan", "", "lab_engineer", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := d.UpsertUser(context.Background(), model.User{
		UserID: "u1", Name: "Z. Khan", Role: model.RoleLabEngineer,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	err = d.UpsertUser(context.Background(), model.User{UserID: "u1"})
	require.Error(t, err)
	assert.True(t, fault.IsValidation(err))
}

func TestPostgres_Migrate(t *testing.T) {
	d, mock := newMockPostgresDirectory(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, d.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
