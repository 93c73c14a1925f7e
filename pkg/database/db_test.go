package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_TIMEZONE", "UTC")
	t.Setenv("DATABASE_CLIENT_ENCODING", "")
	t.Setenv("DATABASE_MAX_CONNS", "")

	cfg := ConfigFromEnv()
	assert.Contains(t, cfg.DSN, "localhost:5432")
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Equal(t, 5, cfg.MaxConns)
	assert.Equal(t, "postgres", cfg.Driver)

	t.Setenv("DATABASE_URL", "postgres://forum@db/forum")
	assert.Equal(t, "postgres://forum@db/forum", ConfigFromEnv().DSN)
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'UTC'", quoteLiteral("UTC"))
	assert.Equal(t, `'it\'s'`, quoteLiteral("it's"))
	assert.Equal(t, `'a\\b'`, quoteLiteral(`a\b`))
}

func TestWithSessionParams(t *testing.T) {
	dsn, err := withSessionParams("postgres://u:p@db:5432/forum?sslmode=disable", "", "")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/forum?sslmode=disable", dsn)

	dsn, err = withSessionParams("postgres://u:p@db:5432/forum?sslmode=disable", "Asia/Shanghai", "UTF8")
	require.NoError(t, err)
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "Asia/Shanghai", u.Query().Get("timezone"))
	assert.Equal(t, "UTF8", u.Query().Get("client_encoding"))

	dsn, err = withSessionParams("host=db dbname=forum", "UTC", "")
	require.NoError(t, err)
	assert.Equal(t, "host=db dbname=forum timezone='UTC'", dsn)

	_, err = withSessionParams("postgres://bad host/%zz", "UTC", "")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	db, mock, err := sqlmock.NewWithDSN("forum-connect-test", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	xdb, err := Connect(context.Background(), Config{Driver: "sqlmock", DSN: "forum-connect-test", MaxConns: 3, Timeout: time.Second})
	require.NoError(t, err)
	defer xdb.Close()

	assert.Equal(t, "sqlmock", xdb.DriverName())
	assert.Equal(t, 3, xdb.Stats().MaxOpenConnections)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_PingFailure(t *testing.T) {
	db, mock, err := sqlmock.NewWithDSN("forum-ping-fail", sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err = Connect(context.Background(), Config{Driver: "sqlmock", DSN: "forum-ping-fail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.Len(t, files, 4)

	tables := []string{"accounts", "posts", "forum_groups", "notifications"}
	for i, f := range files {
		body, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", f)
		assert.Contains(t, string(body), "-- +goose Down", f)
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+tables[i], f)
	}
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(ctx context.Context, d *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		assert.Same(t, db, d)
		return nil
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, "migrations", gotDir)

	gooseUp = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("relation already exists")
	}
	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation already exists")
}
