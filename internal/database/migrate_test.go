package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contenthub/internal/database"
)

func TestSQLiteDSN(t *testing.T) {
	dsn, err := database.Options{Driver: "sqlite", Path: "/tmp/app.db"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "file:/tmp/app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dsn)
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := database.Options{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "content"}.DSN()
	require.NoError(t, err)
	assert.Equal(t, "app:pw@tcp(db:3306)/content?charset=utf8mb4&parseTime=true&loc=UTC&multiStatements=true", dsn)
}

func TestUnknownDriver(t *testing.T) {
	_, err := database.Options{Driver: "oracle"}.DSN()
	assert.Error(t, err)
}

func TestMigrateUpDownSQLite(t *testing.T) {
	db, err := database.Open(database.Options{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)

	m, err := database.NewMigrator(db, database.DriverSQLite)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(4), v)
	assert.False(t, dirty)

	var roles int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM roles").Scan(&roles))
	assert.Equal(t, 2, roles)

	// second run is a no-op
	require.NoError(t, m.Up())

	require.NoError(t, m.Down())
	v, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)

	require.NoError(t, m.Close())
}
