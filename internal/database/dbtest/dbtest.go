// Package dbtest opens throw-away migrated SQLite databases for tests.
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contenthub/internal/database"
)

// Open returns an in-memory SQLite database with every migration
// applied.  It is closed when the test ends.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Options{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, database.DriverSQLite))
	t.Cleanup(func() { _ = db.Close() })
	return db
}
