package extract

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// seedSQLite creates a small database fixture for the sqlite adapter tests.
func seedSQLite(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE users (name TEXT, password TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users VALUES ('alice', 's3cret'), ('bob', 'hunter2')`)
	require.NoError(t, err)
}
