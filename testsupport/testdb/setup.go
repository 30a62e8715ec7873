package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/mpapenbr/iracehud-go/pkg/db/sqlite"
)

// InitTestDB returns a migrated sqlite database in a temporary directory.
// The database is closed when the test ends.
func InitTestDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitTestDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
