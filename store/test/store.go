package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/calsense/internal/profile"
	"github.com/hrygo/calsense/store"
	"github.com/hrygo/calsense/store/db"
)

// NewTestingStore opens a migrated, empty store. The driver comes from DRIVER and defaults
// to sqlite in a temp directory; postgres needs POSTGRES_TEST_DSN.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	driver := getDriverFromEnv()
	p := getTestingProfile(t, driver)

	dbDriver, err := db.NewDBDriver(p)
	require.NoError(t, err, "failed to create db driver")
	ts := store.New(dbDriver, p)
	t.Cleanup(func() {
		_ = ts.Close()
	})

	require.NoError(t, ts.Migrate(ctx), "failed to migrate db")
	_, err = ts.GetDriver().GetDB().ExecContext(ctx, "DELETE FROM event")
	require.NoError(t, err, "failed to reset event table")
	return ts
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}

func getTestingProfile(t *testing.T, driver string) *profile.Profile {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "calsense_test.db")
	if driver == "postgres" {
		dsn = getPostgresDSN(t)
	}
	return &profile.Profile{
		Mode:   "dev",
		Data:   dir,
		DSN:    dsn,
		Driver: driver,
	}
}

// getPostgresDSN returns POSTGRES_TEST_DSN, skipping the test when it is unset.
func getPostgresDSN(t *testing.T) string {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN is not set")
	}
	return dsn
}
