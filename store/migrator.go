package store

import (
	"context"
	"embed"
	"log/slog"
	"path"

	"github.com/pkg/errors"
)

// Schema Overview:
//
// Each driver ships one LATEST.sql under store/migration/{driver}/ holding the full schema.
// Migrate applies it once, on a database that has no event table yet. There is no
// incremental history; the schema is small and owned entirely by this module.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the name of the latest schema file.
const LatestSchemaFileName = "LATEST.sql"

// Migrate initializes the database schema when it is missing.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	driverName := "sqlite"
	if s.profile != nil && s.profile.Driver != "" {
		driverName = s.profile.Driver
	}
	filePath := path.Join("migration", driverName, LatestSchemaFileName)
	buf, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema %q", filePath)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrapf(err, "failed to apply latest schema for %s", driverName)
	}
	slog.Info("database schema initialized", slog.String("driver", driverName))
	return nil
}
