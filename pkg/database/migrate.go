package database

import (
	"context"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrate applies all pending SQL migrations from the given filesystem.
func Migrate(ctx context.Context, db *sqlx.DB, migrations fs.FS, logger *zap.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db.DB, "."); err != nil {
		return err
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return err
	}

	logger.Info("database migrations applied", zap.Int64("version", version))
	return nil
}
