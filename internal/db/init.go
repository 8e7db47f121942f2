// Package db opens the PostgreSQL connection, applies schema migrations and
// runs background maintenance of the users table.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/GophContacts/internal/db/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// InitPostgres connects to dsn and migrates the schema to the latest version.
func InitPostgres(ctx context.Context, dsn string, log *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{log: log.Sugar()})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through zap. Fatalf must not exit the process.
type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Fatalf(format string, v ...any) { l.log.Errorf(format, v...) }
func (l gooseLogger) Printf(format string, v ...any) { l.log.Infof(format, v...) }
