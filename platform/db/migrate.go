package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"gigwork_maps/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations applies all pending embedded migrations.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	sqlDB, err := sql.Open("pgx", cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrationsFS())
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
