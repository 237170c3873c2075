package postgres

import (
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func migrationSource() *migrate.EmbedFileSystemMigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Migrate applies pending migrations in the given direction and returns how
// many were applied. max <= 0 means no limit.
func Migrate(pool *pgxpool.Pool, direction migrate.MigrationDirection, max int) (int, error) {
	if pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	n, err := migrate.ExecMax(db, "postgres", migrationSource(), direction, max)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}

	return n, nil
}
