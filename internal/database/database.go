package database

import (
	"context"
	"fmt"

	"github.com/banterhq/banter/internal/config"
	"github.com/surrealdb/surrealdb.go"
)

// NewDB connects to SurrealDB, authenticates and selects the configured
// namespace and database.
func NewDB(ctx context.Context, cfg config.Provider) (*surrealdb.DB, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.GetDBURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if user := cfg.GetDBUser(); user != "" {
		if _, err := db.SignIn(ctx, surrealdb.Auth{
			Username: user,
			Password: cfg.GetDBPass(),
		}); err != nil {
			return nil, fmt.Errorf("failed to sign in to database: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.GetDBNs(), cfg.GetDBDb()); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	return db, nil
}

// Migrate applies the schema the stores rely on. The unique index on room
// names is what turns a duplicate create into a uniqueness violation instead
// of a silent second room.
func Migrate(ctx context.Context, db *surrealdb.DB) error {
	statements := []string{
		"DEFINE TABLE IF NOT EXISTS room SCHEMALESS",
		"DEFINE INDEX IF NOT EXISTS room_name_unique ON TABLE room COLUMNS name UNIQUE",
		"DEFINE TABLE IF NOT EXISTS user SCHEMALESS",
		"DEFINE INDEX IF NOT EXISTS user_name_unique ON TABLE user COLUMNS name UNIQUE",
	}
	for _, stmt := range statements {
		if err := Execute(ctx, db, stmt, nil); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
