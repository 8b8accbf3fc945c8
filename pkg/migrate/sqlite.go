package migrate

import (
	"context"
	_ "embed"
	"fmt"

	"gorm.io/gorm"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// ApplySQLiteSchema creates the storefront tables on a SQLite connection.
// Goose migrations target Postgres only; dev mode with STOREFRONT_USE_SQLITE
// and the test suites use this idempotent schema instead.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.WithContext(ctx).Exec(sqliteSchema).Error; err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}
