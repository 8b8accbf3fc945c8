// Package dbtest opens isolated in-memory SQLite databases carrying the
// storefront schema for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a fresh named in-memory database with the storefront tables.
// A single connection is used so SQLite serializes writers the way Postgres
// row locks would.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.ApplySQLiteSchema(context.Background(), conn))
	return conn
}
