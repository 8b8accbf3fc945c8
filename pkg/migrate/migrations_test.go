package migrate_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_products"), []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE TABLE IF NOT EXISTS product_variants",
		"CONSTRAINT chk_products_stock CHECK (stock >= 0)",
		"CONSTRAINT chk_product_variants_stock CHECK (stock >= 0)",
		"discount_price < price",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_product_variants_active_size_color",
		"WHERE is_active",
		"DROP TABLE IF EXISTS products",
	})
}

func TestOrdersMigrationContainsInvariants(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number ON orders (order_number)",
		"CHECK (total_amount = subtotal + shipping_cost)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL",
		"DROP TABLE IF EXISTS order_items",
	})
}

func TestPaymentNotificationsMigrationIsKeyedByDelivery(t *testing.T) {
	assertContains(t, readMigration(t, "create_payment_notifications"), []string{
		"DROP TABLE IF EXISTS payment_notifications",
	})
	assertContains(t, readMigration(t, "payment_notifications_delivery_key"), []string{
		"DROP CONSTRAINT IF EXISTS ux_payment_notifications_transaction",
		"UNIQUE (transaction_id, transaction_status, fraud_status)",
		"ADD CONSTRAINT ux_payment_notifications_transaction UNIQUE (transaction_id)",
	})
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateDirRejectsMisorderedAnnotations(t *testing.T) {
	cases := map[string]string{
		"down_first": "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x (id int);\n",
		"unbalanced": "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"missing_up": "-- +goose Down\nDROP TABLE x;\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_"+name+".sql"), []byte(body), 0o644))
			require.Error(t, migrate.ValidateDir(dir))
		})
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	require.NoError(t, migrate.ValidateFS(migrate.Embedded()))

	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}

func TestParseVersion(t *testing.T) {
	v, err := migrate.ParseVersion("20250301090500")
	require.NoError(t, err)
	require.Equal(t, int64(20250301090500), v)

	_, err = migrate.ParseVersion("2025")
	require.Error(t, err)
	_, err = migrate.ParseVersion("2025030109050x")
	require.Error(t, err)
}

func TestCreateSQLMigrationStaysAheadOfExistingVersions(t *testing.T) {
	dir := t.TempDir()
	future := "29991231235959_future.sql"
	require.NoError(t, os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := migrate.CreateSQLMigration(dir, "next")
	require.NoError(t, err)
	require.Equal(t, "30000101000000_next.sql", filepath.Base(path))
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Product Tags!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_product_tags.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestApplySQLiteSchemaIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:apply_schema?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, migrate.ApplySQLiteSchema(ctx, conn))
	require.NoError(t, migrate.ApplySQLiteSchema(ctx, conn))

	var count int64
	require.NoError(t, conn.Raw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('products','orders','order_items','payment_notifications')").Scan(&count).Error)
	require.Equal(t, int64(4), count)
}
