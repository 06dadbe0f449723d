package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/packfinderz-cart/pkg/config"
	"github.com/angelmondragon/packfinderz-cart/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
}

func TestAutoRunCreatesDeviceTable(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file:" + filepath.Join(t.TempDir(), "device.db")))
	require.NoError(t, err)
	client := db.NewFromConn(conn, config.StoreDriverSQLite)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	require.NoError(t, AutoRun(ctx, config.StoreConfig{AutoMigrate: true}, nil, client))
	assert.True(t, conn.Migrator().HasTable("device_kv"))

	// idempotent
	require.NoError(t, AutoRun(ctx, config.StoreConfig{AutoMigrate: true}, nil, client))

	sqlDB, err := client.SQL()
	require.NoError(t, err)
	require.NoError(t, MigrateToVersion(ctx, sqlDB, config.StoreDriverSQLite, "0"))
	assert.False(t, conn.Migrator().HasTable("device_kv"))
}

func TestAutoRunDisabled(t *testing.T) {
	require.NoError(t, AutoRun(context.Background(), config.StoreConfig{AutoMigrate: false}, nil, nil))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Device Index")
	require.NoError(t, err)
	assert.Regexp(t, `\d{14}_add_device_index\.sql$`, path)
	assert.NoError(t, ValidateDir(dir))
}

func TestDialectFor(t *testing.T) {
	_, err := dialectFor(config.StoreDriverRedis)
	assert.Error(t, err)
}
