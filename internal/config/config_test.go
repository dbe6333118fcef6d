package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, AssetFS, cfg.AssetDriver)
	assert.Equal(t, "admin@bitm.edu", cfg.AdminEmail)
	assert.Equal(t, "123123", cfg.AdminPassword)
	assert.Equal(t, 1500*time.Millisecond, cfg.UploadLatency)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(5), cfg.LoginRateLimit)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.NotEmpty(t, cfg.SessionSecret)
}

func TestFromEnv_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_SECRET", "short")
	t.Setenv("ADMIN_PASSWORD", "x")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")

	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ADMIN_PASSWORD", "")
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD")
}

func TestFromEnv_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_S3NeedsBucket(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("ASSET_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_BadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("UPLOAD_LATENCY", "soon")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestGetDatabaseURL_FromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "care")
	t.Setenv("POSTGRESQL_PASSWORD", "p@ss")
	t.Setenv("POSTGRESQL_DBNAME", "campus")

	assert.Equal(t, "postgres://care:p%40ss@db:5432/campus?sslmode=disable", getDatabaseURL())
}
