package config

import (
    "bytes"
    "context"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
    t.Helper()
    for k, v := range map[string]string{
        "APP_ENV":                "dev",
        "APP_PORT":               "8080",
        "DB_DRIVER":              "sqlite",
        "DB_PATH":                "/tmp/contenthub.db",
        "JWT_SECRET":             "s3cret",
        "ACCESS_TOKEN_TTL_MIN":   "15",
        "REFRESH_TOKEN_TTL_DAYS": "7",
        "BCRYPT_COST":            "10",
    } {
        t.Setenv(k, v)
    }
}

func TestFromEnv(t *testing.T) {
    setRequired(t)
    t.Setenv("BLOB_DRIVER", "MinIO")
    t.Setenv("EVENTS_ENABLED", "yes")

    cfg, err := FromEnv()
    require.NoError(t, err)
    assert.True(t, cfg.IsDev())
    assert.Equal(t, "sqlite", cfg.DBDriver)
    assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
    assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL())
    assert.Equal(t, "contenthub", cfg.JWTIssuer)
    assert.Equal(t, "minio", cfg.Blob.Driver)
    assert.True(t, cfg.Events.Enabled)
    assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvReportsAllMissing(t *testing.T) {
    setRequired(t)
    t.Setenv("APP_PORT", "")
    t.Setenv("JWT_SECRET", "")
    t.Setenv("DB_DRIVER", "mysql")
    t.Setenv("DB_USER", "")
    t.Setenv("DB_HOST", "db")
    t.Setenv("DB_PORT", "3306")
    t.Setenv("DB_NAME", "contenthub")
    t.Setenv("BCRYPT_COST", "lots")

    _, err := FromEnv()
    require.Error(t, err)
    msg := err.Error()
    for _, k := range []string{"APP_PORT", "JWT_SECRET", "DB_USER", "BCRYPT_COST"} {
        assert.Contains(t, msg, k)
    }
    assert.NotContains(t, msg, "DB_HOST")
}

func TestFromEnvRejectsUnknownDrivers(t *testing.T) {
    setRequired(t)
    t.Setenv("DB_DRIVER", "oracle")
    t.Setenv("BLOB_DRIVER", "floppy")

    _, err := FromEnv()
    require.Error(t, err)
    assert.Contains(t, err.Error(), "DB_DRIVER")
    assert.Contains(t, err.Error(), "BLOB_DRIVER")
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 10*time.Second, cfg.TTL)
    assert.Equal(t, "ip_route", cfg.KeyStrategy)
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    t.Setenv("CACHE_TTL", "garbage")

    cfg := LoadCacheConfig()
    assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
    assert.Equal(t, 5*time.Minute, cfg.TTL)
}

func TestNewRedisClient(t *testing.T) {
    mr := miniredis.RunT(t)
    t.Setenv("REDIS_ADDR", mr.Addr())

    client, err := NewRedisClient(context.Background(), LoadRedisConfig())
    require.NoError(t, err)
    defer client.Close()
    require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
    got, err := mr.Get("k")
    require.NoError(t, err)
    assert.Equal(t, "v", got)

    addr := mr.Addr()
    mr.Close()
    _, err = NewRedisClient(context.Background(), RedisConfig{Addr: addr})
    assert.Error(t, err)
}

func TestNewLoggerLevel(t *testing.T) {
    var buf bytes.Buffer
    logger := newLogger(&buf, "warn")
    logger.Info("hidden")
    logger.Warn("shown")
    assert.NotContains(t, buf.String(), "hidden")
    assert.Contains(t, buf.String(), `"msg":"shown"`)
}
