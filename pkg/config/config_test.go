package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	require.NotNil(t, cfg)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StorageS3, cfg.Storage.Type)
	assert.Equal(t, 15*time.Minute, cfg.Storage.PresignTTL)
	assert.Equal(t, 30*time.Second, cfg.IndexLock.TTL)
	assert.Equal(t, 25, cfg.IndexLock.Retries)
	assert.Equal(t, 1024, cfg.RBAC.PatternCacheSize)
	assert.Len(t, cfg.Encryption.MasterKeyHex, 64)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORAGE_TYPE", " Local ")
	v.Set("INDEX_LOCK_BACKOFF", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	v.Set("MAX_UPLOAD_BYTES", 0)

	cfg := fromViper(v)
	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.Equal(t, 200*time.Millisecond, cfg.IndexLock.Backoff)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(25*1024*1024), cfg.Storage.MaxUploadBytes)
}
