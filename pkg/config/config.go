package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backend tags accepted by STORAGE_TYPE.
const (
	StorageS3    = "s3"
	StorageLocal = "local"
	StorageDrive = "drive"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Storage    StorageConfig
	Encryption EncryptionConfig
	IndexLock  IndexLockConfig
	RBAC       RBACConfig
	IndexAudit IndexAuditConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig selects and configures the document object store.
type StorageConfig struct {
	Type            string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3UsePathStyle  bool
	S3KMSKeyID      string
	PresignTTL      time.Duration
	LocalDir        string
	SigningSecret   string
	MaxUploadBytes  int64
	MoveConcurrency int
}

// EncryptionConfig holds the master key used to derive per-tenant data keys.
type EncryptionConfig struct {
	MasterKeyHex string
}

// IndexLockConfig tunes the per-tenant index lock.
type IndexLockConfig struct {
	TTL     time.Duration
	Retries int
	Backoff time.Duration
}

// RBACConfig tunes role document and compiled pattern caching.
type RBACConfig struct {
	RoleCacheTTL     time.Duration
	PatternCacheSize int
	PatternCacheTTL  time.Duration
}

// IndexAuditConfig toggles the background index audit job.
type IndexAuditConfig struct {
	Enabled bool
	Workers int
	Retries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 25 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Type:            strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_TYPE"))),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Region:        v.GetString("S3_REGION"),
		S3Endpoint:      v.GetString("S3_ENDPOINT"),
		S3AccessKey:     v.GetString("S3_ACCESS_KEY"),
		S3SecretKey:     v.GetString("S3_SECRET_KEY"),
		S3UsePathStyle:  v.GetBool("S3_USE_PATH_STYLE"),
		S3KMSKeyID:      v.GetString("S3_KMS_KEY_ID"),
		PresignTTL:      parseDuration(v.GetString("S3_PRESIGN_TTL"), 15*time.Minute),
		LocalDir:        v.GetString("LOCAL_STORAGE_DIR"),
		SigningSecret:   v.GetString("DOWNLOAD_SIGNING_SECRET"),
		MaxUploadBytes:  maxUpload,
		MoveConcurrency: v.GetInt("MOVE_CONCURRENCY"),
	}

	cfg.Encryption = EncryptionConfig{MasterKeyHex: v.GetString("ENCRYPTION_KEY")}

	cfg.IndexLock = IndexLockConfig{
		TTL:     parseDuration(v.GetString("INDEX_LOCK_TTL"), 30*time.Second),
		Retries: v.GetInt("INDEX_LOCK_RETRIES"),
		Backoff: parseDuration(v.GetString("INDEX_LOCK_BACKOFF"), 200*time.Millisecond),
	}

	cfg.RBAC = RBACConfig{
		RoleCacheTTL:     parseDuration(v.GetString("ROLE_CACHE_TTL"), 5*time.Minute),
		PatternCacheSize: v.GetInt("PATTERN_CACHE_SIZE"),
		PatternCacheTTL:  parseDuration(v.GetString("PATTERN_CACHE_TTL"), time.Hour),
	}

	cfg.IndexAudit = IndexAuditConfig{
		Enabled: v.GetBool("ENABLE_INDEX_AUDIT"),
		Workers: v.GetInt("INDEX_AUDIT_WORKERS"),
		Retries: v.GetInt("INDEX_AUDIT_RETRIES"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "doculan")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("STORAGE_TYPE", StorageS3)
	v.SetDefault("S3_BUCKET", "doculan-documents")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_USE_PATH_STYLE", false)
	v.SetDefault("S3_KMS_KEY_ID", "")
	v.SetDefault("S3_PRESIGN_TTL", "15m")
	v.SetDefault("LOCAL_STORAGE_DIR", "./data")
	v.SetDefault("DOWNLOAD_SIGNING_SECRET", "dev_download_secret")
	v.SetDefault("MAX_UPLOAD_BYTES", 25*1024*1024)
	v.SetDefault("MOVE_CONCURRENCY", 4)

	// 32 zero bytes, development only.
	v.SetDefault("ENCRYPTION_KEY", strings.Repeat("00", 32))

	v.SetDefault("INDEX_LOCK_TTL", "30s")
	v.SetDefault("INDEX_LOCK_RETRIES", 25)
	v.SetDefault("INDEX_LOCK_BACKOFF", "200ms")

	v.SetDefault("ROLE_CACHE_TTL", "5m")
	v.SetDefault("PATTERN_CACHE_SIZE", 1024)
	v.SetDefault("PATTERN_CACHE_TTL", "1h")

	v.SetDefault("ENABLE_INDEX_AUDIT", false)
	v.SetDefault("INDEX_AUDIT_WORKERS", 1)
	v.SetDefault("INDEX_AUDIT_RETRIES", 2)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
