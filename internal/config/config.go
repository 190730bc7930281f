package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every setting the core consumes. It is built once at
// startup and passed explicitly into constructors; no component reads
// ambient state.
type Config struct {
	DBPath string

	Cache Cache

	// FlushInterval bounds the write-behind data-loss window.
	FlushInterval time.Duration

	// KDFIterations is the PBKDF2 work factor for newly encrypted notes.
	// Already-encrypted notes carry their own count inside the envelope.
	KDFIterations int

	BackupEnabled  bool
	BackupInterval time.Duration
	BackupDir      string

	HTTPAddr string
}

// Cache holds the Redis connection settings for the write-behind cache.
type Cache struct {
	Enabled   bool
	Host      string
	Port      int
	DB        int
	Namespace string
}

// Addr returns host:port for the Redis client.
func (c Cache) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Load reads the configuration from environment variables, applying the
// application defaults for anything unset.
func Load() *Config {
	return &Config{
		DBPath: envString("ALEM_DB_PATH", "./alem_notes.db"),
		Cache: Cache{
			Enabled:   envBool("ALEM_REDIS_ENABLED", true),
			Host:      envString("ALEM_REDIS_HOST", "localhost"),
			Port:      envInt("ALEM_REDIS_PORT", 6379),
			DB:        envInt("ALEM_REDIS_DB", 0),
			Namespace: envString("ALEM_REDIS_NAMESPACE", "alem"),
		},
		FlushInterval:  time.Duration(envInt("ALEM_FLUSH_INTERVAL_S", 60)) * time.Second,
		KDFIterations:  envInt("ALEM_KDF_ITERATIONS", 390000),
		BackupEnabled:  envBool("ALEM_BACKUP_ENABLED", false),
		BackupInterval: time.Duration(envInt("ALEM_BACKUP_INTERVAL_H", 24)) * time.Hour,
		BackupDir:      envString("ALEM_BACKUP_DIR", "./backups"),
		HTTPAddr:       envString("ALEM_HTTP_ADDR", ":7070"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
