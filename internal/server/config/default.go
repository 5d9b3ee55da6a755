package config

import (
	"time"

	"github.com/yndnr/securestore-go/internal/core/service"
	"github.com/yndnr/securestore-go/internal/storage"
	"github.com/yndnr/securestore-go/pkg/crypto/kdf"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultRateLimit       = 50
	DefaultRateBurst       = 100
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultMaxBodyBytes    = 1 << 20

	DefaultDataDir = "/var/lib/securestore-server/data"

	DefaultSecurityLevel = "standard"
	DefaultAlgorithm     = "AES-256-GCM"
	DefaultTagLengthBits = 128

	DefaultAuditCap        = 500
	DefaultCleanupInterval = 5 * time.Minute

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	badger := storage.DefaultBadgerConfig()
	sqlite := storage.DefaultSQLiteConfig()
	kdfParams := kdf.DefaultParams()

	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				RateLimit:    DefaultRateLimit,
				RateBurst:    DefaultRateBurst,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				MaxBodyBytes: DefaultMaxBodyBytes,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			Engine:  storage.EngineBadger,
			DataDir: DefaultDataDir,
			Badger: BadgerSection{
				GCInterval:       badger.GCInterval,
				GCThreshold:      badger.GCThreshold,
				CacheSize:        badger.CacheSize,
				ValueLogFileSize: badger.ValueLogFileSize,
				NumMemtables:     badger.NumMemtables,
				SyncWrites:       badger.SyncWrites,
			},
			SQLite: SQLiteSection{
				File:        sqlite.File,
				BusyTimeout: sqlite.BusyTimeout,
			},
		},
		Security: SecuritySection{
			Namespace:        service.DefaultNamespace,
			Level:            DefaultSecurityLevel,
			Algorithm:        DefaultAlgorithm,
			KeyLengthBits:    kdfParams.KeyLengthBits,
			SaltLengthBytes:  kdfParams.SaltLengthBytes,
			PBKDF2Iterations: kdfParams.Iterations,
			TagLengthBits:    DefaultTagLengthBits,
		},
		Audit: AuditSection{
			Cap:             DefaultAuditCap,
			CleanupInterval: DefaultCleanupInterval,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
