package storage

import "errors"

// Engine names accepted by Config.Engine.
const (
	EngineBadger = "badger"
	EngineSQLite = "sqlite"
	EngineMemory = "memory"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage: backend closed")

// Config selects and tunes a backend.
type Config struct {
	// Engine is one of "badger", "sqlite" or "memory".
	// Default: "badger"
	Engine string

	// Dir is the data directory for on-disk engines.
	Dir string

	Badger BadgerConfig
	SQLite SQLiteConfig
}

// BadgerConfig contains Badger-specific tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between value-log GC runs.
	// Default: 10m
	GCInterval string

	// GCThreshold is the discard ratio that triggers a rewrite (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 256MB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// SyncWrites fsyncs every write.
	// Default: true
	SyncWrites bool
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	// File is the database file name inside Dir.
	// Default: "securestore.db"
	File string

	// BusyTimeout is the lock wait in milliseconds.
	// Default: 5000
	BusyTimeout int
}

// DefaultConfig returns the default storage configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Engine: EngineBadger,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		SQLite: DefaultSQLiteConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20,
		ValueLogFileSize: 256 << 20,
		NumMemtables:     2,
		SyncWrites:       true,
	}
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		File:        "securestore.db",
		BusyTimeout: 5000,
	}
}
