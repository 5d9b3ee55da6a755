package config

import "time"

// ServerConfig is the root configuration for securestore-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server" yaml:"server"`
	Storage  StorageSection  `koanf:"storage" yaml:"storage"`
	Security SecuritySection `koanf:"security" yaml:"security"`
	Audit    AuditSection    `koanf:"audit" yaml:"audit"`
	Log      LogSection      `koanf:"log" yaml:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP            HTTPConfig    `koanf:"http" yaml:"http"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr" yaml:"addr"`
	TLSCertFile string `koanf:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file" yaml:"tls_key_file"`

	// APIToken is the bearer token required on /v1 and /admin routes.
	// Empty disables authentication.
	APIToken string `koanf:"api_token" yaml:"api_token"`

	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `koanf:"rate_burst" yaml:"rate_burst"`

	// TrustProxyHeaders keys rate limiting on X-Forwarded-For. Enable only
	// behind a proxy that overwrites the header.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers" yaml:"trust_proxy_headers"`

	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`

	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" yaml:"max_body_bytes"`
}

// StorageSection configures the key-value backend.
type StorageSection struct {
	// Engine is badger, sqlite or memory.
	Engine  string        `koanf:"engine" yaml:"engine"`
	DataDir string        `koanf:"data_dir" yaml:"data_dir"`
	Badger  BadgerSection `koanf:"badger" yaml:"badger"`
	SQLite  SQLiteSection `koanf:"sqlite" yaml:"sqlite"`
}

// BadgerSection tunes the badger engine.
type BadgerSection struct {
	GCInterval       string  `koanf:"gc_interval" yaml:"gc_interval"`
	GCThreshold      float64 `koanf:"gc_threshold" yaml:"gc_threshold"`
	CacheSize        int64   `koanf:"cache_size" yaml:"cache_size"`
	ValueLogFileSize int64   `koanf:"value_log_file_size" yaml:"value_log_file_size"`
	NumMemtables     int     `koanf:"num_memtables" yaml:"num_memtables"`
	SyncWrites       bool    `koanf:"sync_writes" yaml:"sync_writes"`
}

// SQLiteSection tunes the sqlite engine.
type SQLiteSection struct {
	File        string `koanf:"file" yaml:"file"`
	BusyTimeout int    `koanf:"busy_timeout" yaml:"busy_timeout"`
}

// SecuritySection configures encryption and classification policy.
type SecuritySection struct {
	// Namespace prefixes every physical key.
	Namespace string `koanf:"namespace" yaml:"namespace"`

	// DeviceSecret is the root secret entry passwords are derived from.
	// DeviceSecretFile, when set, takes precedence.
	DeviceSecret     string `koanf:"device_secret" yaml:"device_secret"`
	DeviceSecretFile string `koanf:"device_secret_file" yaml:"device_secret_file"`

	// Level is standard, high or maximum.
	Level string `koanf:"level" yaml:"level"`

	// DefaultEncryption decides whether Internal entries are encrypted.
	DefaultEncryption bool `koanf:"default_encryption" yaml:"default_encryption"`

	// Algorithm is AES-256-GCM, ChaCha20-Poly1305 or auto.
	Algorithm        string `koanf:"algorithm" yaml:"algorithm"`
	KeyLengthBits    int    `koanf:"key_length_bits" yaml:"key_length_bits"`
	SaltLengthBytes  int    `koanf:"salt_length_bytes" yaml:"salt_length_bytes"`
	PBKDF2Iterations int    `koanf:"pbkdf2_iterations" yaml:"pbkdf2_iterations"`
	TagLengthBits    int    `koanf:"tag_length_bits" yaml:"tag_length_bits"`

	// KDFWorkers bounds concurrent key derivations. Zero means NumCPU.
	KDFWorkers int `koanf:"kdf_workers" yaml:"kdf_workers"`
}

// AuditSection configures the audit trail and expiry sweeps.
type AuditSection struct {
	Cap int `koanf:"cap" yaml:"cap"`

	// CleanupInterval runs CleanupExpired periodically. Zero disables it.
	CleanupInterval time.Duration `koanf:"cleanup_interval" yaml:"cleanup_interval"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}
