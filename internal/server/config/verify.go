package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
	"github.com/yndnr/securestore-go/internal/storage"
	"github.com/yndnr/securestore-go/pkg/crypto/adaptive"
	"github.com/yndnr/securestore-go/pkg/crypto/kdf"
)

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// Verify validates the configuration and reports every problem found.
// It does not touch the filesystem beyond stat calls.
func Verify(cfg *ServerConfig) error {
	errs := verifyServer(&cfg.Server)
	errs = append(errs, verifyStorage(&cfg.Storage)...)
	errs = append(errs, verifySecurity(&cfg.Security)...)
	errs = append(errs, verifyAudit(&cfg.Audit)...)
	errs = append(errs, verifyLog(&cfg.Log)...)

	if len(errs) == 0 {
		return nil
	}
	joined := errors.Join(errs...)
	return domain.ErrConfig.WithDetails(joined.Error()).WithCause(joined)
}

func verifyServer(cfg *ServerSection) []error {
	var errs []error
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		errs = append(errs, fmt.Errorf("server.http.addr: %w", err))
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and tls_key_file must be set together"))
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			errs = append(errs, fmt.Errorf("server.http: %w", err))
		}
	}
	if cfg.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("server.http.rate_limit must not be negative"))
	}
	if cfg.HTTP.RateLimit > 0 && cfg.HTTP.RateBurst < 1 {
		errs = append(errs, errors.New("server.http.rate_burst must be at least 1"))
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.http.max_body_bytes must be positive"))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errs
}

func verifyStorage(cfg *StorageSection) []error {
	var errs []error
	switch cfg.Engine {
	case storage.EngineBadger, storage.EngineSQLite:
		if cfg.DataDir == "" {
			errs = append(errs, fmt.Errorf("storage.data_dir is required for engine %s", cfg.Engine))
		}
	case storage.EngineMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.engine: unknown engine %q", cfg.Engine))
	}
	if cfg.Badger.GCThreshold < 0 || cfg.Badger.GCThreshold >= 1 {
		errs = append(errs, errors.New("storage.badger.gc_threshold must be in [0, 1)"))
	}
	return errs
}

func verifySecurity(cfg *SecuritySection) []error {
	var errs []error
	if !namespacePattern.MatchString(cfg.Namespace) {
		errs = append(errs, errors.New("security.namespace must match ^[A-Za-z0-9-]{1,64}$"))
	}
	if cfg.DeviceSecretFile == "" && len(cfg.DeviceSecret) < service.MinDeviceSecretLength {
		errs = append(errs, fmt.Errorf("security.device_secret must be at least %d bytes (or set device_secret_file)", service.MinDeviceSecretLength))
	}
	if _, err := domain.ParseSecurityLevel(cfg.Level); err != nil {
		errs = append(errs, fmt.Errorf("security.level: %w", err))
	}

	alg, err := adaptive.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		errs = append(errs, fmt.Errorf("security.algorithm: %w", err))
	}
	params := kdf.Params{
		Iterations:      cfg.PBKDF2Iterations,
		KeyLengthBits:   cfg.KeyLengthBits,
		SaltLengthBytes: cfg.SaltLengthBytes,
	}
	if err := params.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("security: %w", err))
	} else if cfg.KeyLengthBits != adaptive.KeySize*8 {
		errs = append(errs, fmt.Errorf("security.key_length_bits must be %d for the supported ciphers", adaptive.KeySize*8))
	}
	switch cfg.TagLengthBits {
	case 128:
	case 96:
		if alg == adaptive.ChaCha20Poly1305 {
			errs = append(errs, errors.New("security.tag_length_bits must be 128 for ChaCha20-Poly1305"))
		}
	default:
		errs = append(errs, errors.New("security.tag_length_bits must be 128 or 96"))
	}
	if cfg.KDFWorkers < 0 {
		errs = append(errs, errors.New("security.kdf_workers must not be negative"))
	}
	return errs
}

func verifyAudit(cfg *AuditSection) []error {
	var errs []error
	if cfg.Cap < 1 {
		errs = append(errs, errors.New("audit.cap must be at least 1"))
	}
	if cfg.CleanupInterval < 0 {
		errs = append(errs, errors.New("audit.cleanup_interval must not be negative"))
	}
	return errs
}

func verifyLog(cfg *LogSection) []error {
	var errs []error
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", cfg.Level))
	}
	switch cfg.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", cfg.Format))
	}
	return errs
}
