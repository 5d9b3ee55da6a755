package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/yndnr/securestore-go/internal/core/domain"
	"github.com/yndnr/securestore-go/internal/core/service"
	"github.com/yndnr/securestore-go/internal/storage"
	"github.com/yndnr/securestore-go/pkg/crypto/adaptive"
	"github.com/yndnr/securestore-go/pkg/crypto/kdf"
)

// StorageConfig returns the backend configuration.
func (c *ServerConfig) StorageConfig() storage.Config {
	return storage.Config{
		Engine: c.Storage.Engine,
		Dir:    c.Storage.DataDir,
		Badger: storage.BadgerConfig{
			GCInterval:       c.Storage.Badger.GCInterval,
			GCThreshold:      c.Storage.Badger.GCThreshold,
			CacheSize:        c.Storage.Badger.CacheSize,
			ValueLogFileSize: c.Storage.Badger.ValueLogFileSize,
			NumMemtables:     c.Storage.Badger.NumMemtables,
			SyncWrites:       c.Storage.Badger.SyncWrites,
		},
		SQLite: storage.SQLiteConfig{
			File:        c.Storage.SQLite.File,
			BusyTimeout: c.Storage.SQLite.BusyTimeout,
		},
	}
}

// CipherOptions returns the cipher configuration.
func (c *ServerConfig) CipherOptions() (service.CipherOptions, error) {
	alg, err := adaptive.ParseAlgorithm(c.Security.Algorithm)
	if err != nil {
		return service.CipherOptions{}, domain.ErrConfig.WithDetails(err.Error())
	}
	return service.CipherOptions{
		Algorithm: alg,
		KDF: kdf.Params{
			Iterations:      c.Security.PBKDF2Iterations,
			KeyLengthBits:   c.Security.KeyLengthBits,
			SaltLengthBytes: c.Security.SaltLengthBytes,
		},
		TagLengthBits: c.Security.TagLengthBits,
	}, nil
}

// StorageOptions returns the engine configuration.
func (c *ServerConfig) StorageOptions() (service.StorageOptions, error) {
	level, err := domain.ParseSecurityLevel(c.Security.Level)
	if err != nil {
		return service.StorageOptions{}, err
	}
	return service.StorageOptions{
		Namespace:         c.Security.Namespace,
		DefaultEncryption: c.Security.DefaultEncryption,
		SecurityLevel:     level,
		AuditCap:          c.Audit.Cap,
	}, nil
}

// DeviceSecret returns the device secret, reading DeviceSecretFile when
// set. The caller owns the returned slice and should wipe it.
func (c *ServerConfig) DeviceSecret() ([]byte, error) {
	if c.Security.DeviceSecretFile != "" {
		data, err := os.ReadFile(c.Security.DeviceSecretFile)
		if err != nil {
			return nil, fmt.Errorf("read device secret: %w", err)
		}
		return bytes.TrimRight(data, "\r\n"), nil
	}
	return []byte(c.Security.DeviceSecret), nil
}
