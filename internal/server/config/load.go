package config

import (
	"github.com/yndnr/securestore-go/internal/infra/confloader"
)

// Load builds the effective configuration: defaults, then the YAML file at
// path (optional), then SECURESTORE_ environment variables, then overrides.
// The result is verified before it is returned.
func Load(path string, overrides map[string]any) (*ServerConfig, error) {
	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
