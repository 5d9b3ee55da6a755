// Package buildinfo exposes build-time version information.
//
// Values are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/securestore-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/securestore-go/internal/infra/buildinfo.Commit=abc123"
//
// When no ldflags are given, Get falls back to the module version and VCS
// revision recorded by the Go toolchain.
package buildinfo
