package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/awnumar/memguard"

	"github.com/yndnr/securestore-go/internal/core/service"
	"github.com/yndnr/securestore-go/internal/infra/buildinfo"
	"github.com/yndnr/securestore-go/internal/infra/confloader"
	"github.com/yndnr/securestore-go/internal/infra/shutdown"
	"github.com/yndnr/securestore-go/internal/server/config"
	"github.com/yndnr/securestore-go/internal/server/httpserver"
	"github.com/yndnr/securestore-go/internal/storage"
	"github.com/yndnr/securestore-go/internal/telemetry/logger"
	"github.com/yndnr/securestore-go/internal/telemetry/metric"
)

// statsScrapeTimeout bounds the engine stats walk done on each scrape.
const statsScrapeTimeout = 5 * time.Second

func main() {
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		memguard.Purge()
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("securestore-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := config.Load(*configFile, nil)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting securestore-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"engine", cfg.Storage.Engine,
		"security_level", cfg.Security.Level)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	registry := metric.NewRegistry()

	backend, err := storage.Open(cfg.StorageConfig(), log, registry.Registerer())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	engine, err := newEngine(cfg, backend, registry, log)
	if err != nil {
		_ = backend.Close()
		return err
	}
	if err := registry.Registerer().Register(metric.NewCollector(engine, statsScrapeTimeout)); err != nil {
		_ = backend.Close()
		return fmt.Errorf("register stats collector: %w", err)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Engine:            engine,
		Ready:             engine.Ping,
		Metrics:           registry.Handler(),
		Observer:          registry,
		Logger:            log,
		APIToken:          cfg.Server.HTTP.APIToken,
		RateLimit:         cfg.Server.HTTP.RateLimit,
		RateBurst:         cfg.Server.HTTP.RateBurst,
		TrustProxyHeaders: cfg.Server.HTTP.TrustProxyHeaders,
		MaxBodyBytes:      cfg.Server.HTTP.MaxBodyBytes,
	})
	if cfg.Server.HTTP.APIToken == "" {
		log.Warn("server.http.api_token is empty, entry and admin routes are unauthenticated")
	}

	server := httpserver.New(cfg.Server.HTTP.Addr, router, httpserver.Options{
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	go engine.RunCleanup(bgCtx, cfg.Audit.CleanupInterval)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout, log)

	// Hooks run in reverse order: HTTP first, storage last.
	shutdownHandler.OnShutdown("storage", func(ctx context.Context) error {
		return backend.Close()
	})
	shutdownHandler.OnShutdown("background", func(ctx context.Context) error {
		stopBackground()
		return nil
	})
	if *configFile != "" {
		watcher, err := watchConfig(*configFile, log)
		if err != nil {
			log.Warn("config reload disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown("config-watcher", func(ctx context.Context) error {
				return watcher.Stop()
			})
		}
	}
	shutdownHandler.OnShutdown("http", func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", cfg.Server.HTTP.Addr,
			"tls", cfg.Server.HTTP.TLSCertFile != "")

		var err error
		if cfg.Server.HTTP.TLSCertFile != "" && cfg.Server.HTTP.TLSKeyFile != "" {
			err = server.ListenAndServeTLS(cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	if err := shutdownHandler.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// newEngine builds the storage engine and its crypto dependencies.
func newEngine(cfg *config.ServerConfig, backend service.Backend, registry *metric.Registry, log *slog.Logger) (*service.StorageService, error) {
	secret, err := cfg.DeviceSecret()
	if err != nil {
		return nil, err
	}
	passwords, err := service.NewDevicePassword(secret, cfg.Security.Namespace)
	if err != nil {
		return nil, fmt.Errorf("device password: %w", err)
	}

	observer := service.MultiObserver{service.LogObserver{Logger: log}, registry}

	cipherOpts, err := cfg.CipherOptions()
	if err != nil {
		return nil, err
	}
	cipher, err := service.NewCipherService(cipherOpts, service.NewWorkPool(cfg.Security.KDFWorkers), observer)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}

	storageOpts, err := cfg.StorageOptions()
	if err != nil {
		return nil, err
	}
	engine, err := service.NewStorageService(backend, cipher, passwords, storageOpts,
		service.WithLogger(log),
		service.WithObserver(observer),
	)
	if err != nil {
		return nil, fmt.Errorf("storage service: %w", err)
	}
	return engine, nil
}

// watchConfig reloads the log level when the config file changes. Other
// settings take effect on restart.
func watchConfig(path string, log *slog.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		_ = watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(changed string) {
		cfg, err := config.Load(changed, nil)
		if err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				log.Warn("config file unreadable, keeping current settings", "file", changed)
				return
			}
			log.Warn("config reload rejected", "file", changed, "error", err)
			return
		}
		if cfg.Log.Level == logger.GetLevel() {
			return
		}
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			log.Warn("config reload rejected", "file", changed, "error", err)
			return
		}
		log.Info("log level changed", "level", cfg.Log.Level)
	})
	watcher.StartAsync()
	return watcher, nil
}
