// Package cli provides the bootstrap shared by cmd/finanzas,
// cmd/finanzas-worker and cmd/finanzas-cli.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finanzas/internal/auth"
	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

// SetupLogger builds the process logger at level and makes it the slog
// default. An unknown level falls back to info.
func SetupLogger(level, component string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{Level: lvl, Component: component, Output: os.Stdout})
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
// offline skips the settings only the HTTP server needs.
func LoadAndValidateConfig(logger *log.Logger, offline bool) *config.Config {
	cfg := config.Load()
	validate := cfg.Validate
	if offline {
		validate = cfg.ValidateOffline
	}
	if err := validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend creates the configured store and optional AMQP client.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.Logger.With(log.FieldComponent, log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", cfg.DataBackend, err)
	}
	return result, nil
}

// IngestionConfig maps application settings onto the processor's.
func IngestionConfig(cfg *config.Config) services.IngestionConfig {
	ic := services.DefaultIngestionConfig()
	ic.ChunkSize = cfg.ChunkSize
	ic.MaxUploadBytes = cfg.MaxUploadBytes
	ic.StrictDates = cfg.StrictDates
	ic.CompensationAttempts = cfg.CompensationAttempts
	ic.CompensationBackoff = cfg.CompensationBackoff
	return ic
}

// NewResolver builds the caller resolver: GoTrue when AUTH_URL is set,
// static tokens otherwise. GoTrue answers are cached for AuthCacheTTL; the
// returned cache is nil when caching is off.
func NewResolver(cfg *config.Config) (auth.Resolver, *cache.LRUCache[string], error) {
	if cfg.AuthURL == "" {
		users, err := auth.ParseStaticTokens(cfg.AuthStaticTokens)
		if err != nil {
			return nil, nil, fmt.Errorf("parse AUTH_STATIC_TOKENS: %w", err)
		}
		return auth.NewStaticResolver(users), nil, nil
	}

	var resolver auth.Resolver = auth.NewGoTrueResolver(cfg.AuthURL, cfg.AuthAPIKey, nil)
	if cfg.AuthCacheTTL <= 0 {
		return resolver, nil, nil
	}
	tokens := cache.NewLRUCache[string](1000, cfg.AuthCacheTTL)
	return auth.NewCachedResolver(resolver, tokens), tokens, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ShutdownTimeout bounds graceful shutdown in every binary.
const ShutdownTimeout = 30 * time.Second
