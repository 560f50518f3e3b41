// Package cli provides the startup steps shared by cmd/finledger,
// cmd/ledger-audit and cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finledger/internal/backend"
	"finledger/internal/config"
	"finledger/internal/log"
)

// LoadEnvFile loads .env (or the given files) for local development.
// A missing file is not an error.
func LoadEnvFile(files ...string) {
	_ = godotenv.Load(files...)
}

// NewLogger builds the process logger from cfg and installs it as the slog default.
func NewLogger(cfg *config.Config, w io.Writer, component string) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger, nil
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadAndValidateConfig loads configuration and the logger for component.
// It exits the process when the configuration is invalid.
func LoadAndValidateConfig(component string) (*config.Config, *log.Logger) {
	cfg, err := LoadConfig()
	if err != nil {
		fallback := log.New(log.Config{Component: component, Output: os.Stderr})
		fallback.Error("Configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	logger, err := NewLogger(cfg, os.Stdout, component)
	if err != nil {
		// Validate already checked the level
		panic(err)
	}
	return cfg, logger
}

// OpenBackend opens the configured store and optional publisher.
func OpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// MustOpenBackend is OpenBackend that exits the process on failure.
func MustOpenBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	res, err := OpenBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeDatabase,
			"backend", cfg.DataBackend)
		os.Exit(1)
	}
	return res
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
// The returned stop func restores default signal handling.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}

// Cleanup runs a backend cleanup func and logs its failure.
func Cleanup(logger *log.Logger, res *backend.BackendResult) {
	if res == nil || res.Cleanup == nil {
		return
	}
	if err := res.Cleanup(); err != nil {
		logger.Warn("Backend cleanup failed", log.FieldError, err)
	}
}
