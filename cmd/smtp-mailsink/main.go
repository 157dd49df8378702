// Package main is the entry point for the mail sink server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shineum/smtp-mailsink/internal/config"
	"github.com/shineum/smtp-mailsink/internal/mailstore"
	"github.com/shineum/smtp-mailsink/internal/mailstore/disk"
	"github.com/shineum/smtp-mailsink/internal/mailstore/ses"
	"github.com/shineum/smtp-mailsink/internal/mailstore/stdout"
	"github.com/shineum/smtp-mailsink/internal/smtp"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	store := selectStore(cfg)

	server := smtp.New(smtp.ServerConfig{
		ListenAddr: cfg.SMTP.Listen,
		Banner:     cfg.SMTP.Banner,
		Store:      store,
	})

	slog.Info("starting smtp-mailsink",
		"listen", cfg.SMTP.Listen,
		"banner", cfg.SMTP.Banner,
		"store", store.Name(),
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, initiating shutdown", "signal", sig)
		cancel()
	}()

	// Start the server (blocks until context is cancelled)
	if err := server.ListenAndServe(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("smtp-mailsink stopped")
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level. Per-line protocol traffic is logged at debug.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectStore chooses the mail storage backend based on configuration.
func selectStore(cfg *config.Config) mailstore.Store {
	switch cfg.Store.Backend {
	case config.BackendDisk, "":
		slog.Info("using disk store", "root", cfg.Store.Root)
		return disk.New(cfg.Store.Root)

	case config.BackendStdout:
		slog.Info("using stdout store")
		return stdout.New()

	case config.BackendSES:
		if !cfg.SESConfigured() {
			slog.Error("SES store selected but SES_REGION and SES_SENDER are required")
			os.Exit(1)
		}
		slog.Info("using AWS SES store",
			"region", cfg.SES.Region,
			"sender", cfg.SES.Sender,
		)
		s, err := ses.New(context.Background(), ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			slog.Error("failed to create SES store", "error", err)
			os.Exit(1)
		}
		return s

	default:
		slog.Error("unknown store backend", "backend", cfg.Store.Backend)
		os.Exit(1)
		return nil
	}
}
