// Command kvserver serves club documents for clubhouse sync.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/clubhouse/internal/config"
	"github.com/mmynk/clubhouse/internal/kvserver"
	"github.com/mmynk/clubhouse/internal/storage/sqlite"
	"github.com/mmynk/clubhouse/internal/telemetry"
	"github.com/mmynk/clubhouse/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/clubhouse/config.toml)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	dbPath := flag.String("db", "", "database file (overrides server.store_path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Server.StorePath = *dbPath
	}

	closer := logging.SetupWithOptions(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	defer closer.Close()

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName + "-kvserver",
	})
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	store, err := sqlite.New(cfg.Server.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Server.StorePath)

	srv := kvserver.New(store, kvserver.Options{MaxBodyBytes: cfg.Server.MaxBodyBytes})

	// h2c lets HTTP/2 clients talk to the server without TLS.
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(srv.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("KV server starting", "address", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
