package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"finguard/internal/api"
	"finguard/internal/config"
	"finguard/internal/logging"
	"finguard/internal/scheduler"
	"finguard/pkg/finguard"
)

var getppid = os.Getppid
var sleep = time.Sleep
var exit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("server exited", "err", err)
		exit(1)
	}
}

// run loads configuration, serves the API and returns once ctx is done and
// the server has shut down.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("finguard", flag.ContinueOnError)
	configPath := flags.String("config", "", "Path to config.yaml (defaults to the per-user app directory)")
	dataDir := flags.String("data-dir", "", "Directory for the database and logs")
	port := flags.Int("port", -1, "Port to run the server on")
	host := flags.String("host", "", "Host to bind the server to")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *port >= 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	resolvedDataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}
	logger, writer, err := logging.NewLogger(logging.Options{
		Dir:           filepath.Join(resolvedDataDir, "logs"),
		RetentionDays: cfg.Log.RetentionDays,
		Level:         cfg.Log.Level,
		Stdout:        stdout,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	opts := finguard.Options{
		Storage:      cfg.Storage.Backend,
		Logger:       logger,
		HistoryLimit: cfg.Analysis.HistoryLimit,
	}
	if cfg.Storage.Backend == finguard.StorageSQLite {
		if opts.DBPath, err = cfg.ResolveDBPath(); err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}
	opts.Risk, opts.Sentiment, err = buildSources(ctx, cfg, logger)
	if err != nil {
		return err
	}

	core, err := finguard.OpenWithOptions(opts)
	if err != nil {
		return fmt.Errorf("initialize core: %w", err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	retention, err := cfg.SessionRetention()
	if err != nil {
		return err
	}
	if retention > 0 {
		sched := scheduler.New(core, retention, logger)
		if err := sched.Register(cfg.Maintenance.Schedule); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	if os.Getenv("FINGUARD_PARENT_WATCH") == "1" {
		go watchParent(logger)
	}

	addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           middleware.Compress(5)(api.NewRouter(core)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting",
		"addr", listener.Addr().String(),
		"storage", cfg.Storage.Backend,
		"risk_provider", cfg.Analysis.RiskProvider,
		"sentiment_provider", cfg.Analysis.SentimentProvider,
	)
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	return nil
}

// buildSources picks the risk and sentiment fetchers. A nil fetcher leaves
// the core on its built-in catalog.
func buildSources(ctx context.Context, cfg *config.Config, logger *slog.Logger) (finguard.RiskFetcher, finguard.SentimentFetcher, error) {
	var risk finguard.RiskFetcher
	if cfg.Analysis.RiskProvider == config.ProviderYahoo {
		risk = finguard.NewYahooRiskSource(finguard.YahooOptions{
			Logger:  logger,
			BaseURL: cfg.Analysis.YahooBaseURL,
		})
	}

	if cfg.Analysis.SentimentProvider == config.ProviderCatalog {
		return risk, nil, nil
	}
	if !cfg.SentimentUsesModel() {
		logger.Warn("no API key configured, using catalog sentiment", "provider", cfg.Analysis.SentimentProvider)
		return risk, nil, nil
	}
	completer, err := finguard.NewCompleter(ctx, finguard.CompleterConfig{
		Provider: cfg.Analysis.SentimentProvider,
		APIKey:   cfg.Analysis.APIKey,
		Model:    cfg.Analysis.SentimentModel,
		BaseURL:  cfg.Analysis.BaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("sentiment model: %w", err)
	}
	return risk, finguard.NewLLMSentimentSource(completer, logger), nil
}

func watchParent(logger *slog.Logger) {
	for {
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			exit(0)
		}
	}
}
