// Leadscore - configurable lead scoring with hot-reloadable rules.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/leadfactory/leadscore/internal/api"
	"github.com/leadfactory/leadscore/internal/bus"
	"github.com/leadfactory/leadscore/internal/cache"
	"github.com/leadfactory/leadscore/internal/domain"
	"github.com/leadfactory/leadscore/internal/reload"
	"github.com/leadfactory/leadscore/internal/repository"
	"github.com/leadfactory/leadscore/internal/rules"
	"github.com/leadfactory/leadscore/internal/scoring"
	"github.com/leadfactory/leadscore/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("LEADSCORE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting leadscore",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"rules_path", cfg.Rules.Path,
		"watch", cfg.Rules.Watch,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize scoring engine and reload controller
	engine := rules.NewEngine()
	controller := reload.NewController(cfg.Rules.Path, engine, repo, busImpl, cfg.Rules.ReloadTimeout)

	// Initial rule load. With no last-good set to fall back to, a bad
	// document leaves the engine empty: /score and /ready answer 503
	// until the watcher or an explicit reload brings in a valid one.
	outcome := controller.Load(ctx)
	if !outcome.Success {
		slog.Error("initial rule load failed, scoring unavailable until a valid rule file loads",
			"path", cfg.Rules.Path,
			"error_count", len(outcome.Errors),
		)
	} else {
		slog.Info("rule set loaded", "rules_version", outcome.RulesVersion)
	}

	// Start the file watcher for hot reload
	if cfg.Rules.Watch {
		if err := controller.Watch(ctx, cfg.Rules.DebounceWindow); err != nil {
			slog.Error("failed to start rule file watcher", "error", err)
			os.Exit(1)
		}
	}

	// Initialize scoring facade
	facade := scoring.New(engine, controller,
		scoring.WithRepository(repo),
		scoring.WithCache(cacheImpl, cfg.Cache.LocalTTL),
		scoring.WithEventBus(busImpl),
	)

	// Initialize async worker for bus-driven scoring
	asyncWorker := worker.NewWorker(busImpl, facade)
	if err := asyncWorker.Start(); err != nil {
		slog.Error("failed to start async worker", "error", err)
		os.Exit(1)
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, facade, repo, cacheImpl, busImpl, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("leadscore is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	asyncWorker.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("leadscore shutdown complete")
}

// applyEnvOverrides maps LEADSCORE_* environment variables onto the
// default configuration.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("LEADSCORE_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("LEADSCORE_RULES_WATCH"); v != "" {
		cfg.Rules.Watch = v == "true"
	}
	if v := os.Getenv("LEADSCORE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LEADSCORE_DB_DRIVER"); v != "" {
		cfg.Repository.Driver = v
	}
	if v := os.Getenv("LEADSCORE_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("LEADSCORE_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("LEADSCORE_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("LEADSCORE_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("LEADSCORE_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("LEADSCORE_CACHE_TYPE"); v != "" {
		cfg.Cache.Type = v
	}
	if v := os.Getenv("LEADSCORE_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("LEADSCORE_BUS_TYPE"); v != "" {
		cfg.EventBus.Type = v
	}
	if v := os.Getenv("LEADSCORE_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  leadscore - configurable lead scoring engine")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Rules:    %s (watch=%v)\n", cfg.Rules.Path, cfg.Rules.Watch)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /score                    - Score an assessment")
	fmt.Println("    GET  /scores/{id}              - Get a stored score")
	fmt.Println("    GET  /businesses/{id}/scores   - Score history for a business")
	fmt.Println("    GET  /rules                    - Inspect the active rule set")
	fmt.Println("    POST /rules/reload             - Reload the rule file")
	fmt.Println("    GET  /rules/audit              - Recent reload attempts")
	fmt.Println("    GET  /health                   - Health check")
	fmt.Println("    GET  /ready                    - Readiness (rule set loaded)")
	fmt.Println("    GET  /metrics                  - Prometheus metrics")
	fmt.Println()
}
