package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strata/internal/core/app"
	"strata/internal/core/config"
	"strata/internal/core/ports"
	"strata/internal/history"
	"strata/internal/mcp/runtime"
	"strata/internal/revision"
	"strata/internal/shared/observability"
	"strata/internal/watch"
)

var (
	configPath = flag.String("config", "./strata.toml", "Path to config file")
	watchMode  = flag.Bool("watch", false, "Watch configured paths and report structural changes")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("strata v%s\n", app.Version)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	// MCP stdio owns stdout, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && !isFlagSet("config") {
			cfg = config.Default()
		} else {
			logger.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	config.ApplyEnvOverrides(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("strata exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := app.New(cfg, revision.NewGitProvider(), logger)
	if err != nil {
		return fmt.Errorf("initialize analysis service: %w", err)
	}

	if *watchMode {
		// Foreground watch mode: no MCP transport, no audit store.
		monitor, err := newMonitor(cfg, service, logger)
		if err != nil {
			return err
		}
		return monitor.Start(ctx, cfg.Watch.Paths)
	}

	var audit ports.AuditStore
	if cfg.DB.Enabled {
		store, err := history.Open(runtime.AuditDBPath(cfg))
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		audit = store
	}

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.MCP.ServerName, cfg.Observability.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
	}

	if cfg.Observability.EnableMetrics {
		obs := observability.NewServer(cfg.Observability.Port, func(ctx context.Context) (string, any) {
			health := service.Health(ctx)
			return health.Status, health
		})
		if err := obs.Start(ctx); err != nil {
			return fmt.Errorf("start observability server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(stopCtx)
		}()
	}

	if cfg.Watch.Enabled {
		monitor, err := newMonitor(cfg, service, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := monitor.Start(ctx, cfg.Watch.Paths); err != nil {
				logger.Error("watch mode failed", "error", err)
			}
		}()
	}

	server, err := runtime.Build(cfg, runtime.AppDeps{
		Analysis:   service,
		Audit:      audit,
		Logger:     logger,
		ConfigPath: *configPath,
	})
	if err != nil {
		return fmt.Errorf("build MCP server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("server stop failed", "error", err)
		}
	}()

	logger.Info("strata starting", "version", app.Version, "transport", cfg.MCP.Transport)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func newMonitor(cfg *config.Config, service *app.Service, logger *slog.Logger) (*watch.Monitor, error) {
	monitor, err := watch.NewMonitor(service.Parser(), service.Differ(), cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize watch mode: %w", err)
	}
	return monitor, nil
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
