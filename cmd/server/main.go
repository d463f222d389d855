package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	auditsvc "pedcare/internal/audit"
	"pedcare/internal/platform/config"
	"pedcare/internal/platform/httpserver"
	"pedcare/internal/platform/logger"
	auditmetrics "pedcare/pkg/platform/audit/metrics"
	"pedcare/pkg/platform/audit/sink"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.Server.LogLevel, cfg.Server.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Audit.LoadLocation()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Event ids restart at AUD-000001 on every boot; persisted rows are
	// disambiguated by this run id.
	runID := uuid.New()
	backends, err := openBackends(ctx, cfg, runID, log)
	if err != nil {
		return err
	}
	defer backends.close(log)

	dispatcher := sink.NewDispatcher(cfg.Audit.Dispatcher(), backends.sinks,
		sink.WithLogger(log),
		sink.WithMetrics(sink.NewMetrics(reg)),
	)
	dispatcher.Start(ctx)

	opts := []auditsvc.Option{
		auditsvc.WithLogger(log),
		auditsvc.WithMetrics(auditmetrics.New(reg)),
		auditsvc.WithPublisher(dispatcher),
		auditsvc.WithLocation(loc),
	}
	if cfg.Audit.IndexedWindows {
		opts = append(opts, auditsvc.WithIndexedWindows())
	}
	engine := auditsvc.New(opts...)

	router := newRouter(cfg, engine, reg, backends.checks, log)
	srv := httpserver.New(cfg.Server.Addr, router, log)

	log.Info("starting pedcare",
		"addr", cfg.Server.Addr,
		"run_id", runID.String(),
		"sinks", len(backends.sinks),
		"indexed_windows", cfg.Audit.IndexedWindows,
		"location", loc.String(),
	)
	serveErr := httpserver.Run(ctx, srv, cfg.Server.ShutdownTimeout)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := dispatcher.Close(closeCtx); err != nil {
		log.Warn("audit dispatcher did not drain", "error", err)
	}
	return serveErr
}
