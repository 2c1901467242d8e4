package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exploopio/passcheck/pkg/audit"
	"github.com/exploopio/passcheck/pkg/config"
	"github.com/exploopio/passcheck/pkg/evaluator"
	"github.com/exploopio/passcheck/pkg/health"
	"github.com/exploopio/passcheck/pkg/logging"
	"github.com/exploopio/passcheck/pkg/metrics"
	"github.com/exploopio/passcheck/pkg/server"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd, *cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// serve runs the service described by cfg until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Log, zap.String("service", "passcheck"), zap.String("version", version))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, cleanup, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer cleanup()

	return srv.Run(ctx)
}

// buildServer wires the evaluator, metrics, health checks and audit trail
// into a server. cleanup flushes and closes the audit trail.
func buildServer(cfg config.Config, logger *zap.Logger) (*server.Server, func(), error) {
	cleanup := func() {}

	ev, err := evaluator.New(evaluator.DefaultConfig())
	if err != nil {
		return nil, cleanup, fmt.Errorf("build evaluator: %w", err)
	}

	opts := server.Options{
		Address:         cfg.Server.Address,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		Compression:     cfg.Server.Compression,
		CompressMinSize: cfg.Server.CompressMinSize,
		Version:         version,
	}

	var serverOpts []server.Option
	if cfg.Metrics.Enabled {
		collector, err := metrics.NewPrometheusCollector(nil)
		if err != nil {
			return nil, cleanup, fmt.Errorf("build metrics: %w", err)
		}
		opts.MetricsPath = cfg.Metrics.Path
		serverOpts = append(serverOpts, server.WithMetrics(collector))
	}

	healthOpts := []health.HandlerOption{
		health.WithVersion(version),
		health.WithTimeout(cfg.Health.Timeout),
	}
	if cfg.Health.HideDetails {
		healthOpts = append(healthOpts, health.WithHideDetails())
	}
	probes := health.NewHandler(healthOpts...)
	probes.Register("ping", &health.PingCheck{})
	probes.Register("evaluator", &health.EvaluatorCheck{Evaluator: ev})
	probes.Register("memory", &health.MemoryCheck{MaxHeapBytes: cfg.Health.MaxHeapMB << 20})
	probes.Register("host_memory", &health.HostMemoryCheck{MaxUsagePercent: cfg.Health.MaxHostMemoryPercent})
	serverOpts = append(serverOpts, server.WithHealth(probes))

	if cfg.Audit.Enabled {
		auditCfg := &audit.LoggerConfig{
			LogFile:       cfg.Audit.File,
			FlushInterval: cfg.Audit.FlushInterval,
		}
		if cfg.Audit.Verbose {
			auditCfg.Console = logger
		}
		auditLog, err := audit.NewLogger(auditCfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open audit trail: %w", err)
		}
		auditLog.Start()
		cleanup = func() {
			if err := auditLog.Close(); err != nil {
				logger.Warn("close audit trail", zap.Error(err))
			}
		}
		serverOpts = append(serverOpts, server.WithAudit(auditLog))
	}

	return server.New(opts, ev, logger, serverOpts...), cleanup, nil
}
