package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SleepSheepQwQ/userdata-server/config"
	"github.com/SleepSheepQwQ/userdata-server/internal/metrics"
	"github.com/SleepSheepQwQ/userdata-server/internal/pool"
	"github.com/SleepSheepQwQ/userdata-server/internal/server"
	"github.com/SleepSheepQwQ/userdata-server/lifecycle"
)

// =============================================================================
// 🖥️ Daemon 结构
// =============================================================================

// Daemon 将查询服务控制器包装成独立进程：外挂守护进程中间件链，
// 并在独立端口暴露 Prometheus 指标与健康检查。
type Daemon struct {
	cfg    *config.DaemonConfig
	logger *zap.Logger

	controller     *lifecycle.Controller
	metricsManager *server.Manager
	collector      *metrics.Collector

	// Rate limiter 清理 goroutine 的生命周期
	rateLimiterCancel context.CancelFunc
}

// NewDaemon 创建守护进程实例
func NewDaemon(cfg *config.DaemonConfig, logger *zap.Logger) *Daemon {
	return &Daemon{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动查询服务与 metrics 服务
func (d *Daemon) Start() error {
	// 1. 指标收集器
	d.collector = metrics.NewCollector("userdata", d.logger)

	// 2. 守护进程中间件链（核心路由表之外的横切关注点）
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	d.rateLimiterCancel = rateLimiterCancel

	middleware := func(next http.Handler) http.Handler {
		return Chain(next,
			Recovery(d.logger),
			RequestID(),
			RequestLogger(d.logger),
			MetricsMiddleware(d.collector),
			RateLimiter(rateLimiterCtx, d.cfg.Limits.RateLimitRPS, d.cfg.Limits.RateLimitBurst, d.logger),
		)
	}

	// 3. 查询服务控制器
	d.controller = lifecycle.New(d.logger,
		lifecycle.WithCollector(d.collector),
		lifecycle.WithMiddleware(middleware),
		lifecycle.WithLimiterConfig(pool.LimiterConfig{
			MaxConcurrent:  d.cfg.Limits.MaxConcurrent,
			AcquireTimeout: d.cfg.Limits.AcquireTimeout,
		}),
	)

	if msg := d.controller.StartWith(d.cfg.Server); msg != "Server started successfully" {
		rateLimiterCancel()
		return fmt.Errorf("%s", msg)
	}

	// 4. Metrics 服务器（可选）
	if d.cfg.Metrics.Enabled {
		if err := d.startMetricsServer(); err != nil {
			d.controller.Stop()
			rateLimiterCancel()
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	d.logger.Info("All servers started",
		zap.String("query_addr", d.controller.Addr()),
		zap.Bool("metrics_enabled", d.cfg.Metrics.Enabled),
		zap.Int("metrics_port", d.cfg.Metrics.Port),
	)

	return nil
}

// startMetricsServer 启动 metrics/健康检查服务器
func (d *Daemon) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.collector.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.controller.Status() == "running" {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "OK")
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "NOT READY")
	})

	serverConfig := server.DefaultConfig()
	serverConfig.Addr = fmt.Sprintf("127.0.0.1:%d", d.cfg.Metrics.Port)

	d.metricsManager = server.NewManager(mux, serverConfig, d.logger)

	if err := d.metricsManager.Start(); err != nil {
		return err
	}

	d.logger.Info("Metrics server started", zap.String("addr", d.metricsManager.Addr()))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 阻塞等待 SIGINT/SIGTERM，然后优雅关闭
func (d *Daemon) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	d.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	d.Shutdown()
}

// Shutdown 并发关闭查询服务与 metrics 服务
func (d *Daemon) Shutdown() {
	d.logger.Info("Starting graceful shutdown...")

	if d.rateLimiterCancel != nil {
		d.rateLimiterCancel()
	}

	var g errgroup.Group

	g.Go(func() error {
		if msg := d.controller.Stop(); msg != "Server stopped" {
			d.logger.Warn("query server stop", zap.String("result", msg))
		}
		return nil
	})

	if d.metricsManager != nil {
		g.Go(func() error {
			if err := d.metricsManager.Shutdown(context.Background()); err != nil {
				d.logger.Error("Metrics server shutdown error", zap.Error(err))
			}
			return nil
		})
	}

	g.Wait()

	d.logger.Info("Graceful shutdown completed")
}
