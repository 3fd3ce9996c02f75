// Package userdata provides a top-level convenience entry point for hosting
// the user data lookup server inside another process.
//
// Usage:
//
//	import "github.com/SleepSheepQwQ/userdata-server"
//
//	msg := userdata.Start(`{"storagePath":"user_data.db","port":8080}`)
//	msg := userdata.Status() // "running" or "stopped"
//	msg := userdata.Stop()
//
// The package-level functions drive a single process-wide
// [lifecycle.Controller]; embedders that need several independent servers in
// one process should construct controllers directly via [NewController].
package userdata

import (
	"sync"

	"go.uber.org/zap"

	"github.com/SleepSheepQwQ/userdata-server/lifecycle"
)

// Option configures the controller created by [NewController].
type Option = lifecycle.Option

// WithCollector injects a metrics collector.
var WithCollector = lifecycle.WithCollector

// WithLimiterConfig overrides the request concurrency limits.
var WithLimiterConfig = lifecycle.WithLimiterConfig

// NewController creates an independent server controller.
// A nil logger falls back to a no-op logger.
func NewController(logger *zap.Logger, opts ...Option) *lifecycle.Controller {
	return lifecycle.New(logger, opts...)
}

// =============================================================================
// 📦 进程级单例
// =============================================================================

var (
	defaultOnce sync.Once
	defaultCtrl *lifecycle.Controller
)

// defaultController 惰性构建进程级控制器，日志走生产配置；
// 构建失败时退化为空日志器，宿主调用永不失败
func defaultController() *lifecycle.Controller {
	defaultOnce.Do(func() {
		logger, err := zap.NewProduction()
		if err != nil {
			logger = zap.NewNop()
		}
		defaultCtrl = lifecycle.New(logger)
	})
	return defaultCtrl
}

// Start 用 JSON 配置启动进程级服务器。
// 返回 "Server started successfully"、"Server is already running"
// 或 "Server failed to start: <原因>"。
func Start(configJSON string) string {
	return defaultController().Start(configJSON)
}

// Stop 请求停止进程级服务器，最多等待 2 秒。
// 返回 "Server stopped" 或 "Server is not running"。
func Stop() string {
	return defaultController().Stop()
}

// Status 报告进程级服务器状态："running" 或 "stopped"。
func Status() string {
	return defaultController().Status()
}

// TestStorage 打开 path 处的存储做一次诊断查询，返回人类可读的结果。
// 不依赖服务器是否在运行。
func TestStorage(path string) string {
	return defaultController().TestStorage(path)
}
