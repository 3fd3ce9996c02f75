// =============================================================================
// 🔄 服务器生命周期控制器
// =============================================================================
// 包 lifecycle 实现 start/stop/status 三个宿主操作。控制器是普通的
// 可构造对象，独占自己的工作 goroutine 与关闭通道，测试里可以并存
// 多个互不干扰的实例；进程级的单例由根包的门面持有。
// =============================================================================
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/SleepSheepQwQ/userdata-server/api/handlers"
	"github.com/SleepSheepQwQ/userdata-server/config"
	"github.com/SleepSheepQwQ/userdata-server/internal/metrics"
	"github.com/SleepSheepQwQ/userdata-server/internal/pool"
	"github.com/SleepSheepQwQ/userdata-server/internal/server"
	"github.com/SleepSheepQwQ/userdata-server/internal/store"
)

// =============================================================================
// 📦 运行状态
// =============================================================================

// RunState 生命周期三态
type RunState int32

const (
	// StateStopped 未运行
	StateStopped RunState = iota
	// StateStarting 启动中（工作 goroutine 尚未就绪）
	StateStarting
	// StateRunning 监听循环已就绪
	StateRunning
)

// String 实现 fmt.Stringer
func (s RunState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// 宿主可见的状态消息。保持固定字面量，宿主端按字符串匹配。
const (
	msgAlreadyRunning = "Server is already running"
	msgNotRunning     = "Server is not running"
	msgStarted        = "Server started successfully"
	msgStopped        = "Server stopped"
)

// stop 的有界等待：最多 2 秒，按 100ms 步长轮询
const (
	stopPollInterval = 100 * time.Millisecond
	stopPollRounds   = 20
)

// =============================================================================
// 🎛️ 控制器
// =============================================================================

// Controller 拥有运行状态与关闭通道，向宿主暴露 Start/Stop/Status。
// 三个方法可以被宿主线程并发调用，并且不会与监听循环死锁。
type Controller struct {
	logger     *zap.Logger
	cfgStore   *config.Store
	collector  *metrics.Collector
	limiterCfg pool.LimiterConfig
	middleware func(http.Handler) http.Handler
	storeOpts  store.Options

	state atomic.Int32

	mu       sync.Mutex
	shutdown chan struct{}
	addr     string
}

// Option 配置控制器
type Option func(*Controller)

// WithCollector 注入指标收集器
func WithCollector(c *metrics.Collector) Option {
	return func(ctrl *Controller) { ctrl.collector = c }
}

// WithLimiterConfig 覆盖并发限制配置
func WithLimiterConfig(cfg pool.LimiterConfig) Option {
	return func(ctrl *Controller) { ctrl.limiterCfg = cfg }
}

// WithMiddleware 在核心路由外再套一层 handler 链（守护进程用来挂
// 日志、限流等中间件）
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(ctrl *Controller) { ctrl.middleware = mw }
}

// WithStoreOptions 覆盖存储连接池配置
func WithStoreOptions(opts store.Options) Option {
	return func(ctrl *Controller) { ctrl.storeOpts = opts }
}

// New 创建控制器。logger 为 nil 时使用空日志器。
func New(logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctrl := &Controller{
		logger:     logger.With(zap.String("component", "lifecycle")),
		cfgStore:   config.NewStore(config.Default()),
		limiterCfg: pool.DefaultLimiterConfig(),
		storeOpts:  store.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// =============================================================================
// 🚀 Start
// =============================================================================

// Start 解析 JSON 配置并启动服务。配置解析失败时降级为默认配置
// （记 warning，不致命）。已经在运行时直接返回，不产生副作用。
func (c *Controller) Start(configJSON string) string {
	cfg, err := config.ParseJSON(configJSON)
	if err != nil {
		c.logger.Warn("invalid config, using defaults", zap.Error(err))
		cfg = config.Default()
	}
	return c.StartWith(cfg)
}

// StartWith 用解析好的配置启动服务。状态从 Stopped 迁移到 Starting，
// 等工作 goroutine 确认监听器就绪后才迁移到 Running——Start 返回成功
// 即表示端口已经在接受连接，没有固定延迟。
func (c *Controller) StartWith(cfg config.Config) string {
	if !c.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return msgAlreadyRunning
	}

	c.cfgStore.Set(cfg)

	// 每次启动都换一条全新的单槽关闭通道，旧通道上滞留的信号不会误伤
	shutdown := make(chan struct{}, 1)
	c.mu.Lock()
	c.shutdown = shutdown
	c.mu.Unlock()

	ready := make(chan error, 1)
	go c.run(cfg, shutdown, ready)

	if err := <-ready; err != nil {
		c.logger.Error("server failed to start", zap.Error(err))
		c.state.Store(int32(StateStopped))
		return fmt.Sprintf("Server failed to start: %v", err)
	}

	c.state.Store(int32(StateRunning))
	c.logger.Info("server started",
		zap.String("addr", c.Addr()),
		zap.String("storage_path", cfg.StoragePath),
	)
	return msgStarted
}

// run 是监听循环的工作 goroutine。就绪（或启动失败）通过 ready 通知
// 一次；之后阻塞等待关闭信号或服务器异步错误。
func (c *Controller) run(cfg config.Config, shutdown <-chan struct{}, ready chan<- error) {
	log := c.logger.With(zap.String("component", "dispatch"))

	st, err := store.Open(cfg.StoragePath, c.storeOpts, c.logger)
	if err != nil {
		log.Error("storage check failed, aborting start", zap.Error(err))
		ready <- err
		return
	}
	if c.collector != nil {
		st.WithRecorder(c.collector)
	}

	limiter := pool.NewRequestLimiter(c.limiterCfg)

	var handler http.Handler = handlers.NewRouter(c.cfgStore, st, c.logger)
	handler = limiter.Middleware(c.collectorOrNil())(handler)
	if c.middleware != nil {
		handler = c.middleware(handler)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Addr()
	mgr := server.NewManager(handler, srvCfg, c.logger)

	if err := mgr.Start(); err != nil {
		st.Close()
		ready <- err
		return
	}

	c.mu.Lock()
	c.addr = mgr.Addr()
	c.mu.Unlock()

	ready <- nil

	select {
	case <-shutdown:
		log.Info("shutdown signal received, stopping server")
	case err := <-mgr.Errors():
		log.Error("server exited unexpectedly", zap.Error(err))
	}

	if err := mgr.Shutdown(context.Background()); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
	limiter.Close()
	if err := st.Close(); err != nil {
		log.Warn("failed to close storage", zap.Error(err))
	}

	c.state.Store(int32(StateStopped))
	log.Info("server loop ended")
}

func (c *Controller) collectorOrNil() pool.RejectionRecorder {
	if c.collector == nil {
		return nil
	}
	return c.collector
}

// =============================================================================
// 🛑 Stop / Status
// =============================================================================

// Stop 发送一次关闭信号（非阻塞，通道里最多滞留一个信号），然后按
// 100ms 步长轮询状态，最多等 2 秒。无论是否等到都返回固定消息；
// 需要确定结果的调用方应继续轮询 Status。
func (c *Controller) Stop() string {
	if RunState(c.state.Load()) != StateRunning {
		return msgNotRunning
	}

	c.mu.Lock()
	shutdown := c.shutdown
	c.mu.Unlock()

	if shutdown != nil {
		select {
		case shutdown <- struct{}{}:
		default:
		}
	}

	for i := 0; i < stopPollRounds; i++ {
		if RunState(c.state.Load()) == StateStopped {
			break
		}
		time.Sleep(stopPollInterval)
	}

	return msgStopped
}

// Status 单次原子读，永不阻塞。Starting 对宿主表现为 "stopped"。
func (c *Controller) Status() string {
	if RunState(c.state.Load()) == StateRunning {
		return "running"
	}
	return "stopped"
}

// State 返回当前精确状态（测试与诊断用）
func (c *Controller) State() RunState {
	return RunState(c.state.Load())
}

// Addr 返回最近一次成功启动时实际绑定的地址。配置端口为 0 时，
// 这里是系统分配的端口。
func (c *Controller) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// Config 返回当前生效的配置快照
func (c *Controller) Config() config.Config {
	return c.cfgStore.Get()
}

// TestStorage 独立于运行中的服务，打开 path 并报告行数或错误描述
func (c *Controller) TestStorage(path string) string {
	return store.TestStorage(path)
}
