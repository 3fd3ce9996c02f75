// Package pool provides bounded admission control for request handling.
package pool

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	ErrLimiterClosed = errors.New("limiter is closed")
	ErrLimiterFull   = errors.New("limiter is full")
)

// =============================================================================
// 🚦 请求并发限制器
// =============================================================================

// RequestLimiter 限制同时在途的请求数量。每个请求仍在独立的 goroutine 上
// 处理，请求之间没有顺序保证；超过上限的请求短暂排队，排队超时后被拒绝。
type RequestLimiter struct {
	slots       chan struct{}
	waitTimeout time.Duration
	closed      atomic.Bool

	// Metrics
	active   atomic.Int32
	admitted atomic.Int64
	rejected atomic.Int64
}

// LimiterConfig 限制器配置
type LimiterConfig struct {
	// 最大并发在途请求数
	MaxConcurrent int `json:"max_concurrent"`
	// 名额耗尽后等待名额的最长时间
	AcquireTimeout time.Duration `json:"acquire_timeout"`
}

// DefaultLimiterConfig 返回默认配置
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		MaxConcurrent:  64,
		AcquireTimeout: 100 * time.Millisecond,
	}
}

// NewRequestLimiter 创建请求限制器
func NewRequestLimiter(config LimiterConfig) *RequestLimiter {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultLimiterConfig().MaxConcurrent
	}
	return &RequestLimiter{
		slots:       make(chan struct{}, config.MaxConcurrent),
		waitTimeout: config.AcquireTimeout,
	}
}

// Acquire 申请一个并发名额。名额耗尽时最多等待 AcquireTimeout，
// 超时或请求上下文取消则失败。
func (l *RequestLimiter) Acquire(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLimiterClosed
	}

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		l.admitted.Add(1)
		return nil
	default:
	}

	timer := time.NewTimer(l.waitTimeout)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		l.admitted.Add(1)
		return nil
	case <-ctx.Done():
		l.rejected.Add(1)
		return ctx.Err()
	case <-timer.C:
		l.rejected.Add(1)
		return ErrLimiterFull
	}
}

// Release 归还一个并发名额
func (l *RequestLimiter) Release() {
	select {
	case <-l.slots:
		l.active.Add(-1)
	default:
		// Release 多于 Acquire 属于调用方 bug，不做静默计数
	}
}

// Close 关闭限制器，此后的 Acquire 一律失败
func (l *RequestLimiter) Close() {
	l.closed.Store(true)
}

// =============================================================================
// 📊 统计信息
// =============================================================================

// LimiterStats 限制器统计信息
type LimiterStats struct {
	Active   int32 `json:"active"`
	Admitted int64 `json:"admitted"`
	Rejected int64 `json:"rejected"`
}

// Stats 返回当前统计信息
func (l *RequestLimiter) Stats() LimiterStats {
	return LimiterStats{
		Active:   l.active.Load(),
		Admitted: l.admitted.Load(),
		Rejected: l.rejected.Load(),
	}
}

// =============================================================================
// 🌐 HTTP 中间件
// =============================================================================

// RejectionRecorder 接收拒绝事件（由 metrics.Collector 实现）
type RejectionRecorder interface {
	RecordRejected()
}

// Middleware 将限制器套在 handler 外层，超限请求返回 503。
// recorder 可以为 nil。
func (l *RequestLimiter) Middleware(recorder RejectionRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := l.Acquire(r.Context()); err != nil {
				if recorder != nil {
					recorder.RecordRejected()
				}
				http.Error(w, "Server Busy", http.StatusServiceUnavailable)
				return
			}
			defer l.Release()
			next.ServeHTTP(w, r)
		})
	}
}
