package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/SleepSheepQwQ/userdata-server/config"
	"github.com/SleepSheepQwQ/userdata-server/internal/store"
)

// =============================================================================
// 🗺️ 请求路由
// =============================================================================
// 路由表是固定的：
//
//	GET  /        固定的存活字符串
//	GET  /config  当前配置 JSON
//	POST /query   单字段查询，返回 UserRecord JSON 数组
//	POST /stats   四项聚合统计的 HTML 片段
//
// GET/POST 未映射路径 → 404；其他方法 → 405。

// UserDirectory 是请求处理所需的数据访问接口（由 store.Store 实现）
type UserDirectory interface {
	CountAll(ctx context.Context) int64
	CountDistinct(ctx context.Context, field string) int64
	Lookup(ctx context.Context, field, value string) []store.UserRecord
}

// Router 将 (method, path) 映射到处理函数
type Router struct {
	cfg    *config.Store
	dir    UserDirectory
	logger *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(cfg *config.Store, dir UserDirectory, logger *zap.Logger) *Router {
	return &Router{
		cfg:    cfg,
		dir:    dir,
		logger: logger.With(zap.String("component", "router")),
	}
}

// ServeHTTP 实现 http.Handler
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		switch r.URL.Path {
		case "/":
			rt.handleRoot(w, r)
		case "/config":
			rt.handleConfig(w, r)
		default:
			rt.handleNotFound(w, r)
		}
	case http.MethodPost:
		switch r.URL.Path {
		case "/query":
			rt.handleQuery(w, r)
		case "/stats":
			rt.handleStats(w, r)
		default:
			rt.handleNotFound(w, r)
		}
	default:
		WriteText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}
}

// handleRoot 存活检查
func (rt *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	WriteText(w, http.StatusOK, "User Data Server Running")
}

// handleConfig 返回当前生效的配置
func (rt *Router) handleConfig(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, rt.cfg.Get())
}

func (rt *Router) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteText(w, http.StatusNotFound, "Not Found")
}
