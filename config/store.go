package config

import "sync"

// =============================================================================
// 🔒 配置存储
// =============================================================================

// Store 单槽配置存储。启动时写入一次，之后被所有在途请求并发读取。
// Get 返回值拷贝，读者永远不会观察到写了一半的配置，也不会在使用期间阻塞写者。
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore 创建配置存储
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Set 覆盖当前配置
func (s *Store) Set(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Get 返回当前配置的值拷贝
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}
