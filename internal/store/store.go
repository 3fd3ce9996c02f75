// Package store implements read-only access to the user contact database.
// The backing store is a pre-existing SQLite file with a users table
// (email, phone, qq — all nullable). This package never writes to it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// =============================================================================
// 🗄️ 用户数据存储
// =============================================================================

var (
	// ErrStorageUnavailable 数据库路径不存在或无法打开
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnknownField 查询字段不在白名单内
	ErrUnknownField = errors.New("unknown query field")
)

// fieldColumns 查询字段白名单。字段名在拼入 SQL 前必须经过这张表，
// 表外字段一律拒绝。
var fieldColumns = map[string]string{
	"phone": "phone",
	"qq":    "qq",
	"email": "email",
}

// UserRecord 用户记录的只读投影。字段顺序即 JSON 序列化顺序，
// 缺失值序列化为 null。
type UserRecord struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
	QQ    *string `json:"qq"`
}

// QueryRecorder 接收存储查询指标（由 metrics.Collector 实现）
type QueryRecorder interface {
	RecordStorageQuery(operation string, duration time.Duration, err error)
}

// Store 共享的只读数据库句柄，可被并发的请求任务安全使用。
type Store struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	logger   *zap.Logger
	recorder QueryRecorder
}

// Options 连接池配置
type Options struct {
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultOptions 返回默认连接池配置。本服务只读，连接数保持小而稳。
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Open 打开 path 处的 SQLite 数据库。路径不存在或无法打开时返回
// ErrStorageUnavailable，调用方据此中止本次启动。
func Open(path string, opts Options, logger *zap.Logger) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, path, err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	st, err := New(db, logger)
	if err != nil {
		return nil, err
	}

	st.sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	st.sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	st.sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	st.sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.sqlDB.PingContext(ctx); err != nil {
		st.sqlDB.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	logger.Info("storage opened",
		zap.String("path", path),
		zap.Int("max_open_conns", opts.MaxOpenConns),
	)

	return st, nil
}

// New 在已有的 GORM 句柄上创建 Store（测试注入其他 dialector 时使用）
func New(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	return &Store{
		db:     db,
		sqlDB:  sqlDB,
		logger: logger.With(zap.String("component", "store")),
	}, nil
}

// WithRecorder 设置查询指标记录器，返回自身便于链式调用
func (s *Store) WithRecorder(r QueryRecorder) *Store {
	s.recorder = r
	return s
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Stats 返回连接池统计信息
func (s *Store) Stats() sql.DBStats {
	return s.sqlDB.Stats()
}

// =============================================================================
// 🎯 查询操作
// =============================================================================
// 统一策略：查询失败降级为 0 / 空结果，记录 warning，绝不让请求处理崩溃。

// CountAll 返回 users 表的总行数，失败时返回 0
func (s *Store) CountAll(ctx context.Context) int64 {
	var n int64
	start := time.Now()
	err := s.db.WithContext(ctx).Raw("SELECT COUNT(*) FROM users").Scan(&n).Error
	s.record("count_all", start, err)
	if err != nil {
		s.logger.Warn("count query failed", zap.Error(err))
		return 0
	}
	return n
}

// CountDistinct 返回某字段的非空去重计数，未知字段或查询失败时返回 0
func (s *Store) CountDistinct(ctx context.Context, field string) int64 {
	col, ok := fieldColumns[field]
	if !ok {
		s.logger.Warn("count distinct on unknown field", zap.String("field", field))
		return 0
	}

	var n int64
	start := time.Now()
	query := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM users WHERE %s IS NOT NULL", col, col)
	err := s.db.WithContext(ctx).Raw(query).Scan(&n).Error
	s.record("count_distinct", start, err)
	if err != nil {
		s.logger.Warn("count distinct query failed",
			zap.String("field", field), zap.Error(err))
		return 0
	}
	return n
}

// Lookup 按单个字段做参数化等值查询。结果顺序由存储决定，本层不保证。
// 单行解码失败时跳过该行而不是中止整个查询。返回值永远非 nil。
func (s *Store) Lookup(ctx context.Context, field, value string) []UserRecord {
	results := make([]UserRecord, 0)

	col, ok := fieldColumns[field]
	if !ok {
		s.logger.Warn("lookup on unknown field", zap.String("field", field))
		return results
	}

	start := time.Now()
	query := fmt.Sprintf("SELECT email, phone, qq FROM users WHERE %s = ?", col)
	rows, err := s.db.WithContext(ctx).Raw(query, value).Rows()
	s.record("lookup", start, err)
	if err != nil {
		s.logger.Warn("lookup query failed",
			zap.String("field", field), zap.Error(err))
		return results
	}
	defer rows.Close()

	for rows.Next() {
		var email, phone, qq sql.NullString
		if err := rows.Scan(&email, &phone, &qq); err != nil {
			// 解码失败的行直接丢弃，不重试
			s.logger.Warn("dropping undecodable row", zap.Error(err))
			continue
		}
		results = append(results, UserRecord{
			Email: nullableString(email),
			Phone: nullableString(phone),
			QQ:    nullableString(qq),
		})
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("lookup row iteration failed", zap.Error(err))
	}

	return results
}

func (s *Store) record(operation string, start time.Time, err error) {
	if s.recorder != nil {
		s.recorder.RecordStorageQuery(operation, time.Since(start), err)
	}
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// =============================================================================
// 🔍 诊断
// =============================================================================

// TestStorage 独立于运行中的服务器，打开 path 并报告行数或错误描述。
// 返回的是面向宿主的状态字符串而不是 error。
func TestStorage(path string) string {
	if _, err := os.Stat(path); err != nil {
		return fmt.Sprintf("Cannot open database: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Sprintf("Cannot open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Sprintf("Cannot open database: %v", err)
	}
	defer sqlDB.Close()

	var n int64
	if err := db.Raw("SELECT COUNT(*) FROM users").Scan(&n).Error; err != nil {
		return fmt.Sprintf("Database query failed: %v", err)
	}
	return fmt.Sprintf("Database OK. Records: %d", n)
}
