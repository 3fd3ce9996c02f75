// =============================================================================
// 📦 用户数据服务配置
// =============================================================================
// 宿主端配置：嵌入方通过一段 JSON 字符串传入 {storagePath, port}。
// 解析失败时调用方回退到 Default()（记录 warning，不致命）。
// =============================================================================
package config

import (
	"encoding/json"
	"fmt"
)

// 默认配置常量
const (
	// DefaultStoragePath 默认 SQLite 数据库路径
	DefaultStoragePath = "user_data.db"

	// DefaultPort 默认监听端口
	DefaultPort = 8080
)

// Config 服务器运行配置。服务运行期间不可变，替换配置需要 stop/start。
type Config struct {
	// StoragePath SQLite 数据库文件路径（必须已存在，本服务从不建表）
	StoragePath string `json:"storagePath" yaml:"storage_path" env:"STORAGE_PATH"`

	// Port 监听端口，绑定 127.0.0.1。0 表示由系统分配临时端口
	Port int `json:"port" yaml:"port" env:"PORT"`
}

// Default 返回硬编码默认配置
func Default() Config {
	return Config{
		StoragePath: DefaultStoragePath,
		Port:        DefaultPort,
	}
}

// ParseJSON 从 JSON 字符串解析配置。未出现的字段保留默认值。
// 解析或校验失败时返回默认配置和错误，由调用方决定是否降级。
func ParseJSON(raw string) (Config, error) {
	cfg := Default()
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Default(), fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.StoragePath == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Addr 返回本地回环监听地址
func (c Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}
