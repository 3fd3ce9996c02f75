// =============================================================================
// 📦 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultDaemonConfig 返回守护进程默认配置
func DefaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		Server:  Default(),
		Metrics: DefaultMetricsConfig(),
		Limits:  DefaultLimitsConfig(),
		Log:     DefaultLogConfig(),
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: true,
		Port:    9091,
	}
}

// DefaultLimitsConfig 返回默认并发与限流配置
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		MaxConcurrent:  64,
		AcquireTimeout: 100 * time.Millisecond,
		RateLimitRPS:   100,
		RateLimitBurst: 200,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "json",
	}
}
