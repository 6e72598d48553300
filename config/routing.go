package config

import (
	"errors"
	"time"
)

// RoutingConfig 键路由配置
type RoutingConfig struct {
	// LookupTimeout 单次查找等待 Found 的时间
	LookupTimeout Duration `json:"lookup_timeout"`

	// LookupAttempts 查找次数（每次使用新的关联 ID）
	LookupAttempts int `json:"lookup_attempts"`

	// FoundTimeout 所有者发送 Found 等待 Ack 的超时
	FoundTimeout Duration `json:"found_timeout"`

	// SeenCacheSize 已转发 Search 的去重缓存大小
	SeenCacheSize int `json:"seen_cache_size"`
}

// DefaultRoutingConfig 返回默认键路由配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		LookupTimeout:  Duration(2 * time.Second),
		LookupAttempts: 3,
		FoundTimeout:   Duration(time.Second),
		SeenCacheSize:  1024,
	}
}

// Validate 验证键路由配置
func (c *RoutingConfig) Validate() error {
	if c.LookupTimeout <= 0 || c.FoundTimeout <= 0 {
		return errors.New("routing: lookup_timeout and found_timeout must be positive")
	}
	if c.LookupAttempts <= 0 {
		return errors.New("routing: lookup_attempts must be positive")
	}
	if c.SeenCacheSize <= 0 {
		return errors.New("routing: seen_cache_size must be positive")
	}
	return nil
}
