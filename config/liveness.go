package config

import (
	"errors"
	"time"
)

// LivenessConfig 后继探测与环修复配置
type LivenessConfig struct {
	// Enabled 是否启用后继探测
	// 默认值: true
	Enabled bool `json:"enabled"`

	// ProbeInterval 探测间隔
	// 默认值: 3s
	ProbeInterval Duration `json:"probe_interval"`

	// ProbeTimeout 单次 Ping 超时，必须小于 ProbeInterval
	// 默认值: 1s
	ProbeTimeout Duration `json:"probe_timeout"`

	// RepairQueryTimeout 修复时查询后继的后继的超时
	RepairQueryTimeout Duration `json:"repair_query_timeout"`

	// RepairQueryAttempts 修复查询次数
	RepairQueryAttempts int `json:"repair_query_attempts"`
}

// DefaultLivenessConfig 返回默认失效检测配置
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Enabled:             true,
		ProbeInterval:       Duration(3 * time.Second),
		ProbeTimeout:        Duration(time.Second),
		RepairQueryTimeout:  Duration(time.Second),
		RepairQueryAttempts: 3,
	}
}

// Validate 验证失效检测配置
func (c *LivenessConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ProbeInterval <= 0 {
		return errors.New("liveness: probe_interval must be positive")
	}
	if c.ProbeTimeout <= 0 || c.ProbeTimeout >= c.ProbeInterval {
		return errors.New("liveness: probe_timeout must be positive and less than probe_interval")
	}
	if c.RepairQueryTimeout <= 0 {
		return errors.New("liveness: repair_query_timeout must be positive")
	}
	if c.RepairQueryAttempts <= 0 {
		return errors.New("liveness: repair_query_attempts must be positive")
	}
	return nil
}
