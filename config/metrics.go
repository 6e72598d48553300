package config

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// Namespace 指标名前缀
	// 默认值: "ringdht"
	Namespace string `json:"namespace"`

	// ListenAddr /metrics HTTP 监听地址，为空表示不暴露
	ListenAddr string `json:"listen_addr"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "ringdht",
	}
}

// Validate 验证指标配置
func (c *MetricsConfig) Validate() error {
	if c.Namespace == "" {
		return errors.New("metrics: namespace cannot be empty")
	}
	if c.ListenAddr != "" {
		if _, err := types.ParseAddress(c.ListenAddr); err != nil {
			return fmt.Errorf("metrics: listen_addr: %w", err)
		}
	}
	return nil
}
