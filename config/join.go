package config

import (
	"errors"
	"time"
)

// JoinConfig 加入协议配置
type JoinConfig struct {
	// BootstrapInitialWait 向 rendezvous 发送 hello/ACK 的首次等待
	// 默认值: 200ms
	BootstrapInitialWait Duration `json:"bootstrap_initial_wait"`

	// BootstrapMaxWait 等待时间上限，翻倍后超过该值即失败
	// 默认值: 10s
	BootstrapMaxWait Duration `json:"bootstrap_max_wait"`

	// QueryTimeout 查询候选节点指针的超时
	QueryTimeout Duration `json:"query_timeout"`

	// QueryAttempts 单个候选节点的查询次数，耗尽后从根节点重新开始
	QueryAttempts int `json:"query_attempts"`

	// PushTimeout 推送 Set 的单次超时
	PushTimeout Duration `json:"push_timeout"`

	// PushAttempts 单个邻居的推送次数，0 表示直到成功或上下文取消
	PushAttempts int `json:"push_attempts"`
}

// DefaultJoinConfig 返回默认加入协议配置
func DefaultJoinConfig() JoinConfig {
	return JoinConfig{
		BootstrapInitialWait: Duration(200 * time.Millisecond),
		BootstrapMaxWait:     Duration(10 * time.Second),
		QueryTimeout:         Duration(time.Second),
		QueryAttempts:        5,
		PushTimeout:          Duration(time.Second),
		PushAttempts:         0,
	}
}

// Validate 验证加入协议配置
func (c *JoinConfig) Validate() error {
	if c.BootstrapInitialWait <= 0 {
		return errors.New("join: bootstrap_initial_wait must be positive")
	}
	if c.BootstrapMaxWait < c.BootstrapInitialWait {
		return errors.New("join: bootstrap_max_wait must be >= bootstrap_initial_wait")
	}
	if c.QueryTimeout <= 0 || c.PushTimeout <= 0 {
		return errors.New("join: query_timeout and push_timeout must be positive")
	}
	if c.QueryAttempts <= 0 {
		return errors.New("join: query_attempts must be positive")
	}
	if c.PushAttempts < 0 {
		return errors.New("join: push_attempts cannot be negative")
	}
	return nil
}
