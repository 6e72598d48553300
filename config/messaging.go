package config

import (
	"errors"
	"time"
)

// MessagingConfig 关联请求/回复层配置
type MessagingConfig struct {
	// InboundQueueSize 入站待处理队列长度，满时丢弃新报文
	InboundQueueSize int `json:"inbound_queue_size"`

	// OutboundQueueSize 出站发送队列长度
	OutboundQueueSize int `json:"outbound_queue_size"`

	// SendRate 每秒最多发送的数据报数，0 表示不限速
	SendRate float64 `json:"send_rate"`

	// SendBurst 限速突发量
	SendBurst int `json:"send_burst"`

	// MaxDatagramSize 单个数据报最大字节数
	MaxDatagramSize int `json:"max_datagram_size"`

	// RequestTimeout 未显式指定超时时的默认请求超时
	RequestTimeout Duration `json:"request_timeout"`
}

// DefaultMessagingConfig 返回默认消息层配置
func DefaultMessagingConfig() MessagingConfig {
	return MessagingConfig{
		InboundQueueSize:  256,
		OutboundQueueSize: 256,
		SendRate:          0,
		SendBurst:         64,
		MaxDatagramSize:   4096,
		RequestTimeout:    Duration(time.Second),
	}
}

// Validate 验证消息层配置
func (c *MessagingConfig) Validate() error {
	if c.InboundQueueSize <= 0 {
		return errors.New("messaging: inbound_queue_size must be positive")
	}
	if c.OutboundQueueSize <= 0 {
		return errors.New("messaging: outbound_queue_size must be positive")
	}
	if c.SendRate < 0 {
		return errors.New("messaging: send_rate cannot be negative")
	}
	if c.SendRate > 0 && c.SendBurst <= 0 {
		return errors.New("messaging: send_burst must be positive when send_rate is set")
	}
	if c.MaxDatagramSize < 512 {
		return errors.New("messaging: max_datagram_size must be at least 512")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("messaging: request_timeout must be positive")
	}
	return nil
}
