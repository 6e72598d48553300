package config

// RingConfig 环指针目录配置
type RingConfig struct {
	// AckMalformedSet 解析失败的 Set 是否仍回复 Setted
	//
	// true: 指针不变，但照常确认（兼容旧节点的行为）
	// false: 指针不变且不回复，推送方会超时重试
	// 默认值: true
	AckMalformedSet bool `json:"ack_malformed_set"`
}

// DefaultRingConfig 返回默认环目录配置
func DefaultRingConfig() RingConfig {
	return RingConfig{
		AckMalformedSet: true,
	}
}

// Validate 验证环目录配置
func (c *RingConfig) Validate() error {
	return nil
}
