package config

import (
	"fmt"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// RendezvousConfig rendezvous 服务端配置
//
// 只在运行 rendezvous 进程时使用。
type RendezvousConfig struct {
	// ListenAddr 监听地址
	ListenAddr string `json:"listen_addr"`

	// K ID 池上界，池大小为 K+1
	// 默认值: 7
	K uint64 `json:"k"`

	// Method ID 分布方式（1 线性，2 的幂为 2）
	// 默认值: 1
	Method types.DistributionMethod `json:"method"`

	// Seed ID 随机选取的种子，0 表示使用时间种子
	Seed int64 `json:"seed"`

	// ResetOnMismatch 持久化的池参数与 K/Method 不一致时清空旧注册记录，
	// 否则启动失败
	ResetOnMismatch bool `json:"reset_on_mismatch"`
}

// DefaultRendezvousConfig 返回默认 rendezvous 配置
func DefaultRendezvousConfig() RendezvousConfig {
	return RendezvousConfig{
		ListenAddr: "127.0.0.1:0",
		K:          7,
		Method:     types.MethodLinear,
	}
}

// Validate 验证 rendezvous 配置
func (c *RendezvousConfig) Validate() error {
	if _, err := types.ParseAddress(c.ListenAddr); err != nil {
		return fmt.Errorf("rendezvous: listen_addr: %w", err)
	}
	if err := c.Method.ValidateK(c.K); err != nil {
		return fmt.Errorf("rendezvous: %w", err)
	}
	return nil
}
