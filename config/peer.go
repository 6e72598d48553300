package config

import (
	"fmt"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// PeerConfig 节点配置
type PeerConfig struct {
	// ListenAddr 本节点 UDP 监听地址（host:port，端口 0 表示随机）
	// 默认值: "127.0.0.1:0"
	ListenAddr string `json:"listen_addr"`

	// RendezvousAddr rendezvous 服务地址（host:port）
	RendezvousAddr string `json:"rendezvous_addr"`
}

// DefaultPeerConfig 返回默认节点配置
func DefaultPeerConfig() PeerConfig {
	return PeerConfig{
		ListenAddr: "127.0.0.1:0",
	}
}

// Validate 验证节点配置
//
// RendezvousAddr 允许为空（rendezvous 服务端复用该配置），
// 节点启动时再检查。
func (c *PeerConfig) Validate() error {
	if _, err := types.ParseAddress(c.ListenAddr); err != nil {
		return fmt.Errorf("peer: listen_addr: %w", err)
	}
	if c.RendezvousAddr != "" {
		if _, err := types.ParseAddress(c.RendezvousAddr); err != nil {
			return fmt.Errorf("peer: rendezvous_addr: %w", err)
		}
	}
	return nil
}
