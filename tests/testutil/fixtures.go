// Package testutil 提供测试辅助工具
package testutil

import (
	"time"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// 测试数据固件
//
// 提供测试中常用的常量值，确保测试一致性。

const (
	// TestHost 测试地址使用的主机
	TestHost = "127.0.0.1"

	// RendezvousPort 测试 rendezvous 的端口，第 i 个测试节点使用 RendezvousPort+i
	RendezvousPort = 9000
)

// Addr 返回测试主机上指定端口的地址
func Addr(port int) types.Address {
	return types.NewAddress(TestHost, port)
}

// FastConfig 返回适合测试的配置
//
// 超时缩短到百毫秒级；周期探测关闭，由测试显式触发。
func FastConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Join.BootstrapInitialWait = config.Duration(50 * time.Millisecond)
	cfg.Join.BootstrapMaxWait = config.Duration(400 * time.Millisecond)
	cfg.Join.QueryTimeout = config.Duration(150 * time.Millisecond)
	cfg.Join.PushTimeout = config.Duration(150 * time.Millisecond)
	cfg.Liveness.Enabled = false
	cfg.Liveness.ProbeTimeout = config.Duration(150 * time.Millisecond)
	cfg.Liveness.RepairQueryTimeout = config.Duration(150 * time.Millisecond)
	cfg.Routing.LookupTimeout = config.Duration(500 * time.Millisecond)
	return cfg
}
