// Package interfaces 定义 go-ringdht 公共接口
//
// 本文件定义 Messenger 接口，提供关联请求/回复。
package interfaces

import (
	"context"
	"time"

	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// Messenger 定义关联请求/回复接口
//
// 每次 SendRequest 只发送一次，不重试；重试策略由调用方负责。
type Messenger interface {
	// SendRequest 发送请求并阻塞等待关联回复
	//
	// 超时返回 types.ErrTransportTimeout。
	SendRequest(ctx context.Context, payload []string, dst types.Address, timeout time.Duration) ([]string, error)

	// Reply 回复入站请求（不等待确认）
	Reply(req *protocol.Envelope, payload []string) error

	// Notify 发送 needsReply=true 的报文但不登记等待
	//
	// 用于 Search 这类由其他节点间接回复的报文。
	Notify(ctx context.Context, payload []string, dst types.Address) error

	// LocalAddr 返回本节点地址
	LocalAddr() types.Address
}
