// Package interfaces 定义 go-ringdht 公共接口
//
// 本文件定义入站报文分发接口。
package interfaces

import (
	"context"

	"github.com/dep2p/go-ringdht/pkg/protocol"
)

// Handler 入站报文处理函数
//
// 运行在唯一的应用逻辑 worker 上，不得阻塞在出站请求上；
// 需要发起请求时应另起 goroutine。
type Handler func(ctx context.Context, env *protocol.Envelope)

// HandlerRegistrar 按报文类型注册处理函数
type HandlerRegistrar interface {
	// Register 注册处理函数，同一 Tag 重复注册返回错误
	Register(tag protocol.Tag, h Handler) error

	// Unregister 注销处理函数
	Unregister(tag protocol.Tag)
}
