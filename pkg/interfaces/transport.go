// Package interfaces 定义 go-ringdht 公共接口
//
// 本文件定义 Transport 接口，抽象底层数据报传输。
package interfaces

import (
	"github.com/dep2p/go-ringdht/pkg/types"
)

// Transport 定义数据报传输接口
//
// 语义与 UDP 一致：无连接、无序、可能丢失。
// 写往不存在或已失效的端点的数据报静默丢失。
type Transport interface {
	// ReadFrom 阻塞读取一个数据报
	//
	// 传输关闭后返回错误。
	ReadFrom(buf []byte) (n int, from types.Address, err error)

	// WriteTo 发送一个数据报
	WriteTo(b []byte, to types.Address) error

	// LocalAddr 返回本地绑定地址（端口 0 时为实际端口）
	LocalAddr() types.Address

	// Close 关闭传输，解除阻塞中的 ReadFrom
	Close() error
}
