package ringdht

import (
	"errors"

	"github.com/dep2p/go-ringdht/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("peer not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("peer already started")

	// ErrPeerClosed 节点已关闭
	ErrPeerClosed = errors.New("peer closed")

	// ────────────────────────────────────────────────────────────────────────
	// 环协议错误（与 pkg/types 中的定义相同，便于 errors.Is 判断）
	// ────────────────────────────────────────────────────────────────────────

	// ErrTransportTimeout 截止时间前未收到回复
	ErrTransportTimeout = types.ErrTransportTimeout

	// ErrProtocolViolation 回复格式不符合协议
	ErrProtocolViolation = types.ErrProtocolViolation

	// ErrDuplicateIdentity 环上已存在相同 ID
	ErrDuplicateIdentity = types.ErrDuplicateIdentity

	// ErrPoolExhausted rendezvous 的 ID 池已耗尽
	ErrPoolExhausted = types.ErrPoolExhausted

	// ErrNotInserted 节点尚未入环
	ErrNotInserted = types.ErrNotInserted

	// ErrLookupFailed 查找失败
	ErrLookupFailed = types.ErrLookupFailed
)
