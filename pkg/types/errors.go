// Package types 定义 go-ringdht 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              错误分类
// ============================================================================

var (
	// ErrTransportTimeout 截止时间前未收到关联回复
	//
	// 单次 SendRequest 立即返回该错误（不重试），
	// 由 bootstrap / join / repair 循环负责重试。
	ErrTransportTimeout = errors.New("transport timeout")

	// ErrProtocolViolation 回复的形状或字段数不符合预期
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrDuplicateIdentity 加入时发现环上已存在相同 ID
	ErrDuplicateIdentity = errors.New("duplicate identity")

	// ErrMalformedUpdate Set 载荷解析失败，指针未被修改
	ErrMalformedUpdate = errors.New("malformed update")
)

// ============================================================================
//                              运行时错误
// ============================================================================

var (
	// ErrPoolExhausted rendezvous 的 ID 池已耗尽
	ErrPoolExhausted = errors.New("id pool exhausted")

	// ErrServiceClosed 服务已关闭
	ErrServiceClosed = errors.New("service closed")

	// ErrNotInserted 节点尚未加入环
	ErrNotInserted = errors.New("node not inserted into ring")

	// ErrLookupFailed 查找在所有尝试后仍未得到 Found
	ErrLookupFailed = errors.New("lookup failed")
)
