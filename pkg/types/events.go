// Package types 定义 go-ringdht 公共类型
//
// 本文件定义事件总线上传递的事件类型。
package types

import "time"

// ============================================================================
//                              环事件
// ============================================================================

// EvtPointersChanged 本节点的环指针发生变化
type EvtPointersChanged struct {
	Old  RingPointers
	New  RingPointers
	Time time.Time
}

// EvtPhaseChanged 加入状态机阶段变化
//
// From / To 为 lifecycle.Phase 的字符串形式，避免 types 反向依赖。
type EvtPhaseChanged struct {
	From string
	To   string
	Time time.Time
}

// EvtSuccessorFailed 后继探测超时并完成修复
type EvtSuccessorFailed struct {
	// Dead 失效的后继
	Dead NodeRef

	// Replacement 修复后的新后继（环退化为单节点时为自己）
	Replacement NodeRef

	Time time.Time
}
