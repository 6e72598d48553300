// Package types 定义 go-ringdht 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
// 基础类型:
//   - nodeid.go   - NodeID, DistributionMethod（ID 池与分布方式）
//   - address.go  - Address（host:port），NodeRef
//   - pointers.go - RingPointers（4 个邻居指针快照），Field（字段名）
//   - errors.go   - 公共错误定义（错误分类）
//
// 事件类型:
//   - events.go   - EvtPointersChanged, EvtPhaseChanged, EvtSuccessorFailed
//
// # 环模型
//
// 节点按 NodeID 顺时针排列成环，每个节点只保存：
//
//	previousPreviousAddress ← previous ← self → next → nextNextAddress
//
// 两跳指针（PrevPrevAddr / NextNextAddr）只是修复用的缓存，
// 在一次修复周期内允许过期。
package types
