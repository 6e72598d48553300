// Package eventbus 实现进程内事件总线
//
// 环节点用它对外发布状态变化：
//   - types.EvtPointersChanged  由 ring.Directory 在指针变化时发布
//   - types.EvtPhaseChanged     由 lifecycle.Coordinator 发布（有状态）
//   - types.EvtSuccessorFailed  由 liveness.Detector 在修复完成后发布
//
// 发布永不阻塞：订阅者缓冲区满时事件被丢弃并计数。
//
// # 快速开始
//
//	sub, _ := bus.Subscribe(new(types.EvtPointersChanged))
//	defer sub.Close()
//
//	for evt := range sub.Out() {
//	    e := evt.(types.EvtPointersChanged)
//	    // ...
//	}
//
// # 并发安全
//
// 订阅表由 RWMutex 保护，每个事件类型一把锁；
// Subscription.Close 与 emit 在同一把锁下互斥，关闭后的通道不会再被写入。
package eventbus
