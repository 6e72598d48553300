// Package lifecycle 提供环节点的加入状态机协调器
//
// 阶段定义：
//
//	Created → Bootstrapping → Searching → Inserted → Stopped
//
// 根节点跳过 Searching，直接从 Bootstrapping 进入 Inserted。
//
// 本模块的核心职责：
//  1. 追踪当前阶段，只允许向前推进
//  2. 提供阶段 gate（WaitFor），失效检测和键路由据此等待节点入环
//  3. 汇集致命错误（Fail），由节点门面统一上报并终止进程
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("lifecycle")

// ============================================================================
//                              阶段定义
// ============================================================================

// Phase 加入状态机阶段
type Phase int

const (
	// PhaseCreated 节点已创建，未启动
	PhaseCreated Phase = iota

	// PhaseBootstrapping 正在向 rendezvous 申请 ID
	PhaseBootstrapping

	// PhaseSearching 正在从根节点出发寻找插入位置
	PhaseSearching

	// PhaseInserted 已入环，4 个指针有效
	PhaseInserted

	// PhaseStopped 已停止
	PhaseStopped
)

// String 返回阶段字符串表示
func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseBootstrapping:
		return "bootstrapping"
	case PhaseSearching:
		return "searching"
	case PhaseInserted:
		return "inserted"
	case PhaseStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ============================================================================
//                              协调器
// ============================================================================

// Coordinator 加入状态机协调器
type Coordinator struct {
	mu sync.RWMutex

	phase Phase

	// phaseSignals 阶段完成信号，关闭表示已到达该阶段
	phaseSignals map[Phase]chan struct{}

	// fatal 第一个致命错误
	fatal     error
	fatalChan chan error

	emitter pkgif.Emitter

	onPhaseChange []func(old, new Phase)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewCoordinator 创建协调器
//
// bus 可以为 nil；非 nil 时阶段变化以有状态事件 types.EvtPhaseChanged 发布。
func NewCoordinator(bus pkgif.EventBus) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		phase:        PhaseCreated,
		phaseSignals: make(map[Phase]chan struct{}),
		fatalChan:    make(chan error, 1),
		ctx:          ctx,
		cancel:       cancel,
	}
	for p := PhaseCreated; p <= PhaseStopped; p++ {
		c.phaseSignals[p] = make(chan struct{})
	}
	close(c.phaseSignals[PhaseCreated])

	if bus != nil {
		em, err := bus.Emitter(new(types.EvtPhaseChanged), pkgif.Stateful())
		if err != nil {
			log.Warn("创建阶段事件发射器失败", "err", err)
		} else {
			c.emitter = em
		}
	}
	return c
}

// Phase 返回当前阶段
func (c *Coordinator) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// AdvanceTo 推进到指定阶段
//
// 只能向前推进；跳过的中间阶段信号同样被关闭。
func (c *Coordinator) AdvanceTo(target Phase) error {
	c.mu.Lock()

	if target < c.phase {
		c.mu.Unlock()
		return fmt.Errorf("cannot advance backwards: current=%s target=%s", c.phase, target)
	}
	if target == c.phase {
		c.mu.Unlock()
		return nil
	}
	if _, ok := c.phaseSignals[target]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("invalid phase: %d", int(target))
	}

	old := c.phase
	for p := old + 1; p <= target; p++ {
		close(c.phaseSignals[p])
	}
	c.phase = target

	callbacks := make([]func(old, new Phase), len(c.onPhaseChange))
	copy(callbacks, c.onPhaseChange)
	em := c.emitter
	c.mu.Unlock()

	log.Info("加入阶段推进", "from", old.String(), "to", target.String())

	if em != nil {
		_ = em.Emit(types.EvtPhaseChanged{From: old.String(), To: target.String(), Time: time.Now()})
	}
	for _, cb := range callbacks {
		cb(old, target)
	}
	return nil
}

// WaitFor 等待到达指定阶段
//
// 协调器停止或出现致命错误时提前返回。
func (c *Coordinator) WaitFor(ctx context.Context, phase Phase) error {
	c.mu.RLock()
	ch := c.phaseSignals[phase]
	c.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("invalid phase: %d", int(phase))
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		if err := c.Err(); err != nil {
			return err
		}
		return types.ErrServiceClosed
	}
}

// Reached 是否已到达指定阶段
func (c *Coordinator) Reached(phase Phase) bool {
	c.mu.RLock()
	ch := c.phaseSignals[phase]
	c.mu.RUnlock()
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// OnPhaseChange 注册阶段变更回调（同步调用，不得阻塞）
func (c *Coordinator) OnPhaseChange(callback func(old, new Phase)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPhaseChange = append(c.onPhaseChange, callback)
}

// ============================================================================
//                              致命错误
// ============================================================================

// Fail 上报致命错误
//
// 只记录第一个错误；之后协调器上下文被取消，所有 WaitFor 返回该错误。
func (c *Coordinator) Fail(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if c.fatal != nil {
		c.mu.Unlock()
		return
	}
	c.fatal = err
	c.mu.Unlock()

	log.Error("致命错误", "err", err)
	c.fatalChan <- err
	c.cancel()
}

// Fatal 返回致命错误通道（最多一个错误）
func (c *Coordinator) Fatal() <-chan error {
	return c.fatalChan
}

// Err 返回已记录的致命错误
func (c *Coordinator) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fatal
}

// ============================================================================
//                              生命周期控制
// ============================================================================

// Stop 停止协调器
func (c *Coordinator) Stop() {
	if !c.Reached(PhaseStopped) {
		_ = c.AdvanceTo(PhaseStopped)
	}
	c.cancel()

	c.mu.Lock()
	em := c.emitter
	c.emitter = nil
	c.mu.Unlock()
	if em != nil {
		_ = em.Close()
	}
}

// Context 返回协调器上下文，停止或致命错误时取消
func (c *Coordinator) Context() context.Context {
	return c.ctx
}
