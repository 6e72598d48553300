// Package liveness 实现后继探测与环修复
//
// 每个探测周期向后继发送 Ping；超时即认为后继失效并执行修复：
//
//  1. 通知 rendezvous 释放失效节点的 ID（尽力而为）
//  2. 后继的后继就是自己时退化为单节点环
//  3. 否则查询后继的后继的 id 与其后继地址
//  4. 跳过失效节点重新链接，三节点环退化为两节点时前驱的前驱折回自己
//  5. 与加入协议一样向受影响的邻居推送 Set
//
// 只探测后继方向；前驱失效由前驱的前驱的探测间接发现。
package liveness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/join"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/discovery/rendezvous"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// 修复结果（指标标签）
const (
	resultSpliced = "spliced"
	resultAlone   = "alone"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

// ============================================================================
//                              Detector 实现
// ============================================================================

// Detector 后继失效检测器
type Detector struct {
	cfg       config.LivenessConfig
	messenger pkgif.Messenger
	dir       *ring.Directory
	coord     *lifecycle.Coordinator
	pusher    *join.Pusher
	clock     clock.Clock
	metrics   *metrics.Collector

	// client 为 nil 时不通知 rendezvous
	client *rendezvous.Client

	emitter pkgif.Emitter

	// repairMu 同一时刻只进行一次修复
	repairMu sync.Mutex

	running atomic.Bool
	closed  atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Deps 检测器依赖
type Deps struct {
	Messenger   pkgif.Messenger
	Directory   *ring.Directory
	Coordinator *lifecycle.Coordinator
	Pusher      *join.Pusher
	Client      *rendezvous.Client
	EventBus    pkgif.EventBus
	Clock       clock.Clock
	Metrics     *metrics.Collector
}

// NewDetector 创建检测器
func NewDetector(cfg config.LivenessConfig, deps Deps) *Detector {
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	// 协调器停止或出现致命错误时探测随之结束
	ctx, cancel := context.WithCancel(deps.Coordinator.Context())
	d := &Detector{
		cfg:       cfg,
		messenger: deps.Messenger,
		dir:       deps.Directory,
		coord:     deps.Coordinator,
		pusher:    deps.Pusher,
		client:    deps.Client,
		clock:     clk,
		metrics:   deps.Metrics,
		ctx:       ctx,
		cancel:    cancel,
	}
	if deps.EventBus != nil {
		em, err := deps.EventBus.Emitter(new(types.EvtSuccessorFailed))
		if err != nil {
			log.Warn("创建失效事件发射器失败", "err", err)
		} else {
			d.emitter = em
		}
	}
	return d
}

// Register 注册 Ping 处理函数
//
// 探测关闭时仍需应答他人的 Ping。
func (d *Detector) Register(reg pkgif.HandlerRegistrar) error {
	return reg.Register(protocol.Ping, d.handlePing)
}

// Unregister 注销 Ping 处理函数
func (d *Detector) Unregister(reg pkgif.HandlerRegistrar) {
	reg.Unregister(protocol.Ping)
}

func (d *Detector) handlePing(_ context.Context, env *protocol.Envelope) {
	if err := d.messenger.Reply(env, protocol.Single(protocol.Pinged)); err != nil {
		log.Debug("回复 Ping 失败", "to", env.From.String(), "err", err)
	}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动探测 worker
//
// worker 等到节点进入 Inserted 后才开始计时。
func (d *Detector) Start() error {
	if d.closed.Load() {
		return types.ErrServiceClosed
	}
	if !d.cfg.Enabled {
		log.Info("后继探测已关闭")
		return nil
	}
	if !d.running.CompareAndSwap(false, true) {
		return nil
	}

	d.wg.Add(1)
	go d.probeLoop()

	log.Info("失效检测已启动", "interval", d.cfg.ProbeInterval.Duration())
	return nil
}

// Stop 停止探测 worker
func (d *Detector) Stop() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.cancel()
	d.wg.Wait()
	if d.emitter != nil {
		_ = d.emitter.Close()
	}
	log.Info("失效检测已停止")
	return nil
}

func (d *Detector) probeLoop() {
	defer d.wg.Done()

	if err := d.coord.WaitFor(d.ctx, lifecycle.PhaseInserted); err != nil {
		return
	}

	ticker := d.clock.Ticker(d.cfg.ProbeInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if err := d.ProbeOnce(d.ctx); err != nil {
				if d.ctx.Err() != nil || errors.Is(err, types.ErrServiceClosed) {
					return
				}
				d.coord.Fail(err)
				return
			}
		}
	}
}

// ============================================================================
//                              探测与修复
// ============================================================================

// ProbeOnce 探测一次后继，超时则修复
//
// 返回的错误是致命错误。
func (d *Detector) ProbeOnce(ctx context.Context) error {
	p := d.dir.Snapshot()
	if p.IsAlone() {
		return nil
	}

	reply, err := d.messenger.SendRequest(ctx, protocol.PingMsg(), p.Next.Addr, d.cfg.ProbeTimeout.Duration())
	if err == nil {
		if _, err := protocol.Expect(reply, protocol.Pinged, 0); err != nil {
			return fmt.Errorf("ping %s: %w", p.Next, err)
		}
		return nil
	}
	if !errors.Is(err, types.ErrTransportTimeout) {
		return err
	}

	log.Warn("后继无应答", "successor", p.Next.String())
	return d.Repair(ctx, p.Next)
}

// Repair 跳过失效的后继重新链接
//
// 后继已被更换时不做任何事。后继的后继也无应答时放弃本轮，
// 下一个探测周期会再次尝试。
func (d *Detector) Repair(ctx context.Context, dead types.NodeRef) error {
	d.repairMu.Lock()
	defer d.repairMu.Unlock()

	p := d.dir.Snapshot()
	if p.Next != dead {
		d.metrics.Repair(resultSkipped)
		return nil
	}
	d.releaseID(dead.ID)

	if p.NextNextAddr == p.Self.Addr {
		d.dir.Reset()
		d.metrics.Repair(resultAlone)
		log.Warn("环退化为单节点", "dead", dead.String())
		d.emit(dead, p.Self)
		return nil
	}

	n, m, err := d.querySurvivor(ctx, p.NextNextAddr)
	if err != nil {
		if errors.Is(err, types.ErrTransportTimeout) {
			d.metrics.Repair(resultFailed)
			log.Warn("后继的后继也无应答，放弃本轮修复", "addr", p.NextNextAddr.String())
			return nil
		}
		return err
	}

	plan := Splice(p, n, m)
	if err := d.pusher.Push(ctx, plan.Updates); err != nil {
		if errors.Is(err, types.ErrTransportTimeout) {
			d.metrics.Repair(resultFailed)
			log.Warn("修复推送未完成", "err", err)
			return nil
		}
		return err
	}
	d.dir.Update(func(cur *types.RingPointers) {
		cur.Next = plan.Self.Next
		cur.NextNextAddr = plan.Self.NextNextAddr
		if m == cur.Self.Addr {
			cur.PrevPrevAddr = cur.Self.Addr
		}
	})

	d.metrics.Repair(resultSpliced)
	log.Warn("环已修复", "dead", dead.String(), "next", n.String(), "nextNext", m.String())
	d.emit(dead, n)
	return nil
}

func (d *Detector) querySurvivor(ctx context.Context, addr types.Address) (types.NodeRef, types.Address, error) {
	var lastErr error
	for attempt := 0; attempt < d.cfg.RepairQueryAttempts; attempt++ {
		id, next, err := ring.QuerySuccessor(ctx, d.messenger, addr, d.cfg.RepairQueryTimeout.Duration())
		if err == nil {
			return types.NodeRef{ID: id, Addr: addr}, next, nil
		}
		if !errors.Is(err, types.ErrTransportTimeout) {
			return types.NodeRef{}, types.Address{}, err
		}
		lastErr = err
	}
	return types.NodeRef{}, types.Address{}, lastErr
}

// releaseID 异步通知 rendezvous，失败只记录日志
func (d *Detector) releaseID(id types.NodeID) {
	if d.client == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.client.Removed(d.ctx, id); err != nil {
			log.Debug("通知 rendezvous 释放 ID 失败", "id", id.String(), "err", err)
		}
	}()
}

func (d *Detector) emit(dead, replacement types.NodeRef) {
	if d.emitter == nil {
		return
	}
	_ = d.emitter.Emit(types.EvtSuccessorFailed{Dead: dead, Replacement: replacement, Time: time.Now()})
}

// ============================================================================
//                              修复计划
// ============================================================================

// Splice 计算跳过失效后继后的指针与邻居更新
//
// p 为修复前的指针，n 为存活的后继的后继，m 为 n 的后继地址。
func Splice(p types.RingPointers, n types.NodeRef, m types.Address) join.Plan {
	self := p
	self.Next = n
	self.NextNextAddr = m
	if m == p.Self.Addr {
		// 只剩两个节点：前驱就是 n，前驱的前驱是自己
		self.PrevPrevAddr = p.Self.Addr
	}

	a := p.Self
	return join.Plan{
		Self: self,
		Updates: join.Merge(
			join.Update{Addr: n.Addr, Pairs: []string{
				string(types.FieldPreviousID), a.ID.String(),
				string(types.FieldPreviousAddress), a.Addr.String(),
				string(types.FieldPreviousPreviousAddress), p.Prev.Addr.String(),
			}},
			join.Update{Addr: p.Prev.Addr, Pairs: []string{
				string(types.FieldNextNextAddress), n.Addr.String(),
			}},
			join.Update{Addr: m, Pairs: []string{
				string(types.FieldPreviousPreviousAddress), a.Addr.String(),
			}},
		),
	}
}
