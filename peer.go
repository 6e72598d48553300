package ringdht

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/join"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/liveness"
	"github.com/dep2p/go-ringdht/internal/core/messaging"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/core/routing"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("ringdht")

// stopTimeout Close 时停止 Fx 应用的超时
const stopTimeout = 10 * time.Second

// Phase 加入状态机阶段
type Phase = lifecycle.Phase

// 加入阶段
const (
	PhaseCreated       = lifecycle.PhaseCreated
	PhaseBootstrapping = lifecycle.PhaseBootstrapping
	PhaseSearching     = lifecycle.PhaseSearching
	PhaseInserted      = lifecycle.PhaseInserted
	PhaseStopped       = lifecycle.PhaseStopped
)

// Owner 键查找结果
type Owner = routing.Owner

// ════════════════════════════════════════════════════════════════════════════
//                              Peer
// ════════════════════════════════════════════════════════════════════════════

// Peer 环节点
//
// 通过 New 创建，Start 后加入环；Close 之后不可再用。
type Peer struct {
	mu sync.Mutex

	cfg *config.Config
	app *fx.App

	// 由 Fx 注入
	bus       pkgif.EventBus
	coord     *lifecycle.Coordinator
	messaging *messaging.Service
	dir       *ring.Directory
	joiner    *join.Joiner
	detector  *liveness.Detector
	router    *routing.Router

	started bool
	closed  bool
}

// New 创建节点
//
// 必须设置 rendezvous 地址（WithRendezvousAddr 或配置文件）。
// 构造期间即绑定监听端口。
func New(opts ...Option) (*Peer, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := o.toConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Peer.RendezvousAddr == "" {
		return nil, errors.New("rendezvous address is required")
	}

	p := &Peer{cfg: cfg}
	p.app = buildPeerApp(o, cfg, p)
	if err := p.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return p, nil
}

// Start 快捷启动函数
//
// 创建节点并立即启动，等价于 New() + Start()。
func Start(ctx context.Context, opts ...Option) (*Peer, error) {
	p, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("start peer: %w", err)
	}
	return p, nil
}

// Start 启动各模块并执行加入流程
//
// 返回时节点已处于 Inserted 阶段；加入失败的错误同时经 Fatal() 上报。
func (p *Peer) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPeerClosed
	}
	if p.started {
		return ErrAlreadyStarted
	}

	if err := p.app.Start(ctx); err != nil {
		log.Error("节点初始化失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}
	p.started = true
	nlog := logger.ForNode("ringdht", p.messaging.LocalAddr().String())
	nlog.Info("节点已启动")

	if err := p.joiner.Join(ctx); err != nil {
		p.coord.Fail(err)
		return fmt.Errorf("join: %w", err)
	}
	nlog.Info("节点已入环", "id", p.dir.Self().ID.String(), "next", p.dir.Snapshot().Next.Addr.String())
	return nil
}

// Stop 停止节点
func (p *Peer) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked(ctx)
}

func (p *Peer) stopLocked(ctx context.Context) error {
	if p.closed {
		return ErrPeerClosed
	}
	if !p.started {
		return ErrNotStarted
	}
	p.started = false

	// 停止 Fx 应用（自动按反向顺序调用 OnStop）
	if err := p.app.Stop(ctx); err != nil {
		log.Error("停止节点失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	log.Info("节点已停止")
	return nil
}

// Close 关闭节点并释放所有资源，可重复调用
func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	var err error
	if p.started {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		err = p.stopLocked(ctx)
		cancel()
	} else {
		// 未启动时 Fx 不会调用 OnStop
		err = p.messaging.Close()
	}
	p.coord.Stop()
	p.closed = true
	return err
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// ID 返回节点 ID（入环前为 0）
func (p *Peer) ID() types.NodeID {
	return p.dir.Self().ID
}

// Address 返回本节点的 UDP 地址
func (p *Peer) Address() types.Address {
	return p.messaging.LocalAddr()
}

// Pointers 返回 4 个环指针的快照
func (p *Peer) Pointers() types.RingPointers {
	return p.dir.Snapshot()
}

// Phase 返回加入阶段
func (p *Peer) Phase() Phase {
	return p.coord.Phase()
}

// Fatal 返回致命错误通道（最多一个错误）
//
// 收到错误后应关闭节点并以非零状态退出。
func (p *Peer) Fatal() <-chan error {
	return p.coord.Fatal()
}

// Config 返回节点配置的副本
func (p *Peer) Config() *config.Config {
	return config.CloneConfig(p.cfg)
}

// ════════════════════════════════════════════════════════════════════════════
//                              键路由
// ════════════════════════════════════════════════════════════════════════════

// Hash 把键映射到环位置（入环后才知道 ID 空间）
func (p *Peer) Hash(key string) types.NodeID {
	return p.router.Hash(key)
}

// Lookup 查找键的所有者
func (p *Peer) Lookup(ctx context.Context, key string) (Owner, error) {
	return p.router.Lookup(ctx, key)
}

// LookupPosition 查找环位置的所有者
func (p *Peer) LookupPosition(ctx context.Context, target types.NodeID) (Owner, error) {
	return p.router.LookupPosition(ctx, target)
}

// ════════════════════════════════════════════════════════════════════════════
//                              事件
// ════════════════════════════════════════════════════════════════════════════

// Subscribe 订阅节点事件
//
// 支持 new(types.EvtPointersChanged)、new(types.EvtPhaseChanged)、
// new(types.EvtSuccessorFailed)。
func (p *Peer) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	return p.bus.Subscribe(eventType, opts...)
}

// ProbeSuccessor 立即探测一次后继，超时则修复
//
// 返回的错误是致命错误。
func (p *Peer) ProbeSuccessor(ctx context.Context) error {
	if !p.coord.Reached(lifecycle.PhaseInserted) {
		return ErrNotInserted
	}
	return p.detector.ProbeOnce(ctx)
}
