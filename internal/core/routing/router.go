package routing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// 查找结果（指标标签）
const (
	resultLocal  = "local"
	resultRemote = "remote"
	resultFailed = "failed"
)

// Owner 查找结果
type Owner struct {
	// Node 拥有目标位置的节点
	Node types.NodeRef

	// Position 键映射到的环位置
	Position types.NodeID
}

// ============================================================================
//                              Router 实现
// ============================================================================

// Router 键路由
type Router struct {
	cfg       config.RoutingConfig
	messenger pkgif.Messenger
	dir       *ring.Directory
	coord     *lifecycle.Coordinator
	clock     clock.Clock
	metrics   *metrics.Collector

	// mu 保护 pending
	mu      sync.Mutex
	pending map[string]chan types.NodeRef

	// seen 已转发或发起过的关联 ID
	seen *lru.Cache[string, struct{}]

	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRouter 创建路由器
func NewRouter(
	cfg config.RoutingConfig,
	m pkgif.Messenger,
	dir *ring.Directory,
	coord *lifecycle.Coordinator,
	clk clock.Clock,
	collector *metrics.Collector,
) (*Router, error) {
	seen, err := lru.New[string, struct{}](cfg.SeenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("seen cache: %w", err)
	}
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		cfg:       cfg,
		messenger: m,
		dir:       dir,
		coord:     coord,
		clock:     clk,
		metrics:   collector,
		pending:   make(map[string]chan types.NodeRef),
		seen:      seen,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Register 注册 Search / Found 处理函数
func (r *Router) Register(reg pkgif.HandlerRegistrar) error {
	if err := reg.Register(protocol.Search, r.handleSearch); err != nil {
		return err
	}
	return reg.Register(protocol.Found, r.handleFound)
}

// Unregister 注销 Search / Found 处理函数
//
// 之后到达的 Search 不再转发，Found 不再被确认。
func (r *Router) Unregister(reg pkgif.HandlerRegistrar) {
	reg.Unregister(protocol.Search)
	reg.Unregister(protocol.Found)
}

// Close 取消进行中的查找并等待 Found 发送完成
func (r *Router) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()
	r.wg.Wait()
	return nil
}

// Hash 按当前环的 ID 空间映射键
func (r *Router) Hash(key string) types.NodeID {
	s := r.dir.Space()
	return Hash(key, s.K, s.Method)
}

// Lookup 查找键的所有者
func (r *Router) Lookup(ctx context.Context, key string) (Owner, error) {
	if !r.coord.Reached(lifecycle.PhaseInserted) {
		return Owner{}, types.ErrNotInserted
	}
	return r.LookupPosition(ctx, r.Hash(key))
}

// LookupPosition 查找环位置 target 的所有者
func (r *Router) LookupPosition(ctx context.Context, target types.NodeID) (Owner, error) {
	if r.closed.Load() {
		return Owner{}, types.ErrServiceClosed
	}
	if !r.coord.Reached(lifecycle.PhaseInserted) {
		return Owner{}, types.ErrNotInserted
	}

	p := r.dir.Snapshot()
	if ring.Owns(p, target) {
		r.metrics.Lookup(resultLocal)
		return Owner{Node: p.Self, Position: target}, nil
	}

	for attempt := 1; attempt <= r.cfg.LookupAttempts; attempt++ {
		owner, ok, err := r.attempt(ctx, target)
		if err != nil {
			return Owner{}, err
		}
		if ok {
			r.metrics.Lookup(resultRemote)
			return Owner{Node: owner, Position: target}, nil
		}
		log.Debug("查找超时", "target", target.String(), "attempt", attempt)
	}

	r.metrics.Lookup(resultFailed)
	return Owner{}, fmt.Errorf("%w: position %s after %d attempts", types.ErrLookupFailed, target, r.cfg.LookupAttempts)
}

// attempt 以新的关联 ID 发起一次 Search 并等待 Found
func (r *Router) attempt(ctx context.Context, target types.NodeID) (types.NodeRef, bool, error) {
	corrID := uuid.NewString()
	ch := make(chan types.NodeRef, 1)

	r.mu.Lock()
	r.pending[corrID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, corrID)
		r.mu.Unlock()
	}()
	r.seen.Add(corrID, struct{}{})

	timer := r.clock.Timer(r.cfg.LookupTimeout.Duration())
	defer timer.Stop()

	p := r.dir.Snapshot()
	if err := r.messenger.Notify(ctx, protocol.SearchMsg(target, p.Self.Addr, corrID), nextHop(p, target)); err != nil {
		return types.NodeRef{}, false, err
	}

	select {
	case owner := <-ch:
		return owner, true, nil
	case <-timer.C:
		return types.NodeRef{}, false, nil
	case <-ctx.Done():
		return types.NodeRef{}, false, ctx.Err()
	case <-r.ctx.Done():
		return types.NodeRef{}, false, types.ErrServiceClosed
	}
}

// nextHop 目标小于自己时转发给前驱，否则转发给后继
func nextHop(p types.RingPointers, target types.NodeID) types.Address {
	if target < p.Self.ID {
		return p.Prev.Addr
	}
	return p.Next.Addr
}

// ============================================================================
//                              处理函数
// ============================================================================

func (r *Router) handleSearch(_ context.Context, env *protocol.Envelope) {
	q, err := protocol.ParseSearch(env.Payload)
	if err != nil {
		log.Debug("丢弃非法 Search", "from", env.From.String(), "err", err)
		return
	}

	p := r.dir.Snapshot()
	if ring.Owns(p, q.Target) {
		r.sendFound(q, p.Self)
		return
	}

	if ok, _ := r.seen.ContainsOrAdd(q.CorrID, struct{}{}); ok {
		log.Debug("丢弃重复 Search", "corr", q.CorrID)
		return
	}

	hop := nextHop(p, q.Target)
	if err := r.messenger.Notify(r.ctx, env.Payload, hop); err != nil {
		log.Debug("转发 Search 失败", "to", hop.String(), "err", err)
	}
}

// sendFound 向发起者发送 Found；等待 Ack 不能占用分发 worker
func (r *Router) sendFound(q protocol.SearchQuery, self types.NodeRef) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		reply, err := r.messenger.SendRequest(r.ctx, protocol.FoundMsg(q.CorrID, self), q.Origin, r.cfg.FoundTimeout.Duration())
		if err != nil {
			log.Debug("发送 Found 失败", "origin", q.Origin.String(), "err", err)
			return
		}
		if _, err := protocol.Expect(reply, protocol.Ack, 0); err != nil {
			log.Warn("Found 回复异常", "origin", q.Origin.String(), "err", err)
		}
	}()
}

func (r *Router) handleFound(_ context.Context, env *protocol.Envelope) {
	if err := r.messenger.Reply(env, protocol.Single(protocol.Ack)); err != nil {
		log.Debug("回复 Found 失败", "to", env.From.String(), "err", err)
	}

	res, err := protocol.ParseFound(env.Payload)
	if err != nil {
		log.Debug("丢弃非法 Found", "from", env.From.String(), "err", err)
		return
	}

	r.mu.Lock()
	ch, ok := r.pending[res.CorrID]
	r.mu.Unlock()
	if !ok {
		log.Debug("丢弃迟到的 Found", "corr", res.CorrID)
		return
	}
	select {
	case ch <- res.Owner:
	default:
	}
}
