package join

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/discovery/rendezvous"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("join")

// ============================================================================
//                              Joiner
// ============================================================================

// Joiner 驱动加入状态机
type Joiner struct {
	cfg       config.JoinConfig
	messenger pkgif.Messenger
	client    *rendezvous.Client
	dir       *ring.Directory
	coord     *lifecycle.Coordinator
	pusher    *Pusher
	clock     clock.Clock
	metrics   *metrics.Collector
}

// NewJoiner 创建加入器
//
// clk 为 nil 时使用真实时钟，collector 可以为 nil。
func NewJoiner(
	cfg config.JoinConfig,
	m pkgif.Messenger,
	client *rendezvous.Client,
	dir *ring.Directory,
	coord *lifecycle.Coordinator,
	clk clock.Clock,
	collector *metrics.Collector,
) *Joiner {
	if clk == nil {
		clk = clock.New()
	}
	return &Joiner{
		cfg:       cfg,
		messenger: m,
		client:    client,
		dir:       dir,
		coord:     coord,
		pusher:    NewPusher(m, dir, cfg.PushTimeout.Duration(), cfg.PushAttempts),
		clock:     clk,
		metrics:   collector,
	}
}

// Pusher 返回推送器（失效修复复用）
func (j *Joiner) Pusher() *Pusher {
	return j.pusher
}

// Join 执行完整的加入流程，成功后节点处于 Inserted 阶段
//
// 返回的错误均为致命错误（rendezvous 不可达、池耗尽、重复身份、协议违规）。
func (j *Joiner) Join(ctx context.Context) error {
	start := j.clock.Now()

	if err := j.coord.AdvanceTo(lifecycle.PhaseBootstrapping); err != nil {
		return err
	}

	a, err := j.client.Hello(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := j.client.Ack(ctx, a.ID); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	self := types.NodeRef{ID: a.ID, Addr: j.messenger.LocalAddr()}
	j.dir.SetSpace(ring.Space{K: a.K, Method: a.Method})
	j.dir.Init(self)

	if !a.IsRoot {
		if err := j.coord.AdvanceTo(lifecycle.PhaseSearching); err != nil {
			return err
		}
		if err := j.insert(ctx, self, a.RootAddr); err != nil {
			return err
		}
	}

	if err := j.coord.AdvanceTo(lifecycle.PhaseInserted); err != nil {
		return err
	}
	elapsed := j.clock.Since(start)
	j.metrics.JoinDuration(elapsed)

	p := j.dir.Snapshot()
	log.Info("已加入环",
		"id", self.ID.String(),
		"root", a.IsRoot,
		"prev", p.Prev.String(),
		"next", p.Next.String(),
		"elapsed", elapsed)
	return nil
}

// insert 寻找插入位置，推送邻居更新并写入自己的指针
func (j *Joiner) insert(ctx context.Context, self types.NodeRef, root types.Address) error {
	b, err := j.search(ctx, self.ID, root)
	if err != nil {
		return err
	}

	plan := Insertion(self, b)
	log.Debug("插入位置", "prev", b.P.String(), "next", b.N.String(), "updates", len(plan.Updates))

	if err := j.pusher.Push(ctx, plan.Updates); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	j.dir.Update(func(p *types.RingPointers) { *p = plan.Self })
	return nil
}

// search 从根节点出发逐个查询候选节点
//
// 单个候选查询超时 QueryAttempts 次、或跳数超过 K+2 时从根节点重新开始；
// 只有上下文取消才会结束重试。
func (j *Joiner) search(ctx context.Context, x types.NodeID, root types.Address) (Bracket, error) {
	maxHops := j.dir.Space().K + 2
	timeout := j.cfg.QueryTimeout.Duration()

	cur := root
	var hops uint64
	for {
		if err := ctx.Err(); err != nil {
			return Bracket{}, err
		}

		c, err := j.queryWithRetry(ctx, cur, timeout)
		if err != nil {
			if errors.Is(err, types.ErrTransportTimeout) {
				log.Warn("候选节点无应答，从根节点重新开始", "candidate", cur.String())
				cur, hops = root, 0
				continue
			}
			return Bracket{}, err
		}

		d, next, b := Place(x, c)
		switch d {
		case DecideDuplicate:
			return Bracket{}, fmt.Errorf("%w: %s at %s", types.ErrDuplicateIdentity, x, cur)
		case DecideInsert:
			return b, nil
		}

		hops++
		if hops > maxHops {
			log.Warn("查找跳数过多，从根节点重新开始", "hops", hops)
			cur, hops = root, 0
			continue
		}
		cur = next
	}
}

func (j *Joiner) queryWithRetry(ctx context.Context, dst types.Address, timeout time.Duration) (types.RingPointers, error) {
	var lastErr error
	for attempt := 0; attempt < j.cfg.QueryAttempts; attempt++ {
		p, err := ring.QueryPointers(ctx, j.messenger, dst, timeout)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, types.ErrTransportTimeout) {
			return types.RingPointers{}, err
		}
		lastErr = err
	}
	return types.RingPointers{}, lastErr
}
