package join

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-ringdht/internal/core/ring"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// ============================================================================
//                              Pusher
// ============================================================================

// Pusher 向邻居并发推送 Set 更新
//
// 每个邻居独立重试超时；回复不是 Setted 视为协议违规并立即失败。
// 目标是本节点自己的更新直接写入目录。
type Pusher struct {
	messenger pkgif.Messenger
	dir       *ring.Directory
	timeout   time.Duration

	// attempts 单个邻居的推送次数，0 表示不限
	attempts int
}

// NewPusher 创建推送器
func NewPusher(m pkgif.Messenger, dir *ring.Directory, timeout time.Duration, attempts int) *Pusher {
	return &Pusher{
		messenger: m,
		dir:       dir,
		timeout:   timeout,
		attempts:  attempts,
	}
}

// Push 推送全部更新，全部得到 Setted 后返回
func (p *Pusher) Push(ctx context.Context, updates []Update) error {
	self := p.messenger.LocalAddr()

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range updates {
		if len(u.Pairs) == 0 {
			continue
		}
		if u.Addr == self {
			if err := p.dir.SetFields(u.Pairs); err != nil {
				return err
			}
			continue
		}
		u := u
		g.Go(func() error { return p.pushOne(gctx, u) })
	}
	return g.Wait()
}

func (p *Pusher) pushOne(ctx context.Context, u Update) error {
	for attempt := 1; p.attempts == 0 || attempt <= p.attempts; attempt++ {
		reply, err := p.messenger.SendRequest(ctx, protocol.SetMsg(u.Pairs), u.Addr, p.timeout)
		if err == nil {
			if _, err := protocol.Expect(reply, protocol.Setted, 0); err != nil {
				return fmt.Errorf("push to %s: %w", u.Addr, err)
			}
			log.Debug("邻居指针已更新", "addr", u.Addr.String(), "pairs", u.Pairs)
			return nil
		}
		if !errors.Is(err, types.ErrTransportTimeout) {
			return err
		}
		log.Debug("推送超时，重试", "addr", u.Addr.String(), "attempt", attempt)
	}
	return fmt.Errorf("%w: push to %s after %d attempts", types.ErrTransportTimeout, u.Addr, p.attempts)
}
