package ringdht

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/messaging"
	"github.com/dep2p/go-ringdht/internal/discovery/rendezvous"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// Registration rendezvous 的一条 ID 登记
type Registration = rendezvous.Registration

// ════════════════════════════════════════════════════════════════════════════
//                              Rendezvous
// ════════════════════════════════════════════════════════════════════════════

// Rendezvous 引导服务
//
// 分配 ID、告知根节点地址、回收失效节点的 ID。
type Rendezvous struct {
	mu sync.Mutex

	cfg *config.Config
	app *fx.App

	// 由 Fx 注入
	messaging *messaging.Service
	point     *rendezvous.Point

	started bool
	closed  bool
}

// NewRendezvous 创建 rendezvous 服务
//
// 使用 WithPool 设置 ID 池，WithDataDir 设置注册表持久化目录。
func NewRendezvous(opts ...Option) (*Rendezvous, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := o.toConfig()
	if err != nil {
		return nil, err
	}

	r := &Rendezvous{cfg: cfg}
	r.app = buildRendezvousApp(o, cfg, r)
	if err := r.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return r, nil
}

// Start 启动服务
func (r *Rendezvous) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrPeerClosed
	}
	if r.started {
		return ErrAlreadyStarted
	}
	if err := r.app.Start(ctx); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}
	r.started = true

	reg := r.point.Registry()
	log.Info("rendezvous 已启动",
		"addr", r.Address().String(),
		"k", reg.K(),
		"method", reg.Method().String(),
		"registered", len(reg.Registrations()))
	return nil
}

// Close 停止服务并关闭注册表存储，可重复调用
func (r *Rendezvous) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if !r.started {
		// 未启动时 Fx 不会调用 OnStop，直接释放已绑定的端口
		return r.messaging.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	// 重复关闭是空操作，只为汇总错误
	return multierr.Combine(r.app.Stop(ctx), r.messaging.Close())
}

// Address 返回服务地址
func (r *Rendezvous) Address() types.Address {
	return r.point.Addr()
}

// Registrations 返回按登记顺序排列的所有登记
func (r *Rendezvous) Registrations() []Registration {
	return r.point.Registry().Registrations()
}

// Root 返回当前根节点
func (r *Rendezvous) Root() (Registration, bool) {
	return r.point.Registry().Root()
}

// Available 返回尚未分配的 ID
func (r *Rendezvous) Available() []types.NodeID {
	return r.point.Registry().Available()
}
