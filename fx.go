package ringdht

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/dispatch"
	"github.com/dep2p/go-ringdht/internal/core/eventbus"
	"github.com/dep2p/go-ringdht/internal/core/join"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/liveness"
	"github.com/dep2p/go-ringdht/internal/core/messaging"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/core/routing"
	"github.com/dep2p/go-ringdht/internal/core/storage"
	"github.com/dep2p/go-ringdht/internal/core/transport"
	"github.com/dep2p/go-ringdht/internal/discovery/rendezvous"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

// coreModules 节点与 rendezvous 共用的模块
//
// 加载顺序（按依赖）：
//  1. 配置与注入的组件
//  2. EventBus → Lifecycle → Metrics
//  3. Transport → Messaging → Dispatch
func coreModules(o *options, cfg *config.Config, listenAddr string) []fx.Option {
	modules := []fx.Option{
		// 配置注入
		fx.Supply(cfg),
		fx.Supply(fx.Annotated{Name: "listen_addr", Target: listenAddr}),
	}

	// 注入的组件（可选）
	if o.transport != nil {
		t := o.transport
		modules = append(modules, fx.Provide(fx.Annotated{
			Name:   "transport_override",
			Target: func() pkgif.Transport { return t },
		}))
	}
	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}
	if o.registerer != nil {
		reg := o.registerer
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}

	modules = append(modules,
		eventbus.Module(),
		lifecycle.Module(),
		metrics.Module(),
		transport.Module(),
		messaging.Module(),
		dispatch.Module(),
	)
	return modules
}

// finish 追加用户扩展与 Fx 日志配置
func finish(o *options, modules []fx.Option) *fx.App {
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}
	modules = append(modules,
		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
	return fx.New(modules...)
}

// buildPeerApp 构建环节点的 Fx 应用
func buildPeerApp(o *options, cfg *config.Config, p *Peer) *fx.App {
	modules := coreModules(o, cfg, cfg.Peer.ListenAddr)
	modules = append(modules,
		ring.Module(),
		rendezvous.ClientModule(),
		join.Module(),
		liveness.Module(),
		routing.Module(),

		// Peer 组件注入
		fx.Populate(
			&p.bus,
			&p.coord,
			&p.messaging,
			&p.dir,
			&p.joiner,
			&p.detector,
			&p.router,
		),
	)
	return finish(o, modules)
}

// buildRendezvousApp 构建 rendezvous 服务的 Fx 应用
func buildRendezvousApp(o *options, cfg *config.Config, r *Rendezvous) *fx.App {
	modules := coreModules(o, cfg, cfg.Rendezvous.ListenAddr)
	modules = append(modules,
		storage.Module(),
		rendezvous.PointModule(),

		fx.Populate(&r.messaging, &r.point),
	)
	return finish(o, modules)
}
