package routing

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

var log = logger.Logger("routing")

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config      *config.Config
	Messenger   pkgif.Messenger
	Registrar   pkgif.HandlerRegistrar
	Directory   *ring.Directory
	Coordinator *lifecycle.Coordinator
	Clock       clock.Clock        `optional:"true"`
	Metrics     *metrics.Collector `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Router *Router
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("routing",
		fx.Provide(ProvideRouter),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideRouter 提供路由器并注册 Search / Found 处理函数
func ProvideRouter(input ModuleInput) (ModuleOutput, error) {
	r, err := NewRouter(input.Config.Routing, input.Messenger, input.Directory, input.Coordinator, input.Clock, input.Metrics)
	if err != nil {
		return ModuleOutput{}, err
	}
	if err := r.Register(input.Registrar); err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Router: r}, nil
}

type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Router    *Router
	Registrar pkgif.HandlerRegistrar
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			input.Router.Unregister(input.Registrar)
			return input.Router.Close()
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "routing"
	// Description 模块描述
	Description = "键路由模块，按一致性哈希定位键的所有者"
)
