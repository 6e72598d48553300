package messaging

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Transport pkgif.Transport
	Clock     clock.Clock        `optional:"true"`
	Metrics   *metrics.Collector `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Service   *Service
	Messenger pkgif.Messenger
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("messaging",
		fx.Provide(ProvideService),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideService 提供消息服务
func ProvideService(input ModuleInput) ModuleOutput {
	svc := NewService(input.Config.Messaging, input.Transport, input.Clock, input.Metrics)
	return ModuleOutput{Service: svc, Messenger: svc}
}

type lifecycleInput struct {
	fx.In

	LC      fx.Lifecycle
	Service *Service
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Service.Start()
		},
		OnStop: func(_ context.Context) error {
			return input.Service.Close()
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
	Name = "messaging"
	// Description 模块描述
	Description = "关联请求/回复模块，提供消息 ID 关联、超时与入站排队"
)
