package dispatch

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/internal/core/messaging"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Messaging *messaging.Service
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Registry  *Registry
	Registrar pkgif.HandlerRegistrar
	Worker    *Worker
}

// Module 返回 Fx 模块
//
// 处理函数在构造期注册，worker 在 OnStart 启动。
func Module() fx.Option {
	return fx.Module("dispatch",
		fx.Provide(ProvideDispatch),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideDispatch 提供注册表与 worker
func ProvideDispatch(input ModuleInput) ModuleOutput {
	registry := NewRegistry()
	return ModuleOutput{
		Registry:  registry,
		Registrar: registry,
		Worker:    NewWorker(registry, input.Messaging.Inbound()),
	}
}

type lifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Worker *Worker
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			input.Worker.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			input.Worker.Stop()
			return nil
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
	Name = "dispatch"
	// Description 模块描述
	Description = "入站分发模块，在唯一的应用逻辑 worker 上按报文类型调用处理函数"
)
