package ring

import (
	"context"

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
	Messenger pkgif.Messenger
	Registrar pkgif.HandlerRegistrar
	EventBus  pkgif.EventBus     `optional:"true"`
	Metrics   *metrics.Collector `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Directory *Directory
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("ring",
		fx.Provide(ProvideDirectory),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideDirectory 提供目录并注册 Request / Set 处理函数
func ProvideDirectory(input ModuleInput) (ModuleOutput, error) {
	dir := NewDirectory(input.EventBus)
	h := NewHandlers(dir, input.Messenger, input.Metrics, input.Config.Ring.AckMalformedSet)
	if err := h.Register(input.Registrar); err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Directory: dir}, nil
}

type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Directory *Directory
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return input.Directory.Close()
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
	Name = "ring"
	// Description 模块描述
	Description = "环目录模块，持有 4 个邻居指针并服务 Request / Set"
)
