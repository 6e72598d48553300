package lifecycle

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/internal/core/metrics"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	EventBus pkgif.EventBus     `optional:"true"`
	Metrics  *metrics.Collector `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Coordinator *Coordinator
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("lifecycle",
		fx.Provide(ProvideCoordinator),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideCoordinator 提供协调器
//
// 配置了指标时，阶段变化同步到 join_phase 仪表。
func ProvideCoordinator(input ModuleInput) ModuleOutput {
	c := NewCoordinator(input.EventBus)
	if input.Metrics != nil {
		input.Metrics.SetPhase(int(c.Phase()))
		c.OnPhaseChange(func(_, p Phase) { input.Metrics.SetPhase(int(p)) })
	}
	return ModuleOutput{Coordinator: c}
}

type lifecycleInput struct {
	fx.In

	LC          fx.Lifecycle
	Coordinator *Coordinator
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			input.Coordinator.Stop()
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
	Name = "lifecycle"
	// Description 模块描述
	Description = "加入状态机协调器，提供阶段 gate 与致命错误汇集"
)
