package eventbus

import (
	"context"

	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// ============================================================================
// Fx 模块
// ============================================================================

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Bus      *Bus
	EventBus pkgif.EventBus
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideEventBus 提供 EventBus 实例
func ProvideEventBus() ModuleOutput {
	bus := NewBus()
	return ModuleOutput{Bus: bus, EventBus: bus}
}

type lifecycleInput struct {
	fx.In
	LC  fx.Lifecycle
	Bus *Bus
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			for name, n := range droppedEvents(input.Bus) {
				log.Warn("慢订阅者丢弃了事件", "event", name, "dropped", n)
			}
			log.Debug("事件总线停止")
			return nil
		},
	})
}

// ringEvents 环节点发布的事件类型
var ringEvents = map[string]interface{}{
	"pointers_changed": new(types.EvtPointersChanged),
	"phase_changed":    new(types.EvtPhaseChanged),
	"successor_failed": new(types.EvtSuccessorFailed),
}

// droppedEvents 返回有丢弃记录的事件类型及丢弃数
func droppedEvents(bus *Bus) map[string]int64 {
	out := make(map[string]int64)
	for name, evt := range ringEvents {
		if n := bus.Dropped(evt); n > 0 {
			out[name] = n
		}
	}
	return out
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "eventbus"
	// Description 模块描述
	Description = "事件总线模块，发布环指针、加入阶段与后继失效事件"
)
