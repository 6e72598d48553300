package liveness

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/join"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/discovery/rendezvous"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

// 包级别日志实例
var log = logger.Logger("liveness")

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Config      *config.Config
	Messenger   pkgif.Messenger
	Registrar   pkgif.HandlerRegistrar
	Directory   *ring.Directory
	Coordinator *lifecycle.Coordinator
	Pusher      *join.Pusher

	Client   *rendezvous.Client `optional:"true"`
	EventBus pkgif.EventBus     `optional:"true"`
	Clock    clock.Clock        `optional:"true"`
	Metrics  *metrics.Collector `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Detector *Detector
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideDetector 提供检测器并注册 Ping 处理函数
func ProvideDetector(input ModuleInput) (ModuleOutput, error) {
	d := NewDetector(input.Config.Liveness, Deps{
		Messenger:   input.Messenger,
		Directory:   input.Directory,
		Coordinator: input.Coordinator,
		Pusher:      input.Pusher,
		Client:      input.Client,
		EventBus:    input.EventBus,
		Clock:       input.Clock,
		Metrics:     input.Metrics,
	})
	if err := d.Register(input.Registrar); err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Detector: d}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("liveness",
		fx.Provide(ProvideDetector),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Detector  *Detector
	Registrar pkgif.HandlerRegistrar
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log.Info("存活检测模块启动")
			return input.Detector.Start()
		},
		OnStop: func(_ context.Context) error {
			log.Info("存活检测模块停止")
			input.Detector.Unregister(input.Registrar)
			return input.Detector.Stop()
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

// 模块元信息常量
const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "liveness"
	// Description 模块描述
	Description = "后继失效检测模块，提供 Ping 探测与环修复能力"
)
