package join

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/discovery/rendezvous"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config      *config.Config
	Messenger   pkgif.Messenger
	Client      *rendezvous.Client
	Directory   *ring.Directory
	Coordinator *lifecycle.Coordinator
	Clock       clock.Clock        `optional:"true"`
	Metrics     *metrics.Collector `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Joiner *Joiner
	Pusher *Pusher
}

// Module 返回 Fx 模块
//
// 加入流程由节点门面在 Start 中显式驱动，本模块只负责装配。
func Module() fx.Option {
	return fx.Module("join",
		fx.Provide(ProvideJoiner),
	)
}

// ProvideJoiner 提供加入器与推送器
func ProvideJoiner(input ModuleInput) ModuleOutput {
	j := NewJoiner(
		input.Config.Join,
		input.Messenger,
		input.Client,
		input.Directory,
		input.Coordinator,
		input.Clock,
		input.Metrics,
	)
	return ModuleOutput{Joiner: j, Pusher: j.Pusher()}
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "join"
	// Description 模块描述
	Description = "加入协议模块，执行 rendezvous 引导、位置查找与邻居指针推送"
)
