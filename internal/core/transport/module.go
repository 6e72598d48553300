package transport

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/internal/core/transport/udp"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
)

var log = logger.Logger("transport")

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	// ListenAddr 监听地址（host:port）
	ListenAddr string `name:"listen_addr"`

	// Override 外部提供的传输（如 memory.Endpoint），优先于 UDP
	Override pkgif.Transport `name:"transport_override" optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Transport pkgif.Transport
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideTransport),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideTransport 提供数据报传输
//
// 构造时即完成绑定，以便其他模块在 OnStart 之前就能拿到实际端口。
func ProvideTransport(input ModuleInput) (ModuleOutput, error) {
	if input.Override != nil {
		log.Debug("使用外部传输", "addr", input.Override.LocalAddr().String())
		return ModuleOutput{Transport: input.Override}, nil
	}
	t, err := udp.Listen(input.ListenAddr)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Transport: t}, nil
}

type lifecycleInput struct {
	fx.In
	LC        fx.Lifecycle
	Transport pkgif.Transport
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log.Info("传输模块启动", "addr", input.Transport.LocalAddr().String())
			return nil
		},
		OnStop: func(_ context.Context) error {
			log.Info("传输模块停止")
			return input.Transport.Close()
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
	Name = "transport"
	// Description 模块描述
	Description = "数据报传输模块，提供 UDP 与进程内模拟网络"
)
