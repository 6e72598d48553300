package rendezvous

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/storage/engine"
	"github.com/dep2p/go-ringdht/internal/core/storage/kv"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// StorePrefix 注册表在存储中的键前缀
var StorePrefix = []byte("r/")

// ============================================================================
//                              客户端模块
// ============================================================================

// ClientInput 客户端模块输入
type ClientInput struct {
	fx.In

	Config    *config.Config
	Messenger pkgif.Messenger
}

// ClientModule 返回环节点使用的客户端模块
func ClientModule() fx.Option {
	return fx.Module("rendezvous-client",
		fx.Provide(ProvideClient),
	)
}

// ProvideClient 提供客户端
func ProvideClient(input ClientInput) (*Client, error) {
	addr, err := types.ParseAddress(input.Config.Peer.RendezvousAddr)
	if err != nil {
		return nil, fmt.Errorf("rendezvous address: %w", err)
	}
	return NewClient(input.Messenger, addr, input.Config.Join), nil
}

// ============================================================================
//                              服务端模块
// ============================================================================

// PointInput 服务端模块输入
type PointInput struct {
	fx.In

	Config    *config.Config
	Messenger pkgif.Messenger
	Registrar pkgif.HandlerRegistrar
	Engine    engine.Engine
}

// PointModule 返回 rendezvous 服务端模块
func PointModule() fx.Option {
	return fx.Module("rendezvous-point",
		fx.Provide(ProvidePoint),
	)
}

// ProvidePoint 提供服务端并注册处理函数
func ProvidePoint(input PointInput) (*Point, error) {
	cfg := input.Config.Rendezvous
	var opts []RegistryOption
	if cfg.ResetOnMismatch {
		opts = append(opts, WithResetOnMismatch())
	}
	registry, err := NewRegistry(cfg.K, cfg.Method, kv.New(input.Engine, StorePrefix), cfg.Seed, opts...)
	if err != nil {
		return nil, err
	}
	point := NewPoint(registry, input.Messenger)
	if err := point.Register(input.Registrar); err != nil {
		return nil, err
	}
	log.Info("rendezvous 服务就绪", "k", cfg.K, "method", cfg.Method.String(), "available", len(registry.Available()))
	return point, nil
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "rendezvous"
	// Description 模块描述
	Description = "rendezvous 引导服务：ID 分配、确认与释放"
)
