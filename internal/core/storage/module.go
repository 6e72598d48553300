package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/storage/engine"
	"github.com/dep2p/go-ringdht/internal/core/storage/engine/badger"
	"github.com/dep2p/go-ringdht/internal/util/logger"
)

var log = logger.Logger("storage")

// ============================================================================
//                              Fx 模块
// ============================================================================

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config *config.Config
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Engine engine.Engine
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStorage 提供存储引擎
func ProvideStorage(input ModuleInput) (ModuleOutput, error) {
	eng, err := NewEngine(input.Config.Storage)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Engine: eng}, nil
}

type lifecycleInput struct {
	fx.In

	LC     fx.Lifecycle
	Engine engine.Engine
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return input.Engine.Start()
		},
		OnStop: func(_ context.Context) error {
			log.Info("正在关闭存储引擎")
			return input.Engine.Close()
		},
	})
}

// NewEngine 根据存储配置创建引擎
//
// DataDir 为空时使用内存模式。
func NewEngine(cfg config.StorageConfig) (engine.Engine, error) {
	var ecfg *engine.Config
	if cfg.InMemory() {
		ecfg = engine.InMemoryConfig()
	} else {
		ecfg = engine.DefaultConfig(cfg.DBPath())
	}
	ecfg.SyncWrites = cfg.SyncWrites

	eng, err := badger.New(ecfg)
	if err != nil {
		log.Error("创建存储引擎失败", "path", ecfg.Path, "err", err)
		return nil, err
	}
	return eng, nil
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "storage"
	// Description 模块描述
	Description = "存储模块，基于 BadgerDB 提供带前缀隔离的 KV 存储"
)
