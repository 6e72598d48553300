package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config     *config.Config
	Registerer prometheus.Registerer `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Collector *Collector
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCollector),
	)
}

// ProvideCollector 提供指标收集器
//
// 未注入 Registerer 时使用私有 Registry，指标不会对外暴露。
func ProvideCollector(input ModuleInput) (ModuleOutput, error) {
	reg := input.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c, err := NewCollector(input.Config.Metrics.Namespace, reg)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Collector: c}, nil
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "metrics"
	// Description 模块描述
	Description = "指标模块，基于 Prometheus 统计消息、修复与查找"
)
