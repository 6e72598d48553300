package ringdht

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-ringdht/config"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置（WithConfig / WithConfigFile），为空时使用默认配置
	config     *config.Config
	configFile string

	// 地址覆盖
	listenAddr     *string
	rendezvousAddr *string

	// rendezvous 服务端覆盖
	pool struct {
		k      *uint64
		method *types.DistributionMethod
	}
	dataDir         *string
	resetOnMismatch bool

	// 注入的组件
	transport  pkgif.Transport
	clock      clock.Clock
	registerer prometheus.Registerer

	// 用户自定义 Fx 选项
	userFxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

func applyOptions(opts []Option) (*options, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	return o, nil
}

// toConfig 合并基础配置与覆盖项
func (o *options) toConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case o.config != nil:
		cfg = config.CloneConfig(o.config)
	case o.configFile != "":
		loaded, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		cfg = config.NewConfig()
	}

	// 覆盖: 监听地址（节点与 rendezvous 共用）
	if o.listenAddr != nil {
		cfg.Peer.ListenAddr = *o.listenAddr
		cfg.Rendezvous.ListenAddr = *o.listenAddr
	}
	if o.rendezvousAddr != nil {
		cfg.Peer.RendezvousAddr = *o.rendezvousAddr
	}

	// 覆盖: ID 池
	if o.pool.k != nil {
		cfg.Rendezvous.K = *o.pool.k
	}
	if o.pool.method != nil {
		cfg.Rendezvous.Method = *o.pool.method
	}
	if o.dataDir != nil {
		cfg.Storage.DataDir = *o.dataDir
	}
	if o.resetOnMismatch {
		cfg.Rendezvous.ResetOnMismatch = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置选项
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置作为基础
//
// 配置会被复制，之后对 cfg 的修改不影响节点。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载基础配置
//
// 文件中未出现的字段保留默认值。
func WithConfigFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.New("config file path cannot be empty")
		}
		o.configFile = path
		return nil
	}
}

// WithListenAddr 设置 UDP 监听地址（host:port）
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		if _, err := types.ParseAddress(addr); err != nil {
			return fmt.Errorf("listen addr: %w", err)
		}
		o.listenAddr = &addr
		return nil
	}
}

// WithRendezvousAddr 设置 rendezvous 服务地址（host:port）
func WithRendezvousAddr(addr string) Option {
	return func(o *options) error {
		if _, err := types.ParseAddress(addr); err != nil {
			return fmt.Errorf("rendezvous addr: %w", err)
		}
		o.rendezvousAddr = &addr
		return nil
	}
}

// WithPool 设置 rendezvous 的 ID 池（仅 rendezvous 使用）
func WithPool(k uint64, method types.DistributionMethod) Option {
	return func(o *options) error {
		if err := method.ValidateK(k); err != nil {
			return err
		}
		o.pool.k = &k
		o.pool.method = &method
		return nil
	}
}

// WithDataDir 设置 rendezvous 注册表的数据目录（空字符串表示内存模式）
func WithDataDir(dir string) Option {
	return func(o *options) error {
		o.dataDir = &dir
		return nil
	}
}

// WithResetOnMismatch 池参数变化时丢弃持久化的注册记录（仅 rendezvous 使用）
func WithResetOnMismatch() Option {
	return func(o *options) error {
		o.resetOnMismatch = true
		return nil
	}
}

// WithTransport 使用外部提供的数据报传输替代 UDP
//
// 主要用于测试（memory.Network）。
func WithTransport(t pkgif.Transport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("transport cannot be nil")
		}
		o.transport = t
		return nil
	}
}

// WithClock 注入时钟（测试中使用 clock.NewMock()）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithMetricsRegisterer 把指标注册到给定的 Prometheus Registerer
//
// 未设置时指标注册在私有 Registry 中，不对外暴露。
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
