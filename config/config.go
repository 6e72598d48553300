// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义，带 DefaultXxxConfig() 与 Validate()
//   - 支持从 JSON 加载配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Liveness.ProbeInterval = config.Duration(time.Second)
//
//	// 从文件加载
//	cfg, err := config.LoadFile("ringpeer.json")
package config

// Config 是 go-ringdht 的完整配置结构
//
// 配置按照功能模块组织：
//   - Peer: 本节点监听地址与 rendezvous 地址
//   - Messaging: 关联请求/回复层
//   - Ring: 环指针目录
//   - Join: 加入协议（bootstrap 退避、候选查询、指针推送）
//   - Liveness: 后继探测与修复
//   - Routing: 键查找
//   - Rendezvous: rendezvous 服务端（ID 池）
//   - Storage: 持久化（rendezvous 注册表）
//   - Metrics: Prometheus 指标
type Config struct {
	// Peer 节点配置
	Peer PeerConfig `json:"peer"`

	// Messaging 消息层配置
	Messaging MessagingConfig `json:"messaging"`

	// Ring 环目录配置
	Ring RingConfig `json:"ring"`

	// Join 加入协议配置
	Join JoinConfig `json:"join"`

	// Liveness 失效检测配置
	Liveness LivenessConfig `json:"liveness"`

	// Routing 键路由配置
	Routing RoutingConfig `json:"routing"`

	// Rendezvous rendezvous 服务端配置
	Rendezvous RendezvousConfig `json:"rendezvous"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Peer:       DefaultPeerConfig(),
		Messaging:  DefaultMessagingConfig(),
		Ring:       DefaultRingConfig(),
		Join:       DefaultJoinConfig(),
		Liveness:   DefaultLivenessConfig(),
		Routing:    DefaultRoutingConfig(),
		Rendezvous: DefaultRendezvousConfig(),
		Storage:    DefaultStorageConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 依次验证所有子配置，返回第一个错误。
func (c *Config) Validate() error {
	subs := []interface{ Validate() error }{
		&c.Peer,
		&c.Messaging,
		&c.Ring,
		&c.Join,
		&c.Liveness,
		&c.Routing,
		&c.Rendezvous,
		&c.Storage,
		&c.Metrics,
	}
	for _, sub := range subs {
		if err := sub.Validate(); err != nil {
			return err
		}
	}
	return nil
}
