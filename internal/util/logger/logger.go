// Package logger 提供 go-ringdht 的统一日志系统
//
// 基于标准库 log/slog，支持：
//   - 按子系统配置日志级别，子系统按 "/" 分层（rendezvous 覆盖 rendezvous/cmd）
//   - 环境变量配置（RINGDHT_LOG_LEVEL, RINGDHT_LOG_FORMAT, RINGDHT_LOG_ADD_SOURCE）
//   - 运行期用同样的级别表达式调整（ApplyLevelSpec，对应命令行 -log）
//   - 按节点地址附加属性（同一进程内运行多个节点时便于区分）
//
// 使用示例:
//
//	package join
//
//	import "github.com/dep2p/go-ringdht/internal/util/logger"
//
//	var log = logger.Logger("join")
//
//	func foo() {
//	    log.Info("inserted into ring", "id", id, "prev", prev, "next", next)
//	    log.Debug("candidate queried", "candidate", addr)
//	}
//
// 环境变量配置:
//
//	# 所有模块为 info，join 模块为 debug
//	RINGDHT_LOG_LEVEL=join=debug,info
//
//	# rendezvous 服务端及其命令行都为 debug，关闭 UDP 传输日志
//	RINGDHT_LOG_LEVEL=rendezvous=debug,transport/udp=off
//
//	# 使用 JSON 格式输出
//	RINGDHT_LOG_FORMAT=json
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 缓存各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 缓存各子系统的 Handler（用于动态调整级别）
	handlers sync.Map // map[string]*subsystemHandler
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回相同实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	h := newHandler(subsystem, ConfigFromEnv())

	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// ForNode 返回附带节点地址的子系统 Logger
//
//	log := logger.ForNode("liveness", "127.0.0.1:9001")
//	log.Warn("successor unreachable", "dead", dead)
func ForNode(subsystem, node string) *slog.Logger {
	return Logger(subsystem).With("node", node)
}

// SetOutput 设置全局日志输出目标
//
// 已创建的 Logger 通过 dynamicWriter 同样生效。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}
