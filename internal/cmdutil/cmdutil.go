// Package cmdutil 提供 cmd/* 共用的命令行辅助函数
//
// 两个可执行程序都采用「位置参数在前、选项在后」的形式，
// 标准 flag 包遇到第一个位置参数即停止解析，这里补上这一步。
package cmdutil

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/util/logger"
)

var log = logger.Logger("cmd")

// 退出码
const (
	// ExitFatal 运行期致命错误
	ExitFatal = 1
	// ExitUsage 参数错误
	ExitUsage = 2
)

// ErrUsage 参数错误
var ErrUsage = errors.New("usage")

// ============================================================================
//                              参数解析
// ============================================================================

// ParseArgs 解析 n 个位置参数，选项可以出现在位置参数之前或之后
func ParseArgs(fs *flag.FlagSet, args []string, n int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	pos := fs.Args()
	if len(pos) < n {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d", ErrUsage, n, len(pos))
	}
	if err := fs.Parse(pos[n:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	return pos[:n], nil
}

// HostPort 把 host 与 port 参数拼成 host:port
func HostPort(host, port string) (string, error) {
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return "", fmt.Errorf("%w: invalid port %q", ErrUsage, port)
	}
	if host == "" {
		return "", fmt.Errorf("%w: empty host", ErrUsage)
	}
	return net.JoinHostPort(host, strconv.Itoa(p)), nil
}

// ============================================================================
//                              日志
// ============================================================================

// SetupLogging 把日志写到 w 并应用 -log 表达式
//
// verbose 等价于在表达式前加上 "debug,"，表达式中的子系统条目仍然生效。
// 环境变量中的错误只打印警告；表达式错误返回 ErrUsage。
func SetupLogging(w io.Writer, spec string, verbose bool) error {
	logger.SetOutput(w)
	if err := logger.EnvError(); err != nil {
		fmt.Fprintf(w, "警告: 日志环境变量: %v\n", err)
	}
	if verbose {
		spec = "debug," + spec
	}
	if spec == "" {
		return nil
	}
	if err := logger.ApplyLevelSpec(spec); err != nil {
		return fmt.Errorf("%w: -log: %v", ErrUsage, err)
	}
	return nil
}

// ============================================================================
//                              指标
// ============================================================================

// MetricsAddr 返回 /metrics 监听地址
//
// 命令行参数优先；否则读取配置文件中的 metrics.listen_addr，两者都为空表示不暴露。
func MetricsAddr(flagAddr, configFile string) (string, error) {
	if flagAddr != "" || configFile == "" {
		return flagAddr, nil
	}
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return "", err
	}
	return cfg.Metrics.ListenAddr, nil
}

// MetricsServer /metrics HTTP 服务
type MetricsServer struct {
	srv      *http.Server
	listener net.Listener
}

// NewMetricsRegistry 创建带进程与 Go 运行时指标的 Registry
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ServeMetrics 在 addr 上暴露 reg 的指标
func ServeMetrics(addr string, reg *prometheus.Registry) (*MetricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	m := &MetricsServer{
		srv:      &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		listener: ln,
	}
	go func() {
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("指标服务退出", "err", err)
		}
	}()
	log.Info("指标服务已启动", "addr", ln.Addr().String())
	return m, nil
}

// Addr 返回实际监听地址
func (m *MetricsServer) Addr() string {
	return m.listener.Addr().String()
}

// Close 关闭指标服务
func (m *MetricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.srv.Shutdown(ctx)
}

// ============================================================================
//                              信号
// ============================================================================

// SignalContext 返回收到 SIGINT/SIGTERM 时取消的上下文
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
