// Package main 提供 rendezvous 引导服务
//
// 使用方法:
//
//	rendezvous <host> <port> <K> <method> [选项]
//
// method 为 1（线性，ID 池 0..K）或 2（2 的幂，ID 池 2^0..2^K）。
// 设置 -data-dir 后注册表持久化到 badger，重启后恢复已分配的 ID；
// 以不同的 K 或 method 重启时需要 -reset-on-mismatch，否则启动失败。
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	ringdht "github.com/dep2p/go-ringdht"
	"github.com/dep2p/go-ringdht/internal/cmdutil"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("rendezvous/cmd")

// statsInterval 注册表统计日志间隔
const statsInterval = 30 * time.Second

// cliOptions 命令行选项
type cliOptions struct {
	listenAddr  string
	k           uint64
	method      types.DistributionMethod
	configFile  string
	dataDir     string
	reset       bool
	metricsAddr string
	logSpec     string
	verbose     bool
	version     bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		printUsage(stderr)
		return cmdutil.ExitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, ringdht.VersionInfo())
		return 0
	}
	if err := cmdutil.SetupLogging(stderr, opts.logSpec, opts.verbose); err != nil {
		fmt.Fprintf(stderr, "错误: %v\n", err)
		printUsage(stderr)
		return cmdutil.ExitUsage
	}

	if err := serve(opts, stdout); err != nil {
		fmt.Fprintf(stderr, "致命错误: %v\n", err)
		return cmdutil.ExitFatal
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	o := &cliOptions{}
	fs := flag.NewFlagSet("rendezvous", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configFile, "config", "", "JSON 配置文件路径")
	fs.StringVar(&o.dataDir, "data-dir", "", "注册表数据目录（为空时只保存在内存）")
	fs.BoolVar(&o.reset, "reset-on-mismatch", false, "K 或 method 与数据目录中的记录不一致时清空旧注册表")
	fs.StringVar(&o.metricsAddr, "metrics", "", "Prometheus /metrics 监听地址（host:port）")
	fs.StringVar(&o.logSpec, "log", "", "日志级别表达式，如 join=debug,info（语法同 RINGDHT_LOG_LEVEL）")
	fs.BoolVar(&o.verbose, "v", false, "输出调试日志")
	fs.BoolVar(&o.version, "version", false, "显示版本信息")

	pos, err := cmdutil.ParseArgs(fs, args, 4)
	if o.version {
		return o, nil
	}
	if err != nil {
		return nil, err
	}
	if o.listenAddr, err = cmdutil.HostPort(pos[0], pos[1]); err != nil {
		return nil, err
	}
	if o.k, err = strconv.ParseUint(pos[2], 10, 64); err != nil {
		return nil, fmt.Errorf("%w: invalid K %q", cmdutil.ErrUsage, pos[2])
	}
	if o.method, err = types.ParseDistributionMethod(pos[3]); err != nil {
		return nil, fmt.Errorf("%w: %v", cmdutil.ErrUsage, err)
	}
	if err := o.method.ValidateK(o.k); err != nil {
		return nil, fmt.Errorf("%w: %v", cmdutil.ErrUsage, err)
	}
	return o, nil
}

func buildOptions(o *cliOptions) []ringdht.Option {
	var opts []ringdht.Option
	if o.configFile != "" {
		opts = append(opts, ringdht.WithConfigFile(o.configFile))
	}
	opts = append(opts,
		ringdht.WithListenAddr(o.listenAddr),
		ringdht.WithPool(o.k, o.method),
	)
	if o.dataDir != "" {
		opts = append(opts, ringdht.WithDataDir(o.dataDir))
	}
	if o.reset {
		opts = append(opts, ringdht.WithResetOnMismatch())
	}
	return opts
}

// serve 启动服务并阻塞到收到信号
func serve(o *cliOptions, stdout io.Writer) error {
	ctx, cancel := cmdutil.SignalContext()
	defer cancel()

	metricsAddr, err := cmdutil.MetricsAddr(o.metricsAddr, o.configFile)
	if err != nil {
		return err
	}

	opts := buildOptions(o)
	if metricsAddr != "" {
		reg := cmdutil.NewMetricsRegistry()
		ms, err := cmdutil.ServeMetrics(metricsAddr, reg)
		if err != nil {
			return err
		}
		defer func() { _ = ms.Close() }()
		opts = append(opts, ringdht.WithMetricsRegisterer(reg))
	}

	rv, err := ringdht.NewRendezvous(opts...)
	if err != nil {
		return err
	}
	defer func() { _ = rv.Close() }()
	if err := rv.Start(ctx); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "rendezvous 已启动: addr=%s K=%d method=%s\n", rv.Address(), o.k, o.method)
	log.Info("rendezvous 已启动", "version", ringdht.VersionInfo(), "addr", rv.Address().String())

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(stdout, "正在关闭 rendezvous...")
			return nil
		case <-ticker.C:
			root, ok := rv.Root()
			log.Info("注册表统计",
				"registered", len(rv.Registrations()),
				"available", len(rv.Available()),
				"hasRoot", ok,
				"root", root.Addr.String())
		}
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "用法:")
	fmt.Fprintln(w, "  rendezvous <host> <port> <K> <method 1|2> [-config f] [-data-dir d] [-reset-on-mismatch] [-metrics addr] [-log spec] [-v] [-version]")
}
