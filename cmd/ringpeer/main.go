// Package main 提供环节点命令行入口
//
// 使用方法:
//
//	ringpeer <host> <port> <rendezvous-host> <rendezvous-port> [选项]
//
// 参数错误以状态 2 退出，运行期致命错误（ID 冲突、池耗尽、协议违规）以状态 1 退出。
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	ringdht "github.com/dep2p/go-ringdht"
	"github.com/dep2p/go-ringdht/internal/cmdutil"
	"github.com/dep2p/go-ringdht/internal/util/logger"
)

var log = logger.Logger("ringpeer")

// cliOptions 命令行选项
type cliOptions struct {
	listenAddr     string
	rendezvousAddr string
	configFile     string
	metricsAddr    string
	interactive    bool
	logSpec        string
	verbose        bool
	version        bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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

	if err := serve(opts, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "致命错误: %v\n", err)
		return cmdutil.ExitFatal
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	o := &cliOptions{}
	fs := flag.NewFlagSet("ringpeer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configFile, "config", "", "JSON 配置文件路径")
	fs.StringVar(&o.metricsAddr, "metrics", "", "Prometheus /metrics 监听地址（host:port）")
	fs.BoolVar(&o.interactive, "interactive", false, "从标准输入读取命令")
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
	if o.rendezvousAddr, err = cmdutil.HostPort(pos[2], pos[3]); err != nil {
		return nil, err
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
		ringdht.WithRendezvousAddr(o.rendezvousAddr),
	)
	return opts
}

// serve 启动节点并阻塞到收到信号、quit 命令或致命错误
func serve(o *cliOptions, stdin io.Reader, stdout io.Writer) error {
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

	log.Info("启动环节点", "version", ringdht.VersionInfo(), "listen", o.listenAddr, "rendezvous", o.rendezvousAddr)
	peer, err := ringdht.Start(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = peer.Close() }()

	fmt.Fprintf(stdout, "节点已入环: id=%d addr=%s\n", peer.ID(), peer.Address())

	quit := make(chan struct{})
	if o.interactive {
		c := newConsole(peer, stdout)
		go func() {
			c.Run(ctx, stdin)
			close(quit)
		}()
	}

	select {
	case err := <-peer.Fatal():
		return err
	case <-quit:
		return nil
	case <-ctx.Done():
		fmt.Fprintln(stdout, "正在关闭节点...")
		return nil
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "用法:")
	fmt.Fprintln(w, "  ringpeer <host> <port> <rendezvous-host> <rendezvous-port> [-config f] [-interactive] [-metrics addr] [-log spec] [-v] [-version]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "交互命令:")
	fmt.Fprintln(w, "  lookup <key>   查找键的所有者")
	fmt.Fprintln(w, "  hash <key>     显示键的环位置")
	fmt.Fprintln(w, "  ring           显示本节点的 4 个指针")
	fmt.Fprintln(w, "  quit           退出")
}
