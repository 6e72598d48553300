package logger

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// 环境变量
const (
	// EnvLevel 级别表达式，语法见 ParseLevelSpec
	EnvLevel = "RINGDHT_LOG_LEVEL"

	// EnvFormat text 或 json
	EnvFormat = "RINGDHT_LOG_FORMAT"

	// EnvAddSource 布尔值，输出源码位置
	EnvAddSource = "RINGDHT_LOG_ADD_SOURCE"
)

// LevelOff 高于 error 的级别，用于关闭某个子系统
const LevelOff = slog.LevelError + 4

// LogFormat 日志输出格式
type LogFormat int

const (
	// FormatText 文本格式（默认）
	FormatText LogFormat = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// Config 日志配置
type Config struct {
	// DefaultLevel 没有匹配到子系统时使用的级别
	DefaultLevel slog.Level

	// SubsystemLevels 子系统或子系统前缀的级别
	SubsystemLevels map[string]slog.Level

	// Format 输出格式
	Format LogFormat

	// AddSource 是否添加源码位置
	AddSource bool
}

func defaultConfig() *Config {
	return &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
	}
}

func (c *Config) clone() *Config {
	out := *c
	out.SubsystemLevels = make(map[string]slog.Level, len(c.SubsystemLevels))
	for k, v := range c.SubsystemLevels {
		out.SubsystemLevels[k] = v
	}
	return &out
}

// LevelForSubsystem 返回子系统的日志级别
//
// 子系统名按 "/" 分层，逐级向上匹配：
// rendezvous/cmd 依次查找 rendezvous/cmd、rendezvous，都没有时用默认级别。
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	for name := subsystem; ; {
		if level, ok := c.SubsystemLevels[name]; ok {
			return level
		}
		i := strings.LastIndexByte(name, '/')
		if i < 0 {
			return c.DefaultLevel
		}
		name = name[:i]
	}
}

// ============================================================================
//                              级别表达式
// ============================================================================

// ParseLevelSpec 把级别表达式合并进 cfg
//
// 表达式是逗号分隔的条目，不带 "=" 的条目设置默认级别：
//
//	join=debug,messaging=warn,info
//	rendezvous=debug,transport/udp=off
//
// 级别接受 debug/info/warn/error/off 以及 slog 的偏移写法（如 info+2）。
// 出错的条目被跳过，其余条目照常生效，所有错误合并返回。
func ParseLevelSpec(cfg *Config, spec string) error {
	var errs error
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		subsystem, name, scoped := strings.Cut(entry, "=")
		if !scoped {
			name = subsystem
		}
		level, err := parseLevel(strings.TrimSpace(name))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !scoped {
			cfg.DefaultLevel = level
			continue
		}

		subsystem = strings.Trim(strings.TrimSpace(subsystem), "/")
		if subsystem == "" {
			errs = multierr.Append(errs, fmt.Errorf("log level %q: empty subsystem", entry))
			continue
		}
		cfg.SubsystemLevels[subsystem] = level
	}
	return errs
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "off", "none":
		return LevelOff, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log level %q: unknown level", name)
	}
	return level, nil
}

func parseFormat(name string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("%s=%q: want text or json", EnvFormat, name)
	}
}

// ============================================================================
//                              当前配置
// ============================================================================

var (
	configMu   sync.RWMutex
	configOnce sync.Once
	current    *Config
	envErr     error
)

// ConfigFromEnv 返回当前配置
//
// 第一次调用时读取 RINGDHT_LOG_LEVEL、RINGDHT_LOG_FORMAT、RINGDHT_LOG_ADD_SOURCE；
// 之后 ApplyLevelSpec 的修改也反映在返回值中。
func ConfigFromEnv() *Config {
	configOnce.Do(loadEnv)
	configMu.RLock()
	defer configMu.RUnlock()
	return current
}

// EnvError 返回解析环境变量时遇到的错误（出错的部分已回退为默认值）
func EnvError() error {
	configOnce.Do(loadEnv)
	configMu.RLock()
	defer configMu.RUnlock()
	return envErr
}

func loadEnv() {
	cfg, err := configFrom(os.Getenv)
	configMu.Lock()
	current, envErr = cfg, err
	configMu.Unlock()
}

// configFrom 从 getenv 读取配置，便于测试替换环境
func configFrom(getenv func(string) string) (*Config, error) {
	cfg := defaultConfig()
	var errs error

	if spec := getenv(EnvLevel); spec != "" {
		errs = multierr.Append(errs, ParseLevelSpec(cfg, spec))
	}

	format, err := parseFormat(getenv(EnvFormat))
	cfg.Format = format
	errs = multierr.Append(errs, err)

	if v := getenv(EnvAddSource); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s=%q: want a boolean", EnvAddSource, v))
		}
		cfg.AddSource = on
	}
	return cfg, errs
}

// ApplyLevelSpec 在当前配置上应用级别表达式
//
// 表达式有任何错误时不做修改。已创建的 Logger 立即按新级别过滤，
// 之后创建的 Logger 同样使用新级别。
func ApplyLevelSpec(spec string) error {
	configOnce.Do(loadEnv)

	configMu.Lock()
	next := current.clone()
	if err := ParseLevelSpec(next, spec); err != nil {
		configMu.Unlock()
		return err
	}
	current = next
	configMu.Unlock()

	handlers.Range(func(key, value any) bool {
		value.(*subsystemHandler).SetLevel(next.LevelForSubsystem(key.(string)))
		return true
	})
	return nil
}
