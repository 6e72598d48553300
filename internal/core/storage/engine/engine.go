// Package engine 定义存储引擎接口
package engine

import "time"

// Engine 存储引擎
type Engine interface {
	// Get 获取值，不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 写入键值
	Put(key, value []byte) error

	// Delete 删除键，不存在时不报错
	Delete(key []byte) error

	// Has 键是否存在
	Has(key []byte) (bool, error)

	// NewPrefixIterator 创建前缀迭代器，用完必须 Close
	NewPrefixIterator(prefix []byte) Iterator

	// NewBatch 创建批量写入
	NewBatch() Batch

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Close 关闭引擎
	Close() error
}

// Batch 批量写入
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
	Size() int
}

// Iterator 有序迭代器
type Iterator interface {
	First() bool
	Next() bool
	Valid() bool
	Key() []byte
	Value() []byte
	Close()
	Error() error
}

// Config 引擎配置
type Config struct {
	// Path 数据库目录，InMemory 时忽略
	Path string

	// InMemory 内存模式，关闭后数据丢失
	InMemory bool

	// SyncWrites 每次写入同步落盘
	SyncWrites bool

	// GCInterval 值日志 GC 间隔，0 表示关闭
	GCInterval time.Duration

	// GCDiscardRatio 值日志 GC 丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回磁盘模式默认配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:           path,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig 返回内存模式配置
func InMemoryConfig() *Config {
	return &Config{InMemory: true}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return ErrInvalidConfig
	}
	if c.GCInterval > 0 && (c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1) {
		return ErrInvalidConfig
	}
	return nil
}
