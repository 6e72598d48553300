package engine

import "errors"

// 引擎实现把底层错误统一转换为以下哨兵错误
var (
	// ErrNotFound Get 的键不存在
	ErrNotFound = errors.New("engine: not found")

	// ErrEmptyKey 写入或删除时键为空
	ErrEmptyKey = errors.New("engine: empty key")

	// ErrClosed 引擎关闭后仍被调用
	ErrClosed = errors.New("engine: closed")

	// ErrInvalidConfig Config.Validate 未通过
	ErrInvalidConfig = errors.New("engine: invalid config")

	// ErrBatchClosed 同一个 Batch 被提交两次
	ErrBatchClosed = errors.New("engine: batch already written")
)

// IsNotFound 是否为键不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
