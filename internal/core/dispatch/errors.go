package dispatch

import "errors"

// 分发模块错误定义
var (
	// ErrDuplicateHandler 报文类型已注册
	ErrDuplicateHandler = errors.New("dispatch: handler already registered")

	// ErrEmptyTag 报文类型为空
	ErrEmptyTag = errors.New("dispatch: empty tag")

	// ErrNilHandler 处理函数为 nil
	ErrNilHandler = errors.New("dispatch: nil handler")
)
