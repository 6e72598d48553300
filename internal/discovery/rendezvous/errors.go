package rendezvous

import "errors"

// 预定义错误
var (
	// ErrUnknownID ID 未被分配
	ErrUnknownID = errors.New("rendezvous: unknown id")

	// ErrPoolMismatch 持久化的池参数与当前配置不一致
	ErrPoolMismatch = errors.New("rendezvous: persisted pool does not match configuration")

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("rendezvous: already started")
)
