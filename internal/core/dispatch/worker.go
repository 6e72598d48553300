package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-ringdht/internal/util/logger"
	"github.com/dep2p/go-ringdht/pkg/protocol"
)

var log = logger.Logger("dispatch")

// Worker 应用逻辑 worker
//
// 串行消费入站队列，按报文类型调用处理函数。
// 未注册类型的报文被丢弃，发送方最终超时。
type Worker struct {
	registry *Registry
	inbound  <-chan *protocol.Envelope

	unhandled atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewWorker 创建 worker
func NewWorker(registry *Registry, inbound <-chan *protocol.Envelope) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		registry: registry,
		inbound:  inbound,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start 启动 worker
func (w *Worker) Start() {
	w.once.Do(func() {
		w.wg.Add(1)
		go w.run()
	})
}

// Stop 停止 worker 并等待当前处理函数返回
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

// Unhandled 返回因无处理函数而丢弃的报文数
func (w *Worker) Unhandled() int64 {
	return w.unhandled.Load()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case env, ok := <-w.inbound:
			if !ok {
				return
			}
			w.dispatch(env)
		}
	}
}

func (w *Worker) dispatch(env *protocol.Envelope) {
	h, ok := w.registry.Handler(env.Tag())
	if !ok {
		w.unhandled.Add(1)
		log.Debug("未找到报文处理函数", "tag", env.Tag(), "from", env.From.String())
		return
	}
	h(w.ctx, env)
}
