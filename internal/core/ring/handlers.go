package ring

import (
	"context"

	"github.com/dep2p/go-ringdht/internal/core/metrics"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
)

// Handlers Request / Set 报文处理
type Handlers struct {
	dir       *Directory
	messenger pkgif.Messenger
	metrics   *metrics.Collector

	// ackMalformed 非法 Set 是否仍回复 Setted
	ackMalformed bool
}

// NewHandlers 创建处理器
func NewHandlers(dir *Directory, m pkgif.Messenger, collector *metrics.Collector, ackMalformed bool) *Handlers {
	return &Handlers{dir: dir, messenger: m, metrics: collector, ackMalformed: ackMalformed}
}

// Register 注册到分发表
func (h *Handlers) Register(reg pkgif.HandlerRegistrar) error {
	if err := reg.Register(protocol.Request, h.handleRequest); err != nil {
		return err
	}
	return reg.Register(protocol.Set, h.handleSet)
}

func (h *Handlers) handleRequest(_ context.Context, env *protocol.Envelope) {
	values := h.dir.GetFields(env.Args())
	if err := h.messenger.Reply(env, protocol.ReplyMsg(values)); err != nil {
		log.Debug("回复 Request 失败", "to", env.From.String(), "err", err)
	}
}

func (h *Handlers) handleSet(_ context.Context, env *protocol.Envelope) {
	if err := h.dir.SetFields(env.Args()); err != nil {
		h.metrics.MalformedSet()
		log.Warn("拒绝非法 Set", "from", env.From.String(), "err", err)
		if !h.ackMalformed {
			return
		}
	}
	if err := h.messenger.Reply(env, protocol.Single(protocol.Setted)); err != nil {
		log.Debug("回复 Set 失败", "to", env.From.String(), "err", err)
	}
}
