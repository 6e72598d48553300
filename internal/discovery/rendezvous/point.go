package rendezvous

import (
	"context"
	"errors"

	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// ============================================================================
//                              Point
// ============================================================================

// Point rendezvous 服务端
//
// 处理函数运行在分发 worker 上，只做内存与本地存储操作，不发起出站请求。
type Point struct {
	registry  *Registry
	messenger pkgif.Messenger
}

// NewPoint 创建服务端
func NewPoint(registry *Registry, m pkgif.Messenger) *Point {
	return &Point{registry: registry, messenger: m}
}

// Registry 返回注册表
func (p *Point) Registry() *Registry {
	return p.registry
}

// Addr 返回服务地址
func (p *Point) Addr() types.Address {
	return p.messenger.LocalAddr()
}

// Register 注册 hello / ACK / Removed 处理函数
func (p *Point) Register(reg pkgif.HandlerRegistrar) error {
	return errors.Join(
		reg.Register(protocol.Hello, p.handleHello),
		reg.Register(protocol.Acknowledge, p.handleAck),
		reg.Register(protocol.Removed, p.handleRemoved),
	)
}

func (p *Point) handleHello(_ context.Context, env *protocol.Envelope) {
	reg, root, err := p.registry.Assign(env.From)
	if errors.Is(err, types.ErrPoolExhausted) {
		log.Warn("ID 池已耗尽", "from", env.From.String())
		p.reply(env, protocol.Single(protocol.Full))
		return
	}
	if err != nil {
		log.Error("分配 ID 失败", "from", env.From.String(), "err", err)
		return
	}

	var rootAddr types.Address
	if root.ID != reg.ID {
		rootAddr = root.Addr
	}
	log.Info("分配 ID", "from", env.From.String(), "id", reg.ID.String(), "root", rootAddr.IsZero())
	p.reply(env, protocol.AssignedMsg(reg.ID, rootAddr, p.registry.K(), p.registry.Method()))
}

func (p *Point) handleAck(_ context.Context, env *protocol.Envelope) {
	args, err := protocol.Expect(env.Payload, protocol.Acknowledge, 1)
	if err != nil {
		log.Debug("丢弃非法 ACK", "from", env.From.String(), "err", err)
		return
	}
	id, err := types.ParseNodeID(args[0])
	if err != nil {
		log.Debug("丢弃非法 ACK", "from", env.From.String(), "err", err)
		return
	}
	if err := p.registry.Acknowledge(id); err != nil {
		log.Warn("确认未分配的 ID", "from", env.From.String(), "id", id.String(), "err", err)
		return
	}
	log.Info("ID 已确认", "id", id.String(), "peers", len(p.registry.Registrations()))
	p.reply(env, protocol.AcknowledgeMsg(id))
}

func (p *Point) handleRemoved(_ context.Context, env *protocol.Envelope) {
	args, err := protocol.Expect(env.Payload, protocol.Removed, 1)
	if err != nil {
		log.Debug("丢弃非法 Removed", "from", env.From.String(), "err", err)
		return
	}
	id, err := types.ParseNodeID(args[0])
	if err != nil {
		log.Debug("丢弃非法 Removed", "from", env.From.String(), "err", err)
		return
	}

	// 重复通知同样确认
	removed, promoted, err := p.registry.Release(id)
	switch {
	case errors.Is(err, ErrUnknownID):
		log.Debug("ID 已释放", "id", id.String())
	case err != nil:
		log.Error("释放 ID 失败", "id", id.String(), "err", err)
		return
	default:
		log.Info("ID 已释放", "id", id.String(), "addr", removed.Addr.String(), "reporter", env.From.String())
		if promoted != nil {
			log.Info("根节点变更", "id", promoted.ID.String(), "addr", promoted.Addr.String())
		}
	}
	p.reply(env, protocol.Single(protocol.Ack))
}

func (p *Point) reply(env *protocol.Envelope, payload []string) {
	if err := p.messenger.Reply(env, payload); err != nil {
		log.Debug("回复失败", "to", env.From.String(), "err", err)
	}
}
