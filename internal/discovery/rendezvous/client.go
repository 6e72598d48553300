package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("rendezvous")

// ============================================================================
//                              Client
// ============================================================================

// Client rendezvous 客户端
type Client struct {
	messenger pkgif.Messenger
	addr      types.Address

	initialWait time.Duration
	maxWait     time.Duration
}

// NewClient 创建客户端
func NewClient(m pkgif.Messenger, rendezvousAddr types.Address, cfg config.JoinConfig) *Client {
	return &Client{
		messenger:   m,
		addr:        rendezvousAddr,
		initialWait: cfg.BootstrapInitialWait.Duration(),
		maxWait:     cfg.BootstrapMaxWait.Duration(),
	}
}

// Addr 返回 rendezvous 地址
func (c *Client) Addr() types.Address {
	return c.addr
}

// Hello 申请 ID
//
// 池耗尽返回 types.ErrPoolExhausted；回复格式错误返回 types.ErrProtocolViolation。
func (c *Client) Hello(ctx context.Context) (protocol.Assignment, error) {
	reply, err := c.exchange(ctx, protocol.HelloMsg())
	if err != nil {
		return protocol.Assignment{}, err
	}
	a, err := protocol.ParseAssigned(reply)
	if err != nil {
		return protocol.Assignment{}, err
	}
	if err := a.Method.ValidateK(a.K); err != nil {
		return protocol.Assignment{}, fmt.Errorf("%w: %v", types.ErrProtocolViolation, err)
	}
	log.Info("获得 ID", "id", a.ID.String(), "root", a.IsRoot, "k", a.K, "method", a.Method.String())
	return a, nil
}

// Ack 确认 ID
func (c *Client) Ack(ctx context.Context, id types.NodeID) error {
	reply, err := c.exchange(ctx, protocol.AcknowledgeMsg(id))
	if err != nil {
		return err
	}
	args, err := protocol.Expect(reply, protocol.Acknowledge, 1)
	if err != nil {
		return err
	}
	if args[0] != id.String() {
		return fmt.Errorf("%w: ACK for %s, expected %s", types.ErrProtocolViolation, args[0], id)
	}
	return nil
}

// Removed 通知 rendezvous 释放失效节点的 ID
func (c *Client) Removed(ctx context.Context, id types.NodeID) error {
	reply, err := c.exchange(ctx, protocol.RemovedMsg(id))
	if err != nil {
		return err
	}
	_, err = protocol.Expect(reply, protocol.Ack, 0)
	return err
}

// exchange 按翻倍等待重发，直到得到回复或超过上限
func (c *Client) exchange(ctx context.Context, payload []string) ([]string, error) {
	backoff := NewBackoff(c.initialWait, c.maxWait)
	attempts := 0
	for {
		wait, ok := backoff.Next()
		if !ok {
			return nil, fmt.Errorf("%w: rendezvous %s did not answer %s after %d attempts",
				types.ErrTransportTimeout, c.addr, protocol.TagOf(payload), attempts)
		}
		attempts++

		reply, err := c.messenger.SendRequest(ctx, payload, c.addr, wait)
		if err == nil {
			return reply, nil
		}
		if !errors.Is(err, types.ErrTransportTimeout) {
			return nil, err
		}
		log.Debug("rendezvous 未应答，加倍等待", "tag", protocol.TagOf(payload), "wait", wait)
	}
}
