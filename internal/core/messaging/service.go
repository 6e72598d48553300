// Package messaging 实现数据报之上的关联请求/回复层
//
// 线上信封：<needsReply>|<messageID>|<payload...>
//
// 内部分工：
//   - 接收 worker：解码每个入站信封，回复按消息 ID 交给等待者，
//     需要回复的请求放入入站队列，队列满时丢弃，从不阻塞
//   - 发送 worker：从出站队列取报文，经限速器后写入传输
//   - 每个未完成的请求持有自己的完成通道，调用方只阻塞自己
//
// 单次 SendRequest 只发送一次，不重试。
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/internal/util/logger"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

var log = logger.Logger("messaging")

// ============================================================================
//                              待处理请求
// ============================================================================

// pendingRequest 等待关联回复的请求
//
// 由 SendRequest 创建，消费或超时后同步删除。
// deadline 之后到达的回复按过期回复丢弃。
type pendingRequest struct {
	id       uint64
	dst      types.Address
	tag      protocol.Tag
	deadline time.Time
	replyCh  chan []string
}

// outgoing 待发送的数据报
type outgoing struct {
	data []byte
	dst  types.Address
}

// ============================================================================
//                              Service 实现
// ============================================================================

// Service 关联请求/回复服务
type Service struct {
	cfg       config.MessagingConfig
	transport pkgif.Transport
	clock     clock.Clock
	metrics   *metrics.Collector
	limiter   *rate.Limiter

	// nextID 单调递增的消息 ID
	nextID atomic.Uint64

	// mu 保护 pending
	mu      sync.Mutex
	pending map[uint64]*pendingRequest

	outbound chan outgoing
	inbound  chan *protocol.Envelope

	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	started atomic.Bool
	closed  atomic.Bool
}

var _ pkgif.Messenger = (*Service)(nil)

// NewService 创建消息服务
//
// clk 为 nil 时使用真实时钟，collector 可以为 nil。
func NewService(cfg config.MessagingConfig, t pkgif.Transport, clk clock.Clock, collector *metrics.Collector) *Service {
	if clk == nil {
		clk = clock.New()
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}
	burst := cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		cfg:       cfg,
		transport: t,
		clock:     clk,
		metrics:   collector,
		limiter:   rate.NewLimiter(limit, burst),
		pending:   make(map[uint64]*pendingRequest),
		outbound:  make(chan outgoing, cfg.OutboundQueueSize),
		inbound:   make(chan *protocol.Envelope, cfg.InboundQueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动接收与发送 worker
func (s *Service) Start() error {
	if s.closed.Load() {
		return types.ErrServiceClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error { return s.receiveLoop(ctx) })
	g.Go(func() error { return s.transmitLoop(ctx) })
	s.group = g

	log.Info("消息服务已启动", "addr", s.transport.LocalAddr().String())
	return nil
}

// Close 停止 worker 并关闭传输
//
// 所有阻塞中的 SendRequest 返回 types.ErrServiceClosed。
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	err := s.transport.Close()

	if s.group != nil {
		if werr := s.group.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
			err = errors.Join(err, werr)
		}
	}

	s.mu.Lock()
	n := len(s.pending)
	s.pending = make(map[uint64]*pendingRequest)
	s.mu.Unlock()

	log.Info("消息服务已停止", "abandoned", n)
	return err
}

// LocalAddr 返回本节点地址
func (s *Service) LocalAddr() types.Address {
	return s.transport.LocalAddr()
}

// Inbound 返回需要回复的入站报文队列
//
// 由唯一的应用逻辑 worker 消费。
func (s *Service) Inbound() <-chan *protocol.Envelope {
	return s.inbound
}

// Done 服务关闭时关闭
func (s *Service) Done() <-chan struct{} {
	return s.ctx.Done()
}

// ============================================================================
//                              出站 API
// ============================================================================

// SendRequest 发送请求并阻塞等待关联回复
//
// timeout <= 0 时使用配置的默认超时。
// 超时返回包装了 types.ErrTransportTimeout 的错误。
func (s *Service) SendRequest(ctx context.Context, payload []string, dst types.Address, timeout time.Duration) ([]string, error) {
	if s.closed.Load() {
		return nil, types.ErrServiceClosed
	}
	if timeout <= 0 {
		timeout = s.cfg.RequestTimeout.Duration()
	}

	timer := s.clock.Timer(timeout)
	defer timer.Stop()

	pr := &pendingRequest{
		id:       s.nextID.Add(1),
		dst:      dst,
		tag:      protocol.TagOf(payload),
		deadline: s.clock.Now().Add(timeout),
		replyCh:  make(chan []string, 1),
	}

	env := &protocol.Envelope{NeedsReply: true, MsgID: pr.id, Payload: payload}
	data, err := s.encode(env)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pending[pr.id] = pr
	s.mu.Unlock()
	defer s.forget(pr.id)

	if err := s.enqueue(ctx, outgoing{data: data, dst: dst}); err != nil {
		return nil, err
	}
	s.metrics.RequestSent(string(pr.tag))

	select {
	case reply := <-pr.replyCh:
		return reply, nil
	case <-timer.C:
		s.metrics.RequestTimedOut(string(pr.tag))
		log.Debug("请求超时", "tag", pr.tag, "dst", dst.String(), "msgID", pr.id, "timeout", timeout)
		return nil, fmt.Errorf("%w: %s to %s after %s", types.ErrTransportTimeout, pr.tag, dst, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ctx.Done():
		return nil, types.ErrServiceClosed
	}
}

// Reply 回复入站请求
//
// 信封带回原请求的消息 ID，needsReply 置为 false，不等待确认。
func (s *Service) Reply(req *protocol.Envelope, payload []string) error {
	env := &protocol.Envelope{NeedsReply: false, MsgID: req.MsgID, Payload: payload}
	data, err := s.encode(env)
	if err != nil {
		return err
	}
	return s.enqueue(s.ctx, outgoing{data: data, dst: req.From})
}

// Notify 发送 needsReply=true 的报文但不登记等待
func (s *Service) Notify(ctx context.Context, payload []string, dst types.Address) error {
	if s.closed.Load() {
		return types.ErrServiceClosed
	}
	env := &protocol.Envelope{NeedsReply: true, MsgID: s.nextID.Add(1), Payload: payload}
	data, err := s.encode(env)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, outgoing{data: data, dst: dst})
}

func (s *Service) encode(env *protocol.Envelope) ([]byte, error) {
	if err := protocol.ValidateTokens(env.Payload); err != nil {
		return nil, err
	}
	data := env.Encode()
	if len(data) > s.cfg.MaxDatagramSize {
		return nil, fmt.Errorf("%w: envelope of %d bytes exceeds %d", types.ErrProtocolViolation, len(data), s.cfg.MaxDatagramSize)
	}
	return data, nil
}

func (s *Service) enqueue(ctx context.Context, msg outgoing) error {
	select {
	case s.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return types.ErrServiceClosed
	}
}

func (s *Service) forget(id uint64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// PendingCount 返回未完成的请求数
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ============================================================================
//                              Worker
// ============================================================================

// receiveLoop 接收 worker：只做解码与分类，从不阻塞
func (s *Service) receiveLoop(ctx context.Context) error {
	buf := make([]byte, s.cfg.MaxDatagramSize)
	for {
		n, from, err := s.transport.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, types.ErrServiceClosed) {
				return nil
			}
			log.Debug("读取数据报失败", "err", err)
			continue
		}
		s.metrics.LogRecv(n)

		env, err := protocol.DecodeEnvelope(buf[:n], from)
		if err != nil {
			log.Debug("丢弃非法报文", "from", from.String(), "err", err)
			continue
		}
		s.classify(env)
	}
}

// classify 回复交给等待者，请求放入入站队列
func (s *Service) classify(env *protocol.Envelope) {
	if !env.NeedsReply {
		s.mu.Lock()
		pr, ok := s.pending[env.MsgID]
		if ok {
			delete(s.pending, env.MsgID)
		}
		s.mu.Unlock()

		if !ok {
			s.metrics.StaleReply()
			log.Debug("丢弃过期回复", "from", env.From.String(), "msgID", env.MsgID)
			return
		}
		if late := s.clock.Since(pr.deadline); late > 0 {
			s.metrics.StaleReply()
			log.Debug("丢弃超时后到达的回复",
				"tag", pr.tag, "dst", pr.dst.String(), "from", env.From.String(), "msgID", pr.id, "late", late)
			return
		}
		if env.From != pr.dst {
			log.Debug("回复来源与请求目标不同", "tag", pr.tag, "dst", pr.dst.String(), "from", env.From.String())
		}
		// replyCh 容量为 1 且只投递一次
		pr.replyCh <- env.Payload
		return
	}

	select {
	case s.inbound <- env:
	default:
		s.metrics.InboundDropped()
		log.Warn("入站队列已满，丢弃报文", "tag", env.Tag(), "from", env.From.String())
	}
}

// transmitLoop 发送 worker
func (s *Service) transmitLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.outbound:
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := s.transport.WriteTo(msg.data, msg.dst); err != nil {
				if errors.Is(err, types.ErrServiceClosed) {
					return nil
				}
				log.Debug("发送数据报失败", "dst", msg.dst.String(), "err", err)
				continue
			}
			s.metrics.LogSent(len(msg.data))
		}
	}
}
