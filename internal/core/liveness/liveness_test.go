package liveness

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/dispatch"
	"github.com/dep2p/go-ringdht/internal/core/eventbus"
	"github.com/dep2p/go-ringdht/internal/core/join"
	"github.com/dep2p/go-ringdht/internal/core/lifecycle"
	"github.com/dep2p/go-ringdht/internal/core/messaging"
	"github.com/dep2p/go-ringdht/internal/core/ring"
	"github.com/dep2p/go-ringdht/internal/core/transport/memory"
	"github.com/dep2p/go-ringdht/internal/discovery/rendezvous"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

func addr(port int) types.Address {
	return types.NewAddress("127.0.0.1", port)
}

func ref(id uint64, port int) types.NodeRef {
	return types.NodeRef{ID: types.NodeID(id), Addr: addr(port)}
}

func pairsFor(plan join.Plan, a types.Address) []string {
	for _, u := range plan.Updates {
		if u.Addr == a {
			return u.Pairs
		}
	}
	return nil
}

// ============================================================================
//                              修复计划
// ============================================================================

// TestSplice_General 测试五节点环 2→4→6→8→10 中 4 失效
func TestSplice_General(t *testing.T) {
	p := types.RingPointers{
		Self:         ref(2, 9002),
		Prev:         ref(10, 9010),
		PrevPrevAddr: addr(9008),
		Next:         ref(4, 9004),
		NextNextAddr: addr(9006),
	}
	plan := Splice(p, ref(6, 9006), addr(9008))

	assert.Equal(t, ref(6, 9006), plan.Self.Next)
	assert.Equal(t, addr(9008), plan.Self.NextNextAddr)
	assert.Equal(t, addr(9008), plan.Self.PrevPrevAddr, "前驱的前驱不变")

	require.Len(t, plan.Updates, 3)
	assert.Equal(t, []string{
		"previousID", "2",
		"previousAddress", addr(9002).String(),
		"previousPreviousAddress", addr(9010).String(),
	}, pairsFor(plan, addr(9006)))
	assert.Equal(t, []string{
		"nextNextAddress", addr(9006).String(),
	}, pairsFor(plan, addr(9010)))
	assert.Equal(t, []string{
		"previousPreviousAddress", addr(9002).String(),
	}, pairsFor(plan, addr(9008)))

	t.Log("✅ 一般修复计划测试通过")
}

// TestSplice_ThreeToTwo 测试三节点环退化为两节点时的折回
func TestSplice_ThreeToTwo(t *testing.T) {
	p := types.RingPointers{
		Self:         ref(2, 9002),
		Prev:         ref(6, 9006),
		PrevPrevAddr: addr(9004),
		Next:         ref(4, 9004),
		NextNextAddr: addr(9006),
	}
	plan := Splice(p, ref(6, 9006), addr(9002))

	assert.Equal(t, types.RingPointers{
		Self:         ref(2, 9002),
		Prev:         ref(6, 9006),
		PrevPrevAddr: addr(9002),
		Next:         ref(6, 9006),
		NextNextAddr: addr(9002),
	}, plan.Self)

	require.Len(t, plan.Updates, 2)
	assert.Equal(t, []string{
		"previousID", "2",
		"previousAddress", addr(9002).String(),
		"previousPreviousAddress", addr(9006).String(),
		"nextNextAddress", addr(9006).String(),
	}, pairsFor(plan, addr(9006)))
	assert.Equal(t, []string{
		"previousPreviousAddress", addr(9002).String(),
	}, pairsFor(plan, addr(9002)))

	t.Log("✅ 三节点退化测试通过")
}

// ============================================================================
//                              端到端
// ============================================================================

type node struct {
	svc      *messaging.Service
	reg      *dispatch.Registry
	dir      *ring.Directory
	coord    *lifecycle.Coordinator
	detector *Detector
}

type cluster struct {
	t        *testing.T
	network  *memory.Network
	registry *rendezvous.Registry
	nodes    map[types.Address]*node
}

func testLivenessConfig() config.LivenessConfig {
	cfg := config.DefaultLivenessConfig()
	cfg.ProbeTimeout = config.Duration(100 * time.Millisecond)
	cfg.RepairQueryTimeout = config.Duration(100 * time.Millisecond)
	return cfg
}

func testJoinConfig() config.JoinConfig {
	cfg := config.DefaultJoinConfig()
	cfg.BootstrapInitialWait = config.Duration(50 * time.Millisecond)
	cfg.BootstrapMaxWait = config.Duration(400 * time.Millisecond)
	cfg.QueryTimeout = config.Duration(100 * time.Millisecond)
	cfg.PushTimeout = config.Duration(100 * time.Millisecond)
	cfg.PushAttempts = 5
	return cfg
}

func newCluster(t *testing.T, k uint64) *cluster {
	c := &cluster{t: t, network: memory.NewNetwork(), nodes: make(map[types.Address]*node)}

	svc, reg := c.endpoint(addr(9000))
	registry, err := rendezvous.NewRegistry(k, types.MethodLinear, nil, 5)
	require.NoError(t, err)
	require.NoError(t, rendezvous.NewPoint(registry, svc).Register(reg))
	c.registry = registry
	return c
}

func (c *cluster) endpoint(at types.Address) (*messaging.Service, *dispatch.Registry) {
	ep, err := c.network.Listen(at)
	require.NoError(c.t, err)
	svc := messaging.NewService(config.DefaultMessagingConfig(), ep, nil, nil)
	require.NoError(c.t, svc.Start())
	reg := dispatch.NewRegistry()
	w := dispatch.NewWorker(reg, svc.Inbound())
	w.Start()
	c.t.Cleanup(func() {
		w.Stop()
		_ = svc.Close()
	})
	return svc, reg
}

// join 启动一个节点并加入环；clk 为 nil 时不启动探测 worker
func (c *cluster) join(port int, clk clock.Clock, bus *eventbus.Bus) *node {
	svc, reg := c.endpoint(addr(port))
	dir := ring.NewDirectory(nil)
	require.NoError(c.t, ring.NewHandlers(dir, svc, nil, true).Register(reg))

	jcfg := testJoinConfig()
	client := rendezvous.NewClient(svc, addr(9000), jcfg)
	coord := lifecycle.NewCoordinator(nil)
	j := join.NewJoiner(jcfg, svc, client, dir, coord, nil, nil)

	deps := Deps{
		Messenger:   svc,
		Directory:   dir,
		Coordinator: coord,
		Pusher:      j.Pusher(),
		Client:      client,
		Clock:       clk,
	}
	if bus != nil {
		deps.EventBus = bus
	}
	d := NewDetector(testLivenessConfig(), deps)
	require.NoError(c.t, d.Register(reg))
	c.t.Cleanup(func() { _ = d.Stop() })

	require.NoError(c.t, j.Join(context.Background()))
	if clk != nil {
		require.NoError(c.t, d.Start())
	}

	n := &node{svc: svc, reg: reg, dir: dir, coord: coord, detector: d}
	c.nodes[addr(port)] = n
	return n
}

func (c *cluster) kill(n *node) {
	c.network.Kill(n.svc.LocalAddr())
	delete(c.nodes, n.svc.LocalAddr())
}

// predecessorOf 返回后继为 n 的节点
func (c *cluster) predecessorOf(n *node) *node {
	for _, o := range c.nodes {
		if o.dir.Snapshot().Next.Addr == n.svc.LocalAddr() {
			return o
		}
	}
	return nil
}

// closed 所有存活节点的 4 个指针是否构成按 ID 排序的环
func (c *cluster) closed() bool {
	snaps := make([]types.RingPointers, 0, len(c.nodes))
	for _, n := range c.nodes {
		snaps = append(snaps, n.dir.Snapshot())
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Self.ID < snaps[j].Self.ID })

	k := len(snaps)
	for i, s := range snaps {
		if s.Next != snaps[(i+1)%k].Self ||
			s.NextNextAddr != snaps[(i+2)%k].Self.Addr ||
			s.Prev != snaps[(i+k-1)%k].Self ||
			s.PrevPrevAddr != snaps[(i+k-2)%k].Self.Addr {
			return false
		}
	}
	return true
}

// TestDetector_PingHandler 测试 Ping 应答
func TestDetector_PingHandler(t *testing.T) {
	c := newCluster(t, 7)
	a := c.join(9001, nil, nil)
	b := c.join(9002, nil, nil)

	reply, err := b.svc.SendRequest(context.Background(), protocol.PingMsg(), a.svc.LocalAddr(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pinged"}, reply)

	require.NoError(t, a.detector.ProbeOnce(context.Background()))
	assert.True(t, c.closed())

	t.Log("✅ Ping 应答测试通过")
}

// TestDetector_RepairSplice 测试后继失效后跳过它重新链接
func TestDetector_RepairSplice(t *testing.T) {
	c := newCluster(t, 15)
	var all []*node
	for port := 9001; port <= 9005; port++ {
		all = append(all, c.join(port, nil, nil))
	}
	require.True(t, c.closed())

	victim := all[2]
	victimID := victim.dir.Self().ID
	pred := c.predecessorOf(victim)
	require.NotNil(t, pred)
	c.kill(victim)

	require.NoError(t, pred.detector.ProbeOnce(context.Background()))
	assert.True(t, c.closed(), "修复后 4 个节点构成闭环")

	assert.Eventually(t, func() bool {
		for _, r := range c.registry.Registrations() {
			if r.ID == victimID {
				return false
			}
		}
		return true
	}, 2*time.Second, 20*time.Millisecond, "rendezvous 释放失效 ID")

	t.Log("✅ 修复测试通过")
}

// TestDetector_RepairToTwo 测试三节点环退化为两节点
func TestDetector_RepairToTwo(t *testing.T) {
	c := newCluster(t, 7)
	a := c.join(9001, nil, nil)
	c.join(9002, nil, nil)
	c.join(9003, nil, nil)

	victim := c.nodes[a.dir.Snapshot().Next.Addr]
	c.kill(victim)

	require.NoError(t, a.detector.ProbeOnce(context.Background()))
	assert.True(t, c.closed())
	p := a.dir.Snapshot()
	assert.Equal(t, p.Self.Addr, p.PrevPrevAddr)
	assert.Equal(t, p.Self.Addr, p.NextNextAddr)

	t.Log("✅ 三节点退化测试通过")
}

// TestDetector_RepairToAlone 测试两节点环退化为单节点
func TestDetector_RepairToAlone(t *testing.T) {
	c := newCluster(t, 7)
	a := c.join(9001, nil, nil)
	b := c.join(9002, nil, nil)
	c.kill(b)

	require.NoError(t, a.detector.ProbeOnce(context.Background()))
	p := a.dir.Snapshot()
	assert.True(t, p.IsAlone())
	assert.Equal(t, types.Alone(p.Self), p)

	// 单节点不再探测
	require.NoError(t, a.detector.ProbeOnce(context.Background()))

	t.Log("✅ 单节点退化测试通过")
}

// TestDetector_Skipped 测试后继已被更换时不修复
func TestDetector_Skipped(t *testing.T) {
	c := newCluster(t, 7)
	a := c.join(9001, nil, nil)
	c.join(9002, nil, nil)

	before := a.dir.Snapshot()
	require.NoError(t, a.detector.Repair(context.Background(), ref(99, 9099)))
	assert.Equal(t, before, a.dir.Snapshot())
	assert.True(t, c.closed())

	t.Log("✅ 跳过修复测试通过")
}

// TestDetector_BadPingReply 测试错误的 Ping 回复是致命错误
func TestDetector_BadPingReply(t *testing.T) {
	c := newCluster(t, 7)
	a := c.join(9001, nil, nil)
	b := c.join(9002, nil, nil)

	b.detector.Unregister(b.reg)
	require.NoError(t, b.reg.Register(protocol.Ping, func(_ context.Context, env *protocol.Envelope) {
		_ = b.svc.Reply(env, protocol.Single(protocol.Ack))
	}))

	err := a.detector.ProbeOnce(context.Background())
	assert.ErrorIs(t, err, types.ErrProtocolViolation)

	t.Log("✅ 错误回复测试通过")
}

// TestDetector_Ticker 测试探测 worker 按时钟周期修复并发布事件
func TestDetector_Ticker(t *testing.T) {
	c := newCluster(t, 7)
	mock := clock.NewMock()
	bus := eventbus.NewBus()

	a := c.join(9001, mock, bus)
	b := c.join(9002, mock, nil)

	sub, err := bus.Subscribe(new(types.EvtSuccessorFailed))
	require.NoError(t, err)
	defer sub.Close()

	c.kill(b)

	interval := testLivenessConfig().ProbeInterval.Duration()
	assert.Eventually(t, func() bool {
		mock.Add(interval)
		return a.dir.Snapshot().IsAlone()
	}, 3*time.Second, 50*time.Millisecond)

	select {
	case evt := <-sub.Out():
		e := evt.(types.EvtSuccessorFailed)
		assert.Equal(t, b.dir.Self(), e.Dead)
		assert.Equal(t, a.dir.Self(), e.Replacement)
	case <-time.After(time.Second):
		t.Fatal("未收到失效事件")
	}

	t.Log("✅ 周期探测测试通过")
}

// TestDetector_Disabled 测试关闭探测
func TestDetector_Disabled(t *testing.T) {
	cfg := testLivenessConfig()
	cfg.Enabled = false
	d := NewDetector(cfg, Deps{Coordinator: lifecycle.NewCoordinator(nil)})
	require.NoError(t, d.Start())
	assert.False(t, d.running.Load())
	require.NoError(t, d.Stop())
	assert.ErrorIs(t, d.Start(), types.ErrServiceClosed)

	t.Log("✅ 关闭探测测试通过")
}

// TestDetector_Unregister 测试注销 Ping 处理函数
func TestDetector_Unregister(t *testing.T) {
	d := NewDetector(testLivenessConfig(), Deps{Coordinator: lifecycle.NewCoordinator(nil)})
	reg := dispatch.NewRegistry()
	require.NoError(t, d.Register(reg))
	_, ok := reg.Handler(protocol.Ping)
	assert.True(t, ok)

	d.Unregister(reg)
	_, ok = reg.Handler(protocol.Ping)
	assert.False(t, ok)

	t.Log("✅ Ping 注销测试通过")
}

// TestDetector_FollowsCoordinator 测试致命错误后探测 worker 退出
func TestDetector_FollowsCoordinator(t *testing.T) {
	coord := lifecycle.NewCoordinator(nil)
	d := NewDetector(testLivenessConfig(), Deps{Coordinator: coord, Clock: clock.NewMock()})
	require.NoError(t, d.Start())
	t.Cleanup(func() { _ = d.Stop() })

	coord.Fail(errors.New("boom"))

	select {
	case <-d.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("探测上下文未随协调器取消")
	}

	// worker 已退出，Stop 不会阻塞
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("探测 worker 未退出")
	}

	t.Log("✅ 跟随协调器测试通过")
}
