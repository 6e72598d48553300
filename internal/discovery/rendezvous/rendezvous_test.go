package rendezvous

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/dispatch"
	"github.com/dep2p/go-ringdht/internal/core/messaging"
	"github.com/dep2p/go-ringdht/internal/core/storage/engine"
	"github.com/dep2p/go-ringdht/internal/core/storage/engine/badger"
	"github.com/dep2p/go-ringdht/internal/core/storage/kv"
	"github.com/dep2p/go-ringdht/internal/core/transport/memory"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

func addr(port int) types.Address {
	return types.NewAddress("127.0.0.1", port)
}

// ============================================================================
//                              Backoff
// ============================================================================

// TestBackoff_Schedule 测试翻倍等待序列
func TestBackoff_Schedule(t *testing.T) {
	b := NewBackoff(200*time.Millisecond, 10*time.Second)
	var got []time.Duration
	for {
		d, ok := b.Next()
		if !ok {
			break
		}
		got = append(got, d)
	}
	assert.Equal(t, []time.Duration{
		200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond,
		1600 * time.Millisecond, 3200 * time.Millisecond, 6400 * time.Millisecond,
	}, got)

	_, ok := NewBackoff(0, time.Second).Next()
	assert.False(t, ok)

	t.Log("✅ 翻倍等待测试通过")
}

// ============================================================================
//                              Registry
// ============================================================================

// TestRegistry_Pool 测试两种分布方式的 ID 池
func TestRegistry_Pool(t *testing.T) {
	lin, err := NewRegistry(7, types.MethodLinear, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{0, 1, 2, 3, 4, 5, 6, 7}, lin.Available())

	pow, err := NewRegistry(4, types.MethodPowerOfTwo, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{1, 2, 4, 8, 16}, pow.Available())

	seen := make(map[types.NodeID]bool)
	for port := 1; port <= 5; port++ {
		reg, _, err := pow.Assign(addr(port))
		require.NoError(t, err)
		assert.False(t, seen[reg.ID], "ID 不得重复分配")
		seen[reg.ID] = true
	}
	_, _, err = pow.Assign(addr(6))
	assert.ErrorIs(t, err, types.ErrPoolExhausted)

	_, err = NewRegistry(64, types.MethodPowerOfTwo, nil, 1)
	assert.Error(t, err)

	t.Log("✅ ID 池测试通过")
}

// TestRegistry_AssignRoot 测试重复 hello 与根节点
func TestRegistry_AssignRoot(t *testing.T) {
	r, err := NewRegistry(7, types.MethodLinear, nil, 42)
	require.NoError(t, err)

	first, root, err := r.Assign(addr(1))
	require.NoError(t, err)
	assert.Equal(t, first.ID, root.ID, "第一个注册者为根节点")

	again, _, err := r.Assign(addr(1))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "同一地址重复 hello 返回同一 ID")

	second, root, err := r.Assign(addr(2))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Addr, root.Addr)
	assert.Len(t, r.Available(), 6)

	require.NoError(t, r.Acknowledge(second.ID))
	require.NoError(t, r.Acknowledge(second.ID))
	assert.ErrorIs(t, r.Acknowledge(types.NodeID(99)), ErrUnknownID)

	t.Log("✅ 分配与根节点测试通过")
}

// TestRegistry_ReleasePromotesRoot 测试释放根节点后提升最早注册者
func TestRegistry_ReleasePromotesRoot(t *testing.T) {
	r, err := NewRegistry(7, types.MethodLinear, nil, 7)
	require.NoError(t, err)

	a, _, _ := r.Assign(addr(1))
	b, _, _ := r.Assign(addr(2))
	c, _, _ := r.Assign(addr(3))

	_, promoted, err := r.Release(b.ID)
	require.NoError(t, err)
	assert.Nil(t, promoted)

	removed, promoted, err := r.Release(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Addr, removed.Addr)
	require.NotNil(t, promoted)
	assert.Equal(t, c.ID, promoted.ID)

	root, ok := r.Root()
	require.True(t, ok)
	assert.Equal(t, c.ID, root.ID)

	_, _, err = r.Release(a.ID)
	assert.ErrorIs(t, err, ErrUnknownID)
	assert.Len(t, r.Available(), 7)

	t.Log("✅ 根节点提升测试通过")
}

// TestRegistry_Persistence 测试重新加载
func TestRegistry_Persistence(t *testing.T) {
	eng, err := badger.New(engine.InMemoryConfig())
	require.NoError(t, err)
	defer eng.Close()
	store := kv.New(eng, StorePrefix)

	r, err := NewRegistry(7, types.MethodLinear, store, 3)
	require.NoError(t, err)
	a, _, _ := r.Assign(addr(1))
	b, _, _ := r.Assign(addr(2))
	require.NoError(t, r.Acknowledge(a.ID))

	reloaded, err := NewRegistry(7, types.MethodLinear, store, 3)
	require.NoError(t, err)
	regs := reloaded.Registrations()
	require.Len(t, regs, 2)
	assert.Equal(t, a.ID, regs[0].ID)
	assert.True(t, regs[0].Acked)
	assert.Equal(t, b.ID, regs[1].ID)

	again, _, err := reloaded.Assign(addr(2))
	require.NoError(t, err)
	assert.Equal(t, b.ID, again.ID)

	c, _, err := reloaded.Assign(addr(3))
	require.NoError(t, err)
	assert.Greater(t, c.Seq, b.Seq, "序号在重新加载后继续递增")

	_, err = NewRegistry(5, types.MethodLinear, store, 3)
	assert.ErrorIs(t, err, ErrPoolMismatch)

	t.Log("✅ 持久化测试通过")
}

// TestRegistry_ResetOnMismatch 测试池参数变化时丢弃旧记录
func TestRegistry_ResetOnMismatch(t *testing.T) {
	eng, err := badger.New(engine.InMemoryConfig())
	require.NoError(t, err)
	defer eng.Close()
	store := kv.New(eng, StorePrefix)

	r, err := NewRegistry(7, types.MethodLinear, store, 3)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, _, err := r.Assign(addr(i))
		require.NoError(t, err)
	}

	fresh, err := NewRegistry(4, types.MethodPowerOfTwo, store, 3, WithResetOnMismatch())
	require.NoError(t, err)
	assert.Empty(t, fresh.Registrations())
	assert.Len(t, fresh.Available(), 5)

	keys, err := store.Keys(prefixIDs)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// 新的池参数已写入，不带选项也能加载
	a, _, err := fresh.Assign(addr(9))
	require.NoError(t, err)
	reloaded, err := NewRegistry(4, types.MethodPowerOfTwo, store, 3)
	require.NoError(t, err)
	require.Len(t, reloaded.Registrations(), 1)
	assert.Equal(t, a.ID, reloaded.Registrations()[0].ID)

	_, err = NewRegistry(7, types.MethodLinear, store, 3)
	assert.ErrorIs(t, err, ErrPoolMismatch)

	t.Log("✅ 池参数重置测试通过")
}

// ============================================================================
//                              Client + Point
// ============================================================================

type stack struct {
	svc    *messaging.Service
	worker *dispatch.Worker
	reg    *dispatch.Registry
}

func newStack(t *testing.T, network *memory.Network, at types.Address) *stack {
	t.Helper()
	ep, err := network.Listen(at)
	require.NoError(t, err)
	svc := messaging.NewService(config.DefaultMessagingConfig(), ep, nil, nil)
	require.NoError(t, svc.Start())
	reg := dispatch.NewRegistry()
	w := dispatch.NewWorker(reg, svc.Inbound())
	w.Start()
	t.Cleanup(func() {
		w.Stop()
		_ = svc.Close()
	})
	return &stack{svc: svc, worker: w, reg: reg}
}

func fastJoinConfig() config.JoinConfig {
	cfg := config.DefaultJoinConfig()
	cfg.BootstrapInitialWait = config.Duration(20 * time.Millisecond)
	cfg.BootstrapMaxWait = config.Duration(100 * time.Millisecond)
	return cfg
}

// TestClientPoint_Bootstrap 测试 hello / ACK / Removed 交互
func TestClientPoint_Bootstrap(t *testing.T) {
	network := memory.NewNetwork()
	rv := newStack(t, network, addr(9000))
	registry, err := NewRegistry(7, types.MethodLinear, nil, 11)
	require.NoError(t, err)
	point := NewPoint(registry, rv.svc)
	require.NoError(t, point.Register(rv.reg))
	assert.Equal(t, addr(9000), point.Addr())

	ctx := context.Background()

	p1 := newStack(t, network, addr(9001))
	c1 := NewClient(p1.svc, point.Addr(), fastJoinConfig())
	a1, err := c1.Hello(ctx)
	require.NoError(t, err)
	assert.True(t, a1.IsRoot)
	assert.Equal(t, uint64(7), a1.K)
	assert.Equal(t, types.MethodLinear, a1.Method)
	require.NoError(t, c1.Ack(ctx, a1.ID))

	p2 := newStack(t, network, addr(9002))
	c2 := NewClient(p2.svc, point.Addr(), fastJoinConfig())
	a2, err := c2.Hello(ctx)
	require.NoError(t, err)
	assert.False(t, a2.IsRoot)
	assert.Equal(t, addr(9001), a2.RootAddr)
	assert.NotEqual(t, a1.ID, a2.ID)

	// 重复 hello 返回同一 ID
	again, err := c2.Hello(ctx)
	require.NoError(t, err)
	assert.Equal(t, a2.ID, again.ID)
	require.NoError(t, c2.Ack(ctx, a2.ID))

	// 释放根节点，第二个节点成为根
	require.NoError(t, c2.Removed(ctx, a1.ID))
	require.NoError(t, c2.Removed(ctx, a1.ID), "重复释放同样确认")
	root, ok := registry.Root()
	require.True(t, ok)
	assert.Equal(t, a2.ID, root.ID)

	t.Log("✅ 引导交互测试通过")
}

// TestClient_PoolFull 测试池耗尽
func TestClient_PoolFull(t *testing.T) {
	network := memory.NewNetwork()
	rv := newStack(t, network, addr(9000))
	registry, err := NewRegistry(0, types.MethodLinear, nil, 1)
	require.NoError(t, err)
	require.NoError(t, NewPoint(registry, rv.svc).Register(rv.reg))

	p1 := newStack(t, network, addr(9001))
	_, err = NewClient(p1.svc, addr(9000), fastJoinConfig()).Hello(context.Background())
	require.NoError(t, err)

	p2 := newStack(t, network, addr(9002))
	_, err = NewClient(p2.svc, addr(9000), fastJoinConfig()).Hello(context.Background())
	assert.ErrorIs(t, err, types.ErrPoolExhausted)

	t.Log("✅ 池耗尽测试通过")
}

// TestClient_Unreachable 测试超过等待上限后失败
func TestClient_Unreachable(t *testing.T) {
	network := memory.NewNetwork()
	p := newStack(t, network, addr(9001))
	c := NewClient(p.svc, addr(9999), fastJoinConfig())

	start := time.Now()
	_, err := c.Hello(context.Background())
	assert.ErrorIs(t, err, types.ErrTransportTimeout)
	// 20 + 40 + 80 ms
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)

	t.Log("✅ 不可达测试通过")
}

// TestClient_BadReply 测试回复格式错误
func TestClient_BadReply(t *testing.T) {
	network := memory.NewNetwork()
	rv := newStack(t, network, addr(9000))
	require.NoError(t, rv.reg.Register(protocol.Hello, func(_ context.Context, env *protocol.Envelope) {
		_ = rv.svc.Reply(env, []string{"ID", "x"})
	}))

	p := newStack(t, network, addr(9001))
	_, err := NewClient(p.svc, addr(9000), fastJoinConfig()).Hello(context.Background())
	assert.ErrorIs(t, err, types.ErrProtocolViolation)

	t.Log("✅ 回复格式错误测试通过")
}
