package ring

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ringdht/internal/core/eventbus"
	"github.com/dep2p/go-ringdht/pkg/protocol"
	"github.com/dep2p/go-ringdht/pkg/types"
)

func ref(id uint64, port int) types.NodeRef {
	return types.NodeRef{ID: types.NodeID(id), Addr: types.NewAddress("127.0.0.1", port)}
}

// ring3 返回三节点环 1 → 3 → 5 中节点 3 的指针
func ring3() types.RingPointers {
	return types.RingPointers{
		Self:         ref(3, 9003),
		Prev:         ref(1, 9001),
		PrevPrevAddr: types.NewAddress("127.0.0.1", 9005),
		Next:         ref(5, 9005),
		NextNextAddr: types.NewAddress("127.0.0.1", 9001),
	}
}

// TestDirectory_InitReset 测试初始化与退化
func TestDirectory_InitReset(t *testing.T) {
	d := NewDirectory(nil)
	self := ref(4, 9004)
	d.Init(self)
	assert.Equal(t, types.Alone(self), d.Snapshot())
	assert.True(t, d.Snapshot().IsAlone())

	d.Update(func(p *types.RingPointers) {
		p.Next = ref(6, 9006)
	})
	assert.False(t, d.Snapshot().IsAlone())

	assert.Equal(t, types.Alone(self), d.Reset())
	assert.Equal(t, self, d.Self())

	t.Log("✅ 初始化与退化测试通过")
}

// TestDirectory_GetFields 测试固定顺序与子集
func TestDirectory_GetFields(t *testing.T) {
	d := NewDirectory(nil)
	d.Update(func(p *types.RingPointers) { *p = ring3() })

	got := d.GetFields([]string{"nextAddress", "id", "bogus", "previousID", "id"})
	assert.Equal(t, []string{"3", "1", "127.0.0.1:9005"}, got)

	all := make([]string, 0, len(types.FieldOrder))
	for _, f := range types.FieldOrder {
		all = append(all, string(f))
	}
	assert.Equal(t, []string{
		"127.0.0.1:9003", "3", "1", "127.0.0.1:9001", "127.0.0.1:9005",
		"5", "127.0.0.1:9005", "127.0.0.1:9001",
	}, d.GetFields(all))

	assert.Empty(t, d.GetFields(nil))

	t.Log("✅ GetFields 测试通过")
}

// TestDirectory_SetFields 测试更新的全有或全无
func TestDirectory_SetFields(t *testing.T) {
	d := NewDirectory(nil)
	d.Update(func(p *types.RingPointers) { *p = ring3() })

	require.NoError(t, d.SetFields([]string{
		"nextID", "4", "nextAddress", "127.0.0.1:9004", "nextNextAddress", "127.0.0.1:9005",
	}))
	snap := d.Snapshot()
	assert.Equal(t, ref(4, 9004), snap.Next)
	assert.Equal(t, types.NewAddress("127.0.0.1", 9005), snap.NextNextAddr)
	assert.Equal(t, ref(1, 9001), snap.Prev, "未涉及的字段不变")

	bad := [][]string{
		{"nextID"},
		{"nextID", "7", "previousID", "x"},
		{"previousID", "2", "id", "9"},
		{"previousID", "2", "address", "127.0.0.1:1"},
		{"previousID", "2", "unknown", "1"},
		{"previousID", "2", "previousAddress", "noport"},
		{"previousID", "-1"},
	}
	for _, pairs := range bad {
		err := d.SetFields(pairs)
		assert.ErrorIs(t, err, types.ErrMalformedUpdate, "pairs=%v", pairs)
		assert.Equal(t, snap, d.Snapshot(), "非法更新不得部分生效: %v", pairs)
	}

	assert.NoError(t, d.SetFields(nil))
	assert.Equal(t, snap, d.Snapshot())

	t.Log("✅ SetFields 测试通过")
}

// TestDirectory_ConcurrentUpdate 测试并发读-改-写
func TestDirectory_ConcurrentUpdate(t *testing.T) {
	d := NewDirectory(nil)
	d.Init(ref(0, 9000))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Update(func(p *types.RingPointers) {
				p.Next.ID++
				p.Prev.ID++
			})
		}()
	}
	wg.Wait()

	snap := d.Snapshot()
	assert.Equal(t, types.NodeID(50), snap.Next.ID)
	assert.Equal(t, types.NodeID(50), snap.Prev.ID)

	t.Log("✅ 并发更新测试通过")
}

// TestDirectory_Events 测试指针变化事件
func TestDirectory_Events(t *testing.T) {
	bus := eventbus.NewBus()
	d := NewDirectory(bus)
	defer d.Close()

	sub, err := bus.Subscribe(new(types.EvtPointersChanged))
	require.NoError(t, err)
	defer sub.Close()

	d.Init(ref(2, 9002))
	select {
	case e := <-sub.Out():
		evt := e.(types.EvtPointersChanged)
		assert.Equal(t, types.RingPointers{}, evt.Old)
		assert.Equal(t, types.Alone(ref(2, 9002)), evt.New)
	case <-time.After(time.Second):
		t.Fatal("未收到指针变化事件")
	}

	// 无变化时不发布
	d.Reset()
	select {
	case e := <-sub.Out():
		t.Fatalf("不应发布事件: %v", e)
	case <-time.After(30 * time.Millisecond):
	}

	t.Log("✅ 指针事件测试通过")
}

// TestOwns 测试归属判定
func TestOwns(t *testing.T) {
	p := ring3()
	assert.True(t, Owns(p, 2))
	assert.True(t, Owns(p, 3))
	assert.False(t, Owns(p, 1))
	assert.False(t, Owns(p, 4))

	// 最小节点 1 的区间跨越起点：(5, 1]
	wrap := types.RingPointers{Self: ref(1, 9001), Prev: ref(5, 9005), Next: ref(3, 9003)}
	assert.True(t, Owns(wrap, 0))
	assert.True(t, Owns(wrap, 1))
	assert.True(t, Owns(wrap, 6))
	assert.False(t, Owns(wrap, 2))
	assert.False(t, Owns(wrap, 5))

	assert.True(t, Owns(types.Alone(ref(4, 9004)), 100))

	dup := types.RingPointers{Self: ref(4, 9004), Prev: ref(4, 9008), Next: ref(4, 9008)}
	assert.True(t, Owns(dup, 0))

	t.Log("✅ 归属判定测试通过")
}

// TestOwns_Totality 测试任意目标恰有一个节点拥有
func TestOwns_Totality(t *testing.T) {
	rings := [][]uint64{
		{0, 1, 2, 3, 4, 5, 6, 7},
		{2, 5},
		{7},
		{1, 4, 16, 64},
		{0, 3, 6},
	}
	for _, ids := range rings {
		n := len(ids)
		nodes := make([]types.RingPointers, n)
		for i, id := range ids {
			prev := ids[(i-1+n)%n]
			next := ids[(i+1)%n]
			nodes[i] = types.RingPointers{
				Self: ref(id, 9000+int(id)),
				Prev: ref(prev, 9000+int(prev)),
				Next: ref(next, 9000+int(next)),
			}
		}
		for target := types.NodeID(0); target <= 70; target++ {
			owners := 0
			for _, p := range nodes {
				if Owns(p, target) {
					owners++
				}
			}
			assert.Equal(t, 1, owners, "ring=%v target=%d", ids, target)
		}
	}

	t.Log("✅ 归属唯一性测试通过")
}

// ============================================================================
//                              处理函数
// ============================================================================

// fakeMessenger 记录 Reply 调用
type fakeMessenger struct {
	mu      sync.Mutex
	replies [][]string
}

func (f *fakeMessenger) SendRequest(context.Context, []string, types.Address, time.Duration) ([]string, error) {
	return nil, types.ErrTransportTimeout
}

func (f *fakeMessenger) Reply(_ *protocol.Envelope, payload []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, payload)
	return nil
}

func (f *fakeMessenger) Notify(context.Context, []string, types.Address) error { return nil }

func (f *fakeMessenger) LocalAddr() types.Address { return types.NewAddress("127.0.0.1", 9003) }

func (f *fakeMessenger) last() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return nil
	}
	return f.replies[len(f.replies)-1]
}

func (f *fakeMessenger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

// TestHandlers 测试 Request / Set 处理
func TestHandlers(t *testing.T) {
	d := NewDirectory(nil)
	d.Update(func(p *types.RingPointers) { *p = ring3() })
	m := &fakeMessenger{}
	h := NewHandlers(d, m, nil, true)
	ctx := context.Background()

	h.handleRequest(ctx, &protocol.Envelope{Payload: protocol.RequestMsg(types.FieldID, types.FieldNextAddress)})
	assert.Equal(t, []string{"Reply", "3", "127.0.0.1:9005"}, m.last())

	h.handleSet(ctx, &protocol.Envelope{Payload: protocol.SetMsg([]string{"previousID", "2"})})
	assert.Equal(t, []string{"Setted"}, m.last())
	assert.Equal(t, types.NodeID(2), d.Snapshot().Prev.ID)

	h.handleSet(ctx, &protocol.Envelope{Payload: []string{"Set", "previousID"}})
	assert.Equal(t, []string{"Setted"}, m.last(), "默认仍确认非法 Set")
	assert.Equal(t, 3, m.count())

	t.Run("NoAckOnMalformed", func(t *testing.T) {
		m := &fakeMessenger{}
		h := NewHandlers(d, m, nil, false)
		h.handleSet(ctx, &protocol.Envelope{Payload: []string{"Set", "id", "9"}})
		assert.Equal(t, 0, m.count())
	})

	t.Log("✅ 处理函数测试通过")
}
