package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-ringdht/config"
	"github.com/dep2p/go-ringdht/internal/core/eventbus"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// TestFastConfig 测试固件配置有效
func TestFastConfig(t *testing.T) {
	cfg := FastConfig()
	assert.NoError(t, config.ValidateAll(cfg))
	assert.False(t, cfg.Liveness.Enabled)

	t.Log("✅ 固件配置测试通过")
}

// TestAssertRing 测试三节点环检查
func TestAssertRing(t *testing.T) {
	a := types.NodeRef{ID: 1, Addr: Addr(9001)}
	b := types.NodeRef{ID: 4, Addr: Addr(9002)}
	c := types.NodeRef{ID: 6, Addr: Addr(9003)}

	snaps := []types.RingPointers{
		{Self: b, Prev: a, PrevPrevAddr: c.Addr, Next: c, NextNextAddr: a.Addr},
		{Self: a, Prev: c, PrevPrevAddr: b.Addr, Next: b, NextNextAddr: c.Addr},
		{Self: c, Prev: b, PrevPrevAddr: a.Addr, Next: a, NextNextAddr: b.Addr},
	}
	assert.True(t, AssertRing(t, snaps))

	t.Log("✅ 环检查测试通过")
}

// TestWaitForCondition 测试条件等待
func TestWaitForCondition(t *testing.T) {
	start := time.Now()
	n := 0
	assert.True(t, WaitForCondition(t, time.Second, 5*time.Millisecond, func() bool {
		n++
		return n >= 3
	}))
	assert.False(t, WaitForCondition(t, 30*time.Millisecond, 5*time.Millisecond, func() bool { return false }))
	assert.Less(t, time.Since(start), time.Second)

	t.Log("✅ 条件等待测试通过")
}

// TestWaitForEvent 测试事件等待
func TestWaitForEvent(t *testing.T) {
	bus := eventbus.NewBus()
	sub, err := bus.Subscribe(new(types.EvtSuccessorFailed))
	assert.NoError(t, err)
	defer sub.Close()

	failed, err := bus.Emitter(new(types.EvtSuccessorFailed))
	assert.NoError(t, err)
	assert.NoError(t, failed.Emit(types.EvtSuccessorFailed{Dead: types.NodeRef{ID: 3}}))

	evt := WaitForEvent[types.EvtSuccessorFailed](t, sub, time.Second)
	assert.Equal(t, types.NodeID(3), evt.Dead.ID)

	t.Log("✅ 事件等待测试通过")
}
