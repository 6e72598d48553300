package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ringdht/pkg/protocol"
)

func noop(context.Context, *protocol.Envelope) {}

// TestRegistry_Register 测试注册与注销
func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Tags())

	require.NoError(t, r.Register(protocol.Ping, noop))
	require.NoError(t, r.Register(protocol.Set, noop))
	assert.ErrorIs(t, r.Register(protocol.Ping, noop), ErrDuplicateHandler)
	assert.ErrorIs(t, r.Register("", noop), ErrEmptyTag)
	assert.ErrorIs(t, r.Register(protocol.Request, nil), ErrNilHandler)
	assert.Equal(t, []protocol.Tag{protocol.Ping, protocol.Set}, r.Tags())

	_, ok := r.Handler(protocol.Ping)
	assert.True(t, ok)

	r.Unregister(protocol.Ping)
	r.Unregister(protocol.Ping)
	_, ok = r.Handler(protocol.Ping)
	assert.False(t, ok)

	t.Log("✅ Registry 注册测试通过")
}

// TestWorker_Dispatch 测试按类型分发与串行处理
func TestWorker_Dispatch(t *testing.T) {
	r := NewRegistry()
	inbound := make(chan *protocol.Envelope, 8)

	var pings, active, overlap atomic.Int32
	done := make(chan struct{}, 8)
	require.NoError(t, r.Register(protocol.Ping, func(_ context.Context, env *protocol.Envelope) {
		if active.Add(1) > 1 {
			overlap.Add(1)
		}
		time.Sleep(time.Millisecond)
		pings.Add(1)
		active.Add(-1)
		done <- struct{}{}
	}))

	w := NewWorker(r, inbound)
	w.Start()
	defer w.Stop()

	for i := 0; i < 4; i++ {
		inbound <- &protocol.Envelope{NeedsReply: true, MsgID: uint64(i), Payload: protocol.PingMsg()}
	}
	inbound <- &protocol.Envelope{NeedsReply: true, MsgID: 9, Payload: []string{"Unknown"}}

	for i := 0; i < 4; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("处理函数未被调用")
		}
	}
	assert.Eventually(t, func() bool { return w.Unhandled() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(4), pings.Load())
	assert.Equal(t, int32(0), overlap.Load(), "处理函数必须串行执行")

	t.Log("✅ Worker 分发测试通过")
}

// TestWorker_Stop 测试停止
func TestWorker_Stop(t *testing.T) {
	inbound := make(chan *protocol.Envelope)
	w := NewWorker(NewRegistry(), inbound)
	w.Start()
	w.Start()

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop 未返回")
	}

	t.Log("✅ Worker 停止测试通过")
}
