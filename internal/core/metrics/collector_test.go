package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ringdht/config"
)

// TestCollector_Counters 测试计数
func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector("test", reg)
	require.NoError(t, err)

	c.LogSent(10)
	c.LogSent(5)
	c.LogRecv(7)
	c.RequestSent("Ping")
	c.RequestTimedOut("Ping")
	c.StaleReply()
	c.Repair(ResultOK)
	c.Lookup(ResultLocal)
	c.JoinDuration(150 * time.Millisecond)
	c.SetPhase(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.datagrams.WithLabelValues(DirectionOut)))
	assert.Equal(t, 15.0, testutil.ToFloat64(c.bytes.WithLabelValues(DirectionOut)))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.bytes.WithLabelValues(DirectionIn)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestTimeouts.WithLabelValues("Ping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.staleReplies))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.repairs.WithLabelValues(ResultOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.phase))

	count, err := testutil.GatherAndCount(reg, "test_join_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	t.Log("✅ 计数测试通过")
}

// TestCollector_DuplicateRegister 测试重复注册
func TestCollector_DuplicateRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector("dup", reg)
	require.NoError(t, err)
	_, err = NewCollector("dup", reg)
	assert.Error(t, err)

	t.Log("✅ 重复注册测试通过")
}

// TestCollector_Nil 测试 nil 接收者
func TestCollector_Nil(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.LogSent(1)
		c.LogRecv(1)
		c.RequestSent("Ping")
		c.RequestTimedOut("Ping")
		c.StaleReply()
		c.InboundDropped()
		c.MalformedSet()
		c.Repair(ResultFailed)
		c.Lookup(ResultFailed)
		c.JoinDuration(time.Second)
		c.SetPhase(3)
	})

	t.Log("✅ nil 接收者测试通过")
}

// TestModule 测试 Fx 模块
func TestModule(t *testing.T) {
	var c *Collector
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(config.NewConfig()),
		Module(),
		fx.Populate(&c),
	)
	app.RequireStart()
	assert.NotNil(t, c)
	app.RequireStop()

	t.Log("✅ 指标模块测试通过")
}
