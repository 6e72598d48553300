package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ringdht/internal/core/eventbus"
	"github.com/dep2p/go-ringdht/internal/core/metrics"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// TestCoordinator_Advance 测试阶段推进
func TestCoordinator_Advance(t *testing.T) {
	c := NewCoordinator(nil)
	assert.Equal(t, PhaseCreated, c.Phase())
	assert.True(t, c.Reached(PhaseCreated))

	require.NoError(t, c.AdvanceTo(PhaseBootstrapping))
	require.NoError(t, c.AdvanceTo(PhaseBootstrapping))

	// 根节点跳过 Searching
	require.NoError(t, c.AdvanceTo(PhaseInserted))
	assert.True(t, c.Reached(PhaseSearching))
	assert.Equal(t, PhaseInserted, c.Phase())

	assert.Error(t, c.AdvanceTo(PhaseSearching))
	assert.Error(t, c.AdvanceTo(Phase(99)))

	t.Log("✅ 阶段推进测试通过")
}

// TestCoordinator_WaitFor 测试阶段 gate
func TestCoordinator_WaitFor(t *testing.T) {
	c := NewCoordinator(nil)

	done := make(chan error, 1)
	go func() {
		done <- c.WaitFor(context.Background(), PhaseInserted)
	}()

	require.NoError(t, c.AdvanceTo(PhaseSearching))
	select {
	case <-done:
		t.Fatal("未入环时不应返回")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, c.AdvanceTo(PhaseInserted))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitFor 未返回")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.WaitFor(ctx, PhaseStopped), context.DeadlineExceeded)

	t.Log("✅ 阶段 gate 测试通过")
}

// TestCoordinator_Fail 测试致命错误
func TestCoordinator_Fail(t *testing.T) {
	c := NewCoordinator(nil)
	first := errors.New("first")

	c.Fail(nil)
	c.Fail(first)
	c.Fail(errors.New("second"))

	select {
	case err := <-c.Fatal():
		assert.Equal(t, first, err)
	default:
		t.Fatal("未收到致命错误")
	}
	assert.Equal(t, first, c.Err())
	assert.ErrorIs(t, c.WaitFor(context.Background(), PhaseInserted), first)

	t.Log("✅ 致命错误测试通过")
}

// TestCoordinator_Stop 测试停止
func TestCoordinator_Stop(t *testing.T) {
	c := NewCoordinator(nil)
	c.Stop()
	c.Stop()
	assert.Equal(t, PhaseStopped, c.Phase())
	assert.Error(t, c.Context().Err())

	t.Log("✅ 停止测试通过")
}

// TestCoordinator_Events 测试阶段事件
func TestCoordinator_Events(t *testing.T) {
	bus := eventbus.NewBus()
	c := NewCoordinator(bus)

	var seen []Phase
	c.OnPhaseChange(func(_, p Phase) { seen = append(seen, p) })

	require.NoError(t, c.AdvanceTo(PhaseBootstrapping))
	require.NoError(t, c.AdvanceTo(PhaseInserted))

	// 有状态事件：晚到的订阅者收到最后一个阶段
	sub, err := bus.Subscribe(new(types.EvtPhaseChanged))
	require.NoError(t, err)
	defer sub.Close()

	evt := (<-sub.Out()).(types.EvtPhaseChanged)
	assert.Equal(t, "bootstrapping", evt.From)
	assert.Equal(t, "inserted", evt.To)
	assert.Equal(t, []Phase{PhaseBootstrapping, PhaseInserted}, seen)

	t.Log("✅ 阶段事件测试通过")
}

// TestProvideCoordinator_PhaseGauge 测试阶段变化同步到指标
func TestProvideCoordinator_PhaseGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewCollector("lc", reg)
	require.NoError(t, err)

	c := ProvideCoordinator(ModuleInput{Metrics: m}).Coordinator
	assertPhaseGauge(t, reg, PhaseCreated)

	require.NoError(t, c.AdvanceTo(PhaseBootstrapping))
	assertPhaseGauge(t, reg, PhaseBootstrapping)

	require.NoError(t, c.AdvanceTo(PhaseInserted))
	assertPhaseGauge(t, reg, PhaseInserted)

	c.Stop()
	assertPhaseGauge(t, reg, PhaseStopped)

	t.Log("✅ 阶段指标测试通过")
}

func assertPhaseGauge(t *testing.T, reg *prometheus.Registry, want Phase) {
	t.Helper()
	expected := fmt.Sprintf(`# HELP lc_join_phase Current join phase: 0 created, 1 bootstrapping, 2 searching, 3 inserted, 4 stopped.
# TYPE lc_join_phase gauge
lc_join_phase %d
`, int(want))
	assert.NoError(t, promtestutil.GatherAndCompare(reg, strings.NewReader(expected), "lc_join_phase"), "phase %s", want)
}
