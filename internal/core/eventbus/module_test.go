package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// TestModule_Load 测试 Fx 模块加载
func TestModule_Load(t *testing.T) {
	var bus pkgif.EventBus

	app := fxtest.New(t,
		fx.NopLogger,
		Module(),
		fx.Populate(&bus),
	)
	app.RequireStart()
	assert.NotNil(t, bus)
	app.RequireStop()

	t.Log("✅ Fx 模块加载测试通过")
}

// TestDroppedEvents 测试停止时汇总的丢弃计数
func TestDroppedEvents(t *testing.T) {
	bus := NewBus()
	assert.Empty(t, droppedEvents(bus))

	sub, err := bus.Subscribe(new(types.EvtPointersChanged), pkgif.BufSize(1))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(types.EvtPointersChanged))
	require.NoError(t, err)
	defer em.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, em.Emit(types.EvtPointersChanged{}))
	}
	assert.Equal(t, map[string]int64{"pointers_changed": 2}, droppedEvents(bus))

	t.Log("✅ 丢弃汇总测试通过")
}
