package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-ringdht/internal/core/transport/memory"
	pkgif "github.com/dep2p/go-ringdht/pkg/interfaces"
	"github.com/dep2p/go-ringdht/pkg/types"
)

// TestModule_UDP 测试默认 UDP 传输
func TestModule_UDP(t *testing.T) {
	var tr pkgif.Transport
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(fx.Annotated{Name: "listen_addr", Target: "127.0.0.1:0"}),
		Module(),
		fx.Populate(&tr),
	)
	app.RequireStart()
	assert.NotZero(t, tr.LocalAddr().Port)
	app.RequireStop()

	t.Log("✅ UDP 传输模块测试通过")
}

// TestModule_Override 测试注入外部传输
func TestModule_Override(t *testing.T) {
	ep, err := memory.NewNetwork().Listen(types.NewAddress("10.0.0.1", 7000))
	assert.NoError(t, err)

	var tr pkgif.Transport
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(fx.Annotated{Name: "listen_addr", Target: "127.0.0.1:0"}),
		fx.Provide(fx.Annotated{Name: "transport_override", Target: func() pkgif.Transport { return ep }}),
		Module(),
		fx.Populate(&tr),
	)
	app.RequireStart()
	assert.Equal(t, ep.LocalAddr(), tr.LocalAddr())
	app.RequireStop()

	t.Log("✅ 外部传输注入测试通过")
}
