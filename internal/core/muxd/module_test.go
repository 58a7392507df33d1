package muxd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_Provides 测试模块提供的类型
func TestModule_Provides(t *testing.T) {
	f := newFakeMuxd(t, usbEntry(1, "usb-device"))

	cfg := config.NewConfig()
	cfg.Muxd.SocketAddress = f.ln.Addr().String()
	cfg.Log.Debug = 2

	var (
		client    *Client
		transport interfaces.DeviceTransport
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&client, &transport),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, client)
	require.NotNil(t, transport)
	assert.Equal(t, f.addr(), client.Addr())
	assert.True(t, client.trace)

	devices, err := transport.Devices(testContext(t))
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestModule_InvalidSocketAddress(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Muxd.SocketAddress = "not-an-address"

	app := fx.New(
		fx.Supply(cfg),
		Module(),
		fx.Invoke(func(interfaces.DeviceTransport) {}),
		fx.NopLogger,
	)
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), ErrInvalidSocketAddress.Error())
}
