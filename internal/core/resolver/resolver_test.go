package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/types"
	"github.com/dep2p/go-iproxy/tests/mocks"
)

// TestResolve_FirstMatch 未指定 UDID 时返回第一个允许的设备
func TestResolve_FirstMatch(t *testing.T) {
	tr := mocks.NewMockDeviceTransport(
		mocks.NetworkDevice(1, "net-a"),
		mocks.USBDevice(2, "usb-b"),
		mocks.USBDevice(3, "usb-c"),
	)

	tests := []struct {
		name   string
		policy types.LookupPolicy
		want   uint32
	}{
		{"默认策略", 0, 2},
		{"仅 USB", types.LookupUSB, 2},
		{"仅网络", types.LookupNetwork, 1},
		{"两者都允许时保持枚举顺序", types.LookupUSB | types.LookupNetwork, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := New(tr, "", tt.policy).Resolve(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, dev.Handle)
		})
	}
	assert.Empty(t, tr.LookupDeviceCalls)

	t.Log("✅ 首个匹配测试通过")
}

func TestResolve_SkipsInvalidRecords(t *testing.T) {
	tr := mocks.NewMockDeviceTransport(
		types.Device{Handle: 0, UDID: "zero", Target: types.USBTarget{}},
		types.Device{Handle: 4, UDID: "no-target"},
		mocks.USBDevice(5, "good"),
	)

	dev, err := New(tr, "", types.LookupUSB).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "good", dev.UDID)
}

func TestResolve_NoDevices(t *testing.T) {
	tr := mocks.NewMockDeviceTransport()

	_, err := New(tr, "", types.LookupUSB).Resolve(context.Background())
	assert.ErrorIs(t, err, types.ErrNoDeviceFound)

	tr = mocks.NewMockDeviceTransport(mocks.NetworkDevice(1, "net-only"))
	_, err = New(tr, "", types.LookupUSB).Resolve(context.Background())
	assert.ErrorIs(t, err, types.ErrNoDeviceFound)
}

func TestResolve_EnumerationFailed(t *testing.T) {
	cause := errors.New("usbmuxd unavailable")
	tr := &mocks.MockDeviceTransport{
		DevicesFunc: func(context.Context) ([]types.Device, error) {
			return nil, cause
		},
	}

	_, err := New(tr, "", types.LookupUSB).Resolve(context.Background())
	assert.ErrorIs(t, err, types.ErrDeviceEnumerationFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, types.ErrNoDeviceFound)
}

// TestResolve_ByUDID 指定 UDID 时只做一次直接查找
func TestResolve_ByUDID(t *testing.T) {
	tr := mocks.NewMockDeviceTransport(
		mocks.USBDevice(1, "first"),
		mocks.USBDevice(2, "wanted"),
	)

	r := New(tr, "wanted", types.LookupUSB|types.LookupNetwork)
	dev, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(2), dev.Handle)

	require.Len(t, tr.LookupDeviceCalls, 1)
	assert.Equal(t, "wanted", tr.LookupDeviceCalls[0].UDID)
	assert.Equal(t, types.LookupUSB|types.LookupNetwork, tr.LookupDeviceCalls[0].Policy)
	assert.Zero(t, tr.DevicesCalls)
	assert.Equal(t, 1, tr.ResolutionCount())
}

func TestResolve_ByUDID_Failures(t *testing.T) {
	t.Run("未找到", func(t *testing.T) {
		tr := mocks.NewMockDeviceTransport(mocks.USBDevice(1, "other"))
		_, err := New(tr, "missing", 0).Resolve(context.Background())
		assert.ErrorIs(t, err, types.ErrNoDeviceFound)
		// 不回退到枚举
		assert.Zero(t, tr.DevicesCalls)
	})

	t.Run("查找出错", func(t *testing.T) {
		tr := &mocks.MockDeviceTransport{
			LookupDeviceFunc: func(context.Context, string, types.LookupPolicy) (types.Device, error) {
				return types.Device{}, errors.New("socket closed")
			},
		}
		_, err := New(tr, "x", 0).Resolve(context.Background())
		assert.ErrorIs(t, err, types.ErrDeviceEnumerationFailed)
	})

	t.Run("返回无效记录", func(t *testing.T) {
		tr := &mocks.MockDeviceTransport{
			LookupDeviceFunc: func(context.Context, string, types.LookupPolicy) (types.Device, error) {
				return types.Device{}, nil
			},
		}
		_, err := New(tr, "x", 0).Resolve(context.Background())
		assert.ErrorIs(t, err, types.ErrNoDeviceFound)
	})
}

// TestResolve_DoesNotMutate 解析不修改枚举快照
func TestResolve_DoesNotMutate(t *testing.T) {
	devices := []types.Device{mocks.NetworkDevice(1, "a"), mocks.USBDevice(2, "b")}
	snapshot := append([]types.Device(nil), devices...)
	tr := &mocks.MockDeviceTransport{
		DevicesFunc: func(context.Context) ([]types.Device, error) { return devices, nil },
	}

	_, err := New(tr, "", types.LookupUSB).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snapshot, devices)
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Device.UDID = "wanted"
	cfg.Device.Network = true

	var r *Resolver
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() interfaces.DeviceTransport { return mocks.NewMockDeviceTransport() }),
		Module(),
		fx.Populate(&r),
	)
	defer app.RequireStart().RequireStop()

	require.NotNil(t, r)
	assert.Equal(t, "wanted", r.UDID())
	assert.Equal(t, types.LookupNetwork, r.Policy())
}
