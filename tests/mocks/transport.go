package mocks

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/types"
)

var _ interfaces.DeviceTransport = (*MockDeviceTransport)(nil)

// ErrNoChannel 未设置 ConnectFunc 时 Connect 返回的错误
var ErrNoChannel = errors.New("mock: no channel configured")

// MockDeviceTransport 模拟 DeviceTransport 接口实现
//
// 会话并发调用，调用记录由互斥锁保护。
type MockDeviceTransport struct {
	// DevicesValue Devices 的默认返回值
	DevicesValue []types.Device

	// 可覆盖的方法
	DevicesFunc      func(ctx context.Context) ([]types.Device, error)
	LookupDeviceFunc func(ctx context.Context, udid string, policy types.LookupPolicy) (types.Device, error)
	ConnectFunc      func(ctx context.Context, dev types.Device, port uint16) (net.Conn, error)

	mu sync.Mutex

	// 调用记录
	DevicesCalls      int
	LookupDeviceCalls []LookupDeviceCall
	ConnectCalls      []ConnectCall
}

// LookupDeviceCall 记录 LookupDevice 调用
type LookupDeviceCall struct {
	UDID   string
	Policy types.LookupPolicy
}

// ConnectCall 记录 Connect 调用
type ConnectCall struct {
	Device types.Device
	Port   uint16
}

// NewMockDeviceTransport 创建返回指定设备的 MockDeviceTransport
func NewMockDeviceTransport(devices ...types.Device) *MockDeviceTransport {
	return &MockDeviceTransport{DevicesValue: devices}
}

// Devices 枚举设备
func (m *MockDeviceTransport) Devices(ctx context.Context) ([]types.Device, error) {
	m.mu.Lock()
	m.DevicesCalls++
	m.mu.Unlock()

	if m.DevicesFunc != nil {
		return m.DevicesFunc(ctx)
	}
	return append([]types.Device(nil), m.DevicesValue...), nil
}

// LookupDevice 按 UDID 查找设备
//
// 默认在 DevicesValue 中按顺序查找第一个匹配项。
func (m *MockDeviceTransport) LookupDevice(ctx context.Context, udid string, policy types.LookupPolicy) (types.Device, error) {
	m.mu.Lock()
	m.LookupDeviceCalls = append(m.LookupDeviceCalls, LookupDeviceCall{UDID: udid, Policy: policy})
	m.mu.Unlock()

	if m.LookupDeviceFunc != nil {
		return m.LookupDeviceFunc(ctx, udid, policy)
	}
	for _, dev := range m.DevicesValue {
		if dev.UDID == udid && policy.Allows(dev.ConnType()) {
			return dev, nil
		}
	}
	return types.Device{}, types.ErrNoDeviceFound
}

// Connect 打开设备通道
func (m *MockDeviceTransport) Connect(ctx context.Context, dev types.Device, port uint16) (net.Conn, error) {
	m.mu.Lock()
	m.ConnectCalls = append(m.ConnectCalls, ConnectCall{Device: dev, Port: port})
	m.mu.Unlock()

	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx, dev, port)
	}
	return nil, ErrNoChannel
}

// ResolutionCount 返回解析相关调用的总次数
func (m *MockDeviceTransport) ResolutionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DevicesCalls + len(m.LookupDeviceCalls)
}

// Connects 返回 Connect 调用记录的副本
func (m *MockDeviceTransport) Connects() []ConnectCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConnectCall(nil), m.ConnectCalls...)
}

// USBDevice 构造 USB 设备记录
func USBDevice(handle uint32, udid string) types.Device {
	return types.Device{
		Handle: handle,
		UDID:   udid,
		Target: types.USBTarget{Handle: handle},
	}
}

// NetworkDevice 构造网络设备记录（地址无效）
func NetworkDevice(handle uint32, udid string) types.Device {
	return types.Device{
		Handle: handle,
		UDID:   udid,
		Target: types.NetworkTarget{},
	}
}
