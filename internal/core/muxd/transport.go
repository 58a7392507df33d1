package muxd

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/types"
)

// 确保实现了接口
var _ interfaces.DeviceTransport = (*Transport)(nil)

// Transport 基于 usbmuxd 的 DeviceTransport 实现
//
// USB 设备通过 usbmuxd Connect 打开通道；网络设备在枚举时
// 已解码出 IP 地址，连接时直接 TCP 拨号（遵循 ALL_PROXY 等代理环境变量）。
type Transport struct {
	client *Client
	dialer proxy.Dialer
}

// NewTransport 创建 Transport
func NewTransport(client *Client, dialTimeout time.Duration) *Transport {
	return &Transport{
		client: client,
		dialer: proxy.FromEnvironmentUsing(&net.Dialer{Timeout: dialTimeout}),
	}
}

// Devices 枚举当前已知的设备
//
// 保持 usbmuxd 的返回顺序；句柄为零或连接类型未知的条目被跳过。
func (t *Transport) Devices(ctx context.Context) ([]types.Device, error) {
	entries, err := t.client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]types.Device, 0, len(entries))
	for _, e := range entries {
		dev, ok := toDevice(e)
		if !ok {
			logger.Debug("跳过无效设备条目", "deviceID", e.DeviceID, "connType", e.Properties.ConnectionType)
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// LookupDevice 按 UDID 和查找策略定位设备
//
// 同一 UDID 同时以 USB 和网络方式出现且策略都允许时优先 USB。
// udid 为空时匹配任意设备。
func (t *Transport) LookupDevice(ctx context.Context, udid string, policy types.LookupPolicy) (types.Device, error) {
	devices, err := t.Devices(ctx)
	if err != nil {
		return types.Device{}, err
	}

	var network *types.Device
	for i := range devices {
		dev := &devices[i]
		if udid != "" && dev.UDID != udid {
			continue
		}
		if !policy.Allows(dev.ConnType()) {
			continue
		}
		if dev.ConnType() == types.ConnTypeUSB {
			return *dev, nil
		}
		if network == nil {
			network = dev
		}
	}
	if network != nil {
		return *network, nil
	}
	return types.Device{}, fmt.Errorf("%w: udid=%q policy=%s", types.ErrNoDeviceFound, udid, policy)
}

// Connect 打开到设备端口的通道
func (t *Transport) Connect(ctx context.Context, dev types.Device, port uint16) (net.Conn, error) {
	switch target := dev.Target.(type) {
	case types.USBTarget:
		return t.client.Connect(ctx, target.Handle, port)

	case types.NetworkTarget:
		if !target.Addr.IsValid() {
			return nil, fmt.Errorf("%w: device %s", types.ErrUnsupportedAddress, dev.UDID)
		}
		addr := netip.AddrPortFrom(target.Addr, port).String()
		conn, err := t.dialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial network device %s: %w", addr, err)
		}
		return conn, nil

	default:
		return nil, fmt.Errorf("%w: device %s has no target", types.ErrUnsupportedAddress, dev.UDID)
	}
}

// dialContext 使用代理拨号器拨号
func (t *Transport) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := t.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}
	return t.dialer.Dial(network, addr)
}

// toDevice 把 usbmuxd 条目转换为设备记录
//
// 网络地址在这里一次性解码，之后不再解析原始字节。
func toDevice(e deviceEntry) (types.Device, bool) {
	handle := e.DeviceID
	if handle == 0 {
		handle = e.Properties.DeviceID
	}
	if handle == 0 {
		return types.Device{}, false
	}

	dev := types.Device{
		Handle:    handle,
		ProductID: e.Properties.ProductID,
		UDID:      e.Properties.SerialNumber,
	}

	switch types.ParseConnType(e.Properties.ConnectionType) {
	case types.ConnTypeUSB:
		dev.Target = types.USBTarget{Handle: handle}
	case types.ConnTypeNetwork:
		addr, err := decodeNetworkAddress(e.Properties.NetworkAddress)
		if err != nil {
			logger.Debug("无法解码设备网络地址", "udid", dev.UDID, "err", err)
		}
		dev.Target = types.NetworkTarget{Addr: addr}
	default:
		return types.Device{}, false
	}
	return dev, true
}

// FormatLocation 返回设备位置的可读描述（usbmuxinfo 使用）
func FormatLocation(dev types.Device) string {
	switch target := dev.Target.(type) {
	case types.USBTarget:
		return "usb handle " + strconv.FormatUint(uint64(target.Handle), 10)
	case types.NetworkTarget:
		if target.Addr.IsValid() {
			return target.Addr.String()
		}
		return "unsupported address"
	default:
		return "-"
	}
}
