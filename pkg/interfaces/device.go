// Package interfaces 定义 iproxy 公共接口
//
// 本文件定义 DeviceTransport 接口，抽象设备多路复用传输（usbmuxd）。
package interfaces

import (
	"context"
	"net"

	"github.com/dep2p/go-iproxy/pkg/types"
)

// DeviceTransport 定义设备传输接口
//
// DeviceTransport 是代理核心与设备多路复用服务之间的边界，
// 核心只通过它发现设备和打开通道，不直接接触设备。
type DeviceTransport interface {
	// Devices 枚举当前已知的设备
	//
	// 返回顺序即传输层的枚举顺序，调用方不得重新排序。
	Devices(ctx context.Context) ([]types.Device, error)

	// LookupDevice 按 UDID 和查找策略定位单个设备
	//
	// 未找到时返回 types.ErrNoDeviceFound。
	LookupDevice(ctx context.Context, udid string, policy types.LookupPolicy) (types.Device, error)

	// Connect 打开到设备指定端口的字节流通道
	//
	// 关闭返回的连接即关闭通道。
	Connect(ctx context.Context, dev types.Device, port uint16) (net.Conn, error)
}
