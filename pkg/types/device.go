package types

import (
	"fmt"
	"net/netip"
)

// ============================================================================
//                              ConnType - 设备连接类型
// ============================================================================

// ConnType 设备连接类型
type ConnType int

const (
	// ConnTypeUnknown 未知连接类型
	ConnTypeUnknown ConnType = iota
	// ConnTypeUSB USB 连接的设备
	ConnTypeUSB
	// ConnTypeNetwork 网络连接的设备
	ConnTypeNetwork
)

// String 返回连接类型的字符串表示
func (c ConnType) String() string {
	switch c {
	case ConnTypeUSB:
		return "USB"
	case ConnTypeNetwork:
		return "Network"
	default:
		return "Unknown"
	}
}

// ParseConnType 解析 usbmuxd 上报的 ConnectionType 字段
func ParseConnType(s string) ConnType {
	switch s {
	case "USB":
		return ConnTypeUSB
	case "Network":
		return ConnTypeNetwork
	default:
		return ConnTypeUnknown
	}
}

// ============================================================================
//                              Target - 连接目标
// ============================================================================

// Target 设备连接目标
//
// 在枚举阶段一次性解码，之后不再解析原始地址字节：
//   - USBTarget: 通过 usbmuxd 打开通道
//   - NetworkTarget: 直接 TCP 拨号到设备地址
type Target interface {
	// ConnType 返回目标对应的连接类型
	ConnType() ConnType

	// String 返回目标的可读描述
	String() string

	isTarget()
}

// USBTarget USB 设备目标
type USBTarget struct {
	// Handle usbmuxd 分配的设备句柄
	Handle uint32
}

// ConnType 实现 Target 接口
func (USBTarget) ConnType() ConnType { return ConnTypeUSB }

func (t USBTarget) String() string { return fmt.Sprintf("usb:%d", t.Handle) }

func (USBTarget) isTarget() {}

// NetworkTarget 网络设备目标
type NetworkTarget struct {
	// Addr 设备的 IP 地址（端口字段无意义，连接时使用请求的设备端口）
	//
	// 地址族不受支持时为无效值。
	Addr netip.Addr
}

// ConnType 实现 Target 接口
func (NetworkTarget) ConnType() ConnType { return ConnTypeNetwork }

func (t NetworkTarget) String() string {
	if !t.Addr.IsValid() {
		return "network:invalid"
	}
	return "network:" + t.Addr.String()
}

func (NetworkTarget) isTarget() {}

// ============================================================================
//                              Device - 设备记录
// ============================================================================

// Device 设备记录
//
// 枚举结果是不可变快照，解析过程不会修改它。
type Device struct {
	// Handle 设备句柄（非零，在本次发现的生命周期内稳定）
	Handle uint32

	// ProductID 产品 ID
	ProductID int

	// UDID 设备唯一标识
	UDID string

	// Target 已解码的连接目标
	Target Target
}

// ConnType 返回设备连接类型
func (d Device) ConnType() ConnType {
	if d.Target == nil {
		return ConnTypeUnknown
	}
	return d.Target.ConnType()
}

// IsValid 检查设备记录是否有效
func (d Device) IsValid() bool {
	return d.Handle != 0 && d.Target != nil
}

// String 返回设备的可读描述
func (d Device) String() string {
	return fmt.Sprintf("%s(handle=%d, %s)", d.UDID, d.Handle, d.ConnType())
}
