// Package types 定义 iproxy 的公共数据结构
//
// 这是最底层包，不依赖任何其他 iproxy 内部包。
//
// # 文件组织
//
//   - device.go  - Device、Target（USBTarget / NetworkTarget）、ConnType
//   - policy.go  - LookupPolicy 设备查找策略
//   - errors.go  - 公共错误定义（哨兵错误、BindError、TransferError）
//
// # 使用示例
//
//	dev := types.Device{
//	    Handle: 3,
//	    UDID:   "00008030-001A2B3C4D5E6F70",
//	    Target: types.USBTarget{Handle: 3},
//	}
//	if policy.Allows(dev.ConnType()) {
//	    // ...
//	}
package types
