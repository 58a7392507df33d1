// Package mocks 提供统一的测试 Mock 实现
//
//   - MockDeviceTransport: 模拟 interfaces.DeviceTransport，
//     默认从 DevicesValue 枚举和查找，Connect 需通过 ConnectFunc 提供通道
//   - MockReporter: 记录 interfaces.Reporter 的调用，可并发使用
//
// 所有方法都可以通过 XxxFunc 字段覆盖，调用记录由互斥锁保护。
//
// # 使用示例
//
//	tr := mocks.NewMockDeviceTransport(mocks.USBDevice(1, "usb-device"))
//	tr.ConnectFunc = func(ctx context.Context, dev types.Device, port uint16) (net.Conn, error) {
//	    client, device := net.Pipe()
//	    go serve(device)
//	    return client, nil
//	}
package mocks
