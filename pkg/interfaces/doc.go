// Package interfaces 定义 iproxy 的公共接口
//
//   - device.go   - DeviceTransport：设备枚举、按 UDID 查找、打开通道
//   - metrics.go  - Reporter：会话结果与中继字节数上报
//
// 实现位于 internal/core：muxd 实现 DeviceTransport，metrics 实现 Reporter。
// 测试替身见 tests/mocks。
package interfaces
