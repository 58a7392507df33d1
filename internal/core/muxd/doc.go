// Package muxd 实现 usbmuxd 客户端适配器
//
// 只实现代理需要的最小子集：
//   - ListDevices: 枚举设备，网络地址在此一次性解码为 types.Target
//   - Connect: 打开到 USB 设备端口的字节流通道
//
// 报文格式（小端序）：
//
//	length(4) | version(4)=1 | message(4)=8 | tag(4) | XML plist
//
// 网络设备不经过 usbmuxd 连接，而是直接拨号到解码出的地址。
package muxd
