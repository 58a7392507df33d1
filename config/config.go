// Package config 提供 iproxy 的统一配置
//
// 主 Config 结构体嵌入所有子配置：
//   - Listen: 本地监听地址与端口
//   - Device: 目标设备（UDID、端口、查找策略）
//   - Relay: 中继参数（有界等待间隔、缓冲区）
//   - Muxd: usbmuxd 连接参数
//   - Log: 日志配置
//   - Metrics: 指标服务
//
// Config 在启动时构建一次，之后按值传入各组件，运行期间不再修改。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Listen.Port = 2222
//	cfg.Device.Port = 22
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"time"

	"github.com/dep2p/go-iproxy/pkg/types"
)

// 默认值
const (
	// DefaultListenAddress 默认监听地址
	DefaultListenAddress = "127.0.0.1"

	// DefaultReadTimeout 默认有界等待间隔
	DefaultReadTimeout = 5 * time.Second

	// DefaultBufferSize 默认中继缓冲区大小
	DefaultBufferSize = 32 * 1024

	// DefaultMuxdDialTimeout 默认 usbmuxd 拨号超时
	DefaultMuxdDialTimeout = 10 * time.Second
)

// Config 是 iproxy 的完整配置结构
type Config struct {
	// Listen 本地监听配置
	Listen ListenConfig `json:"listen" mapstructure:"listen"`

	// Device 目标设备配置
	Device DeviceConfig `json:"device" mapstructure:"device"`

	// Relay 中继配置
	Relay RelayConfig `json:"relay" mapstructure:"relay"`

	// Muxd usbmuxd 配置
	Muxd MuxdConfig `json:"muxd" mapstructure:"muxd"`

	// Log 日志配置
	Log LogConfig `json:"log" mapstructure:"log"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// ListenConfig 本地监听配置
type ListenConfig struct {
	// Address 监听地址（默认 127.0.0.1）
	Address string `json:"address" mapstructure:"address"`

	// Port 本地端口
	Port uint16 `json:"port" mapstructure:"port"`
}

// DeviceConfig 目标设备配置
type DeviceConfig struct {
	// UDID 指定设备（空表示选择第一个匹配的设备）
	UDID string `json:"udid" mapstructure:"udid"`

	// Port 设备端口
	Port uint16 `json:"port" mapstructure:"port"`

	// Local 允许 USB 设备
	Local bool `json:"local" mapstructure:"local"`

	// Network 允许网络设备
	Network bool `json:"network" mapstructure:"network"`
}

// Policy 返回查找策略
//
// Local 与 Network 都未设置时仅允许 USB 设备。
func (c DeviceConfig) Policy() types.LookupPolicy {
	return types.PolicyFromFlags(c.Local, c.Network)
}

// RelayConfig 中继配置
type RelayConfig struct {
	// ReadTimeout 有界等待读取的间隔
	//
	// 超时不是错误，只是让方向重新检查自己的停止标志。
	ReadTimeout Duration `json:"read_timeout" mapstructure:"read_timeout"`

	// BufferSize 每个方向的读缓冲区大小
	BufferSize int `json:"buffer_size" mapstructure:"buffer_size"`
}

// MuxdConfig usbmuxd 配置
type MuxdConfig struct {
	// SocketAddress usbmuxd 套接字地址
	//
	// 为空时使用 USBMUXD_SOCKET_ADDRESS 环境变量或平台默认值。
	SocketAddress string `json:"socket_address" mapstructure:"socket_address"`

	// DialTimeout 拨号超时
	DialTimeout Duration `json:"dial_timeout" mapstructure:"dial_timeout"`

	// ProgName 上报给 usbmuxd 的程序名
	ProgName string `json:"prog_name" mapstructure:"prog_name"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别（debug/info/warn/error）
	Level string `json:"level" mapstructure:"level"`

	// Format 输出格式（text/json）
	Format string `json:"format" mapstructure:"format"`

	// File 日志文件（空表示 stderr）
	File string `json:"file" mapstructure:"file"`

	// Debug 调试级别（-d 可重复）
	//
	// 1: 输出 debug 日志；2: 额外输出 fx 容器事件和 usbmuxd 报文。
	Debug int `json:"debug" mapstructure:"debug"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Addr Prometheus 指标服务地址（空表示不启用）
	Addr string `json:"addr" mapstructure:"addr"`
}

// NewConfig 创建默认配置
func NewConfig() Config {
	return Config{
		Listen: ListenConfig{
			Address: DefaultListenAddress,
		},
		Relay: RelayConfig{
			ReadTimeout: Duration(DefaultReadTimeout),
			BufferSize:  DefaultBufferSize,
		},
		Muxd: MuxdConfig{
			DialTimeout: Duration(DefaultMuxdDialTimeout),
			ProgName:    "iproxy",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
