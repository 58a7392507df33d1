package iproxy

import (
	"errors"

	"go.uber.org/fx"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// Option 代理配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// transport 替换 usbmuxd 设备传输
	transport interfaces.DeviceTransport

	// userFxOptions 额外的 Fx 选项
	userFxOptions []fx.Option
}

// WithTransport 使用指定的设备传输代替 usbmuxd
//
// 用于测试或接入其他设备多路复用服务。
func WithTransport(t interfaces.DeviceTransport) Option {
	return func(o *options) error {
		if t == nil {
			return errors.New("transport is nil")
		}
		o.transport = t
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.userFxOptions = append(o.userFxOptions, opts...)
		return nil
	}
}
