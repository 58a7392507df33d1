package resolver

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// Params 解析器依赖参数
type Params struct {
	fx.In

	Config    config.Config
	Transport interfaces.DeviceTransport
}

// NewFromParams 从参数创建解析器
func NewFromParams(p Params) *Resolver {
	return New(p.Transport, p.Config.Device.UDID, p.Config.Device.Policy())
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("resolver",
		fx.Provide(NewFromParams),
	)
}
