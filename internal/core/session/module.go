package session

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/internal/core/relay"
	"github.com/dep2p/go-iproxy/internal/core/resolver"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// Params 会话工厂依赖参数
type Params struct {
	fx.In

	Config    config.Config
	Resolver  *resolver.Resolver
	Transport interfaces.DeviceTransport
	Relay     relay.Config
	Reporter  interfaces.Reporter `optional:"true"`
}

// NewFactoryFromParams 从参数创建会话工厂
func NewFactoryFromParams(p Params) *Factory {
	return NewFactory(p.Resolver, p.Transport, p.Config.Device.Port, p.Relay, p.Reporter)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("session",
		fx.Provide(NewFactoryFromParams),
	)
}
