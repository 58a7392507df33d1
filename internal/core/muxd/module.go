package muxd

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Config config.Config
}

// ModuleOutput 模块输出服务
type ModuleOutput struct {
	fx.Out

	Client    *Client
	Transport interfaces.DeviceTransport
}

// ProvideServices 提供 usbmuxd 客户端和设备传输
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := input.Config

	addr, err := ResolveSocketAddress(cfg.Muxd.SocketAddress)
	if err != nil {
		return ModuleOutput{}, err
	}

	client := NewClient(addr,
		WithDialTimeout(cfg.Muxd.DialTimeout.Duration()),
		WithProgName(cfg.Muxd.ProgName),
		WithTrace(cfg.Log.Debug > 1),
	)
	logger.Debug("usbmuxd 客户端已创建", "addr", addr.String())

	return ModuleOutput{
		Client:    client,
		Transport: NewTransport(client, cfg.Muxd.DialTimeout.Duration()),
	}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("muxd",
		fx.Provide(ProvideServices),
	)
}
