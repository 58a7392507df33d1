package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// Params 指标模块依赖参数
type Params struct {
	fx.In

	Config config.Config
}

// Output 指标模块输出
type Output struct {
	fx.Out

	Registry *prometheus.Registry
	Reporter interfaces.Reporter
	Server   *Server
}

// Provide 创建注册表、Reporter 和（可选的）指标服务
//
// 每个应用使用独立的注册表，不使用 prometheus.DefaultRegisterer。
func Provide(p Params) (Output, error) {
	reg := prometheus.NewRegistry()
	reporter, err := NewPromReporter(reg)
	if err != nil {
		return Output{}, err
	}

	out := Output{Registry: reg, Reporter: reporter}
	if p.Config.Metrics.Addr != "" {
		out.Server = NewServer(p.Config.Metrics.Addr, reg)
	}
	return out, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 注册指标服务生命周期
func registerLifecycle(lc fx.Lifecycle, s *Server) {
	if s == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: s.Start,
		OnStop:  s.Stop,
	})
}
