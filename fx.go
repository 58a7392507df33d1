package iproxy

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/internal/core/listener"
	"github.com/dep2p/go-iproxy/internal/core/metrics"
	"github.com/dep2p/go-iproxy/internal/core/muxd"
	"github.com/dep2p/go-iproxy/internal/core/relay"
	"github.com/dep2p/go-iproxy/internal/core/resolver"
	"github.com/dep2p/go-iproxy/internal/core/session"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//
//	muxd → resolver → relay → metrics → session → listener
func buildFxApp(cfg config.Config, opts *options, p *Proxy) (*fx.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg),
	}

	// 设备传输
	if opts.transport != nil {
		t := opts.transport
		modules = append(modules, fx.Provide(func() interfaces.DeviceTransport { return t }))
	} else {
		modules = append(modules, muxd.Module())
	}

	modules = append(modules,
		resolver.Module(),
		relay.Module(),
		metrics.Module(),
		session.Module(),
		listener.Module(),
	)

	if len(opts.userFxOptions) > 0 {
		modules = append(modules, opts.userFxOptions...)
	}

	modules = append(modules,
		fx.Populate(&p.listener),
		fx.WithLogger(fxLogger(cfg.Log.Debug)),
	)

	return fx.New(modules...), nil
}

// fxLogger 返回 Fx 事件日志
//
// 调试级别达到 2 时输出容器事件，否则丢弃。
func fxLogger(debug int) func() fxevent.Logger {
	return func() fxevent.Logger {
		if debug > 1 {
			if l, err := zap.NewDevelopment(); err == nil {
				return &fxevent.ZapLogger{Logger: l}
			}
		}
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}
}
