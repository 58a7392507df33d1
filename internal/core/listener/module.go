package listener

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-iproxy/internal/core/session"
)

// Params 监听器依赖参数
type Params struct {
	fx.In

	Config  Config
	Factory *session.Factory
}

// NewFromParams 从参数创建监听器
func NewFromParams(p Params) *Listener {
	return New(p.Config, p.Factory)
}

// Module 返回 Fx 模块
//
// OnStart 绑定端口并在后台运行接受循环；接受循环致命失败时
// 通过 Shutdowner 以退出码 1 结束应用。
func Module() fx.Option {
	return fx.Module("listener",
		fx.Provide(
			ConfigFromUnified,
			NewFromParams,
		),
		fx.Invoke(registerLifecycle),
	)
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, l *Listener) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := l.Listen(ctx); err != nil {
				return err
			}
			go func() {
				if err := l.Serve(context.Background()); err != nil {
					logger.Error("接受连接失败，退出", "err", err)
					_ = sd.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			return l.Close()
		},
	})
}
