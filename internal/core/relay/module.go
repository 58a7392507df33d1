package relay

import (
	"go.uber.org/fx"
)

// Module 返回 Fx 模块
//
// 只提供中继配置，Pair 由会话按连接创建。
func Module() fx.Option {
	return fx.Module("relay",
		fx.Provide(ConfigFromUnified),
	)
}
