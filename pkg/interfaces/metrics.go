// Package interfaces 定义 iproxy 公共接口
//
// 本文件定义 Reporter 接口，记录会话与中继指标。
package interfaces

// SessionOutcome 会话结果标签
type SessionOutcome string

const (
	// OutcomeRelayed 会话完成中继
	OutcomeRelayed SessionOutcome = "relayed"
	// OutcomeNoDevice 没有匹配的设备
	OutcomeNoDevice SessionOutcome = "no_device"
	// OutcomeEnumerationFailed 设备枚举失败
	OutcomeEnumerationFailed SessionOutcome = "enumeration_failed"
	// OutcomeConnectFailed 打开设备通道失败
	OutcomeConnectFailed SessionOutcome = "connect_failed"
)

// Reporter 定义指标上报接口
//
// 实现必须是并发安全的。
type Reporter interface {
	// SessionStarted 记录会话开始
	SessionStarted()

	// SessionFinished 记录会话结束
	SessionFinished(outcome SessionOutcome)

	// BytesRelayed 记录某个方向上转发的字节数
	BytesRelayed(direction string, n int)
}

// NopReporter 不记录任何指标的 Reporter
type NopReporter struct{}

// SessionStarted 实现 Reporter 接口
func (NopReporter) SessionStarted() {}

// SessionFinished 实现 Reporter 接口
func (NopReporter) SessionFinished(SessionOutcome) {}

// BytesRelayed 实现 Reporter 接口
func (NopReporter) BytesRelayed(string, int) {}
