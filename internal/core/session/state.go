package session

// State 会话状态
//
//	Resolving → Connecting → Relaying → Closing → Done
//	Resolving → Closing（解析失败）
//	Connecting → Closing（连接失败）
type State int32

const (
	// StateNew 尚未开始
	StateNew State = iota
	// StateResolving 正在解析设备
	StateResolving
	// StateConnecting 正在打开设备通道
	StateConnecting
	// StateRelaying 正在中继
	StateRelaying
	// StateClosing 正在关闭端点
	StateClosing
	// StateDone 已结束
	StateDone
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateResolving:
		return "resolving"
	case StateConnecting:
		return "connecting"
	case StateRelaying:
		return "relaying"
	case StateClosing:
		return "closing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
