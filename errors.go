package iproxy

import (
	"errors"

	"github.com/dep2p/go-iproxy/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrAlreadyStarted 代理已启动
	ErrAlreadyStarted = errors.New("proxy already started")

	// ErrProxyClosed 代理已关闭
	ErrProxyClosed = errors.New("proxy closed")

	// ────────────────────────────────────────────────────────────────────────
	// 会话错误（pkg/types 的别名）
	// ────────────────────────────────────────────────────────────────────────

	// ErrNoDeviceFound 没有匹配的设备
	ErrNoDeviceFound = types.ErrNoDeviceFound

	// ErrDeviceEnumerationFailed 设备枚举失败
	ErrDeviceEnumerationFailed = types.ErrDeviceEnumerationFailed

	// ErrConnectFailed 打开设备通道失败
	ErrConnectFailed = types.ErrConnectFailed

	// ErrResourceExhausted 资源耗尽
	ErrResourceExhausted = types.ErrResourceExhausted
)
