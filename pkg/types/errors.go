// Package types 定义 iproxy 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              用法与资源错误（致命）
// ============================================================================

var (
	// ErrUsage 命令行参数错误
	ErrUsage = errors.New("usage error")

	// ErrInvalidPort 无效的端口
	ErrInvalidPort = errors.New("invalid port")

	// ErrResourceExhausted 无法分配会话资源
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ============================================================================
//                              会话级错误
// ============================================================================

var (
	// ErrDeviceEnumerationFailed 设备枚举失败
	ErrDeviceEnumerationFailed = errors.New("device enumeration failed")

	// ErrNoDeviceFound 没有找到匹配的设备
	ErrNoDeviceFound = errors.New("no matching device found")

	// ErrConnectFailed 打开设备通道失败
	ErrConnectFailed = errors.New("connect to device failed")

	// ErrUnsupportedAddress 网络设备的地址族不受支持
	ErrUnsupportedAddress = errors.New("unsupported device address family")

	// ErrTransfer 中继方向上的读写失败
	ErrTransfer = errors.New("transfer error")
)

// ============================================================================
//                              带上下文的错误
// ============================================================================

// BindError 监听端口绑定失败
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

// Unwrap 返回底层错误
func (e *BindError) Unwrap() error {
	return e.Err
}

// TransferError 中继方向终止的原因
type TransferError struct {
	// Direction 方向名称（如 "client->device"）
	Direction string

	// Op "read" 或 "write"
	Op string

	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Direction, e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrTransfer) 成立
func (e *TransferError) Is(target error) bool {
	return target == ErrTransfer
}
