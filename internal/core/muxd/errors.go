package muxd

import "errors"

var (
	// ErrMalformedPacket 报文格式错误
	ErrMalformedPacket = errors.New("malformed usbmuxd packet")

	// ErrUnexpectedMessage 收到非 plist 消息或 tag 不匹配
	ErrUnexpectedMessage = errors.New("unexpected usbmuxd message")

	// ErrBadCommand usbmuxd 不认识请求
	ErrBadCommand = errors.New("usbmuxd: bad command")

	// ErrBadDevice 设备不存在
	ErrBadDevice = errors.New("usbmuxd: bad device")

	// ErrConnectionRefused 设备拒绝连接端口
	ErrConnectionRefused = errors.New("usbmuxd: connection refused")

	// ErrBadVersion 协议版本不受支持
	ErrBadVersion = errors.New("usbmuxd: bad protocol version")

	// ErrUnexpectedResult 未知的 Result 编号
	ErrUnexpectedResult = errors.New("usbmuxd: unexpected result")

	// ErrInvalidSocketAddress 无效的 usbmuxd 套接字地址
	ErrInvalidSocketAddress = errors.New("invalid usbmuxd socket address")
)
