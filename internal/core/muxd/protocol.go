package muxd

import (
	"encoding/binary"
	"fmt"
	"io"

	"howett.net/plist"
)

// ============================================================================
//                              报文头
// ============================================================================

// 协议常量
const (
	// headerSize 报文头长度
	headerSize = 16

	// protocolVersionPlist plist 协议版本
	protocolVersionPlist uint32 = 1

	// messagePlist plist 消息类型
	messagePlist uint32 = 8

	// maxPayloadSize 单个报文负载上限（防止恶意长度）
	maxPayloadSize = 4 << 20

	// libUSBMuxVersion 上报的 kLibUSBMuxVersion
	libUSBMuxVersion = 3
)

// header usbmuxd 报文头（小端序）
//
// 格式: length(4) + version(4) + message(4) + tag(4)
// length 包含报文头自身。
type header struct {
	Length  uint32
	Version uint32
	Message uint32
	Tag     uint32
}

// encode 编码报文头
func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Length)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Message)
	binary.LittleEndian.PutUint32(buf[12:16], h.Tag)
	return buf
}

// decodeHeader 解码报文头
func decodeHeader(buf []byte) header {
	return header{
		Length:  binary.LittleEndian.Uint32(buf[0:4]),
		Version: binary.LittleEndian.Uint32(buf[4:8]),
		Message: binary.LittleEndian.Uint32(buf[8:12]),
		Tag:     binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// writePacket 写入一个 plist 报文
func writePacket(w io.Writer, tag uint32, msg any) error {
	payload, err := plist.Marshal(msg, plist.XMLFormat)
	if err != nil {
		return fmt.Errorf("encode plist: %w", err)
	}

	h := header{
		Length:  uint32(headerSize + len(payload)),
		Version: protocolVersionPlist,
		Message: messagePlist,
		Tag:     tag,
	}

	// 一次写出，避免报文头和负载被拆成两个 TCP 段
	packet := append(h.encode(), payload...)
	if _, err := w.Write(packet); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	return nil
}

// readPacket 读取一个报文，返回报文头和负载
//
// 只读取报文本身，不会多读，Connect 成功后的设备数据保持在连接上。
func readPacket(r io.Reader) (header, []byte, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return header{}, nil, fmt.Errorf("read header: %w", err)
	}

	h := decodeHeader(buf)
	if h.Length < headerSize {
		return h, nil, fmt.Errorf("%w: length %d", ErrMalformedPacket, h.Length)
	}
	if h.Length-headerSize > maxPayloadSize {
		return h, nil, fmt.Errorf("%w: payload too large (%d)", ErrMalformedPacket, h.Length-headerSize)
	}

	payload := make([]byte, h.Length-headerSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return h, nil, fmt.Errorf("read payload: %w", err)
	}
	return h, payload, nil
}

// ============================================================================
//                              plist 消息
// ============================================================================

// 消息类型
const (
	msgTypeListDevices = "ListDevices"
	msgTypeConnect     = "Connect"
	msgTypeResult      = "Result"
)

// Result 编号
const (
	resultOK          = 0
	resultBadCommand  = 1
	resultBadDevice   = 2
	resultConnRefused = 3
	resultBadVersion  = 6
)

// RequestBase 所有请求共有的字段
//
// 必须导出：plist 不展开未导出的内嵌结构体。
type RequestBase struct {
	MessageType         string `plist:"MessageType"`
	ClientVersionString string `plist:"ClientVersionString"`
	ProgName            string `plist:"ProgName"`
	LibUSBMuxVersion    int    `plist:"kLibUSBMuxVersion"`
}

// connectRequest Connect 请求
type connectRequest struct {
	RequestBase
	DeviceID   uint32 `plist:"DeviceID"`
	PortNumber uint16 `plist:"PortNumber"`
}

// resultResponse Result 响应
type resultResponse struct {
	MessageType string `plist:"MessageType"`
	Number      int    `plist:"Number"`
}

// deviceListResponse ListDevices 响应
type deviceListResponse struct {
	DeviceList []deviceEntry `plist:"DeviceList"`
}

// deviceEntry 设备列表条目
type deviceEntry struct {
	DeviceID    uint32           `plist:"DeviceID"`
	MessageType string           `plist:"MessageType"`
	Properties  deviceProperties `plist:"Properties"`
}

// deviceProperties 设备属性
type deviceProperties struct {
	ConnectionType string `plist:"ConnectionType"`
	DeviceID       uint32 `plist:"DeviceID"`
	LocationID     uint32 `plist:"LocationID"`
	ProductID      int    `plist:"ProductID"`
	SerialNumber   string `plist:"SerialNumber"`
	NetworkAddress []byte `plist:"NetworkAddress,omitempty"`
}

// portToNetwork 把端口转换为 usbmuxd 期望的网络字节序整数
func portToNetwork(port uint16) uint16 {
	return port<<8 | port>>8
}

// resultError 把 Result 编号映射为错误
func resultError(number int) error {
	switch number {
	case resultOK:
		return nil
	case resultBadCommand:
		return ErrBadCommand
	case resultBadDevice:
		return ErrBadDevice
	case resultConnRefused:
		return ErrConnectionRefused
	case resultBadVersion:
		return ErrBadVersion
	default:
		return fmt.Errorf("%w: result %d", ErrUnexpectedResult, number)
	}
}
