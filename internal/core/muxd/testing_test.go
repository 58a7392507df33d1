package muxd

import (
	"io"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

// ============================================================================
//                              fakeMuxd - 测试用 usbmuxd
// ============================================================================

// fakeMuxd 通过 TCP 模拟 usbmuxd
//
// ListDevices 返回 devices；Connect 返回 connectResult，
// 成功时把连接当作设备端口回显。
type fakeMuxd struct {
	ln net.Listener

	devices       []deviceEntry
	connectResult int

	mu       sync.Mutex
	connects []connectRequest
}

func newFakeMuxd(t *testing.T, devices ...deviceEntry) *fakeMuxd {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeMuxd{ln: ln, devices: devices}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeMuxd) addr() SocketAddress {
	return SocketAddress{Network: "tcp", Address: f.ln.Addr().String()}
}

func (f *fakeMuxd) client() *Client {
	return NewClient(f.addr(), WithTrace(true))
}

func (f *fakeMuxd) connectRequests() []connectRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]connectRequest(nil), f.connects...)
}

func (f *fakeMuxd) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.handle(conn)
	}
}

func (f *fakeMuxd) handle(conn net.Conn) {
	defer conn.Close()

	h, payload, err := readPacket(conn)
	if err != nil {
		return
	}

	var base RequestBase
	if _, err := plist.Unmarshal(payload, &base); err != nil {
		return
	}

	switch base.MessageType {
	case msgTypeListDevices:
		devices := f.devices
		if devices == nil {
			devices = []deviceEntry{}
		}
		_ = writePacket(conn, h.Tag, deviceListResponse{DeviceList: devices})

	case msgTypeConnect:
		var req connectRequest
		if _, err := plist.Unmarshal(payload, &req); err != nil {
			return
		}
		f.mu.Lock()
		f.connects = append(f.connects, req)
		f.mu.Unlock()

		if err := writePacket(conn, h.Tag, resultResponse{MessageType: msgTypeResult, Number: f.connectResult}); err != nil {
			return
		}
		if f.connectResult == resultOK {
			_, _ = io.Copy(conn, conn)
		}

	default:
		_ = writePacket(conn, h.Tag, resultResponse{MessageType: msgTypeResult, Number: resultBadCommand})
	}
}

// usbEntry 构造 USB 设备条目
func usbEntry(id uint32, udid string) deviceEntry {
	return deviceEntry{
		DeviceID:    id,
		MessageType: "Attached",
		Properties: deviceProperties{
			ConnectionType: "USB",
			DeviceID:       id,
			ProductID:      0x12a8,
			SerialNumber:   udid,
		},
	}
}

// networkEntry 构造网络设备条目（AF_INET）
func networkEntry(id uint32, udid string, ip [4]byte) deviceEntry {
	addr := make([]byte, 16)
	addr[0] = 16
	addr[1] = familyInet
	copy(addr[4:8], ip[:])
	return deviceEntry{
		DeviceID:    id,
		MessageType: "Attached",
		Properties: deviceProperties{
			ConnectionType: "Network",
			DeviceID:       id,
			SerialNumber:   udid,
			NetworkAddress: addr,
		},
	}
}
