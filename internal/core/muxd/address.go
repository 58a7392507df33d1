package muxd

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// ============================================================================
//                              usbmuxd 套接字地址
// ============================================================================

const (
	// EnvSocketAddress 覆盖 usbmuxd 套接字地址的环境变量
	//
	// 格式: "UNIX:/path/to/socket"、"/path/to/socket" 或 "host:port"
	EnvSocketAddress = "USBMUXD_SOCKET_ADDRESS"

	// defaultUnixSocket 类 Unix 系统上的默认套接字
	defaultUnixSocket = "/var/run/usbmuxd"

	// defaultTCPSocket Windows 上的默认地址
	defaultTCPSocket = "127.0.0.1:27015"
)

// SocketAddress usbmuxd 套接字地址
type SocketAddress struct {
	// Network "unix" 或 "tcp"
	Network string

	// Address 路径或 host:port
	Address string
}

func (a SocketAddress) String() string {
	return a.Network + ":" + a.Address
}

// ResolveSocketAddress 解析 usbmuxd 套接字地址
//
// 优先级：显式配置 > USBMUXD_SOCKET_ADDRESS > 平台默认值。
func ResolveSocketAddress(configured string) (SocketAddress, error) {
	if configured != "" {
		return ParseSocketAddress(configured)
	}
	if env := os.Getenv(EnvSocketAddress); env != "" {
		return ParseSocketAddress(env)
	}
	if runtime.GOOS == "windows" {
		return SocketAddress{Network: "tcp", Address: defaultTCPSocket}, nil
	}
	return SocketAddress{Network: "unix", Address: defaultUnixSocket}, nil
}

// ParseSocketAddress 解析套接字地址字符串
func ParseSocketAddress(s string) (SocketAddress, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return SocketAddress{}, fmt.Errorf("%w: empty", ErrInvalidSocketAddress)
	case strings.HasPrefix(s, "UNIX:"):
		path := strings.TrimPrefix(s, "UNIX:")
		if path == "" {
			return SocketAddress{}, fmt.Errorf("%w: %q", ErrInvalidSocketAddress, s)
		}
		return SocketAddress{Network: "unix", Address: path}, nil
	case strings.HasPrefix(s, "/"):
		return SocketAddress{Network: "unix", Address: s}, nil
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return SocketAddress{}, fmt.Errorf("%w: %q: %v", ErrInvalidSocketAddress, s, err)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return SocketAddress{}, fmt.Errorf("%w: bad port in %q", ErrInvalidSocketAddress, s)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return SocketAddress{Network: "tcp", Address: net.JoinHostPort(host, port)}, nil
}

// ============================================================================
//                              设备网络地址
// ============================================================================

// 设备上报的 sockaddr 地址族（BSD 编号）
const (
	familyInet  = 0x02
	familyInet6 = 0x1E
)

// decodeNetworkAddress 解码设备上报的 NetworkAddress
//
// 数据是 BSD sockaddr：len(1) + family(1) + port(2) + ...
//   - AF_INET:  addr 位于 [4:8]
//   - AF_INET6: flowinfo [4:8]，addr [8:24]，scope_id [24:28]
func decodeNetworkAddress(b []byte) (netip.Addr, error) {
	if len(b) < 2 {
		return netip.Addr{}, fmt.Errorf("network address too short (%d bytes)", len(b))
	}

	switch b[1] {
	case familyInet:
		if len(b) < 8 {
			return netip.Addr{}, fmt.Errorf("AF_INET address too short (%d bytes)", len(b))
		}
		return netip.AddrFrom4([4]byte(b[4:8])), nil

	case familyInet6:
		if len(b) < 24 {
			return netip.Addr{}, fmt.Errorf("AF_INET6 address too short (%d bytes)", len(b))
		}
		addr := netip.AddrFrom16([16]byte(b[8:24]))
		if len(b) >= 28 && addr.IsLinkLocalUnicast() {
			if scope := binary.LittleEndian.Uint32(b[24:28]); scope != 0 {
				addr = addr.WithZone(strconv.FormatUint(uint64(scope), 10))
			}
		}
		return addr, nil

	default:
		return netip.Addr{}, fmt.Errorf("unsupported address family 0x%02x", b[1])
	}
}
