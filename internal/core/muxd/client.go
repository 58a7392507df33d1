package muxd

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"howett.net/plist"

	"github.com/dep2p/go-iproxy/pkg/lib/log"
)

var logger = log.Logger("core/muxd")

// clientVersion 上报给 usbmuxd 的客户端版本
const clientVersion = "go-iproxy"

// ============================================================================
//                              Client
// ============================================================================

// Client usbmuxd 客户端
//
// 每个请求使用一条新连接：ListDevices 读完响应后关闭，
// Connect 成功后连接本身就成为到设备端口的字节流通道。
type Client struct {
	addr        SocketAddress
	dialTimeout time.Duration
	progName    string

	// trace 为 true 时以 debug 级别输出 plist 报文
	trace bool

	tag atomic.Uint32
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithDialTimeout 设置拨号超时
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithProgName 设置上报的程序名
func WithProgName(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.progName = name
		}
	}
}

// WithTrace 输出 plist 报文
func WithTrace(enabled bool) ClientOption {
	return func(c *Client) {
		c.trace = enabled
	}
}

// NewClient 创建 usbmuxd 客户端
func NewClient(addr SocketAddress, opts ...ClientOption) *Client {
	c := &Client{
		addr:        addr,
		dialTimeout: 10 * time.Second,
		progName:    "iproxy",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr 返回 usbmuxd 套接字地址
func (c *Client) Addr() SocketAddress {
	return c.addr
}

// ListDevices 请求设备列表
func (c *Client) ListDevices(ctx context.Context) ([]deviceEntry, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stop := bindContext(ctx, conn)
	defer stop()

	payload, err := c.roundTrip(conn, c.base(msgTypeListDevices))
	if err != nil {
		return nil, err
	}

	var resp deviceListResponse
	if _, err := plist.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode device list: %w", err)
	}
	if resp.DeviceList == nil {
		// 旧版 usbmuxd 对不支持的请求只回 Result
		var res resultResponse
		if _, err := plist.Unmarshal(payload, &res); err == nil && res.MessageType == msgTypeResult {
			if rerr := resultError(res.Number); rerr != nil {
				return nil, rerr
			}
		}
		return []deviceEntry{}, nil
	}
	return resp.DeviceList, nil
}

// Connect 请求打开到设备端口的通道
//
// 成功时返回的连接已切换为设备端口的原始字节流。
func (c *Client) Connect(ctx context.Context, deviceID uint32, port uint16) (net.Conn, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	stop := bindContext(ctx, conn)
	req := connectRequest{
		RequestBase: c.base(msgTypeConnect),
		DeviceID:    deviceID,
		PortNumber:  portToNetwork(port),
	}
	payload, err := c.roundTrip(conn, req)
	if err == nil {
		err = decodeResult(payload)
	}
	if !stop() {
		// ctx 已取消，连接上的截止时间被 bindContext 修改过
		if err == nil {
			err = ctx.Err()
		}
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect device %d port %d: %w", deviceID, port, err)
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reset deadline: %w", err)
	}

	logger.Debug("usbmuxd 通道已建立", "device", deviceID, "port", port)
	return conn, nil
}

// ============================================================================
//                              内部方法
// ============================================================================

// dial 连接 usbmuxd
func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, c.addr.Network, c.addr.Address)
	if err != nil {
		return nil, fmt.Errorf("dial usbmuxd %s: %w", c.addr, err)
	}
	return conn, nil
}

// base 构造请求公共字段
func (c *Client) base(msgType string) RequestBase {
	return RequestBase{
		MessageType:         msgType,
		ClientVersionString: clientVersion,
		ProgName:            c.progName,
		LibUSBMuxVersion:    libUSBMuxVersion,
	}
}

// roundTrip 发送请求并读取对应 tag 的响应
func (c *Client) roundTrip(conn net.Conn, req any) ([]byte, error) {
	tag := c.tag.Add(1)

	if c.trace {
		if data, err := plist.Marshal(req, plist.XMLFormat); err == nil {
			logger.Debug("usbmuxd 请求", "tag", tag, "plist", string(data))
		}
	}

	if err := writePacket(conn, tag, req); err != nil {
		return nil, err
	}

	h, payload, err := readPacket(conn)
	if err != nil {
		return nil, err
	}
	if h.Message != messagePlist {
		return nil, fmt.Errorf("%w: message type %d", ErrUnexpectedMessage, h.Message)
	}
	if h.Tag != tag {
		return nil, fmt.Errorf("%w: tag %d, want %d", ErrUnexpectedMessage, h.Tag, tag)
	}

	if c.trace {
		logger.Debug("usbmuxd 响应", "tag", h.Tag, "plist", string(payload))
	}
	return payload, nil
}

// decodeResult 解码 Result 响应
func decodeResult(payload []byte) error {
	var res resultResponse
	if _, err := plist.Unmarshal(payload, &res); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	if res.MessageType != msgTypeResult {
		return fmt.Errorf("%w: %q", ErrUnexpectedMessage, res.MessageType)
	}
	return resultError(res.Number)
}

// bindContext 在 ctx 取消时中断连接上的阻塞读写
//
// 返回的 stop 在 ctx 尚未触发时返回 true。
func bindContext(ctx context.Context, conn net.Conn) (stop func() bool) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
}
