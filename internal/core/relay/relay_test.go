package relay

import (
	"bytes"
	"crypto/rand"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-iproxy/pkg/types"
	"github.com/dep2p/go-iproxy/tests/mocks"
)

// ============================================================================
//                              测试辅助
// ============================================================================

// tcpPair 返回一对已连接的回环 TCP 连接
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	c1, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	c2, ok := <-accepted
	require.True(t, ok)

	t.Cleanup(func() {
		c1.Close()
		c2.Close()
	})
	return c1, c2
}

// harness 一个会话的四个连接端
//
//	app ⇄ client endpoint ⇄ [Pair] ⇄ device endpoint ⇄ dev
type harness struct {
	app, dev       net.Conn
	client, device *Endpoint
}

func newHarness(t *testing.T) *harness {
	app, proxyClient := tcpPair(t)
	proxyDevice, dev := tcpPair(t)
	return &harness{
		app:    app,
		dev:    dev,
		client: NewEndpoint("client", proxyClient),
		device: NewEndpoint("device", proxyDevice),
	}
}

// runAsync 在后台运行 Pair
func runAsync(p *Pair) <-chan Result {
	done := make(chan Result, 1)
	go func() { done <- p.Run() }()
	return done
}

func waitResult(t *testing.T, done <-chan Result, within time.Duration) Result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(within):
		t.Fatalf("relay did not finish within %s", within)
		return Result{}
	}
}

func readN(t *testing.T, c net.Conn, n int) []byte {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, n)
	_, err := io.ReadFull(c, buf)
	require.NoError(t, err)
	return buf
}

// chunkConn 每次最多写入 max 字节
type chunkConn struct {
	net.Conn
	max    int
	writes atomic.Int32
}

func (c *chunkConn) Write(p []byte) (int, error) {
	c.writes.Add(1)
	if len(p) > c.max {
		p = p[:c.max]
	}
	return c.Conn.Write(p)
}

// stuckConn 写入没有任何进展
type stuckConn struct {
	net.Conn
}

func (stuckConn) Write([]byte) (int, error) { return 0, nil }

// pipeRWC 不支持截止时间的端点（类似终端上的 stdin/stdout）
type pipeRWC struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p pipeRWC) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p pipeRWC) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p pipeRWC) Close() error {
	p.r.Close()
	return p.w.Close()
}

// countingCloser 记录 Close 次数
type countingCloser struct {
	io.ReadWriter
	closes atomic.Int32
}

func (c *countingCloser) Close() error {
	c.closes.Add(1)
	return nil
}

// ============================================================================
//                              测试用例
// ============================================================================

// TestPair_OrderedBothDirections 两个方向的字节按顺序完整送达
func TestPair_OrderedBothDirections(t *testing.T) {
	h := newHarness(t)
	reporter := mocks.NewMockReporter()
	p := NewPair(Config{ReadTimeout: 50 * time.Millisecond, BufferSize: 4096}, h.client, h.device, reporter)
	done := runAsync(p)

	up := make([]byte, 1<<20)
	down := make([]byte, 256<<10)
	_, _ = rand.Read(up)
	_, _ = rand.Read(down)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = h.app.Write(up)
	}()
	go func() {
		defer wg.Done()
		_, _ = h.dev.Write(down)
	}()

	gotUp := readN(t, h.dev, len(up))
	gotDown := readN(t, h.app, len(down))
	wg.Wait()

	assert.True(t, bytes.Equal(up, gotUp), "client->device bytes differ")
	assert.True(t, bytes.Equal(down, gotDown), "device->client bytes differ")

	// 客户端关闭后两个方向都结束
	require.NoError(t, h.app.Close())
	r := waitResult(t, done, 5*time.Second)

	assert.NoError(t, r.Err())
	assert.Equal(t, int64(len(up)), r.ClientToDevice.Bytes)
	assert.Equal(t, int64(len(down)), r.DeviceToClient.Bytes)
	assert.True(t, h.client.Closed())
	assert.True(t, h.device.Closed())

	_, _, counted := reporter.Snapshot()
	assert.Equal(t, len(up), counted[ClientToDevice])
	assert.Equal(t, len(down), counted[DeviceToClient])

	t.Log("✅ 双向有序中继测试通过")
}

// TestPair_PartialWrites 部分写入会被重试，不重复也不丢失
func TestPair_PartialWrites(t *testing.T) {
	app, proxyClient := tcpPair(t)
	proxyDevice, dev := tcpPair(t)
	chunked := &chunkConn{Conn: proxyDevice, max: 3}

	p := NewPair(Config{ReadTimeout: 50 * time.Millisecond}, NewEndpoint("client", proxyClient), NewEndpoint("device", chunked), nil)
	done := runAsync(p)

	msg := []byte("the quick brown fox jumps over the lazy dog")
	_, err := app.Write(msg)
	require.NoError(t, err)

	assert.Equal(t, msg, readN(t, dev, len(msg)))
	assert.GreaterOrEqual(t, int(chunked.writes.Load()), (len(msg)+2)/3)

	require.NoError(t, app.Close())
	r := waitResult(t, done, 5*time.Second)
	assert.Equal(t, int64(len(msg)), r.ClientToDevice.Bytes)
	assert.NoError(t, r.Err())
}

// TestPair_StuckWrite 没有进展的写入是硬错误
func TestPair_StuckWrite(t *testing.T) {
	app, proxyClient := tcpPair(t)
	proxyDevice, _ := tcpPair(t)

	p := NewPair(Config{ReadTimeout: 50 * time.Millisecond}, NewEndpoint("client", proxyClient), NewEndpoint("device", stuckConn{proxyDevice}), nil)
	done := runAsync(p)

	_, err := app.Write([]byte("x"))
	require.NoError(t, err)

	r := waitResult(t, done, 5*time.Second)
	assert.ErrorIs(t, r.ClientToDevice.Err, types.ErrTransfer)
	assert.ErrorIs(t, r.ClientToDevice.Err, io.ErrShortWrite)

	var te *types.TransferError
	require.ErrorAs(t, r.ClientToDevice.Err, &te)
	assert.Equal(t, ClientToDevice, te.Direction)
	assert.Equal(t, "write", te.Op)

	// 对端方向因连接关闭正常结束
	assert.NoError(t, r.DeviceToClient.Err)
}

// TestPair_TimeoutIsNotTermination 有界等待超时既不终止方向也不产生字节
func TestPair_TimeoutIsNotTermination(t *testing.T) {
	h := newHarness(t)
	p := NewPair(Config{ReadTimeout: 10 * time.Millisecond}, h.client, h.device, nil)
	done := runAsync(p)

	// 经历多个等待周期
	time.Sleep(100 * time.Millisecond)

	assert.False(t, p.ClientToDevice().Stopped())
	assert.False(t, p.DeviceToClient().Stopped())
	assert.Zero(t, p.ClientToDevice().Bytes())
	assert.Zero(t, p.DeviceToClient().Bytes())
	select {
	case <-p.Terminated():
		t.Fatal("relay terminated on timeout")
	default:
	}

	// 之后仍能正常转发
	_, err := h.app.Write([]byte("late"))
	require.NoError(t, err)
	assert.Equal(t, []byte("late"), readN(t, h.dev, 4))

	require.NoError(t, h.dev.Close())
	r := waitResult(t, done, 5*time.Second)
	assert.Equal(t, int64(4), r.ClientToDevice.Bytes)
	assert.Zero(t, r.DeviceToClient.Bytes)
}

// TestPair_PeerTermination 一个方向终止后对端在一个等待周期内终止
func TestPair_PeerTermination(t *testing.T) {
	const interval = 200 * time.Millisecond

	h := newHarness(t)
	p := NewPair(Config{ReadTimeout: interval}, h.client, h.device, nil)
	done := runAsync(p)

	// 设备侧断开，之后没有任何流量
	require.NoError(t, h.dev.Close())

	select {
	case <-p.Terminated():
	case <-time.After(5 * time.Second):
		t.Fatal("no direction terminated")
	}
	start := time.Now()
	r := waitResult(t, done, 5*time.Second)
	assert.Less(t, time.Since(start), interval+100*time.Millisecond)

	assert.True(t, p.ClientToDevice().Stopped())
	assert.True(t, p.DeviceToClient().Stopped())
	assert.NoError(t, r.Err())

	// 客户端看到连接关闭
	require.NoError(t, h.app.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err := h.app.Read(make([]byte, 1))
	assert.Error(t, err)
}

// TestPair_NoDeadlineEndpoint 不支持截止时间的端点退化为阻塞读取
func TestPair_NoDeadlineEndpoint(t *testing.T) {
	stdinR, stdinW := io.Pipe()
	stdoutR, stdoutW := io.Pipe()
	client := NewEndpoint("stdio", pipeRWC{r: stdinR, w: stdoutW})

	proxyDevice, dev := tcpPair(t)
	p := NewPair(Config{ReadTimeout: 10 * time.Millisecond}, client, NewEndpoint("device", proxyDevice), nil)
	done := runAsync(p)

	go func() { _, _ = stdinW.Write([]byte("ping")) }()
	assert.Equal(t, []byte("ping"), readN(t, dev, 4))

	_, err := dev.Write([]byte("pong"))
	require.NoError(t, err)
	got := make([]byte, 4)
	_, err = io.ReadFull(stdoutR, got)
	require.NoError(t, err)
	assert.Equal(t, []byte("pong"), got)

	// 设备断开会关闭 stdio 端点，阻塞的读取随之返回
	require.NoError(t, dev.Close())
	r := waitResult(t, done, 5*time.Second)
	assert.NoError(t, r.Err())
	assert.True(t, client.Closed())
}

func TestEndpoint_CloseOnce(t *testing.T) {
	c := &countingCloser{ReadWriter: &bytes.Buffer{}}
	e := NewEndpoint("test", c)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = e.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), c.closes.Load())
	assert.True(t, e.Closed())
	assert.Equal(t, "test", e.Name())
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), c)

	c = Config{ReadTimeout: time.Second, BufferSize: 10}.withDefaults()
	assert.Equal(t, time.Second, c.ReadTimeout)
	assert.Equal(t, 10, c.BufferSize)
}
