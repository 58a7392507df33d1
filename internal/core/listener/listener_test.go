package listener

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/internal/core/relay"
	"github.com/dep2p/go-iproxy/internal/core/resolver"
	"github.com/dep2p/go-iproxy/internal/core/session"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/types"
	"github.com/dep2p/go-iproxy/tests/mocks"
)

var testRelay = relay.Config{ReadTimeout: 50 * time.Millisecond, BufferSize: 1024}

func newFactory(tr interfaces.DeviceTransport) *session.Factory {
	return session.NewFactory(resolver.New(tr, "", types.LookupUSB), tr, 22, testRelay, nil)
}

// startListener 绑定到随机端口并在后台运行接受循环
func startListener(t *testing.T, factory SessionFactory) (*Listener, <-chan error) {
	t.Helper()

	l := New(Config{Address: "127.0.0.1"}, factory)
	require.NoError(t, l.Listen(context.Background()))

	done := make(chan error, 1)
	go func() { done <- l.Serve(context.Background()) }()
	t.Cleanup(func() { l.Close() })
	return l, done
}

func dial(t *testing.T, l *Listener) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", l.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// TestListener_NoDevices 没有设备时每个连接都被立即关闭，监听继续
func TestListener_NoDevices(t *testing.T) {
	tr := mocks.NewMockDeviceTransport()
	l, _ := startListener(t, newFactory(tr))

	for i := 0; i < 3; i++ {
		conn := dial(t, l)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		n, err := conn.Read(make([]byte, 8))
		assert.Zero(t, n)
		assert.ErrorIs(t, err, io.EOF)
	}

	assert.Equal(t, uint64(3), l.Accepted())
	assert.Empty(t, tr.Connects())

	t.Log("✅ 无设备场景测试通过")
}

// TestListener_DoesNotWaitForSessions 阻塞的会话不影响后续连接
func TestListener_DoesNotWaitForSessions(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	defer once.Do(func() { close(release) })

	var mu sync.Mutex
	calls := 0
	tr := mocks.NewMockDeviceTransport(mocks.USBDevice(1, "usb-device"))
	tr.ConnectFunc = func(ctx context.Context, _ types.Device, _ uint16) (net.Conn, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()

		if first {
			// 第一个会话卡在打开通道
			<-release
			return nil, errors.New("released")
		}
		proxySide, deviceSide := net.Pipe()
		go func() {
			defer deviceSide.Close()
			_, _ = io.Copy(deviceSide, deviceSide)
		}()
		return proxySide, nil
	}

	l, _ := startListener(t, newFactory(tr))

	blocked := dial(t, l)
	_, err := blocked.Write([]byte("x"))
	require.NoError(t, err)

	// 等待第一个会话进入 Connect
	require.Eventually(t, func() bool { return len(tr.Connects()) == 1 }, 5*time.Second, 10*time.Millisecond)

	conn := dial(t, l)
	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))

	once.Do(func() { close(release) })
}

func TestListener_Close(t *testing.T) {
	l, done := startListener(t, newFactory(mocks.NewMockDeviceTransport()))

	require.NoError(t, l.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Close")
	}

	// 重复关闭无害
	assert.NoError(t, l.Close())
}

func TestListener_BindError(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := uint16(occupied.Addr().(*net.TCPAddr).Port)

	l := New(Config{Address: "127.0.0.1", Port: port}, nil)
	err = l.Listen(context.Background())

	var be *types.BindError
	require.ErrorAs(t, err, &be)
	assert.Contains(t, be.Addr, "127.0.0.1:")
	assert.Nil(t, l.Addr())
}

func TestListener_ServeUnbound(t *testing.T) {
	l := New(Config{Address: "127.0.0.1"}, nil)
	assert.Error(t, l.Serve(context.Background()))
	assert.NoError(t, l.Close())
}

// fakeListener Accept 总是返回指定错误
type fakeListener struct {
	err error
}

func (f fakeListener) Accept() (net.Conn, error) { return nil, f.err }
func (fakeListener) Close() error                { return nil }
func (fakeListener) Addr() net.Addr              { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

// TestListener_AcceptErrorIsFatal 接受错误使接受循环返回
func TestListener_AcceptErrorIsFatal(t *testing.T) {
	cause := errors.New("listener broken")
	l := New(Config{}, nil)
	l.ln = fakeListener{err: cause}

	err := l.Serve(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, types.ErrResourceExhausted)
}

// ============================================================================
// Fx 模块测试
// ============================================================================

func TestModule_Lifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Listen.Port = 0
	cfg.Device.Port = 22

	tr := mocks.NewMockDeviceTransport()
	var l *Listener
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() *session.Factory { return newFactory(tr) }),
		Module(),
		fx.Populate(&l),
	)
	app.RequireStart()

	require.NotNil(t, l.Addr())
	conn, err := net.DialTimeout("tcp", l.Addr().String(), 5*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)

	app.RequireStop()
	_, err = net.DialTimeout("tcp", l.Addr().String(), time.Second)
	assert.Error(t, err)
}
