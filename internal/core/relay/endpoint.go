package relay

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// readDeadliner 支持读截止时间的连接
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// readCloser 支持半关闭读端的连接（*net.TCPConn、*net.UnixConn）
type readCloser interface {
	CloseRead() error
}

// Endpoint 会话拥有的一个流端点
//
// Close 是幂等的：无论被哪个方向或会话拆除调用多少次，底层连接只关闭一次。
type Endpoint struct {
	name string
	rwc  io.ReadWriteCloser

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool

	// noDeadline 底层不支持读截止时间，退化为阻塞读取
	noDeadline atomic.Bool
}

// NewEndpoint 包装一个流端点
func NewEndpoint(name string, rwc io.ReadWriteCloser) *Endpoint {
	return &Endpoint{name: name, rwc: rwc}
}

// Name 返回端点名称
func (e *Endpoint) Name() string {
	return e.name
}

// Write 写入端点
func (e *Endpoint) Write(p []byte) (int, error) {
	return e.rwc.Write(p)
}

// Close 关闭端点（只执行一次）
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.closeErr = e.rwc.Close()
	})
	return e.closeErr
}

// Closed 检查端点是否已关闭
func (e *Endpoint) Closed() bool {
	return e.closed.Load()
}

// readBounded 有界等待读取
//
// 等待超时返回 os.ErrDeadlineExceeded，调用方应视为"暂无数据"。
func (e *Endpoint) readBounded(p []byte, wait time.Duration) (int, error) {
	if !e.noDeadline.Load() {
		if d, ok := e.rwc.(readDeadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(wait)); err != nil {
				if !errors.Is(err, os.ErrNoDeadline) {
					return 0, err
				}
				e.noDeadline.Store(true)
			}
		} else {
			e.noDeadline.Store(true)
		}
	}
	return e.rwc.Read(p)
}

// closeRead 关闭读端
func (e *Endpoint) closeRead() {
	if cr, ok := e.rwc.(readCloser); ok {
		_ = cr.CloseRead()
	}
}

// isTimeout 检查错误是否为有界等待超时
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// isClosed 检查错误是否为正常关闭（EOF 或本地已关闭）
func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
