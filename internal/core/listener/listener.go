// Package listener 实现本地监听与接受循环
//
// 每个接受的连接启动一个独立的会话 goroutine，接受循环从不等待会话结束，
// 也不限制并发会话数。接受失败是致命的。
package listener

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/internal/core/session"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
	"github.com/dep2p/go-iproxy/pkg/types"
)

var logger = log.Logger("core/listener")

// SessionFactory 为接受的连接创建会话
type SessionFactory interface {
	New(conn io.ReadWriteCloser, remote string) *session.Session
}

// Config 监听配置
type Config struct {
	// Address 监听地址
	Address string

	// Port 本地端口（0 表示由系统分配）
	Port uint16
}

// ConfigFromUnified 从统一配置创建监听配置
func ConfigFromUnified(cfg config.Config) Config {
	return Config{
		Address: cfg.Listen.Address,
		Port:    cfg.Listen.Port,
	}
}

// hostPort 返回监听地址
func (c Config) hostPort() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(int(c.Port)))
}

// Listener 本地监听器
type Listener struct {
	cfg     Config
	factory SessionFactory

	mu sync.Mutex
	ln net.Listener

	closed   atomic.Bool
	accepted atomic.Uint64
}

// New 创建监听器（尚未绑定）
func New(cfg Config, factory SessionFactory) *Listener {
	return &Listener{
		cfg:     cfg,
		factory: factory,
	}
}

// Listen 绑定本地端口
//
// 失败时返回 *types.BindError，其中包裹操作系统错误。
func (l *Listener) Listen(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		return nil
	}

	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp", l.cfg.hostPort())
	if err != nil {
		return &types.BindError{Addr: l.cfg.hostPort(), Err: err}
	}
	l.ln = ln

	logger.Info("开始监听", "addr", ln.Addr().String())
	return nil
}

// Addr 返回实际监听地址（未绑定时为 nil）
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Accepted 返回已接受的连接数
func (l *Listener) Accepted() uint64 {
	return l.accepted.Load()
}

// Serve 运行接受循环
//
// Close 之后返回 nil；其他任何接受错误都会返回，调用方应终止进程。
// 会话使用不可取消的 ctx 副本，进程退出前不会被主动中断。
func (l *Listener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("serve: listener not bound")
	}

	sessionCtx := context.WithoutCancel(ctx)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			if isResourceExhausted(err) {
				return fmt.Errorf("accept: %w: %w", types.ErrResourceExhausted, err)
			}
			return fmt.Errorf("accept: %w", err)
		}

		l.accepted.Add(1)
		remote := conn.RemoteAddr().String()
		logger.Debug("接受客户端连接", "remote", remote)

		s := l.factory.New(conn, remote)
		// 会话错误已在 Run 中记录
		go s.Run(sessionCtx)
	}
}

// Close 停止接受循环
//
// 已在运行的会话不受影响。
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}

	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return nil
	}

	logger.Info("停止监听", "addr", ln.Addr().String())
	return ln.Close()
}
