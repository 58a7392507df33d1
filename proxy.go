package iproxy

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/internal/core/listener"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
)

var logger = log.Logger("iproxy")

// Proxy 一个运行中的端口代理
type Proxy struct {
	cfg config.Config
	app *fx.App

	listener *listener.Listener

	mu      sync.Mutex
	started bool
	closed  bool
}

// ════════════════════════════════════════════════════════════════════════════
//                              构造函数
// ════════════════════════════════════════════════════════════════════════════

// New 创建代理但不启动
func New(cfg config.Config, opts ...Option) (*Proxy, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	p := &Proxy{cfg: cfg}
	app, err := buildFxApp(cfg, o, p)
	if err != nil {
		return nil, err
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	p.app = app
	return p, nil
}

// Start 创建并启动代理
//
// 等价于 New() + Start()。
func Start(ctx context.Context, cfg config.Config, opts ...Option) (*Proxy, error) {
	p, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 绑定本地端口并开始接受连接
//
// 绑定失败时返回的错误可以用 errors.As 取出 *types.BindError。
func (p *Proxy) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProxyClosed
	}
	if p.started {
		return ErrAlreadyStarted
	}
	if err := p.app.Start(ctx); err != nil {
		return fmt.Errorf("start proxy: %w", err)
	}
	p.started = true

	logger.Info("代理已启动",
		"listen", p.Addr().String(),
		"devicePort", p.cfg.Device.Port,
		"udid", p.cfg.Device.UDID,
		"policy", p.cfg.Device.Policy().String())
	return nil
}

// Stop 停止接受连接并停止所有组件
//
// 已在运行的会话不会被中断。
func (p *Proxy) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if !p.started {
		return nil
	}
	return p.app.Stop(ctx)
}

// Done 返回在应用需要退出时收到信号的 channel
//
// 收到 SIGINT/SIGTERM 时 ExitCode 为 0；接受循环致命失败时为 1。
func (p *Proxy) Done() <-chan fx.ShutdownSignal {
	return p.app.Wait()
}

// Addr 返回实际监听地址（未启动时为 nil）
func (p *Proxy) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Config 返回代理配置
func (p *Proxy) Config() config.Config {
	return p.cfg
}
