// Package session 实现单个客户端连接的完整生命周期
//
// 一个会话独占两个端点（客户端连接与设备通道），
// 在任何退出路径上都恰好关闭它们一次。
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dep2p/go-iproxy/internal/core/relay"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
	"github.com/dep2p/go-iproxy/pkg/types"
)

var logger = log.Logger("core/session")

// DeviceResolver 设备解析
type DeviceResolver interface {
	Resolve(ctx context.Context) (types.Device, error)
}

// ============================================================================
//                              Session
// ============================================================================

// Session 一个已接受连接的会话
type Session struct {
	id     string
	remote string

	resolver   DeviceResolver
	transport  interfaces.DeviceTransport
	devicePort uint16
	relayCfg   relay.Config
	reporter   interfaces.Reporter

	client *relay.Endpoint
	device *relay.Endpoint

	state  atomic.Int32
	result relay.Result
}

// ID 返回会话 ID
func (s *Session) ID() string {
	return s.id
}

// State 返回当前状态
func (s *Session) State() State {
	return State(s.state.Load())
}

// Result 返回中继结果（仅在 Run 返回后有效）
func (s *Session) Result() relay.Result {
	return s.result
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	logger.Debug("会话状态", "session", log.TruncateID(s.id, 8), "state", st.String())
}

// Run 运行会话直到结束
//
// 返回会话级失败（ErrNoDeviceFound、ErrDeviceEnumerationFailed、ErrConnectFailed），
// 中继正常进行过则返回 nil。客户端连接在所有路径上都会被关闭。
func (s *Session) Run(ctx context.Context) (err error) {
	start := time.Now()
	outcome := interfaces.OutcomeRelayed
	s.reporter.SessionStarted()

	defer func() {
		s.setState(StateClosing)
		if cerr := s.close(); cerr != nil {
			logger.Debug("关闭会话端点出错", "session", log.TruncateID(s.id, 8), "err", cerr)
		}
		s.reporter.SessionFinished(outcome)
		s.setState(StateDone)

		logger.Info("会话结束",
			"session", log.TruncateID(s.id, 8),
			"remote", s.remote,
			"outcome", string(outcome),
			"up", s.result.ClientToDevice.Bytes,
			"down", s.result.DeviceToClient.Bytes,
			"duration", time.Since(start).Round(time.Millisecond))
	}()

	// Resolving
	s.setState(StateResolving)
	dev, err := s.resolver.Resolve(ctx)
	if err != nil {
		outcome = outcomeFor(err)
		logger.Warn("未找到可用设备，断开客户端", "session", log.TruncateID(s.id, 8), "err", err)
		return err
	}

	// Connecting
	s.setState(StateConnecting)
	logger.Info("请求连接设备",
		"session", log.TruncateID(s.id, 8),
		"udid", dev.UDID,
		"target", dev.Target,
		"port", s.devicePort)

	conn, err := s.transport.Connect(ctx, dev, s.devicePort)
	if err != nil {
		outcome = interfaces.OutcomeConnectFailed
		logger.Warn("连接设备失败", "session", log.TruncateID(s.id, 8), "udid", dev.UDID, "err", err)
		return fmt.Errorf("%w: %w", types.ErrConnectFailed, err)
	}
	s.device = relay.NewEndpoint("device", conn)

	// Relaying
	s.setState(StateRelaying)
	pair := relay.NewPair(s.relayCfg, s.client, s.device, s.reporter)
	s.result = pair.Run()
	if rerr := s.result.Err(); rerr != nil {
		logger.Debug("中继异常结束", "session", log.TruncateID(s.id, 8), "err", rerr)
	}
	return nil
}

// close 关闭两个端点
//
// 端点的 Close 是幂等的，中继方向已经关闭过也没有关系。
func (s *Session) close() error {
	var err error
	err = multierr.Append(err, s.client.Close())
	if s.device != nil {
		err = multierr.Append(err, s.device.Close())
	}
	return err
}

// outcomeFor 把解析错误映射为指标标签
func outcomeFor(err error) interfaces.SessionOutcome {
	if errors.Is(err, types.ErrDeviceEnumerationFailed) {
		return interfaces.OutcomeEnumerationFailed
	}
	return interfaces.OutcomeNoDevice
}

// ============================================================================
//                              Factory
// ============================================================================

// Factory 为每个接受的连接创建会话
//
// 持有的配置在创建后不再修改。
type Factory struct {
	resolver   DeviceResolver
	transport  interfaces.DeviceTransport
	devicePort uint16
	relayCfg   relay.Config
	reporter   interfaces.Reporter
}

// NewFactory 创建会话工厂
//
// reporter 可以为 nil。
func NewFactory(resolver DeviceResolver, transport interfaces.DeviceTransport, devicePort uint16, relayCfg relay.Config, reporter interfaces.Reporter) *Factory {
	if reporter == nil {
		reporter = interfaces.NopReporter{}
	}
	return &Factory{
		resolver:   resolver,
		transport:  transport,
		devicePort: devicePort,
		relayCfg:   relayCfg,
		reporter:   reporter,
	}
}

// New 为客户端连接创建会话
//
// 会话从此时起拥有 conn。
func (f *Factory) New(conn io.ReadWriteCloser, remote string) *Session {
	return &Session{
		id:         uuid.New().String(),
		remote:     remote,
		resolver:   f.resolver,
		transport:  f.transport,
		devicePort: f.devicePort,
		relayCfg:   f.relayCfg,
		reporter:   f.reporter,
		client:     relay.NewEndpoint("client", conn),
	}
}

// DevicePort 返回设备端口
func (f *Factory) DevicePort() uint16 {
	return f.devicePort
}
