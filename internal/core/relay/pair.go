package relay

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
)

var logger = log.Logger("core/relay")

// DirectionResult 单个方向的结果
type DirectionResult struct {
	Direction string
	Bytes     int64

	// Err 终止原因；EOF 或连接已关闭视为正常结束，此时为 nil
	Err error
}

// Result 中继结果
type Result struct {
	ClientToDevice DirectionResult
	DeviceToClient DirectionResult
}

// Err 合并两个方向的错误
func (r Result) Err() error {
	return multierr.Combine(r.ClientToDevice.Err, r.DeviceToClient.Err)
}

// Pair 一对协同关闭的中继方向
type Pair struct {
	cfg Config

	c2d *Direction
	d2c *Direction

	// terminated 第一个方向终止时关闭
	terminated chan struct{}
	termOnce   sync.Once
}

// NewPair 创建中继对
//
// reporter 可以为 nil。
func NewPair(cfg Config, client, device *Endpoint, reporter interfaces.Reporter) *Pair {
	cfg = cfg.withDefaults()
	if reporter == nil {
		reporter = interfaces.NopReporter{}
	}
	return &Pair{
		cfg:        cfg,
		c2d:        newDirection(ClientToDevice, client, device, cfg.ReadTimeout, reporter),
		d2c:        newDirection(DeviceToClient, device, client, cfg.ReadTimeout, reporter),
		terminated: make(chan struct{}),
	}
}

// ClientToDevice 返回 client->device 方向
func (p *Pair) ClientToDevice() *Direction {
	return p.c2d
}

// DeviceToClient 返回 device->client 方向
func (p *Pair) DeviceToClient() *Direction {
	return p.d2c
}

// Terminated 返回在第一个方向终止时关闭的 channel
func (p *Pair) Terminated() <-chan struct{} {
	return p.terminated
}

// Run 并发运行两个方向，两个方向都返回后才返回
func (p *Pair) Run() Result {
	var wg sync.WaitGroup
	wg.Add(2)

	for _, d := range []*Direction{p.c2d, p.d2c} {
		go func(d *Direction) {
			defer wg.Done()
			defer p.termOnce.Do(func() { close(p.terminated) })
			d.run(make([]byte, p.cfg.BufferSize))
		}(d)
	}

	wg.Wait()

	return Result{
		ClientToDevice: DirectionResult{Direction: p.c2d.name, Bytes: p.c2d.Bytes(), Err: p.c2d.err},
		DeviceToClient: DirectionResult{Direction: p.d2c.name, Bytes: p.d2c.Bytes(), Err: p.d2c.err},
	}
}
