package relay

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/types"
)

// 方向名称
const (
	ClientToDevice = "client->device"
	DeviceToClient = "device->client"
)

// Direction 单向字节泵
//
// stopped 只由本方向写入，对端只读。
type Direction struct {
	name string
	src  *Endpoint
	dst  *Endpoint
	wait time.Duration

	stopped atomic.Bool
	bytes   atomic.Int64
	err     error

	reporter interfaces.Reporter
}

func newDirection(name string, src, dst *Endpoint, wait time.Duration, reporter interfaces.Reporter) *Direction {
	return &Direction{
		name:     name,
		src:      src,
		dst:      dst,
		wait:     wait,
		reporter: reporter,
	}
}

// Name 返回方向名称
func (d *Direction) Name() string {
	return d.name
}

// Stopped 检查方向是否已终止
func (d *Direction) Stopped() bool {
	return d.stopped.Load()
}

// Bytes 返回已转发的字节数
func (d *Direction) Bytes() int64 {
	return d.bytes.Load()
}

// run 运行方向循环直到终止
func (d *Direction) run(buf []byte) {
	for !d.stopped.Load() {
		n, err := d.src.readBounded(buf, d.wait)
		if n > 0 {
			if werr := d.writeAll(buf[:n]); werr != nil {
				d.terminate("write", werr)
				return
			}
		}
		if err != nil {
			if isTimeout(err) {
				continue
			}
			d.terminate("read", err)
			return
		}
	}
}

// writeAll 把 p 完整写入宿端点
//
// 部分写入会继续写剩余部分；没有进展的写入按 io.ErrShortWrite 处理。
func (d *Direction) writeAll(p []byte) error {
	for len(p) > 0 {
		n, err := d.dst.Write(p)
		if n > 0 {
			d.bytes.Add(int64(n))
			d.reporter.BytesRelayed(d.name, n)
			p = p[n:]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}

// terminate 终止本方向
//
// 关闭宿端点后，对端方向对它的下一次读取会失败。
func (d *Direction) terminate(op string, err error) {
	d.stopped.Store(true)

	if !isClosed(err) {
		d.err = &types.TransferError{Direction: d.name, Op: op, Err: err}
	}

	d.src.closeRead()
	_ = d.dst.Close()

	logger.Debug("中继方向终止",
		"direction", d.name,
		"op", op,
		"bytes", d.bytes.Load(),
		"err", err)
}
