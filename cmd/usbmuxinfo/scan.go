package main

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/types"
)

// defaultScanWorkers 默认并发探测数
const defaultScanWorkers = 32

// scanPorts 探测 [from, to] 范围内能打开通道的端口
//
// 打不开的端口视为关闭；只有 ctx 取消会中止扫描。结果按端口升序。
func scanPorts(ctx context.Context, t interfaces.DeviceTransport, dev types.Device, from, to uint16, workers int) ([]uint16, error) {
	if workers <= 0 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		open []uint16
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for port := uint32(from); port <= uint32(to); port++ {
		if gctx.Err() != nil {
			break
		}
		p := uint16(port)
		g.Go(func() error {
			conn, err := t.Connect(gctx, dev, p)
			if err != nil {
				return gctx.Err()
			}
			_ = conn.Close()

			mu.Lock()
			open = append(open, p)
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	slices.Sort(open)
	return open, err
}
