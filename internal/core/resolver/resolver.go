// Package resolver 实现设备解析
//
// 每次解析只调用一次设备传输：
//   - 指定了 UDID：LookupDevice 直接查找，结果即最终结果
//   - 未指定 UDID：Devices 枚举，返回第一个策略允许的设备
//
// 解析只访问发现服务，不对设备本身做任何 I/O。
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
	"github.com/dep2p/go-iproxy/pkg/types"
)

var logger = log.Logger("core/resolver")

// Resolver 设备解析器
//
// 创建后不可变，可被多个会话并发使用。
type Resolver struct {
	transport interfaces.DeviceTransport
	udid      string
	policy    types.LookupPolicy
}

// New 创建设备解析器
//
// udid 为空表示选择第一个匹配策略的设备。
func New(transport interfaces.DeviceTransport, udid string, policy types.LookupPolicy) *Resolver {
	return &Resolver{
		transport: transport,
		udid:      udid,
		policy:    policy.Normalize(),
	}
}

// UDID 返回目标 UDID
func (r *Resolver) UDID() string {
	return r.udid
}

// Policy 返回查找策略
func (r *Resolver) Policy() types.LookupPolicy {
	return r.policy
}

// Resolve 选择一个设备
//
// 失败时返回的错误满足 errors.Is(err, types.ErrNoDeviceFound)
// 或 errors.Is(err, types.ErrDeviceEnumerationFailed)。
func (r *Resolver) Resolve(ctx context.Context) (types.Device, error) {
	if r.udid != "" {
		return r.lookup(ctx)
	}
	return r.first(ctx)
}

// lookup 按 UDID 直接查找
func (r *Resolver) lookup(ctx context.Context) (types.Device, error) {
	dev, err := r.transport.LookupDevice(ctx, r.udid, r.policy)
	if err != nil {
		if errors.Is(err, types.ErrNoDeviceFound) {
			return types.Device{}, fmt.Errorf("%w: udid %s", types.ErrNoDeviceFound, r.udid)
		}
		return types.Device{}, fmt.Errorf("%w: %w", types.ErrDeviceEnumerationFailed, err)
	}
	if !dev.IsValid() {
		return types.Device{}, fmt.Errorf("%w: udid %s", types.ErrNoDeviceFound, r.udid)
	}

	logger.Debug("按 UDID 找到设备", "udid", dev.UDID, "handle", dev.Handle, "connType", dev.ConnType())
	return dev, nil
}

// first 返回第一个策略允许的设备
//
// 顺序就是传输层的枚举顺序，不重新排序。
func (r *Resolver) first(ctx context.Context) (types.Device, error) {
	devices, err := r.transport.Devices(ctx)
	if err != nil {
		return types.Device{}, fmt.Errorf("%w: %w", types.ErrDeviceEnumerationFailed, err)
	}

	for _, dev := range devices {
		if !dev.IsValid() || !r.policy.Allows(dev.ConnType()) {
			continue
		}
		logger.Debug("选择设备", "udid", dev.UDID, "handle", dev.Handle, "connType", dev.ConnType())
		return dev, nil
	}

	return types.Device{}, fmt.Errorf("%w: %d devices, policy %s", types.ErrNoDeviceFound, len(devices), r.policy)
}
