package types

import "strings"

// ============================================================================
//                              LookupPolicy - 查找策略
// ============================================================================

// LookupPolicy 设备查找策略
//
// 允许的连接类型集合。零值等价于 LookupUSB。
type LookupPolicy uint8

const (
	// LookupUSB 允许 USB 设备
	LookupUSB LookupPolicy = 1 << iota
	// LookupNetwork 允许网络设备
	LookupNetwork
)

// DefaultLookupPolicy 默认查找策略（仅 USB）
const DefaultLookupPolicy = LookupUSB

// Normalize 返回非空的策略
func (p LookupPolicy) Normalize() LookupPolicy {
	p &= LookupUSB | LookupNetwork
	if p == 0 {
		return DefaultLookupPolicy
	}
	return p
}

// Allows 检查策略是否允许指定连接类型
func (p LookupPolicy) Allows(c ConnType) bool {
	p = p.Normalize()
	switch c {
	case ConnTypeUSB:
		return p&LookupUSB != 0
	case ConnTypeNetwork:
		return p&LookupNetwork != 0
	default:
		return false
	}
}

// String 返回策略的字符串表示
func (p LookupPolicy) String() string {
	p = p.Normalize()
	var parts []string
	if p&LookupUSB != 0 {
		parts = append(parts, "usb")
	}
	if p&LookupNetwork != 0 {
		parts = append(parts, "network")
	}
	return strings.Join(parts, "|")
}

// PolicyFromFlags 从命令行开关构建策略
//
// 两个开关都未设置时返回默认策略。
func PolicyFromFlags(local, network bool) LookupPolicy {
	var p LookupPolicy
	if local {
		p |= LookupUSB
	}
	if network {
		p |= LookupNetwork
	}
	return p.Normalize()
}
