// Package metrics 提供 Prometheus 指标
//
// 指标：
//   - iproxy_sessions_total{outcome}: 按结果统计的会话数
//   - iproxy_sessions_active: 正在运行的会话数
//   - iproxy_relay_bytes_total{direction}: 按方向统计的中继字节数
//
// 配置了 metrics.addr 时在该地址的 /metrics 上提供抓取端点。
package metrics
