// Package relay 实现双向字节中继
//
// 一个 Pair 由两个独立的方向组成：
//
//	client ──► device   (client->device)
//	client ◄── device   (device->client)
//
// 每个方向在自己的 goroutine 中循环：
//  1. 以有界等待读取源端点（默认 5s）
//  2. 读到 0 字节或等待超时不是错误，检查自己的停止标志后继续
//  3. 读写硬错误（含 EOF、连接关闭）终止本方向：
//     置位停止标志，关闭自己的读端，关闭宿端点
//  4. 读到 n 字节则完整写入宿端点，部分写入会重试直到写完
//
// 方向之间不直接通信。一个方向终止时关闭的宿端点正是对端方向的源端点，
// 对端的下一次读取失败后以相同方式终止。Pair.Run 在两个方向都返回后才返回。
package relay
