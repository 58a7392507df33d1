// Package iproxy 把设备上的 TCP 服务暴露为本地 TCP 端口
//
// 设备本身没有可路由的 IP 地址，只能经由设备多路复用服务（usbmuxd）访问。
// 用户连接本地端口后，iproxy 选择一个已连接的设备，打开到设备指定端口的通道，
// 并在两端之间双向中继字节，直到任意一端关闭。
//
// # 组件
//
//	Listener ──► Session ──► Resolver（一次）──► 打开设备通道 ──► Relay Pair ──► 关闭
//
//   - Listener: 绑定本地端口，每个连接启动一个会话，从不等待会话结束
//   - Resolver: 按 UDID 和查找策略选择恰好一个设备
//   - Session: 一个连接的完整生命周期
//   - Relay Pair: 两个独立的单向字节泵，通过关闭端点协同退出
//
// # 快速开始
//
//	cfg := config.NewConfig()
//	cfg.Listen.Port = 2222
//	cfg.Device.Port = 22
//
//	proxy, err := iproxy.Start(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer proxy.Stop(context.Background())
//
//	sig := <-proxy.Done()
//	os.Exit(sig.ExitCode)
package iproxy
