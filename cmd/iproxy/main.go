// Package main 提供 iproxy 命令行入口
//
// 把本地 TCP 端口转发到 iOS 设备上的 TCP 端口：
//
//	iproxy 2222 22
//	iproxy -u <UDID> -n 8100 8100
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	iproxy "github.com/dep2p/go-iproxy"
	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
	"github.com/dep2p/go-iproxy/pkg/types"
)

var logger = log.Logger("iproxy/cmd")

const (
	// exitUsage 参数错误
	exitUsage = 2

	// startTimeout 启动超时
	startTimeout = 15 * time.Second

	// stopTimeout 停止超时
	stopTimeout = 5 * time.Second
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run 执行命令并返回进程退出码
//
// 退出码：
//   - 0: -h 或收到退出信号
//   - 2: 参数错误
//   - -EINVAL: 端口无效
//   - -errno: 绑定监听端口失败
//   - 1: 其他启动失败或接受连接失败
func run(args []string, stdout, stderr io.Writer) int {
	progName := "iproxy"
	if len(args) > 0 {
		progName = filepath.Base(args[0])
		args = args[1:]
	}

	c, err := parseArgs(progName, args)
	if code, done := handleParseError(err, progName, c, stdout, stderr); done {
		return code
	}

	cfg, err := config.Load(c.configPath, c.fs)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	cfg.Listen.Port = c.localPort
	cfg.Device.Port = c.devicePort

	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	defer closeLog()

	fmt.Fprintf(stdout, "Creating listening port %d for device port %d\n", c.localPort, c.devicePort)

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	p, err := iproxy.Start(ctx, cfg)
	cancel()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return startFailureCode(err)
	}

	fmt.Fprintf(stdout, "waiting for connection on %s\n", p.Addr())

	sig := <-p.Done()
	logger.Info("收到退出信号", "signal", sig.Signal, "exitCode", sig.ExitCode)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		logger.Warn("停止代理失败", "err", err)
	}
	return sig.ExitCode
}

// handleParseError 处理参数解析结果，done 为 true 时应立即退出
func handleParseError(err error, progName string, c *cli, stdout, stderr io.Writer) (code int, done bool) {
	if err == nil {
		return 0, false
	}

	var (
		ue *usageError
		pe *portError
	)
	switch {
	case errors.Is(err, errHelp):
		printUsage(stdout, progName, c.fs)
		return 0, true
	case errors.As(err, &ue):
		if ue.msg != "" {
			fmt.Fprintf(stderr, "ERROR: %s\n", ue.msg)
		}
		printUsage(stderr, progName, c.fs)
		return exitUsage, true
	case errors.As(err, &pe):
		fmt.Fprintln(stderr, pe.msg)
		return -int(syscall.EINVAL), true
	default:
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1, true
	}
}

// startFailureCode 启动失败的退出码
//
// 绑定失败时返回 -errno，其余为 1。
func startFailureCode(err error) int {
	var be *types.BindError
	if !errors.As(err, &be) {
		return 1
	}
	var errno syscall.Errno
	if errors.As(be.Err, &errno) {
		return -int(errno)
	}
	return -1
}

// setupLogging 初始化日志，返回关闭日志文件的函数
func setupLogging(cfg config.LogConfig) (func(), error) {
	opts := cfg.LogOptions()
	if cfg.File == "" {
		log.Setup(opts)
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	opts.Output = f
	log.Setup(opts)
	return func() { _ = f.Close() }, nil
}
