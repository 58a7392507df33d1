// Package main 提供 inetcat 命令行入口
//
// 把标准输入输出中继到设备上的 TCP 端口，类似 netcat：
//
//	inetcat 22 [UDID]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/internal/core/muxd"
	"github.com/dep2p/go-iproxy/internal/core/relay"
	"github.com/dep2p/go-iproxy/internal/core/resolver"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
	"github.com/dep2p/go-iproxy/pkg/types"
)

var logger = log.Logger("inetcat/cmd")

// connectTimeout 解析设备并打开通道的超时
const connectTimeout = 15 * time.Second

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// stdio 把一对读写端组合成中继端点
//
// Close 关闭读端以唤醒阻塞的读取（管道可以，终端不一定）。
type stdio struct {
	in  io.Reader
	out io.Writer
}

func (s stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s stdio) Close() error {
	if c, ok := s.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// run 执行命令并返回进程退出码
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	progName := "inetcat"
	if len(args) > 0 {
		progName = filepath.Base(args[0])
		args = args[1:]
	}

	fs := pflag.NewFlagSet(progName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.StringP("config", "c", "", "read configuration from `FILE`")
	fs.BoolP("network", "n", false, "also connect to network devices")
	fs.BoolP("local", "l", false, "connect to USB device (default)")
	fs.CountP("debug", "d", "increase debug level")

	if err := fs.Parse(args); err != nil || fs.NArg() < 1 {
		fmt.Fprintf(stdout, "usage: %s [OPTIONS] DEVICE_TCP_PORT [UDID]\n", progName)
		fmt.Fprint(stdout, fs.FlagUsages())
		return 1
	}

	port, err := strconv.ParseUint(fs.Arg(0), 10, 16)
	if err != nil || port == 0 {
		fmt.Fprintln(stderr, "Invalid device_port specified!")
		return -int(syscall.EINVAL)
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	if fs.NArg() > 1 {
		cfg.Device.UDID = fs.Arg(1)
	}
	cfg.Device.Port = uint16(port)
	log.Setup(cfg.Log.LogOptions())

	services, err := muxd.ProvideServices(muxd.ModuleInput{Config: cfg})
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	return relayStdio(cfg, services.Transport, stdio{in: stdin, out: stdout}, stderr)
}

// relayStdio 解析设备、打开通道并中继标准输入输出
func relayStdio(cfg config.Config, transport interfaces.DeviceTransport, std stdio, stderr io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	res := resolver.New(transport, cfg.Device.UDID, cfg.Device.Policy())
	dev, err := res.Resolve(ctx)
	if err != nil {
		if errors.Is(err, types.ErrDeviceEnumerationFailed) {
			fmt.Fprintln(stderr, "Connecting to usbmuxd failed, terminating.")
		} else {
			fmt.Fprintln(stderr, "No connected/matching device found, terminating.")
		}
		logger.Debug("解析设备失败", "err", err)
		return 1
	}

	conn, err := transport.Connect(ctx, dev, cfg.Device.Port)
	if err != nil {
		fmt.Fprintln(stderr, "Error connecting to device!")
		logger.Debug("打开设备通道失败", "udid", dev.UDID, "err", err)
		return 1
	}

	relayCfg := relay.ConfigFromUnified(cfg)
	pair := relay.NewPair(relayCfg,
		relay.NewEndpoint("stdio", std),
		relay.NewEndpoint("device", conn),
		nil,
	)

	done := make(chan relay.Result, 1)
	go func() { done <- pair.Run() }()

	// 终端上的阻塞读取无法被唤醒，第一个方向结束后最多再等一个周期
	var result relay.Result
	select {
	case result = <-done:
	case <-pair.Terminated():
		select {
		case result = <-done:
		case <-time.After(relayCfg.ReadTimeout):
			logger.Debug("标准输入未结束，直接退出")
			return 0
		}
	}

	if err := result.Err(); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	return 0
}
