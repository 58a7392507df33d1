// Package main 提供 usbmuxinfo 命令行入口
//
// 列出 usbmuxd 上的设备；--scan 时探测设备上开放的 TCP 端口：
//
//	usbmuxinfo
//	usbmuxinfo --scan [UDID]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dep2p/go-iproxy/config"
	"github.com/dep2p/go-iproxy/internal/core/muxd"
	"github.com/dep2p/go-iproxy/pkg/interfaces"
	"github.com/dep2p/go-iproxy/pkg/lib/log"
	"github.com/dep2p/go-iproxy/pkg/types"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run 执行命令并返回进程退出码
func run(args []string, stdout, stderr io.Writer) int {
	progName := "usbmuxinfo"
	if len(args) > 0 {
		progName = filepath.Base(args[0])
		args = args[1:]
	}

	fs := pflag.NewFlagSet(progName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.StringP("config", "c", "", "read configuration from `FILE`")
	scan := fs.Bool("scan", false, "probe device ports 1-65535")
	workers := fs.Int("workers", defaultScanWorkers, "concurrent probes when scanning")
	fs.CountP("debug", "d", "increase debug level")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		fmt.Fprintf(stderr, "Usage: %s [OPTIONS] [--scan [UDID]]\n", progName)
		fmt.Fprint(stderr, fs.FlagUsages())
		return 2
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	log.Setup(cfg.Log.LogOptions())

	services, err := muxd.ProvideServices(muxd.ModuleInput{Config: cfg})
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !*scan {
		return listDevices(ctx, services.Transport, stdout, stderr)
	}
	return scanDevices(ctx, services.Transport, fs.Arg(0), *workers, stdout, stderr)
}

// listDevices 打印所有设备
func listDevices(ctx context.Context, t interfaces.DeviceTransport, stdout, stderr io.Writer) int {
	devices, err := t.Devices(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, dev := range devices {
		printDevice(stdout, dev)
	}
	return 0
}

// printDevice 打印单个设备
func printDevice(w io.Writer, dev types.Device) {
	fmt.Fprintf(w, "Handle = %d\n", dev.Handle)
	fmt.Fprintf(w, "Product Id = %d\n", dev.ProductID)
	fmt.Fprintf(w, "UDID = %s\n", dev.UDID)
	fmt.Fprintf(w, "Connection = %s\n", dev.ConnType())
	fmt.Fprintf(w, "Location = %s\n", muxd.FormatLocation(dev))
}

// scanDevices 扫描指定设备或所有设备
func scanDevices(ctx context.Context, t interfaces.DeviceTransport, udid string, workers int, stdout, stderr io.Writer) int {
	var devices []types.Device
	if udid != "" {
		dev, err := t.LookupDevice(ctx, udid, types.LookupUSB|types.LookupNetwork)
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
		devices = append(devices, dev)
	} else {
		var err error
		if devices, err = t.Devices(ctx); err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
	}

	for _, dev := range devices {
		printDevice(stdout, dev)
		open, err := scanPorts(ctx, t, dev, 1, 65535, workers)
		for _, port := range open {
			fmt.Fprintf(stdout, "Found open port at %d\n", port)
		}
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
	}
	return 0
}
