package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/dep2p/go-iproxy/config"
)

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
// 与 config.FlagBindings 中的参数名保持一致，Load 只取显式设置过的参数。
//
// ═══════════════════════════════════════════════════════════════════════════

// errHelp 请求打印帮助
var errHelp = errors.New("help requested")

// usageError 参数错误，打印 msg（可为空）和用法后以 2 退出
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	if e.msg == "" {
		return "usage error"
	}
	return e.msg
}

// portError 端口参数无效
type portError struct {
	msg string
}

func (e *portError) Error() string { return e.msg }

// cli 解析后的命令行
type cli struct {
	fs *pflag.FlagSet

	configPath string
	help       bool

	localPort  uint16
	devicePort uint16
}

// newFlagSet 创建参数集
func newFlagSet(progName string, c *cli) *pflag.FlagSet {
	fs := pflag.NewFlagSet(progName, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringP("udid", "u", "", "target specific device by its `UDID`")
	fs.BoolP("network", "n", false, "connect to network device")
	fs.BoolP("local", "l", false, "connect to USB device (default)")
	fs.StringP("source", "s", config.DefaultListenAddress, "source `ADDR` for listening socket")
	fs.StringVarP(&c.configPath, "config", "c", "", "read configuration from `FILE`")
	fs.String("metrics", "", "serve prometheus metrics on `ADDR`")
	fs.BoolVarP(&c.help, "help", "h", false, "prints usage information")
	fs.CountP("debug", "d", "increase debug level")
	return fs
}

// parseArgs 解析参数（不含程序名）
//
// 返回 errHelp、*usageError 或 *portError。
func parseArgs(progName string, args []string) (*cli, error) {
	c := &cli{}
	c.fs = newFlagSet(progName, c)

	if err := c.fs.Parse(args); err != nil {
		return c, &usageError{msg: err.Error()}
	}
	if c.help {
		return c, errHelp
	}

	// 显式传入的空值视为错误
	if c.fs.Changed("udid") {
		if v, _ := c.fs.GetString("udid"); v == "" {
			return c, &usageError{msg: "UDID must not be empty!"}
		}
	}
	if c.fs.Changed("source") {
		if v, _ := c.fs.GetString("source"); v == "" {
			return c, &usageError{msg: "source address must not be empty!"}
		}
	}

	if c.fs.NArg() < 2 {
		return c, &usageError{}
	}

	var err error
	if c.localPort, err = parsePort(c.fs.Arg(0)); err != nil {
		return c, &portError{msg: "Invalid listen port specified!"}
	}
	if c.devicePort, err = parsePort(c.fs.Arg(1)); err != nil {
		return c, &portError{msg: "Invalid device port specified!"}
	}
	return c, nil
}

// parsePort 解析十进制端口（1-65535）
func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("port must not be zero")
	}
	return uint16(n), nil
}

// printUsage 打印用法
func printUsage(w io.Writer, progName string, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [OPTIONS] LOCAL_PORT DEVICE_PORT\n", progName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Proxy that enables TCP service access to iOS devices.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Environment variables with prefix %s_ override the config file, e.g. %s_DEVICE_UDID.\n",
		config.EnvPrefix, config.EnvPrefix)
}
