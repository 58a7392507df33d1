package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
//
// 例如 IPROXY_DEVICE_UDID、IPROXY_RELAY_READ_TIMEOUT。
const EnvPrefix = "IPROXY"

// FlagBindings 配置键到命令行参数名的映射
//
// 只有显式设置过的参数才会覆盖环境变量和配置文件。
var FlagBindings = map[string]string{
	"listen.address": "source",
	"device.udid":    "udid",
	"device.local":   "local",
	"device.network": "network",
	"log.debug":      "debug",
	"metrics.addr":   "metrics",
}

// Load 加载配置
//
// 配置优先级（从高到低）：
//  1. 命令行参数（fs 中已设置的参数）
//  2. 环境变量（IPROXY_* 前缀）
//  3. 配置文件（path 非空时）
//  4. NewConfig() 默认值
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 先写入默认值，使仅环境变量的配置也能生效
	setDefaults(v, NewConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if fs != nil {
		for key, name := range FlagBindings {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// setDefaults 把默认配置写入 viper
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("listen.address", d.Listen.Address)
	v.SetDefault("listen.port", d.Listen.Port)
	v.SetDefault("device.udid", d.Device.UDID)
	v.SetDefault("device.port", d.Device.Port)
	v.SetDefault("device.local", d.Device.Local)
	v.SetDefault("device.network", d.Device.Network)
	v.SetDefault("relay.read_timeout", d.Relay.ReadTimeout.String())
	v.SetDefault("relay.buffer_size", d.Relay.BufferSize)
	v.SetDefault("muxd.socket_address", d.Muxd.SocketAddress)
	v.SetDefault("muxd.dial_timeout", d.Muxd.DialTimeout.String())
	v.SetDefault("muxd.prog_name", d.Muxd.ProgName)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}
