package config

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-iproxy/pkg/lib/log"
	"github.com/dep2p/go-iproxy/pkg/types"
)

// Validate 验证配置的有效性
func (c Config) Validate() error {
	if err := c.Listen.Validate(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("device: %w", err)
	}
	if err := c.Relay.Validate(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Validate 验证监听配置
func (c ListenConfig) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("%w: local port must be in 1..65535", types.ErrInvalidPort)
	}
	return nil
}

// Validate 验证设备配置
func (c DeviceConfig) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("%w: device port must be in 1..65535", types.ErrInvalidPort)
	}
	return nil
}

// Validate 验证中继配置
func (c RelayConfig) Validate() error {
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	if _, err := log.ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", string(log.FormatText), string(log.FormatJSON):
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	if c.Debug < 0 {
		return errors.New("debug level cannot be negative")
	}
	return nil
}

// LogOptions 返回日志初始化选项
//
// Debug > 0 时强制使用 debug 级别。
func (c LogConfig) LogOptions() log.Options {
	level, _ := log.ParseLevel(c.Level)
	if c.Debug > 0 {
		level = log.LevelDebug
	}
	return log.Options{
		Level:     level,
		Format:    log.Format(c.Format),
		AddSource: c.Debug > 1,
	}
}
