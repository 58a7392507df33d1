package relay

import (
	"time"

	"github.com/dep2p/go-iproxy/config"
)

// Config 中继配置
type Config struct {
	// ReadTimeout 有界等待读取的间隔
	ReadTimeout time.Duration

	// BufferSize 每个方向的读缓冲区大小
	BufferSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ReadTimeout: config.DefaultReadTimeout,
		BufferSize:  config.DefaultBufferSize,
	}
}

// ConfigFromUnified 从统一配置创建中继配置
func ConfigFromUnified(cfg config.Config) Config {
	return Config{
		ReadTimeout: cfg.Relay.ReadTimeout.Duration(),
		BufferSize:  cfg.Relay.BufferSize,
	}.withDefaults()
}

// withDefaults 用默认值填充零值字段
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}
