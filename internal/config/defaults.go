package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerPort         = 5050
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultRedisAddr          = "localhost:6379"
	DefaultChannel            = "notifications_channel"
	DefaultBrokerBufferSize   = 1000
	DefaultReconnectBaseDelay = 100 * time.Millisecond
	DefaultReconnectMaxDelay  = 3 * time.Second
	DefaultMaxAttempts        = 10
	DefaultMaxRetryTime       = time.Hour
	DefaultQueueSize          = 64
	DefaultHeartbeatInterval  = 30 * time.Second
	DefaultCacheTTL           = time.Hour
)

func (c *RelayConfig) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Redis defaults
	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}

	// Broker defaults
	if c.Broker.Channel == "" {
		c.Broker.Channel = DefaultChannel
	}
	if c.Broker.BufferSize == 0 {
		c.Broker.BufferSize = DefaultBrokerBufferSize
	}
	if c.Broker.ReconnectBaseDelay == 0 {
		c.Broker.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Broker.ReconnectMaxDelay == 0 {
		c.Broker.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Broker.MaxAttempts == 0 {
		c.Broker.MaxAttempts = DefaultMaxAttempts
	}
	if c.Broker.MaxRetryTime == 0 {
		c.Broker.MaxRetryTime = DefaultMaxRetryTime
	}

	// Push defaults
	if c.Push.QueueSize == 0 {
		c.Push.QueueSize = DefaultQueueSize
	}
	if c.Push.HeartbeatInterval == 0 {
		c.Push.HeartbeatInterval = DefaultHeartbeatInterval
	}

	// Cache defaults
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = DefaultCacheTTL
	}
}
