package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}

	if c.Broker.Channel == "" {
		return errors.New("broker.channel is required")
	}
	if c.Broker.BufferSize < 1 {
		return errors.New("broker.buffer_size must be >= 1")
	}
	if c.Broker.MaxAttempts < 1 {
		return errors.New("broker.max_attempts must be >= 1")
	}
	if c.Broker.ReconnectBaseDelay > c.Broker.ReconnectMaxDelay {
		return fmt.Errorf("broker.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Broker.ReconnectBaseDelay, c.Broker.ReconnectMaxDelay)
	}

	if c.Push.QueueSize < 1 {
		return errors.New("push.queue_size must be >= 1")
	}

	if c.Cache.DefaultTTL < 0 {
		return errors.New("cache.default_ttl must be >= 0")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
