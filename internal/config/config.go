package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Database DBConfig       `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Broker   BrokerConfig   `yaml:"broker"`
	Push     PushConfig     `yaml:"push"`
	Cache    CacheConfig    `yaml:"cache"`
}

// InstanceConfig identifies this relay.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DBConfig holds the Postgres connection for the notifications store.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// RedisConfig holds the Redis connection shared by the broker clients and
// the cache store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// BrokerConfig holds pub/sub subscription settings.
type BrokerConfig struct {
	Channel            string        `yaml:"channel"`
	BufferSize         int           `yaml:"buffer_size"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	MaxAttempts        int           `yaml:"max_attempts"`
	MaxRetryTime       time.Duration `yaml:"max_retry_time"`
}

// PushConfig holds per-connection push settings.
type PushConfig struct {
	QueueSize         int           `yaml:"queue_size"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// CacheConfig holds cache-aside settings.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
}
