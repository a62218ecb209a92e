package relay

import (
	"errors"
	"time"
)

// Errors
var (
	ErrRetriesExhausted = errors.New("broker retries exhausted")
)

// RawMessage is a message from the Subscriber to the Router.
type RawMessage struct {
	Channel    string    // Channel the message arrived on
	Data       []byte    // Raw message body as published
	ReceivedAt time.Time // Local timestamp when the message was received
}

// SubscriberConfig holds broker subscription settings.
type SubscriberConfig struct {
	// Channel is the pub/sub channel to subscribe to.
	Channel string

	// BufferSize bounds the forward channel to the router. Default: 1000
	BufferSize int

	// ReconnectBaseDelay is the first retry delay; it doubles per failed
	// attempt up to ReconnectMaxDelay.
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration

	// MaxAttempts and MaxRetryTime bound one reconnect sequence. Exhausting
	// either is fatal for the subscription.
	MaxAttempts  int
	MaxRetryTime time.Duration
}

// DefaultSubscriberConfig returns default configuration.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		Channel:            "notifications_channel",
		BufferSize:         1000,
		ReconnectBaseDelay: 100 * time.Millisecond,
		ReconnectMaxDelay:  3 * time.Second,
		MaxAttempts:        10,
		MaxRetryTime:       time.Hour,
	}
}
