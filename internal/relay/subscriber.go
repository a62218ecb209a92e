package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Subscriber owns the pub/sub subscription and feeds the router.
type Subscriber struct {
	cfg    SubscriberConfig
	client *redis.Client
	logger *slog.Logger

	// Output channels
	messages chan RawMessage
	fatal    chan error

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu         sync.RWMutex
	subscribed bool
	dropped    int64
}

// NewSubscriber creates a Subscriber over an existing Redis client.
func NewSubscriber(cfg SubscriberConfig, client *redis.Client, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultSubscriberConfig().BufferSize
	}

	return &Subscriber{
		cfg:      cfg,
		client:   client,
		logger:   logger,
		messages: make(chan RawMessage, cfg.BufferSize),
		fatal:    make(chan error, 1),
	}
}

// Start begins the subscription loop.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("subscriber started",
		"channel", s.cfg.Channel,
		"buffer", s.cfg.BufferSize,
	)
	return nil
}

// Stop gracefully shuts down the subscription.
func (s *Subscriber) Stop(ctx context.Context) error {
	s.logger.Info("stopping subscriber")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("subscriber stopped")
	case <-ctx.Done():
		s.logger.Warn("subscriber stop timed out")
	}

	return nil
}

// Messages returns the channel of raw broker messages for the Router.
func (s *Subscriber) Messages() <-chan RawMessage {
	return s.messages
}

// Fatal delivers the terminal error once the reconnect policy is exhausted.
// After such an error the subscription is down for good; there is no further
// automatic recovery.
func (s *Subscriber) Fatal() <-chan error {
	return s.fatal
}

// IsSubscribed reports whether the subscription is currently live.
func (s *Subscriber) IsSubscribed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed
}

// run is the subscription loop: subscribe, receive until failure, retry with
// bounded backoff.
func (s *Subscriber) run() {
	defer s.wg.Done()

	wait := s.cfg.ReconnectBaseDelay
	attempts := 0
	var retryStart time.Time

	for {
		if s.ctx.Err() != nil {
			return
		}

		pubsub := s.client.Subscribe(s.ctx, s.cfg.Channel)

		// Wait for the subscription confirmation before trusting the stream.
		if _, err := pubsub.Receive(s.ctx); err != nil {
			pubsub.Close()
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Warn("subscribe failed", "channel", s.cfg.Channel, "error", err)
			if !s.backoff(&wait, &attempts, &retryStart, err) {
				return
			}
			continue
		}

		s.setSubscribed(true)
		s.logger.Info("subscribed to channel", "channel", s.cfg.Channel)

		// A live subscription resets the backoff state.
		wait = s.cfg.ReconnectBaseDelay
		attempts = 0
		retryStart = time.Time{}

		err := s.receiveLoop(pubsub)
		s.setSubscribed(false)
		pubsub.Close()

		if s.ctx.Err() != nil {
			return
		}

		s.logger.Warn("subscription lost", "channel", s.cfg.Channel, "error", err)
		if !s.backoff(&wait, &attempts, &retryStart, err) {
			return
		}
	}
}

// receiveLoop forwards messages until the subscription errors out.
func (s *Subscriber) receiveLoop(pubsub *redis.PubSub) error {
	for {
		msg, err := pubsub.ReceiveMessage(s.ctx)
		if err != nil {
			return err
		}

		raw := RawMessage{
			Channel:    msg.Channel,
			Data:       []byte(msg.Payload),
			ReceivedAt: time.Now(),
		}

		select {
		case s.messages <- raw:
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
			s.logger.Warn("message buffer full, dropping message", "channel", msg.Channel)
		}
	}
}

// backoff sleeps before the next attempt. Returns false when the retry bounds
// are exhausted, after surfacing the terminal error on the fatal channel.
func (s *Subscriber) backoff(wait *time.Duration, attempts *int, retryStart *time.Time, cause error) bool {
	if retryStart.IsZero() {
		*retryStart = time.Now()
	}
	*attempts++

	if *attempts > s.cfg.MaxAttempts || time.Since(*retryStart) > s.cfg.MaxRetryTime {
		err := fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, *attempts-1, cause)
		s.logger.Error("subscription down",
			"channel", s.cfg.Channel,
			"attempts", *attempts-1,
			"error", cause,
		)
		select {
		case s.fatal <- err:
		default:
		}
		return false
	}

	s.logger.Info("retrying subscription",
		"channel", s.cfg.Channel,
		"attempt", *attempts,
		"wait", *wait,
	)

	select {
	case <-s.ctx.Done():
		return false
	case <-time.After(*wait):
	}

	*wait *= 2
	if *wait > s.cfg.ReconnectMaxDelay {
		*wait = s.cfg.ReconnectMaxDelay
	}
	return true
}

func (s *Subscriber) setSubscribed(v bool) {
	s.mu.Lock()
	s.subscribed = v
	s.mu.Unlock()
}
