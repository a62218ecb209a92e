package relay

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/rickgao/notify-relay/internal/model"
)

func newTestSubscriber(t *testing.T, cfg SubscriberConfig) (*miniredis.Miniredis, *Subscriber) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewSubscriber(cfg, client, slog.Default())
}

func waitSubscribed(t *testing.T, s *Subscriber) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !s.IsSubscribed() {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never reached subscribed state")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscriber_ReceivesPublishedMessages(t *testing.T) {
	cfg := DefaultSubscriberConfig()
	cfg.Channel = "notifications_channel"
	mr, sub := newTestSubscriber(t, cfg)

	ctx := context.Background()
	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		sub.Stop(stopCtx)
	}()

	waitSubscribed(t, sub)

	body := `{"userId":"42","data":{"msg":"hi"}}`
	if n := mr.Publish("notifications_channel", body); n != 1 {
		t.Fatalf("Publish reached %d subscribers, want 1", n)
	}

	select {
	case raw := <-sub.Messages():
		if raw.Channel != "notifications_channel" {
			t.Errorf("Channel = %q, want notifications_channel", raw.Channel)
		}
		if string(raw.Data) != body {
			t.Errorf("Data = %s, want %s", raw.Data, body)
		}
		if raw.ReceivedAt.IsZero() {
			t.Error("ReceivedAt is zero")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSubscriber_FatalAfterRetriesExhausted(t *testing.T) {
	cfg := DefaultSubscriberConfig()
	cfg.ReconnectBaseDelay = time.Millisecond
	cfg.ReconnectMaxDelay = 5 * time.Millisecond
	cfg.MaxAttempts = 2

	mr, sub := newTestSubscriber(t, cfg)
	mr.Close() // every subscribe attempt now fails

	ctx := context.Background()
	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		sub.Stop(stopCtx)
	}()

	select {
	case err := <-sub.Fatal():
		if !errors.Is(err, ErrRetriesExhausted) {
			t.Errorf("Fatal() error = %v, want ErrRetriesExhausted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no fatal error after retry bounds exhausted")
	}

	if sub.IsSubscribed() {
		t.Error("IsSubscribed() = true after fatal")
	}
}

func TestSubscriber_StopWhileSubscribed(t *testing.T) {
	_, sub := newTestSubscriber(t, DefaultSubscriberConfig())

	ctx := context.Background()
	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitSubscribed(t, sub)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sub.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestPublisher_RoundTrip(t *testing.T) {
	cfg := DefaultSubscriberConfig()
	mr, sub := newTestSubscriber(t, cfg)

	pubClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer pubClient.Close()
	pub := NewPublisher(pubClient, cfg.Channel, slog.Default())

	ctx := context.Background()
	if err := sub.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		sub.Stop(stopCtx)
	}()

	waitSubscribed(t, sub)

	event := model.NotificationEvent{
		UserID: "7",
		Data:   []byte(`{"message":"key updated"}`),
	}
	if err := pub.Publish(ctx, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case raw := <-sub.Messages():
		want := `{"userId":"7","data":{"message":"key updated"}}`
		if string(raw.Data) != want {
			t.Errorf("Data = %s, want %s", raw.Data, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("published event never arrived")
	}
}
