// Package relay owns the broker side of the notification pipeline.
//
// The Subscriber holds the pub/sub subscription to the notifications channel
// and forwards raw message bodies into a bounded channel for the router. A
// lost subscription is retried with exponential backoff bounded by both an
// attempt count and a total retry time; exhausting either bound is fatal for
// the subscription and is surfaced on Fatal() rather than self-healed.
//
// The Publisher is the write side: it publishes NotificationEvent JSON to the
// same channel.
package relay
