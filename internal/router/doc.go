// Package router implements the Notification Router.
//
// The router consumes raw broker messages from the subscriber channel and
// delivers each one to the matching live connection (targeted) or to every
// locally registered connection (broadcast). Malformed messages are logged
// and discarded; they never propagate. A targeted message whose client is
// connected to a different relay instance is dropped here on purpose: the
// channel has topic-broadcast semantics, and adding retries or durability at
// this layer would require a durable queue.
package router
