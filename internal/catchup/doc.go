// Package catchup replays undelivered notification records to a freshly
// connected client.
//
// Catch-up runs once per successful registration. Everything here is best
// effort: a fetch failure means nothing to deliver, a send failure skips to
// the next record, and a mark-delivered failure leaves the session open.
// Nothing in this package can take a connection down.
package catchup
