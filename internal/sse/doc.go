// Package sse implements the server-sent-events push connection.
//
// Each connection owns a bounded outbound queue. Send never blocks: when the
// queue is full the payload is dropped and counted, so a slow client cannot
// stall the router. The serve loop drains the queue into the HTTP response as
// "data: <json>" frames and emits periodic comment frames to keep
// intermediaries from timing the stream out.
package sse
