// Package server wires the HTTP surface of the relay: the SSE push endpoint,
// the cached read/write routes, and the health endpoint.
package server
