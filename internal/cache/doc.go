// Package cache implements the cache-aside executor used by the data-access
// paths.
//
// Cached wraps any data-producing operation with read-through caching: a hit
// short-circuits the producer entirely, a miss (or forced refresh) runs the
// producer exactly once and stores the encoded result with a TTL. Failures
// are surfaced as *Error values carrying an error kind and an HTTP-style
// status code, with one deliberate exception: a store write that fails after
// a successful producer run is logged and the result is still returned.
package cache
