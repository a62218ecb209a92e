// Package registry implements the Connection Registry.
//
// The registry:
//   - Maps a client identity to at most one live push connection
//   - Replaces (and closes) the prior connection when an identity reconnects
//   - Broadcasts payloads to every registered connection with per-connection
//     failure isolation
//
// All operations are synchronous and guarded by a single mutex; nothing in
// this package suspends mid-mutation.
package registry
