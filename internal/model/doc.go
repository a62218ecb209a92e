// Package model defines shared data types used across the notification relay.
//
// Conventions:
//   - NotificationEvent is the broker wire format; field names (userId, data)
//     are fixed by the publishing side and must not change.
//   - NotificationRecord mirrors the notifications table; the relay never
//     deletes rows, it only flips is_sent.
package model
