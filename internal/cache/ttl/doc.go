// Package ttl implements the sharded, TTL-aware cache shared by every client
// connection.
//
// Keys are spread over independently locked shards so operations on unrelated
// keys never serialize against each other. Expiry is enforced twice: every read
// checks the entry deadline, and a background sweeper periodically removes
// entries that were set and never read again.
//
// Values handed to Insert are owned by the cache afterwards and must not be
// modified by the caller. Values returned by Get share that storage and are
// read-only. Because stored entries are replaced, never mutated, a View holds
// no lock and may be kept across further cache calls.
package ttl
