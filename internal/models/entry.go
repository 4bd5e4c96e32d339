package models

import (
	"time"
)

// Entry represents a cache entry. An entry is never mutated after it is
// stored; a SET replaces it wholesale.
type Entry struct {
	Value []byte
	Flag  uint32
	// ExpiresAt is the zero time for entries that never expire.
	ExpiresAt time.Time
}

// NewEntry creates a new Entry.
func NewEntry(value []byte, flag uint32, expiresAt time.Time) *Entry {
	return &Entry{
		Value:     value,
		Flag:      flag,
		ExpiresAt: expiresAt,
	}
}

// IsExpired checks if the entry has expired at now. An entry is still live at
// exactly its expiration instant.
func (e *Entry) IsExpired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && e.ExpiresAt.Before(now)
}

// ExpirationFor returns the absolute expiration for a ttl measured from now;
// a non-positive ttl never expires.
func ExpirationFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
