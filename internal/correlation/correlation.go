// Package correlation maps a (sender, timestamp) fingerprint of a group
// message to the message id Telegram assigned to it, so a forwarded copy
// (which carries only the origin sender and date) can be traced back to
// the exact message in the group.
package correlation

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the fingerprint of one observed message. Equality is exact on
// both fields; no time-window fuzzing.
type Key struct {
	SenderID  int64
	Timestamp int64
}

// String renders the physical cache key. The layout is shared by every
// backend and is part of the on-disk format of the pebble backend, so it
// must not change without a migration.
func (k Key) String() string {
	return strconv.FormatInt(k.Timestamp, 10) + "/" + strconv.FormatInt(k.SenderID, 10)
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, error) {
	ts, sender, ok := strings.Cut(s, "/")
	if !ok {
		return Key{}, fmt.Errorf("correlation: malformed key %q", s)
	}
	t, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("correlation: malformed key %q: %w", s, err)
	}
	u, err := strconv.ParseInt(sender, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("correlation: malformed key %q: %w", s, err)
	}
	return Key{SenderID: u, Timestamp: t}, nil
}

// Cache stores the fingerprint -> message id mapping. Put is an
// unconditional upsert (last write wins). Get reports absence with
// ok=false; absence is a normal outcome, not an error. Errors surface
// only from the durable backend.
type Cache interface {
	Put(key Key, messageID int64) error
	Get(key Key) (messageID int64, ok bool, err error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
)

// Options selects and parameterizes a backend.
type Options struct {
	Backend  string
	Capacity int    // memory backend
	Path     string // pebble backend
}

// Open builds the backend named in opts.
func Open(opts Options) (Cache, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendMemory:
		return NewMemory(opts.Capacity)
	case BackendPebble:
		return OpenPebble(opts.Path)
	default:
		return nil, fmt.Errorf("correlation: unknown cache backend %q", opts.Backend)
	}
}
