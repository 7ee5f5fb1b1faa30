package correlation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// Pebble is the durable backend: an on-disk key-value store that survives
// restarts. Keys are the textual Key layout, values an 8-byte big-endian
// message id.
//
// Known limitation: nothing evicts old entries, so the store grows without
// bound over the lifetime of the group. Operators who care should rotate
// the cache directory; an in-store retention policy needs a decision from
// them first.
type Pebble struct {
	db *pebble.DB
}

func OpenPebble(path string) (*Pebble, error) {
	if path == "" {
		return nil, fmt.Errorf("correlation: pebble backend requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("correlation: prepare cache dir: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("correlation: open pebble at %s: %w", path, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Put(key Key, messageID int64) error {
	var value [8]byte
	binary.BigEndian.PutUint64(value[:], uint64(messageID))
	if err := p.db.Set([]byte(key.String()), value[:], pebble.Sync); err != nil {
		return fmt.Errorf("correlation: pebble set %s: %w", key, err)
	}
	return nil
}

func (p *Pebble) Get(key Key) (int64, bool, error) {
	raw, closer, err := p.db.Get([]byte(key.String()))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("correlation: pebble get %s: %w", key, err)
	}
	defer closer.Close()
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("correlation: pebble value for %s has %d bytes, want 8", key, len(raw))
	}
	return int64(binary.BigEndian.Uint64(raw)), true, nil
}

func (p *Pebble) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
