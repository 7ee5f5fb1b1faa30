package correlation

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity matches the sizing of the original in-memory cache:
// roughly a million entries, enough for days of traffic in a busy group.
const DefaultCapacity = 1024 * 1024

// Memory is the bounded volatile backend. Entries beyond capacity are
// evicted least-recently-used first; both Put and Get refresh recency.
type Memory struct {
	entries *lru.Cache[string, int64]
}

func NewMemory(capacity int) (*Memory, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, int64](capacity)
	if err != nil {
		return nil, fmt.Errorf("correlation: new lru: %w", err)
	}
	return &Memory{entries: entries}, nil
}

func (m *Memory) Put(key Key, messageID int64) error {
	m.entries.Add(key.String(), messageID)
	return nil
}

func (m *Memory) Get(key Key) (int64, bool, error) {
	id, ok := m.entries.Get(key.String())
	return id, ok, nil
}

func (m *Memory) Close() error {
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.entries.Len()
}
