package correlation

import (
	"testing"
)

func TestKeyStringLayout(t *testing.T) {
	cases := []struct {
		key  Key
		want string
	}{
		{key: Key{SenderID: 42, Timestamp: 1600000000}, want: "1600000000/42"},
		{key: Key{SenderID: -100123, Timestamp: 0}, want: "0/-100123"},
	}
	for _, tc := range cases {
		if got := tc.key.String(); got != tc.want {
			t.Fatalf("Key%+v.String() = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	key := Key{SenderID: 12345, Timestamp: 1600000000}
	got, err := ParseKey(key.String())
	if err != nil {
		t.Fatalf("ParseKey() error = %v", err)
	}
	if got != key {
		t.Fatalf("ParseKey() = %+v, want %+v", got, key)
	}
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "123", "abc/def", "123/", "/123"} {
		if _, err := ParseKey(s); err == nil {
			t.Fatalf("ParseKey(%q) = nil error, want failure", s)
		}
	}
}

func TestMemoryLastWriteWins(t *testing.T) {
	cache, err := NewMemory(16)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	key := Key{SenderID: 1, Timestamp: 100}
	if err := cache.Put(key, 10); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := cache.Put(key, 20); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	id, ok, err := cache.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get() = (%d, %v, %v), want hit", id, ok, err)
	}
	if id != 20 {
		t.Fatalf("Get() = %d, want last written value 20", id)
	}
	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 live entry per key", cache.Len())
	}
}

func TestMemoryMissingKeyIsAbsentNotError(t *testing.T) {
	cache, err := NewMemory(16)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	id, ok, err := cache.Get(Key{SenderID: 7, Timestamp: 7})
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if ok || id != 0 {
		t.Fatalf("Get() = (%d, %v), want absent", id, ok)
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewMemory(2)
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	a := Key{SenderID: 1, Timestamp: 1}
	b := Key{SenderID: 2, Timestamp: 2}
	c := Key{SenderID: 3, Timestamp: 3}

	_ = cache.Put(a, 1)
	_ = cache.Put(b, 2)
	// Touch a so b becomes the eviction candidate.
	if _, ok, _ := cache.Get(a); !ok {
		t.Fatal("Get(a) missed before capacity pressure")
	}
	_ = cache.Put(c, 3)

	if _, ok, _ := cache.Get(b); ok {
		t.Fatal("Get(b) hit, want b evicted as least recently used")
	}
	if _, ok, _ := cache.Get(a); !ok {
		t.Fatal("Get(a) missed, want a retained by recency refresh")
	}
	if _, ok, _ := cache.Get(c); !ok {
		t.Fatal("Get(c) missed, want newest entry retained")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "redis"}); err == nil {
		t.Fatal("Open(redis) = nil error, want failure")
	}
}
