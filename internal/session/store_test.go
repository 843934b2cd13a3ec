package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable clock for expiry tests
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewStore(ttl, clock.Now), clock
}

func testSession(id string) *UploadSession {
	return &UploadSession{
		ID:       id,
		Filename: "stores.csv",
		Headers:  []string{"name", "address"},
		Rows:     [][]string{{"Acme", "1 Main St"}},
	}
}

func TestPutAndGet(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	store.Put(testSession("s1"))

	got, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "stores.csv", got.Filename)
	assert.False(t, got.CreatedAt.IsZero())

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestGetExpiredSession(t *testing.T) {
	store, clock := newTestStore(time.Hour)
	store.Put(testSession("s1"))

	clock.Advance(time.Hour + time.Minute)

	_, ok := store.Get("s1")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(time.Hour)
	store.Put(testSession("s1"))
	store.Delete("s1")

	_, ok := store.Get("s1")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestEvictExpired(t *testing.T) {
	store, clock := newTestStore(time.Hour)
	store.Put(testSession("old"))

	clock.Advance(30 * time.Minute)
	store.Put(testSession("fresh"))

	clock.Advance(45 * time.Minute) // "old" is 75m old, "fresh" 45m

	assert.Equal(t, 1, store.EvictExpired())
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get("fresh")
	assert.True(t, ok)
}

func TestEvictSkipsSessionsInUse(t *testing.T) {
	store, clock := newTestStore(time.Hour)
	store.Put(testSession("s1"))

	_, ok := store.Acquire("s1")
	require.True(t, ok)

	clock.Advance(2 * time.Hour)

	// An active ingest keeps the session alive past its TTL
	assert.Zero(t, store.EvictExpired())
	assert.Equal(t, 1, store.Len())

	store.Release("s1")
	assert.Equal(t, 1, store.EvictExpired())
	assert.Zero(t, store.Len())
}

func TestAcquireExpiredSessionFails(t *testing.T) {
	store, clock := newTestStore(time.Hour)
	store.Put(testSession("s1"))

	clock.Advance(2 * time.Hour)

	_, ok := store.Acquire("s1")
	assert.False(t, ok)
}

func TestAcquireMissingSessionFails(t *testing.T) {
	store, _ := newTestStore(time.Hour)

	_, ok := store.Acquire("nope")
	assert.False(t, ok)
}

func TestZeroTTLDefaults(t *testing.T) {
	store := NewStore(0, nil)
	store.Put(testSession("s1"))

	_, ok := store.Get("s1")
	assert.True(t, ok)
}
