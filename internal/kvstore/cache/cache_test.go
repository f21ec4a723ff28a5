package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westial/minstore/internal/kvstore"
)

func rec(uid string, checkSum int64, size int) kvstore.Record {
	return kvstore.Record{UID: uid, Value: "v-" + uid, CheckSum: checkSum, Size: size}
}

func TestDisabledCacheIsNoOp(t *testing.T) {
	c := NewMemoryCache(Disabled)
	assert.False(t, c.IsEnabled())
	assert.False(t, c.Put(rec("a", 1, 10)))

	_, err := c.Get("a")
	assert.ErrorIs(t, err, kvstore.ErrRecordMissing)
}

func TestUnlimitedCacheNeverEvicts(t *testing.T) {
	c := NewMemoryCache(Unlimited)
	for i := 0; i < 100; i++ {
		uid := fmt.Sprintf("uid-%d", i)
		assert.True(t, c.Put(rec(uid, int64(i), 1000)))
	}
}

func TestRecordLargerThanLimitRefused(t *testing.T) {
	c := NewMemoryCache(10)
	assert.False(t, c.Put(rec("a", 1, 11)))

	_, err := c.Get("a")
	assert.ErrorIs(t, err, kvstore.ErrRecordMissing)
}

func TestDuplicatePutRefused(t *testing.T) {
	c := NewMemoryCache(100)
	require.True(t, c.Put(rec("a", 1, 5)))
	assert.False(t, c.Put(rec("a", 1, 5)), "equal check_sum must be refused as a duplicate")
}

func TestUpdatingSameUIDWithNewChecksumReplacesValue(t *testing.T) {
	c := NewMemoryCache(100)
	require.True(t, c.Put(rec("a", 1, 5)))
	require.True(t, c.Put(rec("a", 2, 5)))

	got, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CheckSum)
}

// TestUpdateDoesNotRefreshFIFOPosition guards the "insertion order, not LRU"
// contract: updating an older entry must not move it to the back, so a
// later eviction still takes the entry that was inserted first.
func TestUpdateDoesNotRefreshFIFOPosition(t *testing.T) {
	const recordSize = 10
	c := NewMemoryCache(2 * recordSize)

	require.True(t, c.Put(rec("a", 1, recordSize)))
	require.True(t, c.Put(rec("b", 1, recordSize)))

	// Update "a", the oldest entry. Its position must stay at the front.
	require.True(t, c.Put(rec("a", 2, recordSize)))

	// Forcing an eviction must take "a", not "b", even though "a" was the
	// one most recently written.
	require.True(t, c.Put(rec("c", 1, recordSize)))

	_, err := c.Get("a")
	assert.ErrorIs(t, err, kvstore.ErrRecordMissing, "oldest entry must still be evicted first despite the update")

	got, err := c.Get("b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CheckSum)

	_, err = c.Get("c")
	assert.NoError(t, err)
}

func TestEvictionIsFIFOBySize(t *testing.T) {
	// size_limit = 4 * record_size, 5 distinct records inserted in order 1..5.
	const recordSize = 10
	c := NewMemoryCache(4 * recordSize)

	for i := 1; i <= 5; i++ {
		uid := string(rune('0' + i))
		require.True(t, c.Put(rec(uid, int64(i), recordSize)))
	}

	_, err := c.Get("1")
	assert.ErrorIs(t, err, kvstore.ErrRecordMissing, "oldest entry must have been evicted")

	for i := 2; i <= 5; i++ {
		uid := string(rune('0' + i))
		_, err := c.Get(uid)
		assert.NoError(t, err, "entry %s should still be present", uid)
	}
}

func TestForgetRemovesEntry(t *testing.T) {
	c := NewMemoryCache(Unlimited)
	require.True(t, c.Put(rec("a", 1, 5)))

	require.NoError(t, c.Forget("a"))
	_, err := c.Get("a")
	assert.ErrorIs(t, err, kvstore.ErrRecordMissing)
}

func TestForgetMissingIsRecordMissing(t *testing.T) {
	c := NewMemoryCache(Unlimited)
	err := c.Forget("nope")
	assert.ErrorIs(t, err, kvstore.ErrRecordMissing)
}
