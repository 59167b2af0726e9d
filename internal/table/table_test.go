package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lado-saha/loxvm/internal/value"
)

func newStr(s string, hash uint32) *value.ObjString {
	return &value.ObjString{Chars: s, Hash: hash}
}

func TestSetNewKeyIncrementsCountOnce(t *testing.T) {
	tbl := New()
	key := newStr("a", 1)

	isNew := tbl.Set(key, value.NewNumber(1))
	assert.True(t, isNew)
	assert.Equal(t, 1, tbl.Count(), "count must increment exactly once per new key")
}

func TestSetExistingKeyIsNotNew(t *testing.T) {
	tbl := New()
	key := newStr("a", 1)

	tbl.Set(key, value.NewNumber(1))
	isNew := tbl.Set(key, value.NewNumber(2))
	assert.False(t, isNew)
	assert.Equal(t, 1, tbl.Count())

	got, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, 2.0, got.AsNumber())
}

func TestDeleteWritesTombstoneAndPreservesProbe(t *testing.T) {
	tbl := New()
	// Force two keys into the same capacity-8 bucket via identical hash.
	a := newStr("a", 0)
	b := newStr("b", 0)

	tbl.Set(a, value.NewNumber(1))
	tbl.Set(b, value.NewNumber(2))

	require.True(t, tbl.Delete(a))

	// b must still be reachable even though a's tombstone is ahead of it
	// in the probe sequence.
	got, ok := tbl.Get(b)
	require.True(t, ok)
	assert.Equal(t, 2.0, got.AsNumber())

	_, ok = tbl.Get(a)
	assert.False(t, ok)
}

func TestCountIsLiveEntriesPlusTombstones(t *testing.T) {
	tbl := New()
	a := newStr("a", 0)
	b := newStr("b", 0)
	tbl.Set(a, value.NewNil())
	tbl.Set(b, value.NewNil())
	tbl.Delete(a)

	assert.Equal(t, 2, tbl.Count(), "count == live entries (1) + tombstones (1)")
}

func TestRehashDropsTombstones(t *testing.T) {
	tbl := New()
	keys := make([]*value.ObjString, 0, 10)
	for i := 0; i < 10; i++ {
		k := newStr(string(rune('a'+i)), uint32(i))
		keys = append(keys, k)
		tbl.Set(k, value.NewNumber(float64(i)))
	}
	// Delete half before triggering further growth.
	for i := 0; i < 5; i++ {
		tbl.Delete(keys[i])
	}

	// count is now 10 (5 live + 5 tombstones) at capacity 16, whose 75%
	// bound is 12. Three inserts into empty buckets 10-12 take count to 12
	// and the third one rehashes into capacity 32; after the rehash,
	// tombstones must be gone, so count is live entries only (5 + 3).
	for i := 0; i < 3; i++ {
		tbl.Set(newStr(string(rune('k'+i)), uint32(10+i)), value.NewNumber(float64(10+i)))
	}
	assert.Equal(t, 32, tbl.Capacity())
	assert.Equal(t, 8, tbl.Count(), "rehash drops the 5 tombstones")

	// Surviving keys must still resolve correctly after the rehash.
	for i := 5; i < 10; i++ {
		got, ok := tbl.Get(keys[i])
		require.True(t, ok)
		assert.Equal(t, float64(i), got.AsNumber())
	}
}

func TestFindString(t *testing.T) {
	tbl := New()
	foo := newStr("foo", 42)
	tbl.Set(foo, value.NewNil())

	found := tbl.FindString("foo", 42)
	assert.Same(t, foo, found)

	assert.Nil(t, tbl.FindString("bar", 42))
}

func TestGetOnEmptyTable(t *testing.T) {
	tbl := New()
	_, ok := tbl.Get(newStr("a", 0))
	assert.False(t, ok)
}

func TestAddAllCopiesLiveEntriesOnly(t *testing.T) {
	from := New()
	a := newStr("a", 1)
	b := newStr("b", 2)
	from.Set(a, value.NewNumber(1))
	from.Set(b, value.NewNumber(2))
	from.Delete(b)

	to := New()
	to.AddAll(from)

	_, ok := to.Get(a)
	assert.True(t, ok)
	_, ok = to.Get(b)
	assert.False(t, ok)
}
