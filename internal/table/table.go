// Package table implements the open-addressing hash table shared by the
// VM's globals table and the string interner: linear probing, tombstone
// deletion, and a 75% load factor, grown by doubling from a minimum
// capacity of 8. This is hand-rolled rather than built on a library map
// because the spec pins down the exact probing/tombstone/rehash algorithm
// as a tested property (duplicate bucket reuse, tombstone accounting,
// rehash dropping tombstones) — no map[...]... or generic map library in
// the example pack exposes that algorithm for inspection.
package table

import "github.com/lado-saha/loxvm/internal/value"

const maxLoad = 0.75

// entry is the table's three-case sum type, modeled with sentinel values
// exactly as the spec describes rather than as a Go tagged union, so the
// bucket layout matches what the invariants in spec.md §3/§4.5 describe:
//
//	empty:     Key == nil, Value is Nil
//	tombstone: Key == nil, Value is Bool(true)
//	live:      Key != nil
type entry struct {
	Key   *value.ObjString
	Value value.Value
}

// Table is an open-addressing hash table keyed by interned string pointers.
type Table struct {
	count   int // live entries + tombstones
	entries []entry
}

func New() *Table { return &Table{} }

// Count returns live entries plus tombstones, per the invariant
// count == live_entries + tombstones.
func (t *Table) Count() int { return t.count }

func (t *Table) Capacity() int { return len(t.entries) }

// findEntry probes from hash mod capacity, remembering the first tombstone
// seen so a later insert can reuse it, and stops at the target key or a
// truly empty (never-occupied) bucket.
func findEntry(entries []entry, key *value.ObjString) *entry {
	capacity := len(entries)
	index := int(key.Hash) % capacity
	var tombstone *entry

	for {
		e := &entries[index]
		switch {
		case e.Key == nil:
			if e.Value.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.Key == key:
			return e
		}
		index = (index + 1) % capacity
	}
}

func adjustCapacity(t *Table, capacity int) {
	entries := make([]entry, capacity)
	for i := range entries {
		entries[i] = entry{Value: value.NewNil()}
	}

	t.count = 0
	for i := range t.entries {
		old := &t.entries[i]
		if old.Key == nil {
			continue
		}
		dest := findEntry(entries, old.Key)
		dest.Key = old.Key
		dest.Value = old.Value
		t.count++
	}

	t.entries = entries
}

// Set inserts or overwrites key->val, growing the table first if doing so
// would push the load factor above 75%. It returns true exactly when key
// was not already a live entry in the table, whether it lands in a
// never-used bucket or reuses a tombstone. count is incremented only in
// the never-used case, since a reused tombstone is already counted.
//
// The original C implementation this was ported from increments count
// twice for a brand-new key (once inside the isNew-and-not-tombstone
// check, once unconditionally a line later) — a bug noted as Open Question
// (a) in spec.md §9. This fixes it: count increments once per genuinely
// new key, never per overwrite of an existing or tombstoned slot.
func (t *Table) Set(key *value.ObjString, val value.Value) bool {
	if len(t.entries) == 0 || t.count+1 > int(float64(len(t.entries))*maxLoad) {
		capacity := 8
		if len(t.entries) > 0 {
			capacity = len(t.entries) * 2
		}
		adjustCapacity(t, capacity)
	}

	e := findEntry(t.entries, key)
	isNewKey := e.Key == nil
	if isNewKey && e.Value.IsNil() {
		t.count++
	}

	e.Key = key
	e.Value = val
	return isNewKey
}

func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if t.count == 0 {
		return value.NewNil(), false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return value.NewNil(), false
	}
	return e.Value, true
}

// Delete writes a tombstone: {Key: nil, Value: Bool(true)}. count is left
// unchanged (the slot is still counted as occupied for probing purposes).
func (t *Table) Delete(key *value.ObjString) bool {
	if t.count == 0 {
		return false
	}
	e := findEntry(t.entries, key)
	if e.Key == nil {
		return false
	}
	e.Key = nil
	e.Value = value.NewBool(true)
	return true
}

func (t *Table) AddAll(from *Table) {
	for i := range from.entries {
		e := &from.entries[i]
		if e.Key != nil {
			t.Set(e.Key, e.Value)
		}
	}
}

// FindString walks the probe sequence comparing by (hash, length, bytes),
// used only by the string interner before allocating a new ObjString: a
// hit means the bytes are already interned and the existing object must be
// reused instead of allocating a twin.
func (t *Table) FindString(chars string, hash uint32) *value.ObjString {
	if t.count == 0 {
		return nil
	}

	capacity := len(t.entries)
	index := int(hash) % capacity
	for {
		e := &t.entries[index]
		switch {
		case e.Key == nil:
			if e.Value.IsNil() {
				return nil
			}
		case e.Key.Hash == hash && e.Key.Chars == chars:
			return e.Key
		}
		index = (index + 1) % capacity
	}
}
