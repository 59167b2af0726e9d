// Package heap is the runtime heap subsystem: the intrusive object list
// threading every live heap object for bulk teardown, plus the string
// interner built on top of internal/table. The VM owns exactly one Heap
// for the lifetime of an Interpret call; the compiler is handed the same
// Heap so string/identifier constants it materializes land in the same
// interner and object list the VM will later walk and free.
package heap

import (
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/lado-saha/loxvm/internal/table"
	"github.com/lado-saha/loxvm/internal/value"
)

// Heap owns every heap-allocated object produced during one compile+run,
// plus the two tables that reference them: Strings interns byte-identical
// strings to a single object, Globals maps global variable names to their
// current value.
type Heap struct {
	// ID is a per-heap identifier; nothing in this module reads it, and it
	// is never observable from language semantics.
	ID uuid.UUID

	objects *value.ObjString // head of the intrusive object list
	Strings *table.Table
	Globals *table.Table
}

func New() *Heap {
	return &Heap{
		ID:      uuid.New(),
		Strings: table.New(),
		Globals: table.New(),
	}
}

// hashFNV1a computes the 32-bit FNV-1a hash the spec requires be
// precomputed once per string object.
func hashFNV1a(chars string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(chars))
	return h.Sum32()
}

func (h *Heap) allocate(chars string, hash uint32) *value.ObjString {
	s := &value.ObjString{Chars: chars, Hash: hash, Next: h.objects}
	h.objects = s
	h.Strings.Set(s, value.NewNil())
	return s
}

// CopyString interns bytes the caller does not own long-term (e.g. a
// lexeme slice into the source buffer): on a cache hit the existing
// interned object is reused, on a miss a new one is allocated by copying
// chars into a fresh Go string (Go strings are already immutable byte
// copies once assigned, so "copying" here is just that assignment).
func (h *Heap) CopyString(chars string) *value.ObjString {
	hash := hashFNV1a(chars)
	if interned := h.Strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return h.allocate(chars, hash)
}

// TakeString interns a buffer the caller already built and would
// otherwise own outright (e.g. the freshly concatenated result of ADD on
// two strings): on a cache hit, the incoming buffer is discarded in favor
// of the canonical twin (Go's GC reclaims it; a manual allocator would
// free it explicitly here); on a miss it is wrapped directly with no
// further copy.
func (h *Heap) TakeString(chars string) *value.ObjString {
	hash := hashFNV1a(chars)
	if interned := h.Strings.FindString(chars, hash); interned != nil {
		return interned
	}
	return h.allocate(chars, hash)
}

// Objects exposes the object list head for tests asserting the bulk
// teardown invariant (every allocation prepends; Free walks the whole
// chain).
func (h *Heap) Objects() *value.ObjString { return h.objects }

// Free releases the entire object list and both tables. With a real
// allocator this would walk the chain freeing each node; Go's GC reclaims
// the objects once nothing references them, so Free's job is to drop the
// Heap's own references, matching freeVM's observable contract (nothing
// reachable through this Heap survives).
func (h *Heap) Free() {
	h.objects = nil
	h.Strings = table.New()
	h.Globals = table.New()
}
