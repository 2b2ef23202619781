package flow

import (
	"hash/crc32"
	"time"

	"github.com/netrack/ofswitch/ofp"
)

// HashTable accepts only fully-specified (wildcards == 0) entries. A
// flow's bucket is selected by a CRC-32 over its key bytes; lookup
// checks exactly one slot per bucket, so a collision with a
// non-matching entry counts as a miss — the chain falls through to
// the next table rather than this layer resolving collisions.
type HashTable struct {
	name    string
	crcTbl  *crc32.Table
	buckets []*Entry
	mask    uint32
	count   int
}

// NewHashTable builds a HashTable of nBuckets slots (must be a power
// of two) hashed with the given CRC-32 polynomial.
func NewHashTable(name string, polynomial uint32, nBuckets int) *HashTable {
	if nBuckets&(nBuckets-1) != 0 {
		panic("flow: hash table bucket count must be a power of two")
	}
	return &HashTable{
		name:    name,
		crcTbl:  crc32.MakeTable(polynomial),
		buckets: make([]*Entry, nBuckets),
		mask:    uint32(nBuckets - 1),
	}
}

func (h *HashTable) bucketFor(key Key) uint32 {
	return crc32.Checksum(key.Bytes(), h.crcTbl) & h.mask
}

// Lookup implements Table.
func (h *HashTable) Lookup(key Key) (*Entry, bool) {
	e := h.buckets[h.bucketFor(key)]
	if e != nil && e.Match.Key.Equal(key) {
		return e, true
	}
	return nil, false
}

// Insert implements Table.
func (h *HashTable) Insert(e *Entry) bool {
	if e.Match.Wildcards != 0 {
		return false
	}
	i := h.bucketFor(e.Match.Key)
	old := h.buckets[i]
	if old == nil {
		h.buckets[i] = e
		h.count++
		return true
	}
	if old.Match.Key.Equal(e.Match.Key) {
		h.buckets[i] = e
		return true
	}
	return false
}

// Delete implements Table.
func (h *HashTable) Delete(m Match, priority uint16, strict bool) []*Entry {
	var removed []*Entry

	if m.Wildcards == 0 {
		i := h.bucketFor(m.Key)
		if e := h.buckets[i]; e != nil && e.Match.Key.Equal(m.Key) {
			h.buckets[i] = nil
			h.count--
			removed = append(removed, e)
		}
		return removed
	}

	for i, e := range h.buckets {
		if e == nil {
			continue
		}
		if deleteMatches(e, m, priority, strict) {
			h.buckets[i] = nil
			h.count--
			removed = append(removed, e)
		}
	}
	return removed
}

// Sweep implements Table.
func (h *HashTable) Sweep(now time.Time) []*Entry {
	var expired []*Entry
	for i, e := range h.buckets {
		if e == nil {
			continue
		}
		if ok, _ := e.Expired(now); ok {
			h.buckets[i] = nil
			h.count--
			expired = append(expired, e)
		}
	}
	return expired
}

// Iterate implements Table.
func (h *HashTable) Iterate(fn func(*Entry) bool) {
	for _, e := range h.buckets {
		if e == nil {
			continue
		}
		if !fn(e) {
			return
		}
	}
}

// Stats implements Table.
func (h *HashTable) Stats() ofp.TableStats {
	return ofp.TableStats{
		Name:        h.name,
		Wildcards:   0,
		MaxEntries:  uint32(len(h.buckets)),
		ActiveCount: uint32(h.count),
	}
}

// deleteMatches reports whether entry e should be removed by a
// DELETE/DELETE_STRICT naming match m at priority. A strict delete
// additionally requires the exact same wildcard mask and priority; a
// non-strict delete removes every entry overlapping m under the
// two-sided match.
func deleteMatches(e *Entry, m Match, priority uint16, strict bool) bool {
	if strict {
		return e.Match.Wildcards == m.Wildcards &&
			e.Priority == priority &&
			e.Match.Key.Equal(m.Key)
	}
	return MatchTwoSided(e.Match, m)
}

// DoubleHashTable composes two HashTables with independent CRC
// polynomials: lookup queries both, insert prefers the first and
// falls back to the second, delete and sweep operate on both, and
// iterate concatenates.
type DoubleHashTable struct {
	tables [2]*HashTable
}

// NewDoubleHashTable builds a DoubleHashTable from two independently
// polynomial/size-configured subtables.
func NewDoubleHashTable(t0, t1 *HashTable) *DoubleHashTable {
	return &DoubleHashTable{tables: [2]*HashTable{t0, t1}}
}

// Lookup implements Table.
func (d *DoubleHashTable) Lookup(key Key) (*Entry, bool) {
	for _, t := range d.tables {
		if e, ok := t.Lookup(key); ok {
			return e, true
		}
	}
	return nil, false
}

// Insert implements Table.
func (d *DoubleHashTable) Insert(e *Entry) bool {
	if d.tables[0].Insert(e) {
		return true
	}
	return d.tables[1].Insert(e)
}

// Delete implements Table.
func (d *DoubleHashTable) Delete(m Match, priority uint16, strict bool) []*Entry {
	removed := d.tables[0].Delete(m, priority, strict)
	removed = append(removed, d.tables[1].Delete(m, priority, strict)...)
	return removed
}

// Sweep implements Table.
func (d *DoubleHashTable) Sweep(now time.Time) []*Entry {
	expired := d.tables[0].Sweep(now)
	expired = append(expired, d.tables[1].Sweep(now)...)
	return expired
}

// Iterate implements Table.
func (d *DoubleHashTable) Iterate(fn func(*Entry) bool) {
	cont := true
	wrap := func(e *Entry) bool {
		if !fn(e) {
			cont = false
			return false
		}
		return true
	}
	d.tables[0].Iterate(wrap)
	if cont {
		d.tables[1].Iterate(wrap)
	}
}

// Stats implements Table.
func (d *DoubleHashTable) Stats() ofp.TableStats {
	s0, s1 := d.tables[0].Stats(), d.tables[1].Stats()
	return ofp.TableStats{
		Name:        "hash2",
		Wildcards:   0,
		MaxEntries:  s0.MaxEntries + s1.MaxEntries,
		ActiveCount: s0.ActiveCount + s1.ActiveCount,
	}
}
