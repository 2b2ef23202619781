package flow

import (
	"time"

	"github.com/netrack/ofswitch/ofp"
)

// Table is the common contract implemented by every table variant
// (hash, double-hash, linear, MAC-learning). A Chain holds a
// homogeneous sequence of Tables; adding a new variant requires no
// change to the Chain.
type Table interface {
	// Lookup classifies a fully-specified packet key, using the
	// one-sided match (MatchOneSided) against each stored entry.
	Lookup(key Key) (*Entry, bool)

	// Insert adds e to the table, reporting whether the table
	// accepted it. A hash table refuses a wildcarded entry; a linear
	// table accepts anything.
	Insert(e *Entry) bool

	// Delete removes entries matching m. When strict is true, only an
	// entry with the exact same wildcard mask and priority is
	// removed; otherwise every entry overlapping m under the
	// two-sided match is removed. Returns the removed entries (so the
	// caller can emit FLOW_EXPIRED for those with SendFlowExpired
	// set).
	Delete(m Match, priority uint16, strict bool) []*Entry

	// Sweep removes and returns every entry that has timed out as of
	// now.
	Sweep(now time.Time) []*Entry

	// Iterate calls fn for every stored entry, in unspecified order,
	// stopping early if fn returns false.
	Iterate(fn func(*Entry) bool)

	// Stats reports the table's name, the number of entries currently
	// stored, and its capacity (zero means unbounded).
	Stats() ofp.TableStats
}
