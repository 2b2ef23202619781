package flow

import (
	"time"

	"github.com/netrack/ofswitch/ofp"
)

// LearningTable is the optional, cheapest tier: a pure MAC-learning
// classifier bucketed by destination address, where only the
// destination field of a stored entry is meaningful. It is not
// present in the original switch — the original C datapath has no
// learning table, and OVS's MAC learning lives above the classifier —
// so LearningTable is new code written to the Table interface
// established by HashTable/LinearTable, usable in place of (or ahead
// of) the hash table for a pure L2 learning-switch workload.
type LearningTable struct {
	name    string
	entries map[string]*Entry
}

// NewLearningTable builds an empty LearningTable.
func NewLearningTable(name string) *LearningTable {
	return &LearningTable{name: name, entries: make(map[string]*Entry)}
}

// Lookup implements Table. Only the destination address of key is
// consulted.
func (l *LearningTable) Lookup(key Key) (*Entry, bool) {
	e, ok := l.entries[string(key.DLDst)]
	return e, ok
}

// Insert implements Table. Only entries matching on exactly the
// destination address (every other field wildcarded) are accepted.
func (l *LearningTable) Insert(e *Entry) bool {
	want := ofp.WildcardAll &^ ofp.WildcardDLDst
	if e.Match.Wildcards != want {
		return false
	}
	l.entries[string(e.Match.DLDst)] = e
	return true
}

// Delete implements Table.
func (l *LearningTable) Delete(m Match, priority uint16, strict bool) []*Entry {
	var removed []*Entry
	for k, e := range l.entries {
		if deleteMatches(e, m, priority, strict) {
			removed = append(removed, e)
			delete(l.entries, k)
		}
	}
	return removed
}

// Sweep implements Table.
func (l *LearningTable) Sweep(now time.Time) []*Entry {
	var expired []*Entry
	for k, e := range l.entries {
		if ok, _ := e.Expired(now); ok {
			expired = append(expired, e)
			delete(l.entries, k)
		}
	}
	return expired
}

// Iterate implements Table.
func (l *LearningTable) Iterate(fn func(*Entry) bool) {
	for _, e := range l.entries {
		if !fn(e) {
			return
		}
	}
}

// Stats implements Table.
func (l *LearningTable) Stats() ofp.TableStats {
	return ofp.TableStats{
		Name:        l.name,
		Wildcards:   ofp.WildcardAll &^ ofp.WildcardDLDst,
		MaxEntries:  0,
		ActiveCount: uint32(len(l.entries)),
	}
}
