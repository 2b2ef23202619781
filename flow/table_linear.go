package flow

import (
	"sort"
	"time"

	"github.com/netrack/ofswitch/ofp"
)

// LinearTable accepts any entry, including fully wildcarded ones.
// Entries are kept in priority-descending order; lookup scans from
// the front and returns the first one-sided match, ties among equal
// priorities broken by insertion order (the earlier entry wins).
type LinearTable struct {
	name    string
	entries []*Entry
}

// NewLinearTable builds an empty LinearTable.
func NewLinearTable(name string) *LinearTable {
	return &LinearTable{name: name}
}

// Lookup implements Table.
func (l *LinearTable) Lookup(key Key) (*Entry, bool) {
	for _, e := range l.entries {
		if MatchOneSided(key, e.Match) {
			return e, true
		}
	}
	return nil, false
}

// Insert implements Table.
func (l *LinearTable) Insert(e *Entry) bool {
	i := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Priority < e.Priority
	})
	l.entries = append(l.entries, nil)
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = e
	return true
}

// Delete implements Table.
func (l *LinearTable) Delete(m Match, priority uint16, strict bool) []*Entry {
	var removed []*Entry
	kept := l.entries[:0]
	for _, e := range l.entries {
		if deleteMatches(e, m, priority, strict) {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

// Sweep implements Table.
func (l *LinearTable) Sweep(now time.Time) []*Entry {
	var expired []*Entry
	kept := l.entries[:0]
	for _, e := range l.entries {
		if ok, _ := e.Expired(now); ok {
			expired = append(expired, e)
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return expired
}

// Iterate implements Table.
func (l *LinearTable) Iterate(fn func(*Entry) bool) {
	for _, e := range l.entries {
		if !fn(e) {
			return
		}
	}
}

// Stats implements Table.
func (l *LinearTable) Stats() ofp.TableStats {
	return ofp.TableStats{
		Name:        l.name,
		Wildcards:   ofp.WildcardAll,
		MaxEntries:  0,
		ActiveCount: uint32(len(l.entries)),
	}
}
