package flow

import (
	"errors"
	"time"

	"github.com/netrack/ofswitch/ofp"
)

// ErrTableFull is returned by Insert when every table in the chain
// refused the entry.
var ErrTableFull = errors.New("flow: table full")

// Chain is the ordered sequence of tables that together form the
// classifier. The standard configuration is cheapest to most general:
// a double-hash table of exact-match entries, then a linear table of
// wildcarded rules.
type Chain struct {
	tables []Table
}

// NewChain builds a Chain over tables, consulted in the given order.
func NewChain(tables ...Table) *Chain {
	return &Chain{tables: tables}
}

// DefaultChain builds the standard chain: a double-hash table made of
// two 32768-bucket hash tables, followed by an unbounded linear table
// for wildcarded rules.
func DefaultChain() *Chain {
	return NewChain(
		NewDoubleHashTable(
			NewHashTable("hash0", crc32IEEE, 1<<15),
			NewHashTable("hash1", crc32Castagnoli, 1<<15),
		),
		NewLinearTable("linear"),
	)
}

// NewLearningChain builds a chain for a pure L2 learning-switch
// workload: a MAC-learning table ahead of the standard double-hash
// and linear tables, so a destination-only rule installed by a
// learning controller app is checked first.
func NewLearningChain() *Chain {
	return NewChain(
		NewLearningTable("learning"),
		NewDoubleHashTable(
			NewHashTable("hash0", crc32IEEE, 1<<15),
			NewHashTable("hash1", crc32Castagnoli, 1<<15),
		),
		NewLinearTable("linear"),
	)
}

// Classify looks up a fully-specified packet key against the chain,
// returning the first table's hit. A Key carries no wildcards, so
// only exact-match packet keys are ever looked up.
func (c *Chain) Classify(key Key) (*Entry, bool) {
	for _, t := range c.tables {
		if e, ok := t.Lookup(key); ok {
			return e, true
		}
	}
	return nil, false
}

// Insert tries each table in order, returning ErrTableFull if every
// one refuses the entry (e.g. a wildcarded entry in a chain with no
// linear table, or an exact entry whose hash buckets are all taken).
func (c *Chain) Insert(e *Entry) error {
	for _, t := range c.tables {
		if t.Insert(e) {
			return nil
		}
	}
	return ErrTableFull
}

// Delete fans the delete out to every table, returning the union of
// removed entries.
func (c *Chain) Delete(m Match, priority uint16, strict bool) []*Entry {
	var removed []*Entry
	for _, t := range c.tables {
		removed = append(removed, t.Delete(m, priority, strict)...)
	}
	return removed
}

// Sweep fans the timeout sweep out to every table, returning the
// union of expired entries.
func (c *Chain) Sweep(now time.Time) []*Entry {
	var expired []*Entry
	for _, t := range c.tables {
		expired = append(expired, t.Sweep(now)...)
	}
	return expired
}

// Iterate walks every entry in every table, in table order.
func (c *Chain) Iterate(fn func(*Entry) bool) {
	for _, t := range c.tables {
		cont := true
		t.Iterate(func(e *Entry) bool {
			if !fn(e) {
				cont = false
				return false
			}
			return true
		})
		if !cont {
			return
		}
	}
}

// Stats reports one ofp.TableStats per table, ordered cheapest to
// most general, matching the chain's lookup order; the TableID field
// of each is set to its position.
func (c *Chain) Stats() []ofp.TableStats {
	stats := make([]ofp.TableStats, len(c.tables))
	for i, t := range c.tables {
		s := t.Stats()
		s.TableID = uint8(i)
		stats[i] = s
	}
	return stats
}

const (
	crc32IEEE       = 0xedb88320
	crc32Castagnoli = 0x82f63b78
)
