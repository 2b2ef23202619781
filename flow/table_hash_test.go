package flow

import (
	"testing"

	"github.com/netrack/ofswitch/ofp"
)

func TestHashTableRefusesWildcardedEntry(t *testing.T) {
	h := NewHashTable("hash", crc32IEEE, 16)
	e, _ := NewEntry(Match{Wildcards: ofp.WildcardAll}, 0, nil)

	if h.Insert(e) {
		t.Errorf("expected HashTable to refuse a wildcarded entry")
	}
}

func TestHashTableInsertLookupDelete(t *testing.T) {
	h := NewHashTable("hash", crc32IEEE, 16)
	key := Key{InPort: 1, DLDst: mac("aa:bb:cc:dd:ee:ff")}
	e, _ := NewEntry(Match{Key: key}, 0, nil)

	if !h.Insert(e) {
		t.Fatal("insert refused")
	}

	got, ok := h.Lookup(key)
	if !ok || got != e {
		t.Fatalf("lookup failed: got=%v ok=%v", got, ok)
	}

	removed := h.Delete(Match{Key: key}, 0, false)
	if len(removed) != 1 || removed[0] != e {
		t.Fatalf("expected single removal, got %v", removed)
	}

	if _, ok := h.Lookup(key); ok {
		t.Errorf("expected lookup to miss after delete")
	}
}

func TestHashTableReplaceSameKey(t *testing.T) {
	h := NewHashTable("hash", crc32IEEE, 16)
	key := Key{InPort: 1, DLDst: mac("aa:bb:cc:dd:ee:ff")}

	e1, _ := NewEntry(Match{Key: key}, 0, nil)
	e2, _ := NewEntry(Match{Key: key}, 0, nil)

	h.Insert(e1)
	h.Insert(e2)

	got, ok := h.Lookup(key)
	if !ok || got != e2 {
		t.Errorf("expected second insert to replace the first for an identical key")
	}

	stats := h.Stats()
	if stats.ActiveCount != 1 {
		t.Errorf("ActiveCount = %d, want 1 (replace must not double-count)", stats.ActiveCount)
	}
}

func TestHashTableBucketCollisionIsAMiss(t *testing.T) {
	h := NewHashTable("hash", crc32IEEE, 1) // single bucket forces collisions.

	k1 := Key{InPort: 1}
	k2 := Key{InPort: 2}

	e1, _ := NewEntry(Match{Key: k1}, 0, nil)
	h.Insert(e1)

	if _, ok := h.Lookup(k2); ok {
		t.Errorf("expected a colliding, non-matching bucket occupant to be reported as a miss")
	}
}

func TestDoubleHashTableFallsBackToSecondTable(t *testing.T) {
	d := NewDoubleHashTable(
		NewHashTable("hash0", crc32IEEE, 1),
		NewHashTable("hash1", crc32Castagnoli, 16),
	)

	e1, _ := NewEntry(Match{Key: Key{InPort: 1}}, 0, nil)
	e2, _ := NewEntry(Match{Key: Key{InPort: 2}}, 0, nil)

	if !d.Insert(e1) {
		t.Fatal("first insert refused")
	}
	if !d.Insert(e2) {
		t.Fatal("expected second insert to fall back to the second subtable")
	}

	if _, ok := d.Lookup(Key{InPort: 1}); !ok {
		t.Errorf("expected lookup of first entry to succeed")
	}
	if _, ok := d.Lookup(Key{InPort: 2}); !ok {
		t.Errorf("expected lookup of second entry to succeed")
	}
}
