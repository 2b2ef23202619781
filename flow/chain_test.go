package flow

import (
	"testing"

	"github.com/netrack/ofswitch/ofp"
)

func TestChainPriorityOverridesLowerPriority(t *testing.T) {
	c := NewChain(NewLinearTable("linear"))

	low, _ := NewEntry(Match{
		Wildcards: ofp.WildcardAll &^ ofp.WildcardDLDst,
		Key:       Key{DLDst: mac("aa:bb:cc:dd:ee:ff")},
	}, 100, nil)
	high, _ := NewEntry(Match{
		Wildcards: ofp.WildcardAll &^ ofp.WildcardDLDst,
		Key:       Key{DLDst: mac("aa:bb:cc:dd:ee:ff")},
	}, 200, nil)

	if err := c.Insert(low); err != nil {
		t.Fatal(err)
	}
	if err := c.Insert(high); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Classify(Key{DLDst: mac("aa:bb:cc:dd:ee:ff")})
	if !ok || got != high {
		t.Errorf("expected the higher-priority entry to win")
	}
}

func TestChainClassifyReturnsFirstTableHit(t *testing.T) {
	hash := NewHashTable("hash", crc32IEEE, 16)
	linear := NewLinearTable("linear")
	c := NewChain(hash, linear)

	key := Key{InPort: 1, DLDst: mac("aa:bb:cc:dd:ee:ff")}

	exact, _ := NewEntry(Match{Key: key}, 0, nil)
	wild, _ := NewEntry(Match{
		Wildcards: ofp.WildcardAll &^ ofp.WildcardDLDst,
		Key:       Key{DLDst: mac("aa:bb:cc:dd:ee:ff")},
	}, 0, nil)

	if err := c.Insert(wild); err != nil {
		t.Fatal(err)
	}
	if err := c.Insert(exact); err != nil {
		t.Fatal(err)
	}

	got, ok := c.Classify(key)
	if !ok || got != exact {
		t.Errorf("expected the hash table's exact-match entry to win over the linear table")
	}
}

func TestChainDeleteStrictDistinguishesPriority(t *testing.T) {
	c := NewChain(NewLinearTable("linear"))

	m := Match{
		Wildcards: ofp.WildcardAll &^ ofp.WildcardDLDst,
		Key:       Key{DLDst: mac("aa:bb:cc:dd:ee:ff")},
	}
	e100, _ := NewEntry(m, 100, nil)
	e200, _ := NewEntry(m, 200, nil)

	c.Insert(e100)
	c.Insert(e200)

	removed := c.Delete(m, 100, true)
	if len(removed) != 1 || removed[0] != e100 {
		t.Fatalf("expected exactly the priority-100 entry to be removed, got %v", removed)
	}

	got, ok := c.Classify(Key{DLDst: mac("aa:bb:cc:dd:ee:ff")})
	if !ok || got != e200 {
		t.Errorf("expected the priority-200 entry to remain classifiable")
	}
}

func TestChainInsertTableFull(t *testing.T) {
	hash := NewHashTable("hash", crc32IEEE, 1)
	c := NewChain(hash)

	e1, _ := NewEntry(Match{Key: Key{InPort: 1}}, 0, nil)
	e2, _ := NewEntry(Match{Key: Key{InPort: 2}}, 0, nil)

	if err := c.Insert(e1); err != nil {
		t.Fatal(err)
	}
	if err := c.Insert(e2); err != ErrTableFull {
		t.Errorf("expected ErrTableFull, got %v", err)
	}
}
