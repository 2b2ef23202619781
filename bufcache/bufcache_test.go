package bufcache

import (
	"testing"
	"time"

	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/packet"
)

func TestSaveRetrieveRoundTrip(t *testing.T) {
	c := New()
	now := time.Unix(1000, 0)

	buf := packet.New([]byte{1, 2, 3})
	id := c.Save(buf, now)
	if id == ofp.NoBuffer {
		t.Fatal("Save returned NoBuffer on an empty cache")
	}

	got, ok := c.Retrieve(id)
	if !ok {
		t.Fatal("Retrieve failed for a freshly saved id")
	}
	if got != buf {
		t.Error("Retrieve returned a different buffer than was saved")
	}

	if _, ok := c.Retrieve(id); ok {
		t.Error("Retrieve succeeded twice for the same id; slot should be emptied")
	}
}

func TestRetrieveUnknownIDMisses(t *testing.T) {
	c := New()
	if _, ok := c.Retrieve(0x12345678); ok {
		t.Fatal("Retrieve succeeded on a never-saved id")
	}
	if c.Misses() != 1 {
		t.Errorf("Misses() = %d, want 1", c.Misses())
	}
}

func TestSaveWithinOverwriteWindowReturnsNoBuffer(t *testing.T) {
	c := New()
	now := time.Unix(1000, 0)

	for i := 0; i < N; i++ {
		c.Save(packet.New([]byte{byte(i)}), now)
	}

	id := c.Save(packet.New([]byte{0xff}), now.Add(100*time.Millisecond))
	if id != ofp.NoBuffer {
		t.Errorf("Save = %#x, want NoBuffer while the slot is still within its window", id)
	}
}

func TestSaveEvictsAfterOverwriteWindow(t *testing.T) {
	c := New()
	now := time.Unix(1000, 0)

	first := packet.New([]byte{1})
	for i := 0; i < N; i++ {
		c.Save(first, now)
	}

	later := now.Add(2 * time.Second)
	replacement := packet.New([]byte{2})
	id := c.Save(replacement, later)
	if id == ofp.NoBuffer {
		t.Fatal("Save refused to evict a slot past its overwrite window")
	}

	got, ok := c.Retrieve(id)
	if !ok || got != replacement {
		t.Error("Retrieve did not return the replacement buffer")
	}
}

func TestCookieReplayAfterEvictionIsRejected(t *testing.T) {
	c := New()
	now := time.Unix(1000, 0)

	staleID := c.Save(packet.New([]byte{1}), now)

	later := now.Add(2 * time.Second)
	for i := 0; i < N; i++ {
		c.Save(packet.New([]byte{byte(i)}), later.Add(time.Duration(i)*time.Nanosecond))
	}

	if _, ok := c.Retrieve(staleID); ok {
		t.Fatal("Retrieve succeeded for an id whose slot was recycled with a new cookie")
	}
	if c.Misses() == 0 {
		t.Error("cookie mismatch should count as a miss")
	}
}

func TestCookieWraparoundSkipsAllOnesValue(t *testing.T) {
	c := New()
	now := time.Unix(1000, 0)

	// Slot 0 is the first one Save uses; put its cookie one step
	// below the reserved value so the next Save has to wrap it.
	c.slots[0].cookie = maxCookie - 1
	lastID := c.Save(packet.New([]byte{1}), now)

	cookie := lastID >> Bits
	if cookie == maxCookie {
		t.Errorf("cookie reached the reserved all-ones value %#x", maxCookie)
	}
}
