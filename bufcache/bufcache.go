// Package bufcache implements the packet buffer cache (C6): a bounded
// ring of slots that lets a PACKET_IN hand the controller a small
// opaque cookie instead of the whole frame, and later match a
// PACKET_OUT's buffer_id back to the saved packet.
//
// Grounded on original_source/switch/datapath.c's save_buffer,
// retrieve_buffer and discard_buffer: a fixed array of N_PKT_BUFFERS
// slots, a monotonic next-slot index, and a per-slot cookie that
// distinguishes a fresh occupant of a slot from a stale one. The
// 32-bit id is slot-index | (cookie << PKT_BUFFER_BITS); the cookie
// never reaches its all-ones value, since that value is carved out
// elsewhere as ofp.NoBuffer's high bits would collide with an id of
// all 1s when the slot count is a power of two.
package bufcache

import (
	"sync"
	"time"

	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/packet"
)

// Bits of the 32-bit buffer id spent on the slot index. The remaining
// 32-Bits form the cookie. 8 matches the original's PKT_BUFFER_BITS.
const Bits = 8

// N is the number of slots in the cache, 2^Bits.
const N = 1 << Bits

const slotMask = N - 1

// maxCookie is the all-ones value of the cookie space. It is reserved
// and never issued (a slot's cookie wraps to zero before reaching
// it), so that no valid id collides with ofp.NoBuffer (0xffffffff).
const maxCookie = 1<<(32-Bits) - 1

// overwriteWindow mirrors OVERWRITE_SECS: a slot whose previous
// occupant was saved less than this long ago is left alone rather
// than evicted, so a burst of PACKET_INs doesn't stomp a buffer the
// controller hasn't had a chance to reply to yet.
const overwriteWindow = 1 * time.Second

type slot struct {
	buf     *packet.Buffer
	cookie  uint32
	expires time.Time
}

// Cache is a fixed-size ring of buffered packets awaiting a
// PACKET_OUT. The zero value is not usable; construct with New.
type Cache struct {
	mu     sync.Mutex
	slots  [N]slot
	next   int
	misses uint64
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{next: -1}
}

// Save takes ownership of buf, assigns it the next ring slot, and
// returns an opaque id for later Retrieve. It returns ofp.NoBuffer
// instead if that slot's previous occupant is still within its
// overwrite window, in which case buf is not saved.
func (c *Cache) Save(buf *packet.Buffer, now time.Time) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next = (c.next + 1) & slotMask
	s := &c.slots[c.next]

	if s.buf != nil {
		if now.Before(s.expires) {
			return ofp.NoBuffer
		}
		s.buf = nil
	}

	s.cookie++
	if s.cookie >= maxCookie {
		s.cookie = 0
	}
	s.buf = buf
	s.expires = now.Add(overwriteWindow)

	return uint32(c.next) | s.cookie<<Bits
}

// Retrieve returns the buffer saved under id and removes it from the
// cache. The second return is false if id names an empty slot or one
// whose cookie no longer matches — a stale or forged id, not an
// error — in which case the miss counter is incremented.
func (c *Cache) Retrieve(id uint32) (*packet.Buffer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.slots[id&slotMask]
	if s.buf == nil || s.cookie != id>>Bits {
		c.misses++
		return nil, false
	}

	buf := s.buf
	s.buf = nil
	return buf, true
}

// Discard drops the buffer saved under id, if its cookie still
// matches, without returning it. Used to release a buffer the
// controller explicitly abandoned (e.g. a FLOW_MOD with no matching
// PACKET_OUT).
func (c *Cache) Discard(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.slots[id&slotMask]
	if s.buf != nil && s.cookie == id>>Bits {
		s.buf = nil
	}
}

// Misses reports the number of Retrieve calls that found an empty or
// cookie-mismatched slot, for the cache-miss statistic exposed
// alongside the rest of the switch's counters.
func (c *Cache) Misses() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}
