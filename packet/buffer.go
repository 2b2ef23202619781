// Package packet implements the raw packet buffer (C1) and the
// Ethernet/802.1Q/SNAP/IPv4/TCP/UDP/ARP header parser (C2) that turns
// a buffer into a classifier flow key.
package packet

import "errors"

// ErrNoHeadroom is returned by PushFront when the buffer does not
// have enough headroom to prepend the requested header.
var ErrNoHeadroom = errors.New("packet: insufficient headroom")

// ErrNoTailroom is returned by PushBack when the buffer does not have
// enough tailroom to append the requested tail.
var ErrNoTailroom = errors.New("packet: insufficient tailroom")

// noOffset marks an L2/L3/L4 cursor as unset.
const noOffset = -1

// Buffer is an owned, contiguous byte buffer with headroom and
// tailroom around the live frame, and a read-cursor/write-cursor pair
// (start, end) bounding it. PushFront, PushBack and PullFront are
// O(1): they only move start/end within the backing array's
// pre-allocated capacity. Clone produces an independent owned copy.
type Buffer struct {
	data       []byte
	start, end int
	l2, l3, l4 int
}

// New wraps frame as a Buffer with zero headroom and zero tailroom —
// the common case of a frame just read off the wire.
func New(frame []byte) *Buffer {
	return &Buffer{data: frame, start: 0, end: len(frame), l2: noOffset, l3: noOffset, l4: noOffset}
}

// NewSize allocates a Buffer with headroom bytes of headroom, then
// length bytes of live (zeroed) frame, then tailroom bytes of
// tailroom.
func NewSize(headroom, length, tailroom int) *Buffer {
	data := make([]byte, headroom+length+tailroom)
	return &Buffer{
		data: data, start: headroom, end: headroom + length,
		l2: noOffset, l3: noOffset, l4: noOffset,
	}
}

// Len reports the length of the live frame.
func (b *Buffer) Len() int { return b.end - b.start }

// Bytes returns the live frame. The returned slice aliases the
// buffer's backing array and is invalidated by any Push/Pull call.
func (b *Buffer) Bytes() []byte { return b.data[b.start:b.end] }

// Headroom reports the number of bytes currently available before
// the live frame for a PushFront.
func (b *Buffer) Headroom() int { return b.start }

// Tailroom reports the number of bytes currently available after the
// live frame for a PushBack.
func (b *Buffer) Tailroom() int { return len(b.data) - b.end }

// PushFront prepends header to the live frame, consuming headroom.
func (b *Buffer) PushFront(header []byte) error {
	if len(header) > b.Headroom() {
		return ErrNoHeadroom
	}
	b.start -= len(header)
	copy(b.data[b.start:], header)
	b.shiftCursors(len(header))
	return nil
}

// PushBack appends tail to the live frame, consuming tailroom.
func (b *Buffer) PushBack(tail []byte) error {
	if len(tail) > b.Tailroom() {
		return ErrNoTailroom
	}
	copy(b.data[b.end:], tail)
	b.end += len(tail)
	return nil
}

// PullFront strips n bytes from the front of the live frame and
// returns them. It panics if n exceeds the current length, mirroring
// the unchecked buffer_pull the header parser is grounded on — callers
// bounds-check before calling.
func (b *Buffer) PullFront(n int) []byte {
	if n > b.Len() {
		panic("packet: PullFront beyond buffer length")
	}
	stripped := b.data[b.start : b.start+n]
	b.start += n
	b.shiftCursors(-n)
	return stripped
}

// shiftCursors adjusts the L2/L3/L4 offsets (which are relative to
// the live frame's start) by delta when the start cursor moves, so
// they continue to name the same backing bytes.
func (b *Buffer) shiftCursors(delta int) {
	if b.l2 != noOffset {
		b.l2 += delta
	}
	if b.l3 != noOffset {
		b.l3 += delta
	}
	if b.l4 != noOffset {
		b.l4 += delta
	}
}

// Clone returns an independent owned copy of the buffer, preserving
// headroom, tailroom and the L2/L3/L4 cursors.
func (b *Buffer) Clone() *Buffer {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return &Buffer{data: data, start: b.start, end: b.end, l2: b.l2, l3: b.l3, l4: b.l4}
}

// SetL2 records the offset (relative to the live frame's start) of
// the Ethernet header.
func (b *Buffer) SetL2(off int) { b.l2 = off }

// SetL3 records the offset of the network-layer header, or noOffset
// via a negative value if there is none (non-IP/ARP traffic).
func (b *Buffer) SetL3(off int) { b.l3 = off }

// SetL4 records the offset of the transport-layer header.
func (b *Buffer) SetL4(off int) { b.l4 = off }

// L2 returns the byte slice starting at the Ethernet header, or nil
// if unset.
func (b *Buffer) L2() []byte {
	if b.l2 == noOffset {
		return nil
	}
	return b.Bytes()[b.l2:]
}

// L3 returns the byte slice starting at the network-layer header, or
// nil if unset.
func (b *Buffer) L3() []byte {
	if b.l3 == noOffset {
		return nil
	}
	return b.Bytes()[b.l3:]
}

// L4 returns the byte slice starting at the transport-layer header,
// or nil if unset.
func (b *Buffer) L4() []byte {
	if b.l4 == noOffset {
		return nil
	}
	return b.Bytes()[b.l4:]
}
