package flow

import (
	"errors"
	"time"

	"github.com/netrack/ofswitch/ofp"
)

// MaxActions is the maximum number of actions an entry's action list
// may carry.
const MaxActions = 16

// ErrTooManyActions is returned by NewEntry when the supplied action
// list exceeds MaxActions.
var ErrTooManyActions = errors.New("flow: too many actions")

// Entry is an installed rule: a match key, a priority meaningful only
// when the key carries wildcards, idle/hard timeouts, counters and
// timestamps, and an owned, immutable action list.
type Entry struct {
	Match Match

	// Priority orders wildcarded entries within a table that scans in
	// priority order; it has no effect on a fully-specified entry,
	// which is implicitly of infinite priority and is matched
	// (or replaced, on insert) ahead of anything else.
	Priority uint16

	// IdleTimeout, in seconds, expires the entry after this many
	// seconds without a hit. Zero means no idle timeout.
	IdleTimeout uint16

	// HardTimeout, in seconds, expires the entry this many seconds
	// after installation regardless of use. Zero means permanent.
	HardTimeout uint16

	// Cookie is an opaque controller-assigned value, echoed back on
	// FLOW_EXPIRED and flow stats.
	Cookie uint64

	// SendFlowExpired requests a FLOW_EXPIRED notification when this
	// entry ages out.
	SendFlowExpired bool

	CreatedAt  time.Time
	LastUsedAt time.Time

	PacketCount uint64
	ByteCount   uint64

	actions ofp.Actions
}

// NewEntry builds an Entry from a match, priority and action list,
// rejecting lists longer than MaxActions.
func NewEntry(m Match, priority uint16, actions ofp.Actions) (*Entry, error) {
	if len(actions) > MaxActions {
		return nil, ErrTooManyActions
	}
	cp := make(ofp.Actions, len(actions))
	copy(cp, actions)

	now := time.Now()
	return &Entry{
		Match:      m,
		Priority:   priority,
		CreatedAt:  now,
		LastUsedAt: now,
		actions:    cp,
	}, nil
}

// Actions returns the entry's action list. The returned slice must
// not be mutated by the caller; the entry's action list is immutable
// for its lifetime (a MODIFY replaces it wholesale via SetActions).
func (e *Entry) Actions() ofp.Actions { return e.actions }

// SetActions replaces the entry's action list in place, as done by a
// MODIFY/MODIFY_STRICT FLOW_MOD — counters and timers are preserved.
func (e *Entry) SetActions(actions ofp.Actions) error {
	if len(actions) > MaxActions {
		return ErrTooManyActions
	}
	cp := make(ofp.Actions, len(actions))
	copy(cp, actions)
	e.actions = cp
	return nil
}

// Touch records a hit against the entry: bumps its counters and
// resets the idle timer. Called by the classifier after a successful
// lookup, since only the caller knows the matched packet's length.
func (e *Entry) Touch(byteLen int) {
	e.PacketCount++
	e.ByteCount += uint64(byteLen)
	e.LastUsedAt = time.Now()
}

// Wildcarded reports whether the entry's key carries any wildcard
// bit, i.e. whether Priority is meaningful.
func (e *Entry) Wildcarded() bool { return e.Match.Wildcards != 0 }

// idleExpired reports whether the entry has aged out on idle time as
// of now.
func (e *Entry) idleExpired(now time.Time) bool {
	return e.IdleTimeout != 0 && now.Sub(e.LastUsedAt) >= time.Duration(e.IdleTimeout)*time.Second
}

// hardExpired reports whether the entry has aged out on hard time as
// of now.
func (e *Entry) hardExpired(now time.Time) bool {
	return e.HardTimeout != 0 && now.Sub(e.CreatedAt) >= time.Duration(e.HardTimeout)*time.Second
}

// Expired reports whether the entry should be timed out as of now,
// and the reason to report on the resulting FLOW_EXPIRED.
func (e *Entry) Expired(now time.Time) (bool, ofp.FlowRemovedReason) {
	if e.hardExpired(now) {
		return true, ofp.FlowReasonHardTimeout
	}
	if e.idleExpired(now) {
		return true, ofp.FlowReasonIdleTimeout
	}
	return false, 0
}

// Stats builds the wire ofp.FlowStats reported for this entry.
func (e *Entry) Stats() ofp.FlowStats {
	dur := time.Since(e.CreatedAt)
	return ofp.FlowStats{
		Match:        e.Match.ToOFP(),
		DurationSec:  uint32(dur / time.Second),
		DurationNSec: uint32(dur % time.Second),
		Priority:     e.Priority,
		IdleTimeout:  e.IdleTimeout,
		HardTimeout:  e.HardTimeout,
		Cookie:       e.Cookie,
		PacketCount:  e.PacketCount,
		ByteCount:    e.ByteCount,
		Actions:      e.actions,
	}
}

// Removed builds the wire ofp.FlowRemoved reported when this entry is
// timed out or explicitly deleted with SendFlowExpired set.
func (e *Entry) Removed(reason ofp.FlowRemovedReason) ofp.FlowRemoved {
	dur := time.Since(e.CreatedAt)
	return ofp.FlowRemoved{
		Match:        e.Match.ToOFP(),
		Cookie:       e.Cookie,
		Priority:     e.Priority,
		Reason:       reason,
		DurationSec:  uint32(dur / time.Second),
		DurationNSec: uint32(dur % time.Second),
		IdleTimeout:  e.IdleTimeout,
		PacketCount:  e.PacketCount,
		ByteCount:    e.ByteCount,
	}
}
