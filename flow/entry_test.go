package flow

import (
	"testing"
	"time"

	"github.com/netrack/ofswitch/ofp"
)

func TestNewEntryTooManyActions(t *testing.T) {
	actions := make(ofp.Actions, MaxActions+1)
	for i := range actions {
		actions[i] = &ofp.ActionOutput{Port: ofp.PortFlood}
	}

	if _, err := NewEntry(Match{}, 0, actions); err != ErrTooManyActions {
		t.Errorf("expected ErrTooManyActions, got %v", err)
	}
}

func TestEntryTouch(t *testing.T) {
	e, err := NewEntry(Match{}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	e.Touch(64)
	e.Touch(128)

	if e.PacketCount != 2 {
		t.Errorf("PacketCount = %d, want 2", e.PacketCount)
	}
	if e.ByteCount != 192 {
		t.Errorf("ByteCount = %d, want 192", e.ByteCount)
	}
}

func TestEntryIdleExpired(t *testing.T) {
	e, _ := NewEntry(Match{}, 0, nil)
	e.IdleTimeout = 10
	e.LastUsedAt = time.Now().Add(-11 * time.Second)

	ok, reason := e.Expired(time.Now())
	if !ok || reason != ofp.FlowReasonIdleTimeout {
		t.Errorf("expected idle timeout expiry, got ok=%v reason=%v", ok, reason)
	}
}

func TestEntryHardExpired(t *testing.T) {
	e, _ := NewEntry(Match{}, 0, nil)
	e.HardTimeout = 10
	e.CreatedAt = time.Now().Add(-11 * time.Second)
	e.LastUsedAt = time.Now()

	ok, reason := e.Expired(time.Now())
	if !ok || reason != ofp.FlowReasonHardTimeout {
		t.Errorf("expected hard timeout expiry, got ok=%v reason=%v", ok, reason)
	}
}

func TestEntrySetActionsTooMany(t *testing.T) {
	e, _ := NewEntry(Match{}, 0, nil)
	actions := make(ofp.Actions, MaxActions+1)
	if err := e.SetActions(actions); err != ErrTooManyActions {
		t.Errorf("expected ErrTooManyActions, got %v", err)
	}
}
