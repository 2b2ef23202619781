package ofp

import (
	"bytes"
	"io"

	"github.com/netrack/ofswitch/internal/encoding"
)

// FlowModCommand represents a type of the flow table modification
// message.
type FlowModCommand uint8

const (
	// FlowAdd is a command used to add a new flow.
	FlowAdd FlowModCommand = iota

	// FlowModify is a command used to modify all matching flows.
	FlowModify

	// FlowModifyStrict is a command used to modify the entry strictly
	// matching wildcards and priority.
	FlowModifyStrict

	// FlowDelete is a command used to delete all matching flows.
	FlowDelete

	// FlowDeleteStrict is a command used to delete the entry strictly
	// matching wildcards and priority.
	FlowDeleteStrict
)

// FlowModFlag defines flags used in flow modification messages.
type FlowModFlag uint16

const (
	// FlowFlagSendFlowRem instructs the switch to send a flow removed
	// message when the flow entry expires or is deleted.
	FlowFlagSendFlowRem FlowModFlag = 1 << iota

	// FlowFlagCheckOverlap instructs the switch to check that there
	// are no conflicting entries with the same priority prior to
	// inserting it in the flow table.
	//
	// If there is one, the flow mod fails and an error message is
	// returned.
	FlowFlagCheckOverlap
)

// FlowMod represents a modification message to the flow table from
// the controller.
//
// For example, to create a flow entry forwarding all packets arriving
// on the first port to the second port:
//
//	fmod := &ofp.FlowMod{Command: ofp.FlowAdd, OutPort: ofp.PortNone}
//	fmod.Match.Wildcards = ofp.WildcardAll &^ ofp.WildcardInPort
//	fmod.Match.InPort = 1
//	fmod.Actions = ofp.Actions{&ofp.ActionOutput{Port: 2}}
type FlowMod struct {
	// Match lists the fields to match.
	Match Match

	// The Cookie is an opaque data value chosen by the controller.
	//
	// This value appears in flow removed messages and flow
	// statistics. No request filters entries by cookie.
	Cookie uint64

	// Command specifies a flow modification command.
	Command FlowModCommand

	// IdleTimeout specifies the time before discarding a flow entry
	// with no matching traffic (in seconds). Zero means never.
	IdleTimeout uint16

	// HardTimeout specifies the max time before discarding a flow
	// entry regardless of traffic (in seconds). Zero means never.
	HardTimeout uint16

	// Priority indicates priority among flows whose key has any
	// wildcarded field. Higher numbers indicate higher priority.
	Priority uint16

	// Buffer refers to a packet buffered at the switch and reported
	// to the controller by a PACKET_IN message.
	//
	// If no buffered packet is associated with the flow mod, it must
	// be set to NoBuffer.
	Buffer uint32

	// For flow deletion commands, require matching entries to
	// include this as an output port. PortNone indicates no
	// restriction.
	OutPort PortNo

	// Flags specifies a set of flow modification flags.
	Flags FlowModFlag

	// Actions lists the actions applied by the flow entry when
	// adding or modifying entries.
	Actions Actions
}

// WriteTo implements io.WriterTo interface. It serializes the flow
// modification command into the wire format.
func (f *FlowMod) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, &f.Match, f.Cookie, f.Command,
		f.IdleTimeout, f.HardTimeout, f.Priority, f.Buffer,
		f.OutPort, f.Flags, &f.Actions,
	)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// flow modification command from the wire format.
func (f *FlowMod) ReadFrom(r io.Reader) (int64, error) {
	f.Actions = nil

	return encoding.ReadFrom(r, &f.Match, &f.Cookie, &f.Command,
		&f.IdleTimeout, &f.HardTimeout, &f.Priority, &f.Buffer,
		&f.OutPort, &f.Flags, &f.Actions,
	)
}

// FlowRemovedReason specifies the reason of the flow entry removal.
type FlowRemovedReason uint8

const (
	// FlowReasonIdleTimeout is set when the flow was removed because
	// it exceeded its IdleTimeout.
	FlowReasonIdleTimeout FlowRemovedReason = iota

	// FlowReasonHardTimeout is set when the flow was removed because
	// it exceeded its HardTimeout.
	FlowReasonHardTimeout

	// FlowReasonDelete is set when the flow was evicted by a delete
	// flow mod.
	FlowReasonDelete
)

// FlowRemoved is the message emitted when the controller has
// requested to be notified of flow entries timing out or being
// deleted.
type FlowRemoved struct {
	// Match lists the fields that were matched.
	Match Match

	// Cookie is the opaque data value chosen by the controller for
	// this flow.
	Cookie uint64

	// Priority indicates the priority the flow was installed with.
	Priority uint16

	// Reason specifies the reason for the flow entry removal.
	Reason FlowRemovedReason

	// DurationSec is the time the flow was alive, in seconds.
	DurationSec uint32

	// DurationNSec is the time the flow was alive, in nanoseconds
	// beyond DurationSec.
	DurationNSec uint32

	// IdleTimeout is the idle timeout the flow was installed with.
	IdleTimeout uint16

	// PacketCount is the number of packets that matched the removed
	// flow entry.
	PacketCount uint64

	// ByteCount is the number of bytes that matched the removed flow
	// entry.
	ByteCount uint64
}

// WriteTo implements io.WriterTo interface. It serializes the flow
// removed message into the wire format.
func (f *FlowRemoved) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, &f.Match, f.Cookie, f.Priority, f.Reason,
		pad1{}, f.DurationSec, f.DurationNSec, f.IdleTimeout,
		pad2{}, f.PacketCount, f.ByteCount,
	)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// flow removed message from the wire format.
func (f *FlowRemoved) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &f.Match, &f.Cookie, &f.Priority,
		&f.Reason, &defaultPad1, &f.DurationSec, &f.DurationNSec,
		&f.IdleTimeout, &defaultPad2, &f.PacketCount, &f.ByteCount,
	)
}

// FlowStatsRequest is a STATS_REQUEST body used to retrieve
// information about individual flow entries.
//
// For example, to retrieve information about the flow entries
// matching the second ingress port:
//
//	body := &ofp.FlowStatsRequest{OutPort: ofp.PortNone}
//	body.Match.Wildcards = ofp.WildcardAll &^ ofp.WildcardInPort
//	body.Match.InPort = 2
type FlowStatsRequest struct {
	// Match lists the fields to match.
	Match Match

	// OutPort requires matching entries to include this as an output
	// port. PortNone indicates no restriction.
	OutPort PortNo
}

// WriteTo implements io.WriterTo interface. It serializes the flow
// statistics request into the wire format.
func (f *FlowStatsRequest) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, &f.Match, f.OutPort, pad2{})
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// flow statistics request from the wire format.
func (f *FlowStatsRequest) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &f.Match, &f.OutPort, &defaultPad2)
}

// FlowStats is a single entry within a STATS_REPLY(FLOW) body.
type FlowStats struct {
	// Match describes the fields matched by the entry.
	Match Match

	// DurationSec is the time the flow has been alive, in seconds.
	DurationSec uint32

	// DurationNSec is the time the flow has been alive, in
	// nanoseconds beyond DurationSec.
	DurationNSec uint32

	// Priority of the entry.
	Priority uint16

	// IdleTimeout is the number of idle seconds before expiration.
	IdleTimeout uint16

	// HardTimeout is the number of seconds before expiration.
	HardTimeout uint16

	// Cookie is the opaque controller-issued identifier.
	Cookie uint64

	// PacketCount is the number of packets that matched the flow.
	PacketCount uint64

	// ByteCount is the number of bytes that matched the flow.
	ByteCount uint64

	// Actions applied by the flow entry.
	Actions Actions
}

// WriteTo implements io.WriterTo interface. It serializes the flow
// statistics entry into the wire format, prefixed with its own
// length so a STATS_REPLY(FLOW) body can hold several back to back.
func (f *FlowStats) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	_, err := encoding.WriteTo(&buf, &f.Match, f.DurationSec,
		f.DurationNSec, f.Priority, f.IdleTimeout, f.HardTimeout,
		pad6{}, f.Cookie, f.PacketCount, f.ByteCount, &f.Actions,
	)

	if err != nil {
		return 0, err
	}

	return encoding.WriteTo(w, uint16(buf.Len()+2), buf.Bytes())
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// flow statistics entry from the wire format.
func (f *FlowStats) ReadFrom(r io.Reader) (int64, error) {
	var length uint16

	n, err := encoding.ReadFrom(r, &length, &f.Match, &f.DurationSec,
		&f.DurationNSec, &f.Priority, &f.IdleTimeout, &f.HardTimeout,
		&defaultPad6, &f.Cookie, &f.PacketCount, &f.ByteCount,
	)

	if err != nil {
		return n, err
	}

	limrd := io.LimitReader(r, int64(length)-n)
	f.Actions = nil

	nn, err := f.Actions.ReadFrom(limrd)
	return n + nn, err
}
