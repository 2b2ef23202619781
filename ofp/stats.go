package ofp

import (
	"bytes"
	"fmt"
	"io"

	"github.com/netrack/ofswitch/internal/encoding"
)

// StatsType identifies the subtype of a STATS_REQUEST/STATS_REPLY
// exchange, and so how the request and reply bodies are interpreted.
type StatsType uint16

const (
	// StatsTypeDesc retrieves switch manufacturer/hardware/software
	// information. Request body is empty, reply body is Description.
	StatsTypeDesc StatsType = iota

	// StatsTypeFlow retrieves individual flow entry statistics.
	// Request body is FlowStatsRequest, reply body is zero or more
	// FlowStats.
	StatsTypeFlow

	// StatsTypeAggregate retrieves summed statistics over a set of
	// flow entries. Request body is AggregateStatsRequest, reply body
	// is AggregateStatsReply.
	StatsTypeAggregate

	// StatsTypeTable retrieves per-table statistics for the chain.
	// Request body is empty, reply body is zero or more TableStats.
	StatsTypeTable

	// StatsTypePort retrieves per-port counters. Request body is
	// PortStatsRequest, reply body is zero or more PortStats.
	StatsTypePort
)

func (t StatsType) String() string {
	text, ok := statsTypeText[t]
	if !ok {
		return fmt.Sprintf("StatsType(%d)", t)
	}
	return text
}

var statsTypeText = map[StatsType]string{
	StatsTypeDesc:      "StatsTypeDesc",
	StatsTypeFlow:      "StatsTypeFlow",
	StatsTypeAggregate: "StatsTypeAggregate",
	StatsTypeTable:     "StatsTypeTable",
	StatsTypePort:      "StatsTypePort",
}

// StatsRequestFlag defines flags carried by a STATS_REQUEST.
type StatsRequestFlag uint16

// StatsReplyFlag defines flags carried by a STATS_REPLY.
type StatsReplyFlag uint16

const (
	// StatsReplyMore is set on every STATS_REPLY of a sequence except
	// the last, when the body did not fit a single message.
	StatsReplyMore StatsReplyFlag = 1 << iota
)

// StatsRequest is the envelope of a STATS_REQUEST message.
//
// For example, to request statistics for every flow entry matching
// the second switch port:
//
//	body := &ofp.FlowStatsRequest{OutPort: ofp.PortNone}
//	body.Match.Wildcards = ofp.WildcardAll &^ ofp.WildcardInPort
//	body.Match.InPort = 2
//
//	req := &ofp.StatsRequest{Type: ofp.StatsTypeFlow, Body: body}
type StatsRequest struct {
	// Type selects how Body is interpreted.
	Type StatsType

	// Flags carried with the request.
	Flags StatsRequestFlag

	// Body is the subtype-specific request payload; nil for
	// subtypes with no request body (DESC, TABLE).
	Body io.WriterTo
}

// WriteTo implements io.WriterTo interface. It serializes the stats
// request envelope and its body into the wire format.
func (s *StatsRequest) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	if s.Body != nil {
		if _, err := s.Body.WriteTo(&buf); err != nil {
			return 0, err
		}
	}

	return encoding.WriteTo(w, s.Type, s.Flags, buf.Bytes())
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// stats request envelope from the wire format, leaving the body bytes
// in Body for the caller to decode according to Type.
func (s *StatsRequest) ReadFrom(r io.Reader) (int64, error) {
	n, err := encoding.ReadFrom(r, &s.Type, &s.Flags)
	if err != nil {
		return n, err
	}

	var buf bytes.Buffer
	nn, err := io.Copy(&buf, r)
	s.Body = &buf
	return n + nn, err
}

// StatsReply is the envelope of a STATS_REPLY message. A single
// STATS_REQUEST may be answered by more than one StatsReply; every
// reply but the last carries StatsReplyMore.
type StatsReply struct {
	// Type matches the request's Type.
	Type StatsType

	// Flags carried with the reply.
	Flags StatsReplyFlag
}

// WriteTo implements io.WriterTo interface. It serializes the stats
// reply envelope into the wire format.
func (s *StatsReply) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, s.Type, s.Flags)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// stats reply envelope from the wire format.
func (s *StatsReply) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &s.Type, &s.Flags)
}

// AggregateStatsRequest requests summed statistics over the flow
// entries matching Match and, if set, OutPort.
type AggregateStatsRequest struct {
	// Match lists the fields to match.
	Match Match

	// OutPort requires matching entries to include this as an output
	// port. PortNone indicates no restriction.
	OutPort PortNo
}

// WriteTo implements io.WriterTo interface.
func (a *AggregateStatsRequest) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, &a.Match, a.OutPort, pad2{})
}

// ReadFrom implements io.ReaderFrom interface.
func (a *AggregateStatsRequest) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &a.Match, &a.OutPort, &defaultPad2)
}

// AggregateStatsReply carries the result of an aggregate stats
// request: the number of flows matched and their summed packet and
// byte counters.
type AggregateStatsReply struct {
	// PacketCount is the summed packet count of the matched flows.
	PacketCount uint64

	// ByteCount is the summed byte count of the matched flows.
	ByteCount uint64

	// FlowCount is the number of flows that contributed to the sums.
	FlowCount uint32
}

// WriteTo implements io.WriterTo interface.
func (a *AggregateStatsReply) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, a.PacketCount, a.ByteCount, a.FlowCount, pad4{})
}

// ReadFrom implements io.ReaderFrom interface.
func (a *AggregateStatsReply) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &a.PacketCount, &a.ByteCount, &a.FlowCount, &defaultPad4)
}

const tableNameLen = 32

// TableStats reports counters for a single table in the classifier
// chain (STATS_REPLY(TABLE) carries one entry per table, ordered
// cheapest to most general, matching the chain's lookup order).
type TableStats struct {
	// TableID identifies the table's position in the chain, starting
	// at zero for the cheapest table consulted first.
	TableID uint8

	// Name is a human readable name for the table (e.g.
	// "hash", "linear").
	Name string

	// Wildcards is the bitwise-OR of every Wildcard bit this table
	// is capable of matching on a stored entry.
	Wildcards Wildcard

	// MaxEntries is the table's capacity, or zero if unbounded.
	MaxEntries uint32

	// ActiveCount is the number of entries currently stored.
	ActiveCount uint32

	// LookupCount is the number of packets that have been looked up
	// in this table.
	LookupCount uint64

	// MatchedCount is the number of lookups that resulted in a hit.
	MatchedCount uint64
}

// WriteTo implements io.WriterTo interface.
func (t *TableStats) WriteTo(w io.Writer) (int64, error) {
	name := make([]byte, tableNameLen)
	copy(name, t.Name)

	return encoding.WriteTo(w, t.TableID, pad3{}, name, t.Wildcards,
		t.MaxEntries, t.ActiveCount, t.LookupCount, t.MatchedCount)
}

// ReadFrom implements io.ReaderFrom interface.
func (t *TableStats) ReadFrom(r io.Reader) (int64, error) {
	var name [tableNameLen]byte

	n, err := encoding.ReadFrom(r, &t.TableID, &defaultPad3, &name,
		&t.Wildcards, &t.MaxEntries, &t.ActiveCount, &t.LookupCount,
		&t.MatchedCount)
	if err != nil {
		return n, err
	}

	t.Name = stringFromNulTerminated(name[:])
	return n, nil
}
