package datapath

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/openflow"
	"github.com/netrack/ofswitch/port"
)

// maxStatsBodyLen bounds how many bytes of entries a single
// STATS_REPLY carries before Flags gets StatsReplyMore and a new
// message starts, so a long flow or port listing never overflows the
// header's 16-bit Length field.
const maxStatsBodyLen = math.MaxUint16 - openflow.HeaderLen - 4

// handleStatsRequest decodes a STATS_REQUEST and dispatches it by
// Type, replying with one or more STATS_REPLY messages sent directly
// over the connection rather than through rw, since a FLOW or PORT
// listing may need more than one message to carry every entry.
func (dp *Datapath) handleStatsRequest(rw openflow.ResponseWriter, r *openflow.Request) {
	crw, ok := rw.(*connResponseWriter)
	if !ok {
		return
	}

	var req ofp.StatsRequest
	if _, err := req.ReadFrom(r.Body); err != nil {
		dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadLen)
		return
	}
	body, _ := req.Body.(*bytes.Buffer)

	var entries []io.WriterTo

	switch req.Type {
	case ofp.StatsTypeDesc:
		entries = []io.WriterTo{&ofp.Description{
			Manufacturer: "netrack",
			Hardware:     "ofswitch",
			Software:     "ofswitch",
			SerialNum:    "0",
			Datapath:     fmt.Sprintf("%#016x", dp.ID),
		}}

	case ofp.StatsTypeFlow:
		var fsr ofp.FlowStatsRequest
		if _, err := fsr.ReadFrom(body); err != nil {
			dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadLen)
			return
		}
		match := flow.FromOFP(fsr.Match)

		dp.mu.Lock()
		dp.Chain.Iterate(func(e *flow.Entry) bool {
			if flow.MatchTwoSided(e.Match, match) &&
				(fsr.OutPort == ofp.PortNone || entryOutputsTo(e, fsr.OutPort)) {
				stats := e.Stats()
				entries = append(entries, &stats)
			}
			return true
		})
		dp.mu.Unlock()

	case ofp.StatsTypeAggregate:
		var asr ofp.AggregateStatsRequest
		if _, err := asr.ReadFrom(body); err != nil {
			dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadLen)
			return
		}
		match := flow.FromOFP(asr.Match)

		var agg ofp.AggregateStatsReply
		dp.mu.Lock()
		dp.Chain.Iterate(func(e *flow.Entry) bool {
			if flow.MatchTwoSided(e.Match, match) &&
				(asr.OutPort == ofp.PortNone || entryOutputsTo(e, asr.OutPort)) {
				agg.PacketCount += e.PacketCount
				agg.ByteCount += e.ByteCount
				agg.FlowCount++
			}
			return true
		})
		dp.mu.Unlock()
		entries = []io.WriterTo{&agg}

	case ofp.StatsTypeTable:
		stats := dp.Chain.Stats()
		for i := range stats {
			entries = append(entries, &stats[i])
		}

	case ofp.StatsTypePort:
		var psr ofp.PortStatsRequest
		if _, err := psr.ReadFrom(body); err != nil {
			dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadLen)
			return
		}
		dp.Ports.Each(func(p *port.Port) {
			if psr.PortNo != ofp.PortNone && p.No != psr.PortNo {
				return
			}
			stats := p.Stats()
			entries = append(entries, &stats)
		})

	default:
		dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadType)
		return
	}

	dp.replyStats(crw.conn, r.Header.XID, req.Type, entries)
}

// replyStats sends entries as one or more STATS_REPLY messages,
// starting a new message whenever the accumulated entries would
// overflow a single one, with every reply but the last carrying
// StatsReplyMore.
func (dp *Datapath) replyStats(c openflow.Conn, xid uint32, t ofp.StatsType, entries []io.WriterTo) {
	var chunks [][]io.WriterTo
	var chunk []io.WriterTo
	var chunkLen int

	for _, e := range entries {
		var buf bytes.Buffer
		if _, err := e.WriteTo(&buf); err != nil {
			dp.Logger.Printf("datapath: encoding stats entry: %v", err)
			continue
		}
		if chunkLen+buf.Len() > maxStatsBodyLen && len(chunk) > 0 {
			chunks = append(chunks, chunk)
			chunk = nil
			chunkLen = 0
		}
		chunk = append(chunk, e)
		chunkLen += buf.Len()
	}
	chunks = append(chunks, chunk)

	for i, ch := range chunks {
		flags := ofp.StatsReplyFlag(0)
		if i < len(chunks)-1 {
			flags = ofp.StatsReplyMore
		}

		body := &statsReplyBody{envelope: ofp.StatsReply{Type: t, Flags: flags}, entries: ch}
		req, err := openflow.NewRequest(openflow.TypeStatsReply, body)
		if err != nil {
			dp.Logger.Printf("datapath: building STATS_REPLY: %v", err)
			return
		}
		req.Header.XID = xid

		if err := openflow.Send(c, req); err != nil {
			dp.Logger.Printf("datapath: sending STATS_REPLY: %v", err)
			return
		}
	}
}

// statsReplyBody concatenates a STATS_REPLY envelope with its
// subtype-specific entries into a single message body.
type statsReplyBody struct {
	envelope ofp.StatsReply
	entries  []io.WriterTo
}

func (b *statsReplyBody) WriteTo(w io.Writer) (int64, error) {
	var n int64
	nn, err := b.envelope.WriteTo(w)
	n += nn
	if err != nil {
		return n, err
	}
	for _, e := range b.entries {
		nn, err := e.WriteTo(w)
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
