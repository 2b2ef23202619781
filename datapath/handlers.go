package datapath

import (
	"io"
	"io/ioutil"

	"github.com/netrack/ofswitch/action"
	"github.com/netrack/ofswitch/bufcache"
	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/openflow"
	"github.com/netrack/ofswitch/packet"
)

// handleHello discards the peer's HELLO; the version is already
// pinned by openflow.Version and checked by the connection framing,
// so there is nothing further to negotiate.
func (dp *Datapath) handleHello(rw openflow.ResponseWriter, r *openflow.Request) {}

func (dp *Datapath) handleEchoRequest(rw openflow.ResponseWriter, r *openflow.Request) {
	var req ofp.EchoRequest
	if _, err := req.ReadFrom(r.Body); err != nil {
		dp.Logger.Printf("datapath: decoding ECHO_REQUEST: %v", err)
		return
	}

	rw.Header().Type = openflow.TypeEchoReply
	rw.Header().XID = r.Header.XID
	reply := ofp.EchoReply{Data: req.Data}
	reply.WriteTo(rw)
	rw.WriteHeader()
}

func (dp *Datapath) handleFeaturesRequest(rw openflow.ResponseWriter, r *openflow.Request) {
	features := ofp.SwitchFeatures{
		DatapathID:   dp.ID,
		NumBuffers:   bufcacheCapacity,
		NumTables:    uint8(len(dp.Chain.Stats())),
		Capabilities: dp.Capabilities,
		Actions:      supportedActions,
		Ports:        dp.Ports.Describe(),
	}

	dp.writeReply(rw, r, openflow.TypeFeaturesReply, &features)
}

func (dp *Datapath) handleGetConfigRequest(rw openflow.ResponseWriter, r *openflow.Request) {
	dp.connMu.Lock()
	cfg := dp.cfg
	dp.connMu.Unlock()

	dp.writeReply(rw, r, openflow.TypeGetConfigReply, &cfg)
}

func (dp *Datapath) handleSetConfig(rw openflow.ResponseWriter, r *openflow.Request) {
	var cfg ofp.SwitchConfig
	if _, err := cfg.ReadFrom(r.Body); err != nil {
		dp.Logger.Printf("datapath: decoding SET_CONFIG: %v", err)
		return
	}
	cfg.Flags = ofp.NormalizeFragFlag(cfg.Flags)

	dp.connMu.Lock()
	dp.cfg = cfg
	dp.connMu.Unlock()
}

// handleFlowMod applies a FLOW_MOD to the classifier chain, rejecting
// an action list that would loop the packet back to the entry's own
// declared ingress port, TABLE or NONE.
func (dp *Datapath) handleFlowMod(rw openflow.ResponseWriter, r *openflow.Request) {
	var fm ofp.FlowMod
	if _, err := fm.ReadFrom(r.Body); err != nil {
		dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadLen)
		return
	}

	if err := action.Validate(fm.Actions, fm.Match.InPort); err != nil {
		if ofe, ok := err.(ofp.Error); ok {
			dp.replyError(rw, r, ofe.Type, ofe.Code)
		}
		return
	}

	match := flow.FromOFP(fm.Match)

	dp.mu.Lock()
	defer dp.mu.Unlock()

	switch fm.Command {
	case ofp.FlowAdd, ofp.FlowModify, ofp.FlowModifyStrict:
		dp.installFlow(rw, r, fm, match)
	case ofp.FlowDelete:
		dp.deleteFlow(match, fm.Priority, fm.OutPort, false)
	case ofp.FlowDeleteStrict:
		dp.deleteFlow(match, fm.Priority, fm.OutPort, true)
	default:
		dp.replyError(rw, r, ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedBadCommand)
	}
}

func (dp *Datapath) installFlow(rw openflow.ResponseWriter, r *openflow.Request, fm ofp.FlowMod, match flow.Match) {
	switch fm.Command {
	case ofp.FlowModify, ofp.FlowModifyStrict:
		strict := fm.Command == ofp.FlowModifyStrict
		if dp.modifyExisting(match, fm.Priority, fm.Actions, strict) {
			return
		}
		fallthrough
	case ofp.FlowAdd:
		if fm.Flags&ofp.FlowFlagCheckOverlap != 0 {
			overlap := false
			dp.Chain.Iterate(func(e *flow.Entry) bool {
				overlap = e.Priority == fm.Priority && flow.MatchTwoSided(e.Match, match)
				return !overlap
			})
			if overlap {
				dp.replyError(rw, r, ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedOverlap)
				return
			}
		}
		entry, err := flow.NewEntry(match, fm.Priority, fm.Actions)
		if err != nil {
			dp.replyError(rw, r, ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedUnknown)
			return
		}
		entry.Cookie = fm.Cookie
		entry.IdleTimeout = fm.IdleTimeout
		entry.HardTimeout = fm.HardTimeout
		entry.SendFlowExpired = fm.Flags&ofp.FlowFlagSendFlowRem != 0

		if err := dp.Chain.Insert(entry); err != nil {
			dp.replyError(rw, r, ofp.ErrTypeFlowModFailed, ofp.ErrCodeFlowModFailedTableFull)
			return
		}

		if fm.Buffer != ofp.NoBuffer {
			dp.executeBuffered(fm.Buffer, fm.Match.InPort, entry.Actions())
		}
	}
}

// executeBuffered runs actions against the packet buffered under id,
// as a FLOW_MOD(ADD) naming a buffer requires: a retrieve failure is
// logged but never undoes the flow already installed in the chain.
func (dp *Datapath) executeBuffered(id uint32, inPort ofp.PortNo, actions ofp.Actions) {
	buf, ok := dp.Buffers.Retrieve(id)
	if !ok {
		dp.Logger.Printf("datapath: FLOW_MOD buffer %d not found", id)
		return
	}

	clone := packet.New(append([]byte(nil), buf.Bytes()...))
	key, _ := packet.ParseHeader(clone, inPort)

	out := &switchOutputs{dp: dp}
	if err := action.Execute(buf, &key, actions, inPort, out); err != nil {
		dp.Logger.Printf("datapath: executing FLOW_MOD buffer actions: %v", err)
	}
}

// modifyExisting replaces the action list of every entry matching
// match (or, under strict, the single entry with an identical match
// and priority), reporting whether any entry was found.
func (dp *Datapath) modifyExisting(match flow.Match, priority uint16, actions ofp.Actions, strict bool) bool {
	found := false
	dp.Chain.Iterate(func(e *flow.Entry) bool {
		if strict {
			if e.Match.Key.Equal(match.Key) && e.Match.Wildcards == match.Wildcards && e.Priority == priority {
				e.SetActions(actions)
				found = true
			}
			return true
		}
		if flow.MatchTwoSided(e.Match, match) {
			e.SetActions(actions)
			found = true
		}
		return true
	})
	return found
}

func (dp *Datapath) deleteFlow(match flow.Match, priority uint16, outPort ofp.PortNo, strict bool) {
	removed := dp.Chain.Delete(match, priority, strict)
	for _, e := range removed {
		if outPort != ofp.PortNone && !entryOutputsTo(e, outPort) {
			continue
		}
		if e.SendFlowExpired {
			removedMsg := e.Removed(ofp.FlowReasonDelete)
			dp.notify(openflow.TypeFlowRemoved, &removedMsg)
		}
	}
}

func entryOutputsTo(e *flow.Entry, p ofp.PortNo) bool {
	for _, a := range e.Actions() {
		if out, ok := a.(*ofp.ActionOutput); ok && out.Port == p {
			return true
		}
	}
	return false
}

// handlePacketOut resolves the packet named by a PACKET_OUT (a buffer
// cache id or inline Data), parses its headers to obtain a flow.Key
// and runs the requested actions against it.
func (dp *Datapath) handlePacketOut(rw openflow.ResponseWriter, r *openflow.Request) {
	var po ofp.PacketOut
	if _, err := po.ReadFrom(r.Body); err != nil {
		dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadLen)
		return
	}

	var buf *packet.Buffer
	if po.Buffer == ofp.NoBuffer {
		buf = packet.New(po.Data)
	} else {
		var ok bool
		buf, ok = dp.Buffers.Retrieve(po.Buffer)
		if !ok {
			dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBufferUnknown)
			return
		}
	}

	dp.mu.Lock()
	defer dp.mu.Unlock()

	clone := packet.New(append([]byte(nil), buf.Bytes()...))
	key, _ := packet.ParseHeader(clone, po.InPort)

	out := &switchOutputs{dp: dp}
	if err := action.Execute(buf, &key, po.Actions, po.InPort, out); err != nil {
		dp.Logger.Printf("datapath: PACKET_OUT actions: %v", err)
	}
}

func (dp *Datapath) handlePortMod(rw openflow.ResponseWriter, r *openflow.Request) {
	var pm ofp.PortMod
	if _, err := pm.ReadFrom(r.Body); err != nil {
		dp.replyError(rw, r, ofp.ErrTypeBadRequest, ofp.ErrCodeBadRequestBadLen)
		return
	}

	p, ok := dp.Ports.Get(pm.PortNo)
	if !ok {
		dp.replyError(rw, r, ofp.ErrTypePortModFailed, ofp.ErrCodePortModFailedBadPort)
		return
	}

	if pm.HWAddr.String() != p.Driver.HardwareAddr().String() && p.Config&ofp.PortConfigDown == 0 {
		dp.replyError(rw, r, ofp.ErrTypePortModFailed, ofp.ErrCodePortModFailedBadHwAddr)
		return
	}

	p.Config = (p.Config &^ pm.Mask) | (pm.Config & pm.Mask)

	dp.notify(openflow.TypePortStatus, &ofp.PortStatus{
		Reason: ofp.PortReasonModify,
		Port:   p.Describe(),
	})
}

// writeReply serializes body as a reply to r, echoing its XID.
func (dp *Datapath) writeReply(rw openflow.ResponseWriter, r *openflow.Request, t openflow.Type, body io.WriterTo) {
	rw.Header().Type = t
	rw.Header().XID = r.Header.XID
	if _, err := body.WriteTo(rw); err != nil {
		dp.Logger.Printf("datapath: writing %v reply: %v", t, err)
		return
	}
	rw.WriteHeader()
}

func (dp *Datapath) replyError(rw openflow.ResponseWriter, r *openflow.Request, t ofp.ErrType, code ofp.ErrCode) {
	data, _ := ioutil.ReadAll(r.Body)
	errBody := ofp.Error{Type: t, Code: code, Data: data}
	dp.writeReply(rw, r, openflow.TypeError, &errBody)
}

// bufcacheCapacity is reported as FEATURES_REPLY.NumBuffers.
const bufcacheCapacity = bufcache.N

// supportedActions is the bitmap of action types this switch accepts
// in a flow entry's action list, indexed by ofp.ActionType.
var supportedActions = actionBitmap(
	ofp.ActionTypeOutput,
	ofp.ActionTypeSetVLANVID,
	ofp.ActionTypeSetVLANPCP,
	ofp.ActionTypeStripVLAN,
	ofp.ActionTypeSetDLSrc,
	ofp.ActionTypeSetDLDst,
	ofp.ActionTypeSetNwSrc,
	ofp.ActionTypeSetNwDst,
	ofp.ActionTypeSetTPSrc,
	ofp.ActionTypeSetTPDst,
)

func actionBitmap(types ...ofp.ActionType) uint32 {
	var bits uint32
	for _, t := range types {
		bits |= 1 << uint(t)
	}
	return bits
}
