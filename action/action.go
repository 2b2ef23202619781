// Package action implements the action interpreter (C7): it walks a
// flow entry's action list against an owned packet, rewriting headers
// in place and resolving OUTPUT actions against the port set or the
// control channel.
//
// Grounded on original_source/datapath/forward.c's execute_actions:
// the interpreter remembers a single pending output port and defers
// sending until either a second OUTPUT is reached (the packet is
// cloned, the clone sent, and the original kept for the remainder of
// the list) or the action list ends (the original is sent, unfreed).
// This earns the common case — exactly one OUTPUT — no clone at all.
//
// Execute takes the buffer as received off the wire, at its original
// length with the Ethernet header still in place: the classifier's
// packet.ParseHeader runs against a throwaway view (or a clone) to
// build the flow.Key used for table lookup, while Execute re-derives
// header offsets directly from key.DLVLAN/key.DLType rather than from
// the buffer's L2/L3/L4 cursors, which ParseHeader leaves in a state
// suited to forward-only classification, not to later rewriting.
package action

import (
	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/packet"
	"github.com/netrack/ofswitch/port"
)

// Outputs resolves an OUTPUT action's destination. A datapath
// implements it to bridge the action interpreter to the port set and
// the control channel without the interpreter importing either
// directly.
type Outputs interface {
	// Port sends frame out a single physical or PortLocal/PortIn
	// target port number.
	Port(no port.Number, frame []byte) error

	// Flood sends frame to every port in the flood set except
	// ingress.
	Flood(ingress port.Number, frame []byte) error

	// All sends frame to every port except ingress, ignoring
	// NO_FLOOD.
	All(ingress port.Number, frame []byte) error

	// Controller wraps frame (already truncated to the action's
	// max_len) as a PACKET_IN with reason ACTION and emits it on the
	// control channel.
	Controller(ingress port.Number, frame []byte) error

	// Table re-runs the classifier against frame as if it had just
	// arrived on ingress.
	Table(ingress port.Number, frame []byte) error
}

// Execute walks actions against buf, rewriting it in place for
// non-OUTPUT actions and resolving OUTPUT actions through outputs.
// key is the flow entry's matched key, used as rewrite context (the
// current DLType/DLVLAN/NWProto) and updated in place as VLAN actions
// change it; ingress is the packet's arrival port.
func Execute(buf *packet.Buffer, key *flow.Key, actions ofp.Actions, ingress port.Number, outputs Outputs) error {
	var pendingPort port.Number
	var pendingMaxLen uint16
	pending := false

	for _, act := range actions {
		out, isOutput := act.(*ofp.ActionOutput)
		if isOutput {
			if pending {
				if err := dispatch(ingress, buf.Clone().Bytes(), pendingPort, pendingMaxLen, outputs); err != nil {
					return err
				}
			}
			pendingPort, pendingMaxLen, pending = out.Port, out.MaxLen, true
			continue
		}

		if err := rewrite(buf, key, act); err != nil {
			return err
		}
	}

	if pending {
		return dispatch(ingress, buf.Bytes(), pendingPort, pendingMaxLen, outputs)
	}
	return nil
}

// dispatch sends frame to the resolved meaning of a single OUTPUT
// action's port field.
func dispatch(ingress port.Number, frame []byte, out port.Number, maxLen uint16, outputs Outputs) error {
	switch out {
	case ofp.PortFlood:
		return outputs.Flood(ingress, frame)
	case ofp.PortAll:
		return outputs.All(ingress, frame)
	case ofp.PortController:
		return outputs.Controller(ingress, truncate(frame, maxLen))
	case ofp.PortLocal:
		return outputs.Port(ofp.PortLocal, frame)
	case ofp.PortTable:
		return outputs.Table(ingress, frame)
	case ofp.PortNone:
		return nil
	case ofp.PortIn:
		return outputs.Port(ingress, frame)
	default:
		return outputs.Port(out, frame)
	}
}

// truncate returns frame capped to maxLen bytes, except
// ContentLenNoBuffer which always means "send the packet whole".
func truncate(frame []byte, maxLen uint16) []byte {
	if maxLen == ofp.ContentLenNoBuffer {
		return frame
	}
	if int(maxLen) < len(frame) {
		return frame[:maxLen]
	}
	return frame
}

// rewrite applies a single non-OUTPUT action to buf in place.
func rewrite(buf *packet.Buffer, key *flow.Key, act ofp.Action) error {
	switch a := act.(type) {
	case *ofp.ActionSetVLANVID:
		if ofp.VlanID(a.VLANVID) == ofp.VlanNone {
			stripVLAN(buf, key)
			break
		}
		setVLANTCI(buf, key, a.VLANVID&vlanVIDMask, vlanVIDMask)
	case *ofp.ActionSetVLANPCP:
		setVLANTCI(buf, key, uint16(a.VLANPCP)<<13&vlanPCPMask, vlanPCPMask)
	case *ofp.ActionStripVLAN:
		stripVLAN(buf, key)
	case *ofp.ActionSetDLSrc:
		setEthernetAddr(buf, 6, a.DLSrc)
	case *ofp.ActionSetDLDst:
		setEthernetAddr(buf, 0, a.DLDst)
	case *ofp.ActionSetNwSrc:
		setNetworkAddr(buf, key, true, a.NwSrc)
	case *ofp.ActionSetNwDst:
		setNetworkAddr(buf, key, false, a.NwDst)
	case *ofp.ActionSetTPSrc:
		setTransportPort(buf, key, true, a.TPSrc)
	case *ofp.ActionSetTPDst:
		setTransportPort(buf, key, false, a.TPDst)
	}
	return nil
}
