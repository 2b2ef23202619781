package packet

import (
	"encoding/binary"

	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/ofp"
)

const (
	ethAddrLen    = 6
	ethHeaderLen  = 2*ethAddrLen + 2
	llcHeaderLen  = 3
	snapHeaderLen = llcHeaderLen + 5
	vlanHeaderLen = 4
	ipHeaderLen   = 20
	arpHeaderLen  = 28

	// ethTypeETH2Cutoff is the smallest EtherType value; anything
	// below it is instead the length field of an 802.2 LLC frame.
	ethTypeETH2Cutoff = 0x0600

	// ethTypeNotEthType is reported when an 802.2 frame carries
	// neither a recognized SNAP-encapsulated EtherType nor anything
	// else this parser understands.
	ethTypeNotEthType = 0x05ff

	ethTypeVLAN = 0x8100
	ethTypeIPv4 = 0x0800
	ethTypeARP  = 0x0806

	ipProtoTCP = 6
	ipProtoUDP = 17

	arpHTypeEthernet = 1
	arpProtoIPv4     = 0x0800
)

// llcDSAPSNAP, llcSSAPSNAP and llcCntlSNAP identify an LLC header as
// carrying a SNAP extension (802.2 SNAP, dsap=ssap=0xaa, control=3).
const (
	llcDSAPSNAP = 0xaa
	llcSSAPSNAP = 0xaa
	llcCntlSNAP = 3
)

// snapOrgEthernet is the SNAP organizationally unique identifier that
// means "the SNAP type field is a plain EtherType", the only case
// this parser resolves; any other OUI falls through like a frame with
// no useful SNAP encapsulation.
var snapOrgEthernet = [3]byte{0, 0, 0}

// ParseHeader extracts the 10-tuple flow key from buf, whose first
// byte must be the start of the Ethernet frame, and records inPort as
// the key's ingress port. It sets buf's L2/L3/L4 cursors as a side
// effect and reports whether the packet is an IPv4 fragment (initial
// or not) — transport fields are never read for one.
//
// The returned key always has a zero wildcard mask: ParseHeader
// builds exact-match keys only; wildcarding is a property of stored
// flow entries, not of extracted packets.
func ParseHeader(buf *Buffer, inPort ofp.PortNo) (key flow.Key, fragment bool) {
	key.InPort = inPort
	key.DLVLAN = ofp.VlanNone

	buf.SetL2(0)

	frame := buf.Bytes()
	if len(frame) < ethHeaderLen {
		return key, false
	}

	key.DLDst = dup(frame[0:ethAddrLen])
	key.DLSrc = dup(frame[ethAddrLen : 2*ethAddrLen])
	etherType := binary.BigEndian.Uint16(frame[2*ethAddrLen : ethHeaderLen])
	buf.PullFront(ethHeaderLen)

	if etherType >= ethTypeETH2Cutoff {
		key.DLType = etherType
	} else if !parseLLCSNAP(buf, &key) {
		return key, false
	}

	if key.DLType == ethTypeVLAN {
		if !parseVLAN(buf, &key) {
			return key, false
		}
	}

	buf.SetL3(0)

	switch key.DLType {
	case ethTypeIPv4:
		fragment = parseIPv4(buf, &key)
	case ethTypeARP:
		parseARP(buf, &key)
	}

	return key, fragment
}

// parseLLCSNAP handles the 802.2/SNAP framing branch: an 8-byte
// LLC+SNAP header with OUI 00:00:00 exposes the encapsulated
// EtherType; anything else (a short header, a non-SNAP LLC frame, or
// a SNAP header with a different OUI) sets the sentinel EtherType.
func parseLLCSNAP(buf *Buffer, key *flow.Key) bool {
	frame := buf.Bytes()
	if len(frame) < llcHeaderLen {
		return false
	}

	if len(frame) >= snapHeaderLen &&
		frame[0] == llcDSAPSNAP && frame[1] == llcSSAPSNAP && frame[2] == llcCntlSNAP &&
		frame[3] == snapOrgEthernet[0] && frame[4] == snapOrgEthernet[1] && frame[5] == snapOrgEthernet[2] {
		key.DLType = binary.BigEndian.Uint16(frame[6:8])
		buf.PullFront(snapHeaderLen)
		return true
	}

	key.DLType = ethTypeNotEthType
	buf.PullFront(llcHeaderLen)
	return true
}

// parseVLAN consumes a single 802.1Q tag, replacing DLType with the
// encapsulated protocol and recording the 12-bit VID.
func parseVLAN(buf *Buffer, key *flow.Key) bool {
	frame := buf.Bytes()
	if len(frame) < vlanHeaderLen {
		return false
	}

	tci := binary.BigEndian.Uint16(frame[0:2])
	nextType := binary.BigEndian.Uint16(frame[2:4])

	key.DLVLAN = ofp.VlanID(tci & 0x0fff)
	key.DLType = nextType
	buf.PullFront(vlanHeaderLen)
	return true
}

// parseIPv4 fills nw_src/nw_dst/nw_proto and, for an unfragmented
// datagram, the TCP/UDP ports. It reports whether the datagram is a
// fragment, initial or not.
func parseIPv4(buf *Buffer, key *flow.Key) (fragment bool) {
	frame := buf.Bytes()
	if len(frame) < ipHeaderLen {
		return false
	}

	ihl := int(frame[0]&0x0f) * 4
	fragOff := binary.BigEndian.Uint16(frame[6:8])
	key.NWProto = frame[9]
	key.NWSrc = dup(frame[12:16])
	key.NWDst = dup(frame[16:20])

	buf.SetL4(ihl)

	moreFragments := fragOff&0x2000 != 0
	offset := fragOff & 0x1fff
	if offset != 0 || moreFragments {
		// A fragment (initial or not) is reported to the caller;
		// nw_proto stays set from the IP header, but no transport
		// fields are ever read for one.
		return true
	}

	if key.NWProto != ipProtoTCP && key.NWProto != ipProtoUDP {
		return false
	}

	if ihl < ipHeaderLen || len(frame) < ihl+4 {
		key.NWProto = 0
		key.TPSrc, key.TPDst = 0, 0
		return false
	}

	th := frame[ihl:]
	key.TPSrc = binary.BigEndian.Uint16(th[0:2])
	key.TPDst = binary.BigEndian.Uint16(th[2:4])
	return false
}

// parseARP fills nw_src/nw_dst from the sender/target protocol
// addresses of a well-formed Ethernet/IPv4 ARP packet; anything else
// leaves them unset.
func parseARP(buf *Buffer, key *flow.Key) {
	frame := buf.Bytes()
	if len(frame) < arpHeaderLen {
		return
	}

	hwType := binary.BigEndian.Uint16(frame[0:2])
	protoType := binary.BigEndian.Uint16(frame[2:4])
	hwLen := frame[4]
	protoLen := frame[5]

	if hwType != arpHTypeEthernet || protoType != arpProtoIPv4 ||
		hwLen != ethAddrLen || protoLen != 4 {
		return
	}

	// sender hw (6) + sender proto (4) + target hw (6) + target proto (4),
	// starting right after the 8-byte fixed ARP header.
	const fixedLen = 8
	spa := frame[fixedLen+ethAddrLen : fixedLen+ethAddrLen+4]
	tpa := frame[fixedLen+ethAddrLen+4+ethAddrLen : fixedLen+ethAddrLen+4+ethAddrLen+4]

	key.NWSrc = dup(spa)
	key.NWDst = dup(tpa)
}

func dup(b []byte) []byte {
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
