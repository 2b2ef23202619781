// Package flow implements the packet classifier: the flow key, flow
// entries, the table variants that store them, and the chain that
// composes the tables into a classifier.
package flow

import (
	"bytes"
	"net"

	"github.com/netrack/ofswitch/ofp"
)

// Key is the 10-tuple flow key extracted from a packet, or named by a
// flow entry's match. Fields are stored in network byte order, except
// where noted.
type Key struct {
	// InPort is the ingress switch port.
	InPort ofp.PortNo

	// DLVLAN is the VLAN identifier, or ofp.VlanNone for an untagged
	// frame.
	DLVLAN ofp.VlanID

	// DLSrc is the Ethernet source address.
	DLSrc net.HardwareAddr

	// DLDst is the Ethernet destination address.
	DLDst net.HardwareAddr

	// DLType is the Ethernet frame type.
	DLType uint16

	// NWSrc is the IPv4 source address.
	NWSrc net.IP

	// NWDst is the IPv4 destination address.
	NWDst net.IP

	// NWProto is the IP protocol. It is zero for ARP packets.
	NWProto uint8

	// TPSrc is the TCP/UDP source port.
	TPSrc uint16

	// TPDst is the TCP/UDP destination port.
	TPDst uint16
}

// Match pairs a Key with the Wildcard bits that mark some of its
// fields "don't care", mirroring the wire ofp.Match.
type Match struct {
	Key
	Wildcards ofp.Wildcard
}

// FromOFP converts a wire ofp.Match into a flow Match.
func FromOFP(m ofp.Match) Match {
	return Match{
		Wildcards: m.Wildcards,
		Key: Key{
			InPort:  m.InPort,
			DLVLAN:  m.DLVLAN,
			DLSrc:   dup(m.DLSrc),
			DLDst:   dup(m.DLDst),
			DLType:  m.DLType,
			NWSrc:   dupIP(m.NWSrc),
			NWDst:   dupIP(m.NWDst),
			NWProto: m.NWProto,
			TPSrc:   m.TPSrc,
			TPDst:   m.TPDst,
		},
	}
}

// ToOFP converts a flow Match back into the wire ofp.Match.
func (m Match) ToOFP() ofp.Match {
	return ofp.Match{
		Wildcards: m.Wildcards,
		InPort:    m.InPort,
		DLSrc:     dup(m.DLSrc),
		DLDst:     dup(m.DLDst),
		DLVLAN:    m.DLVLAN,
		DLType:    m.DLType,
		NWProto:   m.NWProto,
		NWSrc:     dupIP(m.NWSrc),
		NWDst:     dupIP(m.NWDst),
		TPSrc:     m.TPSrc,
		TPDst:     m.TPDst,
	}
}

func dup(a net.HardwareAddr) net.HardwareAddr {
	b := make(net.HardwareAddr, len(a))
	copy(b, a)
	return b
}

func dupIP(ip net.IP) net.IP {
	b := make(net.IP, len(ip))
	copy(b, ip)
	return b
}

// MatchOneSided reports whether packet key a matches rule b, using
// only b's wildcards and masks — the lookup direction used when
// classifying an incoming, fully-specified packet against a stored,
// possibly-wildcarded rule.
func MatchOneSided(a Key, b Match) bool {
	return matchWith(a, b.Key, b.Wildcards)
}

// MatchTwoSided reports whether rule Matches a and b overlap, using
// the union of both sides' wildcards and, for each IPv4 address, the
// wider of the two wildcarded prefixes — the comparison used for
// rule-vs-rule operations such as a non-strict MODIFY/DELETE match,
// flow and aggregate statistics, or an overlap check on insert.
// MatchTwoSided is symmetric in a and b.
func MatchTwoSided(a, b Match) bool {
	src, dst := a.Wildcards.NWSrcMaskBits(), a.Wildcards.NWDstMaskBits()
	if n := b.Wildcards.NWSrcMaskBits(); n > src {
		src = n
	}
	if n := b.Wildcards.NWDstMaskBits(); n > dst {
		dst = n
	}
	w := (a.Wildcards | b.Wildcards) &^ (ofp.WildcardNWSrcMask | ofp.WildcardNWDstMask)
	w |= ofp.Wildcard(src<<ofp.WildcardNWSrcShift | dst<<ofp.WildcardNWDstShift)
	return matchWith(a.Key, b.Key, w)
}

// matchWith compares a against b under wildcard set w.
func matchWith(a, b Key, w ofp.Wildcard) bool {
	if w&ofp.WildcardInPort == 0 && a.InPort != b.InPort {
		return false
	}
	if w&ofp.WildcardDLVLAN == 0 && a.DLVLAN != b.DLVLAN {
		return false
	}
	if w&ofp.WildcardDLSrc == 0 && !bytes.Equal(a.DLSrc, b.DLSrc) {
		return false
	}
	if w&ofp.WildcardDLDst == 0 && !bytes.Equal(a.DLDst, b.DLDst) {
		return false
	}
	if w&ofp.WildcardDLType == 0 && a.DLType != b.DLType {
		return false
	}
	if w&ofp.WildcardNWProto == 0 && a.NWProto != b.NWProto {
		return false
	}
	if w&ofp.WildcardTPSrc == 0 && a.TPSrc != b.TPSrc {
		return false
	}
	if w&ofp.WildcardTPDst == 0 && a.TPDst != b.TPDst {
		return false
	}

	if xorIP(a.NWSrc, b.NWSrc)&w.NWSrcMask() != 0 {
		return false
	}
	if xorIP(a.NWDst, b.NWDst)&w.NWDstMask() != 0 {
		return false
	}

	return true
}

// xorIP XORs two (possibly nil) IPv4 addresses and returns the result
// as a host-order uint32, trailing a zero address for a nil/invalid
// operand so an all-wildcard mask still reports equality.
func xorIP(a, b net.IP) uint32 {
	return ipToUint32(a) ^ ipToUint32(b)
}

func ipToUint32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
}

// Bytes serializes the key as a fixed-size byte string in a stable
// field order, suitable for hashing or byte-wise equality (as used by
// the hash table buckets). It is not the wire format.
func (k Key) Bytes() []byte {
	var b [19]byte
	b[0], b[1] = byte(k.InPort>>8), byte(k.InPort)
	b[2], b[3] = byte(k.DLVLAN>>8), byte(k.DLVLAN)
	copy(b[4:10], k.DLSrc)
	copy(b[10:16], k.DLDst)
	b[16], b[17] = byte(k.DLType>>8), byte(k.DLType)
	b[18] = k.NWProto
	v4src, v4dst := k.NWSrc.To4(), k.NWDst.To4()
	buf := append([]byte{}, b[:19]...)
	if v4src != nil {
		buf = append(buf, v4src...)
	} else {
		buf = append(buf, 0, 0, 0, 0)
	}
	if v4dst != nil {
		buf = append(buf, v4dst...)
	} else {
		buf = append(buf, 0, 0, 0, 0)
	}
	buf = append(buf, byte(k.TPSrc>>8), byte(k.TPSrc), byte(k.TPDst>>8), byte(k.TPDst))
	return buf
}

// Equal reports whether k and o name the exact same 10-tuple.
func (k Key) Equal(o Key) bool {
	return bytes.Equal(k.Bytes(), o.Bytes())
}
