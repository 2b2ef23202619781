package ofp

import (
	"io"
	"net"

	"github.com/netrack/ofswitch/internal/encoding"
)

// VlanID is a 12-bit VLAN identifier, or the sentinel VlanNone for an
// untagged frame.
type VlanID uint16

// VlanNone is the sentinel DLVLAN value reported for, and matched
// against, an untagged frame.
const VlanNone VlanID = 0xffff

// Wildcard selects which fields of a Match are "don't care".
type Wildcard uint32

const (
	// WildcardInPort wildcards the ingress port.
	WildcardInPort Wildcard = 1 << iota

	// WildcardDLVLAN wildcards the VLAN identifier.
	WildcardDLVLAN

	// WildcardDLSrc wildcards the Ethernet source address.
	WildcardDLSrc

	// WildcardDLDst wildcards the Ethernet destination address.
	WildcardDLDst

	// WildcardDLType wildcards the Ethernet frame type.
	WildcardDLType

	// WildcardNWProto wildcards the IP protocol.
	WildcardNWProto

	// WildcardTPSrc wildcards the TCP/UDP source port.
	WildcardTPSrc

	// WildcardTPDst wildcards the TCP/UDP destination port.
	WildcardTPDst
)

const (
	// WildcardNWSrcShift is the bit offset of the IPv4 source address
	// wildcard count.
	WildcardNWSrcShift = 8

	// WildcardNWDstShift is the bit offset of the IPv4 destination
	// address wildcard count.
	WildcardNWDstShift = 14

	// WildcardNWSrcBits is the width, in bits, of the IPv4 source
	// wildcard count field.
	WildcardNWSrcBits = 6

	// WildcardNWDstBits is the width, in bits, of the IPv4
	// destination wildcard count field.
	WildcardNWDstBits = 6

	// WildcardNWSrcMask masks the IPv4 source wildcard count field.
	WildcardNWSrcMask = ((1 << WildcardNWSrcBits) - 1) << WildcardNWSrcShift

	// WildcardNWDstMask masks the IPv4 destination wildcard count
	// field.
	WildcardNWDstMask = ((1 << WildcardNWDstBits) - 1) << WildcardNWDstShift

	// WildcardNWSrcAll wildcards the entire IPv4 source address.
	WildcardNWSrcAll = 32 << WildcardNWSrcShift

	// WildcardNWDstAll wildcards the entire IPv4 destination address.
	WildcardNWDstAll = 32 << WildcardNWDstShift

	// WildcardAll wildcards every field of the match.
	WildcardAll Wildcard = (1 << 20) - 1
)

// NWSrcMaskBits returns the number of low bits of the IPv4 source
// address that are wildcarded. A value of 32 or greater wildcards
// the whole address.
func (w Wildcard) NWSrcMaskBits() uint32 {
	return (uint32(w) & WildcardNWSrcMask) >> WildcardNWSrcShift
}

// NWDstMaskBits returns the number of low bits of the IPv4
// destination address that are wildcarded.
func (w Wildcard) NWDstMaskBits() uint32 {
	return (uint32(w) & WildcardNWDstMask) >> WildcardNWDstShift
}

// NWSrcMask returns a 32-bit mask with the bits covered by
// NWSrcMaskBits cleared and the remaining high bits set, so it can be
// applied directly to a network-order IPv4 address with a bitwise
// AND.
func (w Wildcard) NWSrcMask() uint32 {
	return prefixMask(w.NWSrcMaskBits())
}

// NWDstMask returns the equivalent of NWSrcMask for the destination
// address.
func (w Wildcard) NWDstMask() uint32 {
	return prefixMask(w.NWDstMaskBits())
}

// prefixMask returns a mask that clears the low n bits of a 32-bit
// value. n >= 32 clears the whole value.
func prefixMask(n uint32) uint32 {
	if n >= 32 {
		return 0
	}
	return ^uint32(0) << n
}

// Match describes the flow key fields to compare a packet or flow
// entry against, together with the wildcard bits that mark fields as
// "don't care".
//
// For example, to match all traffic destined to a given Ethernet
// address regardless of ingress port:
//
//	m := ofp.Match{Wildcards: ofp.WildcardAll &^ ofp.WildcardDLDst}
//	m.DLDst = mac
type Match struct {
	// Wildcards selects the fields considered "don't care".
	Wildcards Wildcard

	// InPort is the ingress switch port.
	InPort PortNo

	// DLSrc is the Ethernet source address.
	DLSrc net.HardwareAddr

	// DLDst is the Ethernet destination address.
	DLDst net.HardwareAddr

	// DLVLAN is the VLAN identifier, or VlanNone when untagged.
	DLVLAN VlanID

	// DLType is the Ethernet frame type.
	DLType uint16

	// NWProto is the IP protocol. The switch's packet parser leaves
	// it zero for ARP packets.
	NWProto uint8

	// NWSrc is the IPv4 source address. Its wildcarded low bits are
	// named by Wildcards.NWSrcMaskBits.
	NWSrc net.IP

	// NWDst is the IPv4 destination address. Its wildcarded low bits
	// are named by Wildcards.NWDstMaskBits.
	NWDst net.IP

	// TPSrc is the TCP/UDP source port.
	TPSrc uint16

	// TPDst is the TCP/UDP destination port.
	TPDst uint16
}

// WriteTo implements io.WriterTo interface. It serializes the match
// into the wire format.
func (m *Match) WriteTo(w io.Writer) (int64, error) {
	dlsrc, dldst := make([]byte, 6), make([]byte, 6)
	copy(dlsrc, m.DLSrc)
	copy(dldst, m.DLDst)

	nwsrc, nwdst := ipv4Bytes(m.NWSrc), ipv4Bytes(m.NWDst)

	return encoding.WriteTo(w,
		m.Wildcards, m.InPort, dlsrc, dldst,
		m.DLVLAN, pad2{}, m.DLType,
		pad1{}, m.NWProto, pad2{}, nwsrc, nwdst,
		m.TPSrc, m.TPDst,
	)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// match from the wire format.
func (m *Match) ReadFrom(r io.Reader) (int64, error) {
	dlsrc, dldst := make([]byte, 6), make([]byte, 6)
	nwsrc, nwdst := make([]byte, 4), make([]byte, 4)

	n, err := encoding.ReadFrom(r,
		&m.Wildcards, &m.InPort, &dlsrc, &dldst,
		&m.DLVLAN, &defaultPad2, &m.DLType,
		&defaultPad1, &m.NWProto, &defaultPad2, &nwsrc, &nwdst,
		&m.TPSrc, &m.TPDst,
	)

	if err != nil {
		return n, err
	}

	m.DLSrc, m.DLDst = net.HardwareAddr(dlsrc), net.HardwareAddr(dldst)
	m.NWSrc, m.NWDst = net.IP(nwsrc), net.IP(nwdst)
	return n, nil
}

// ipv4Bytes returns the 4-byte big-endian representation of ip, or
// four zero bytes when ip is unset.
func ipv4Bytes(ip net.IP) []byte {
	b := make([]byte, 4)
	if v4 := ip.To4(); v4 != nil {
		copy(b, v4)
	}
	return b
}
