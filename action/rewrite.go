package action

import (
	"encoding/binary"
	"net"

	"github.com/netrack/ofswitch/flow"
	"github.com/netrack/ofswitch/ofp"
	"github.com/netrack/ofswitch/packet"
)

// setEthernetAddr rewrites the 6-byte Ethernet address at off (0 for
// destination, ethAddrLen for source) within the frame's fixed MAC
// header.
func setEthernetAddr(buf *packet.Buffer, off int, addr net.HardwareAddr) {
	frame := buf.Bytes()
	if len(frame) < ethHeaderLen || len(addr) < ethAddrLen {
		return
	}
	copy(frame[off:off+ethAddrLen], addr)
}

// setVLANTCI rewrites the TCI bits selected by mask to tci, preserving
// the tag's other subfield (VID vs PCP), or inserts a fresh tag
// carrying only tci when the frame is currently untagged. Grounded on
// original_source/datapath/forward.c's modify_vlan_tci.
func setVLANTCI(buf *packet.Buffer, key *flow.Key, tci, mask uint16) {
	if key.DLVLAN != ofp.VlanNone {
		frame := buf.Bytes()
		tagOff := ethHeaderLen
		if len(frame) < tagOff+vlanHeaderLen {
			return
		}
		old := binary.BigEndian.Uint16(frame[tagOff : tagOff+2])
		newTCI := (old &^ mask) | (tci & mask)
		binary.BigEndian.PutUint16(frame[tagOff:tagOff+2], newTCI)
		key.DLVLAN = ofp.VlanID(newTCI & vlanVIDMask)
		return
	}

	tag := make([]byte, vlanHeaderLen)
	binary.BigEndian.PutUint16(tag[0:2], ethTypeVLAN)
	binary.BigEndian.PutUint16(tag[2:4], tci&mask)
	if err := buf.InsertAt(ethHeaderLen-2, tag); err != nil {
		return
	}
	key.DLVLAN = ofp.VlanID(tci & mask & vlanVIDMask)
}

// stripVLAN removes an existing 802.1Q tag, restoring the frame's
// original (encapsulated) EtherType in its place. A no-op on an
// already-untagged frame. Grounded on
// original_source/datapath/forward.c's vlan_pull_tag.
func stripVLAN(buf *packet.Buffer, key *flow.Key) {
	if key.DLVLAN == ofp.VlanNone {
		return
	}
	buf.RemoveAt(ethHeaderLen-2, vlanHeaderLen)
	key.DLVLAN = ofp.VlanNone
}

// setNetworkAddr rewrites the IPv4 source or destination address,
// fixing up the IP header checksum and, for a TCP or UDP payload, the
// transport checksum too. A no-op for non-IPv4 traffic. Grounded on
// original_source/datapath/forward.c's modify_nh.
func setNetworkAddr(buf *packet.Buffer, key *flow.Key, src bool, addr net.IP) {
	if key.DLType != ethTypeIPv4 {
		return
	}
	new4 := addr.To4()
	if new4 == nil {
		return
	}

	off := l3Offset(key.DLVLAN != ofp.VlanNone)
	frame := buf.Bytes()
	if len(frame) < off+20 {
		return
	}
	ip := frame[off : off+20]

	fieldOff := 16
	if src {
		fieldOff = 12
	}
	old := append([]byte(nil), ip[fieldOff:fieldOff+4]...)
	copy(ip[fieldOff:fieldOff+4], new4)

	ihl := int(ip[0]&0x0f) * 4
	if len(frame) >= off+ihl+4 {
		fixupTransportChecksum(key.NWProto, frame[off+ihl:], old, new4)
	}
	fixupIPChecksum(ip, old, new4)

	if src {
		key.NWSrc = append([]byte(nil), new4...)
	} else {
		key.NWDst = append([]byte(nil), new4...)
	}
}

// setTransportPort rewrites the TCP or UDP source or destination
// port, fixing up the transport checksum. A no-op for non-TCP/UDP
// traffic. Grounded on original_source/datapath/forward.c's
// modify_th.
func setTransportPort(buf *packet.Buffer, key *flow.Key, src bool, value uint16) {
	if key.DLType != ethTypeIPv4 {
		return
	}
	if key.NWProto != ipProtoTCP && key.NWProto != ipProtoUDP {
		return
	}

	off := l3Offset(key.DLVLAN != ofp.VlanNone)
	frame := buf.Bytes()
	if len(frame) < off+20 {
		return
	}
	ihl := int(frame[off]&0x0f) * 4
	thOff := off + ihl
	if len(frame) < thOff+4 {
		return
	}
	th := frame[thOff:]

	fieldOff := 2
	if src {
		fieldOff = 0
	}
	old := append([]byte(nil), th[fieldOff:fieldOff+2]...)
	new2 := make([]byte, 2)
	binary.BigEndian.PutUint16(new2, value)
	copy(th[fieldOff:fieldOff+2], new2)

	fixupTransportChecksum(key.NWProto, th, old, new2)

	if src {
		key.TPSrc = value
	} else {
		key.TPDst = value
	}
}
