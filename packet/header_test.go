package packet

import (
	"bytes"
	"testing"

	"github.com/netrack/ofswitch/ofp"
)

func ethFrame(dst, src [6]byte, etherType uint16, payload []byte) []byte {
	f := make([]byte, 14+len(payload))
	copy(f[0:6], dst[:])
	copy(f[6:12], src[:])
	f[12], f[13] = byte(etherType>>8), byte(etherType)
	copy(f[14:], payload)
	return f
}

func ipv4Payload(proto byte, fragOff uint16, src, dst [4]byte, transport []byte) []byte {
	ip := make([]byte, 20+len(transport))
	ip[0] = 0x45 // version 4, IHL 5.
	ip[6] = byte(fragOff >> 8)
	ip[7] = byte(fragOff)
	ip[9] = proto
	copy(ip[12:16], src[:])
	copy(ip[16:20], dst[:])
	copy(ip[20:], transport)
	return ip
}

var (
	dstMAC = [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	srcMAC = [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
)

func TestParseHeaderEthernetII_IPv4TCP(t *testing.T) {
	tcp := make([]byte, 20)
	tcp[0], tcp[1] = 0x30, 0x39 // src port 12345.
	tcp[2], tcp[3] = 0x00, 0x50 // dst port 80.

	ip := ipv4Payload(6, 0, [4]byte{192, 168, 1, 10}, [4]byte{10, 0, 0, 1}, tcp)
	frame := ethFrame(dstMAC, srcMAC, ethTypeIPv4, ip)

	key, fragment := ParseHeader(New(frame), 1)
	if fragment {
		t.Errorf("expected a non-fragmented datagram")
	}
	if key.DLType != ethTypeIPv4 {
		t.Errorf("DLType = %#x, want %#x", key.DLType, ethTypeIPv4)
	}
	if key.DLVLAN != ofp.VlanNone {
		t.Errorf("DLVLAN = %#x, want VlanNone", key.DLVLAN)
	}
	if !bytes.Equal(key.DLDst, dstMAC[:]) || !bytes.Equal(key.DLSrc, srcMAC[:]) {
		t.Errorf("DLSrc/DLDst not extracted correctly")
	}
	if key.NWProto != 6 {
		t.Errorf("NWProto = %d, want 6", key.NWProto)
	}
	if key.TPSrc != 12345 || key.TPDst != 80 {
		t.Errorf("TPSrc/TPDst = %d/%d, want 12345/80", key.TPSrc, key.TPDst)
	}
}

func TestParseHeaderVLANTag(t *testing.T) {
	vlan := make([]byte, 4)
	vlan[0], vlan[1] = 0x20, 0x05 // PCP=1, VID=5.
	vlan[2], vlan[3] = byte(ethTypeIPv4>>8), byte(ethTypeIPv4&0xff)

	ip := ipv4Payload(17, 0, [4]byte{1, 2, 3, 4}, [4]byte{5, 6, 7, 8}, make([]byte, 8))
	payload := append(vlan, ip...)
	frame := ethFrame(dstMAC, srcMAC, ethTypeVLAN, payload)

	key, _ := ParseHeader(New(frame), 1)
	if key.DLVLAN != 5 {
		t.Errorf("DLVLAN = %d, want 5", key.DLVLAN)
	}
	if key.DLType != ethTypeIPv4 {
		t.Errorf("DLType = %#x, want %#x", key.DLType, ethTypeIPv4)
	}
}

func TestParseHeaderFragmentSkipsTransport(t *testing.T) {
	ip := ipv4Payload(6, 100, [4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, make([]byte, 20))
	frame := ethFrame(dstMAC, srcMAC, ethTypeIPv4, ip)

	key, fragment := ParseHeader(New(frame), 1)
	if !fragment {
		t.Errorf("expected a non-initial fragment to be reported")
	}
	if key.TPSrc != 0 || key.TPDst != 0 {
		t.Errorf("expected transport ports to be left zero for a fragment")
	}
	if key.NWProto != 6 {
		t.Errorf("expected nw_proto to remain set for a fragment, got %d", key.NWProto)
	}
}

func TestParseHeaderTruncatedTransportClearsProto(t *testing.T) {
	// IP header claims TCP but the payload is too short for a port pair.
	ip := ipv4Payload(6, 0, [4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, []byte{0x30})
	frame := ethFrame(dstMAC, srcMAC, ethTypeIPv4, ip)

	key, fragment := ParseHeader(New(frame), 1)
	if fragment {
		t.Errorf("expected no fragment")
	}
	if key.NWProto != 0 {
		t.Errorf("expected NWProto cleared on transport bounds failure, got %d", key.NWProto)
	}
	if key.TPSrc != 0 || key.TPDst != 0 {
		t.Errorf("expected zero ports on transport bounds failure")
	}
}

func TestParseHeaderARP(t *testing.T) {
	arp := make([]byte, 28)
	arp[0], arp[1] = 0x00, 0x01 // HTYPE ethernet.
	arp[2], arp[3] = 0x08, 0x00 // PTYPE IPv4.
	arp[4] = 6                  // HLEN.
	arp[5] = 4                  // PLEN.
	copy(arp[8:14], srcMAC[:])  // sender hw.
	copy(arp[14:18], []byte{192, 168, 1, 1})
	copy(arp[18:24], dstMAC[:]) // target hw.
	copy(arp[24:28], []byte{192, 168, 1, 2})

	frame := ethFrame(dstMAC, srcMAC, ethTypeARP, arp)

	key, _ := ParseHeader(New(frame), 1)
	if !bytes.Equal(key.NWSrc, []byte{192, 168, 1, 1}) {
		t.Errorf("NWSrc = %v, want sender protocol address", key.NWSrc)
	}
	if !bytes.Equal(key.NWDst, []byte{192, 168, 1, 2}) {
		t.Errorf("NWDst = %v, want target protocol address", key.NWDst)
	}
}

func TestParseHeaderLLCSNAP(t *testing.T) {
	snap := []byte{llcDSAPSNAP, llcSSAPSNAP, llcCntlSNAP, 0, 0, 0, byte(ethTypeIPv4 >> 8), byte(ethTypeIPv4 & 0xff)}
	ip := ipv4Payload(17, 0, [4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, make([]byte, 8))
	payload := append(snap, ip...)

	// An 802.2 frame's type/length field is the payload length, < cutoff.
	frame := ethFrame(dstMAC, srcMAC, uint16(len(payload)), payload)

	key, _ := ParseHeader(New(frame), 1)
	if key.DLType != ethTypeIPv4 {
		t.Errorf("DLType = %#x, want %#x (SNAP-encapsulated)", key.DLType, ethTypeIPv4)
	}
}

func TestParseHeaderNonSNAPLLC(t *testing.T) {
	llc := []byte{0x42, 0x42, 0x03} // BPDU-style LLC, not SNAP.
	frame := ethFrame(dstMAC, srcMAC, uint16(len(llc)), llc)

	key, _ := ParseHeader(New(frame), 1)
	if key.DLType != ethTypeNotEthType {
		t.Errorf("DLType = %#x, want sentinel %#x", key.DLType, ethTypeNotEthType)
	}
}
