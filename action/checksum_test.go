package action

import (
	"encoding/binary"
	"testing"
)

// fullIPChecksum computes the standard IPv4 header checksum from
// scratch, treating the stored checksum field as zero.
func fullIPChecksum(header []byte) uint16 {
	cp := append([]byte(nil), header...)
	cp[10], cp[11] = 0, 0
	return ^checksum16(cp)
}

// fullTCPChecksum computes the standard TCP checksum from scratch
// over the IPv4 pseudo-header plus segment, zeroing the stored
// checksum field first.
func fullTCPChecksum(src, dst [4]byte, segment []byte) uint16 {
	cp := append([]byte(nil), segment...)
	cp[16], cp[17] = 0, 0

	pseudo := make([]byte, 12)
	copy(pseudo[0:4], src[:])
	copy(pseudo[4:8], dst[:])
	pseudo[9] = ipProtoTCP
	binary.BigEndian.PutUint16(pseudo[10:12], uint16(len(cp)))

	sum := checksum16(pseudo)
	sum = onesComplementAdd(sum, checksum16(cp))
	return ^sum
}

func TestReplaceChecksumMatchesFullRecompute(t *testing.T) {
	ip := make([]byte, 20)
	ip[0] = 0x45
	ip[9] = ipProtoTCP
	copy(ip[12:16], []byte{192, 168, 1, 10})
	copy(ip[16:20], []byte{10, 0, 0, 1})
	binary.BigEndian.PutUint16(ip[10:12], fullIPChecksum(ip))

	tcp := make([]byte, 20)
	binary.BigEndian.PutUint16(tcp[0:2], 12345)
	binary.BigEndian.PutUint16(tcp[2:4], 80)
	binary.BigEndian.PutUint16(tcp[16:18],
		fullTCPChecksum([4]byte{192, 168, 1, 10}, [4]byte{10, 0, 0, 1}, tcp))

	old := append([]byte(nil), ip[12:16]...)
	new4 := []byte{172, 16, 0, 5}
	copy(ip[12:16], new4)
	fixupTransportChecksum(ipProtoTCP, tcp, old, new4)
	fixupIPChecksum(ip, old, new4)

	wantIP := fullIPChecksum(ip)
	if gotIP := binary.BigEndian.Uint16(ip[10:12]); gotIP != wantIP {
		t.Errorf("incremental IP checksum = %#x, want %#x", gotIP, wantIP)
	}

	wantTCP := fullTCPChecksum([4]byte{172, 16, 0, 5}, [4]byte{10, 0, 0, 1}, tcp)
	if gotTCP := binary.BigEndian.Uint16(tcp[16:18]); gotTCP != wantTCP {
		t.Errorf("incremental TCP checksum = %#x, want %#x", gotTCP, wantTCP)
	}
}

func TestFixupTransportChecksumUDPNoChecksumStaysZero(t *testing.T) {
	udp := make([]byte, 8)
	udp[6], udp[7] = 0, 0

	fixupTransportChecksum(ipProtoUDP, udp,
		[]byte{10, 0, 0, 1}, []byte{10, 0, 0, 2})

	if got := binary.BigEndian.Uint16(udp[6:8]); got != 0 {
		t.Errorf("UDP checksum = %#x, want 0 (no checksum stays no checksum)", got)
	}
}
