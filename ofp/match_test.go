package ofp

import (
	"net"
	"testing"

	"github.com/netrack/ofswitch/internal/encodingtest"
)

func TestMatch(t *testing.T) {
	dldst, _ := net.ParseMAC("01:23:45:67:89:ab")
	dlsrc, _ := net.ParseMAC("11:22:33:44:55:66")

	tests := []encodingtest.MU{
		{&Match{
			Wildcards: WildcardAll &^ WildcardDLDst,
			DLDst:     dldst,
		}, []byte{
			0x00, 0x0f, 0xff, 0xf7, // Wildcards.
			0x00, 0x00, // Ingress port.
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Ethernet source.
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, // Ethernet destination.
			0x00, 0x00, // VLAN id.
			0x00, 0x00, // 2-byte padding.
			0x00, 0x00, // Ethernet type.
			0x00,       // 1-byte padding.
			0x00,       // IP protocol.
			0x00, 0x00, // 2-byte padding.
			0x00, 0x00, 0x00, 0x00, // IPv4 source.
			0x00, 0x00, 0x00, 0x00, // IPv4 destination.
			0x00, 0x00, // TCP/UDP source port.
			0x00, 0x00, // TCP/UDP destination port.
		}},
		{&Match{
			InPort:    PortNo(1),
			DLSrc:     dlsrc,
			DLDst:     dldst,
			DLVLAN:    5,
			DLType:    0x0800,
			NWProto:   6,
			NWSrc:     net.ParseIP("192.168.1.10").To4(),
			NWDst:     net.ParseIP("10.0.0.1").To4(),
			TPSrc:     12345,
			TPDst:     80,
		}, []byte{
			0x00, 0x00, 0x00, 0x00, // Wildcards.
			0x00, 0x01, // Ingress port.
			0x11, 0x22, 0x33, 0x44, 0x55, 0x66, // Ethernet source.
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, // Ethernet destination.
			0x00, 0x05, // VLAN id.
			0x00, 0x00, // 2-byte padding.
			0x08, 0x00, // Ethernet type.
			0x00,       // 1-byte padding.
			0x06,       // IP protocol.
			0x00, 0x00, // 2-byte padding.
			0xc0, 0xa8, 0x01, 0x0a, // IPv4 source.
			0x0a, 0x00, 0x00, 0x01, // IPv4 destination.
			0x30, 0x39, // TCP/UDP source port.
			0x00, 0x50, // TCP/UDP destination port.
		}},
	}

	encodingtest.RunMU(t, tests)
}

func TestWildcardNWMask(t *testing.T) {
	w := Wildcard(24 << WildcardNWSrcShift)

	if got, want := w.NWSrcMaskBits(), uint32(24); got != want {
		t.Fatalf("NWSrcMaskBits() = %d, want %d", got, want)
	}

	if got, want := w.NWSrcMask(), uint32(0xff000000); got != want {
		t.Fatalf("NWSrcMask() = %#x, want %#x", got, want)
	}

	wAll := Wildcard(WildcardNWSrcAll)
	if got, want := wAll.NWSrcMask(), uint32(0); got != want {
		t.Fatalf("NWSrcMask() = %#x, want %#x", got, want)
	}
}
