package ofp

import (
	"net"
	"testing"

	"github.com/netrack/ofswitch/internal/encodingtest"
)

func TestFlowMod(t *testing.T) {
	flags := FlowFlagSendFlowRem | FlowFlagCheckOverlap
	dldst, _ := net.ParseMAC("01:23:45:67:89:ab")

	match := Match{
		Wildcards: WildcardAll &^ WildcardDLDst,
		DLDst:     dldst,
	}

	actions := Actions{&ActionOutput{Port: PortFlood}}

	tests := []encodingtest.MU{
		{&FlowMod{
			Match:       match,
			Cookie:      0xdbf7525e57bd7eef,
			Command:     FlowAdd,
			IdleTimeout: 45,
			HardTimeout: 90,
			Priority:    10,
			Buffer:      NoBuffer,
			OutPort:     PortNone,
			Flags:       flags,
			Actions:     actions,
		}, []byte{
			// Match.
			0x00, 0x0f, 0xff, 0xf7, // Wildcards.
			0x00, 0x00, // Ingress port.
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Ethernet source.
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, // Ethernet destination.
			0x00, 0x00, 0x00, 0x00, // VLAN id + 2-byte padding.
			0x00, 0x00, // Ethernet type.
			0x00, 0x00, 0x00, 0x00, // IP ToS + protocol + padding.
			0x00, 0x00, 0x00, 0x00, // IPv4 source.
			0x00, 0x00, 0x00, 0x00, // IPv4 destination.
			0x00, 0x00, // TCP/UDP source port.
			0x00, 0x00, // TCP/UDP destination port.

			0xdb, 0xf7, 0x52, 0x5e, 0x57, 0xbd, 0x7e, 0xef, // Cookie.
			0x00,       // Command.
			0x00, 0x2d, // Idle timeout.
			0x00, 0x5a, // Hard timeout.
			0x00, 0x0a, // Priority.
			0xff, 0xff, 0xff, 0xff, // Buffer identifier.
			0xff, 0xff, // Out port.
			0x00, 0x03, // Flags.

			// Actions.
			0x00, 0x00, // Action type: output.
			0x00, 0x08, // Action length.
			0xff, 0xfb, // Port.
			0x00, 0x00, // Max length.
		}},
	}

	encodingtest.RunMU(t, tests)
}

func TestFlowRemoved(t *testing.T) {
	dldst, _ := net.ParseMAC("01:23:45:67:89:ab")

	match := Match{
		Wildcards: WildcardAll &^ WildcardDLDst,
		DLDst:     dldst,
	}

	tests := []encodingtest.MU{
		{&FlowRemoved{
			Match:        match,
			Cookie:       0xf22884334a8def04,
			Priority:     11,
			Reason:       FlowReasonHardTimeout,
			DurationSec:  929584189,
			DurationNSec: 1244051003,
			IdleTimeout:  46,
			PacketCount:  8005984375916722949,
			ByteCount:    3104105491404993109,
		}, []byte{
			// Match.
			0x00, 0x0f, 0xff, 0xf7, // Wildcards.
			0x00, 0x00, // Ingress port.
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Ethernet source.
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, // Ethernet destination.
			0x00, 0x00, 0x00, 0x00, // VLAN id + 2-byte padding.
			0x00, 0x00, // Ethernet type.
			0x00, 0x00, 0x00, 0x00, // IP ToS + protocol + padding.
			0x00, 0x00, 0x00, 0x00, // IPv4 source.
			0x00, 0x00, 0x00, 0x00, // IPv4 destination.
			0x00, 0x00, // TCP/UDP source port.
			0x00, 0x00, // TCP/UDP destination port.

			0xf2, 0x28, 0x84, 0x33, 0x4a, 0x8d, 0xef, 0x04, // Cookie.
			0x00, 0x0b, // Priority.
			0x01,       // Reason.
			0x00,       // 1-byte padding.
			0x37, 0x68, 0x54, 0x3d, // Duration seconds.
			0x4a, 0x26, 0xb6, 0x3b, // Duration nanoseconds.
			0x00, 0x2e, // Idle timeout.
			0x00, 0x00, // 2-byte padding.
			0x6f, 0x1a, 0xf8, 0x5f, 0x53, 0xd7, 0xfb, 0x05, // Packet count.
			0x2b, 0x13, 0xff, 0x7f, 0x88, 0x88, 0xb2, 0x55, // Byte count.
		}},
	}

	encodingtest.RunMU(t, tests)
}

func TestFlowStatsRequest(t *testing.T) {
	dldst, _ := net.ParseMAC("01:23:45:67:89:ab")

	match := Match{
		Wildcards: WildcardAll &^ WildcardDLDst,
		DLDst:     dldst,
	}

	tests := []encodingtest.MU{
		{&FlowStatsRequest{
			Match:   match,
			OutPort: PortFlood,
		}, []byte{
			// Match.
			0x00, 0x0f, 0xff, 0xf7, // Wildcards.
			0x00, 0x00, // Ingress port.
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Ethernet source.
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, // Ethernet destination.
			0x00, 0x00, 0x00, 0x00, // VLAN id + 2-byte padding.
			0x00, 0x00, // Ethernet type.
			0x00, 0x00, 0x00, 0x00, // IP ToS + protocol + padding.
			0x00, 0x00, 0x00, 0x00, // IPv4 source.
			0x00, 0x00, 0x00, 0x00, // IPv4 destination.
			0x00, 0x00, // TCP/UDP source port.
			0x00, 0x00, // TCP/UDP destination port.

			0xff, 0xfb, // Out port.
			0x00, 0x00, // 2-byte padding.
		}},
	}

	encodingtest.RunMU(t, tests)
}

func TestFlowStats(t *testing.T) {
	dldst, _ := net.ParseMAC("01:23:45:67:89:ab")

	match := Match{
		Wildcards: WildcardAll &^ WildcardDLDst,
		DLDst:     dldst,
	}

	actions := Actions{&ActionOutput{Port: PortFlood}}

	tests := []encodingtest.MU{
		{&FlowStats{
			Match:        match,
			DurationSec:  929584189,
			DurationNSec: 1244051003,
			Priority:     13,
			IdleTimeout:  47,
			HardTimeout:  92,
			Cookie:       0xf22884334a8def04,
			PacketCount:  8005984375916722949,
			ByteCount:    3104105491404993109,
			Actions:      actions,
		}, []byte{
			0x00, 0x5e, // Length.

			// Match.
			0x00, 0x0f, 0xff, 0xf7, // Wildcards.
			0x00, 0x00, // Ingress port.
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // Ethernet source.
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, // Ethernet destination.
			0x00, 0x00, 0x00, 0x00, // VLAN id + 2-byte padding.
			0x00, 0x00, // Ethernet type.
			0x00, 0x00, 0x00, 0x00, // IP ToS + protocol + padding.
			0x00, 0x00, 0x00, 0x00, // IPv4 source.
			0x00, 0x00, 0x00, 0x00, // IPv4 destination.
			0x00, 0x00, // TCP/UDP source port.
			0x00, 0x00, // TCP/UDP destination port.

			0x37, 0x68, 0x54, 0x3d, // Duration seconds.
			0x4a, 0x26, 0xb6, 0x3b, // Duration nanoseconds.
			0x00, 0x0d, // Priority.
			0x00, 0x2f, // Idle timeout.
			0x00, 0x5c, // Hard timeout.
			0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 6-byte padding.
			0xf2, 0x28, 0x84, 0x33, 0x4a, 0x8d, 0xef, 0x04, // Cookie.
			0x6f, 0x1a, 0xf8, 0x5f, 0x53, 0xd7, 0xfb, 0x05, // Packet count.
			0x2b, 0x13, 0xff, 0x7f, 0x88, 0x88, 0xb2, 0x55, // Byte count.

			// Actions.
			0x00, 0x00, // Action type: output.
			0x00, 0x08, // Action length.
			0xff, 0xfb, // Port.
			0x00, 0x00, // Max length.
		}},
	}

	encodingtest.RunMU(t, tests)
}
