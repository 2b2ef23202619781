package port

import (
	"net"

	"github.com/netrack/ofswitch/ofp"
)

// LoopbackDriver is a channel-backed Driver with no real network
// device behind it, used for local testing and by the example hub:
// frames handed to Send become available from Recv on the driver's
// peer.
type LoopbackDriver struct {
	name string
	hw   net.HardwareAddr
	mtu  int
	out  chan []byte
	in   chan []byte
}

// NewLoopbackPair returns two LoopbackDrivers wired to each other:
// a Send on one becomes a Recv on the other.
func NewLoopbackPair(nameA, nameB string, hwA, hwB net.HardwareAddr) (a, b *LoopbackDriver) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)

	a = &LoopbackDriver{name: nameA, hw: hwA, mtu: 1500, out: ab, in: ba}
	b = &LoopbackDriver{name: nameB, hw: hwB, mtu: 1500, out: ba, in: ab}
	return a, b
}

// Send implements Driver.
func (l *LoopbackDriver) Send(frame []byte) error {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	l.out <- cp
	return nil
}

// Recv implements Driver. It never blocks.
func (l *LoopbackDriver) Recv() (frame []byte, ok bool, err error) {
	select {
	case frame = <-l.in:
		return frame, true, nil
	default:
		return nil, false, nil
	}
}

// MTU implements Driver.
func (l *LoopbackDriver) MTU() int { return l.mtu }

// HardwareAddr implements Driver.
func (l *LoopbackDriver) HardwareAddr() net.HardwareAddr { return l.hw }

// Features implements Driver.
func (l *LoopbackDriver) Features() ofp.PortFeature {
	return ofp.PortFeature1GbitFullDuplex | ofp.PortFeatureCopper
}

// Name implements Driver.
func (l *LoopbackDriver) Name() string { return l.name }
