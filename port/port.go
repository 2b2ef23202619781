// Package port implements the switch's port set (C8): a registry of
// logical ports, each backed by a send/receive Driver, with the
// flood and broadcast semantics an OUTPUT action relies on.
package port

import (
	"errors"
	"net"
	"sync"

	"github.com/netrack/ofswitch/ofp"
)

// Number identifies a logical or physical switch port, shared with
// the wire representation (ofp.PortNo) so the reserved values
// (FLOOD, ALL, CONTROLLER, LOCAL, TABLE, NORMAL, NONE) need naming
// only once.
type Number = ofp.PortNo

// Driver is the send/receive interface a concrete transport (a raw
// socket, a pcap handle, an in-memory loopback) must implement to
// back a Port.
type Driver interface {
	// Send transmits frame out the port.
	Send(frame []byte) error

	// Recv returns the next received frame. ok is false when no
	// frame is currently available (non-blocking poll), not an
	// error.
	Recv() (frame []byte, ok bool, err error)

	// MTU reports the maximum transmission unit.
	MTU() int

	// HardwareAddr reports the port's Ethernet address.
	HardwareAddr() net.HardwareAddr

	// Features reports the port's negotiated/current feature bitmap.
	Features() ofp.PortFeature

	// Name reports a human readable port name.
	Name() string
}

// ErrExists is returned by Set.Add when the port number is already
// registered.
var ErrExists = errors.New("port: already exists")

// ErrNotFound is returned when an operation names an unregistered
// port.
var ErrNotFound = errors.New("port: not found")

// Port owns a logical index, its driver, administrative
// configuration, link state and running counters.
type Port struct {
	No     Number
	Driver Driver
	Config ofp.PortConfig
	State  ofp.PortState

	mu       sync.Mutex
	rxPkts   uint64
	txPkts   uint64
	rxBytes  uint64
	txBytes  uint64
	rxErrors uint64
	txErrors uint64
}

// Flooded reports whether this port belongs to the current flood set,
// i.e. whether PortFlood should reach it.
func (p *Port) Flooded() bool {
	return p.Config&ofp.PortConfigNoFlood == 0 && p.Config&ofp.PortConfigDown == 0
}

// Forwardable reports whether this port currently accepts forwarded
// traffic (the NO_FWD administrative flag is clear and the port is
// not administratively down).
func (p *Port) Forwardable() bool {
	return p.Config&ofp.PortConfigNoFwd == 0 && p.Config&ofp.PortConfigDown == 0
}

// Send transmits frame through the port's driver and updates its
// counters.
func (p *Port) Send(frame []byte) error {
	err := p.Driver.Send(frame)
	p.mu.Lock()
	if err != nil {
		p.txErrors++
	} else {
		p.txPkts++
		p.txBytes += uint64(len(frame))
	}
	p.mu.Unlock()
	return err
}

// Recv polls the port's driver for a received frame and updates its
// counters.
func (p *Port) Recv() (frame []byte, ok bool, err error) {
	frame, ok, err = p.Driver.Recv()
	p.mu.Lock()
	if err != nil {
		p.rxErrors++
	} else if ok {
		p.rxPkts++
		p.rxBytes += uint64(len(frame))
	}
	p.mu.Unlock()
	return
}

// Describe builds the wire ofp.Port description reported in a
// FEATURES_REPLY/PORT_STATUS message.
func (p *Port) Describe() ofp.Port {
	return ofp.Port{
		PortNo:     p.No,
		HWAddr:     p.Driver.HardwareAddr(),
		Name:       p.Driver.Name(),
		Config:     p.Config,
		State:      p.State,
		Curr:       p.Driver.Features(),
		Advertised: p.Driver.Features(),
		Supported:  p.Driver.Features(),
	}
}

// Stats builds the wire ofp.PortStats counters reported in a
// STATS_REPLY(PORT) message.
func (p *Port) Stats() ofp.PortStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ofp.PortStats{
		PortNo:    p.No,
		RxPackets: p.rxPkts,
		TxPackets: p.txPkts,
		RxBytes:   p.rxBytes,
		TxBytes:   p.txBytes,
		RxErrors:  p.rxErrors,
		TxErrors:  p.txErrors,
	}
}

// Set is the registry of ports owned by the datapath. A port exists
// from Add until Del; its counters reset on Add.
type Set struct {
	mu    sync.RWMutex
	ports map[Number]*Port
}

// NewSet builds an empty port registry.
func NewSet() *Set {
	return &Set{ports: make(map[Number]*Port)}
}

// Add registers a new port, failing with ErrExists if no is already
// registered.
func (s *Set) Add(no Number, drv Driver) (*Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ports[no]; ok {
		return nil, ErrExists
	}
	p := &Port{No: no, Driver: drv}
	s.ports[no] = p
	return p, nil
}

// Del unregisters a port.
func (s *Set) Del(no Number) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ports[no]; !ok {
		return ErrNotFound
	}
	delete(s.ports, no)
	return nil
}

// Get returns the port registered at no.
func (s *Set) Get(no Number) (*Port, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.ports[no]
	return p, ok
}

// Each calls fn for every registered port, in unspecified order.
func (s *Set) Each(fn func(*Port)) {
	s.mu.RLock()
	ports := make([]*Port, 0, len(s.ports))
	for _, p := range s.ports {
		ports = append(ports, p)
	}
	s.mu.RUnlock()

	for _, p := range ports {
		fn(p)
	}
}

// Flood returns every flooded port except excludeNo — the set an
// OUTPUT(FLOOD) action sends to.
func (s *Set) Flood(excludeNo Number) []*Port {
	var flooded []*Port
	s.Each(func(p *Port) {
		if p.No != excludeNo && p.Flooded() {
			flooded = append(flooded, p)
		}
	})
	return flooded
}

// All returns every port except excludeNo — the set an OUTPUT(ALL)
// action sends to, regardless of NO_FLOOD.
func (s *Set) All(excludeNo Number) []*Port {
	var all []*Port
	s.Each(func(p *Port) {
		if p.No != excludeNo {
			all = append(all, p)
		}
	})
	return all
}

// Describe builds the trailing port array of a FEATURES_REPLY
// message.
func (s *Set) Describe() ofp.Ports {
	var ports ofp.Ports
	s.Each(func(p *Port) {
		ports = append(ports, p.Describe())
	})
	return ports
}
