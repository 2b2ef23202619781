package ofp

import (
	"fmt"
	"io"
	"net"

	"github.com/netrack/ofswitch/internal/encoding"
)

// PortNo identifies a logical or physical switch port. Values below
// PortMax are physical indices; values from PortMax upward are the
// reserved, special-purpose ports.
type PortNo uint16

const (
	// PortMax is the largest physical port index.
	PortMax PortNo = 0xff00

	// PortIn sends the packet out the port it was received on. Must
	// be used explicitly; OUTPUT never implicitly loops to in_port.
	PortIn PortNo = 0xfff8

	// PortTable submits the packet to the first flow table. Valid
	// only in PACKET_OUT.
	PortTable PortNo = 0xfff9

	// PortNormal processes the packet with the switch's normal
	// L2/L3 forwarding, bypassing the flow table.
	PortNormal PortNo = 0xfffa

	// PortFlood sends to every port in the flood set except the
	// ingress port.
	PortFlood PortNo = 0xfffb

	// PortAll sends to every port except the ingress port,
	// regardless of NoFlood.
	PortAll PortNo = 0xfffc

	// PortController sends the packet to the controller as a
	// PACKET_IN.
	PortController PortNo = 0xfffd

	// PortLocal is a loopback port that feeds the packet back into
	// the switch as if received on PortLocal.
	PortLocal PortNo = 0xfffe

	// PortNone means no output port: the action list ends without
	// ever sending the packet.
	PortNone PortNo = 0xffff
)

var portNoText = map[PortNo]string{
	PortIn:         "IN_PORT",
	PortTable:      "TABLE",
	PortNormal:     "NORMAL",
	PortFlood:      "FLOOD",
	PortAll:        "ALL",
	PortController: "CONTROLLER",
	PortLocal:      "LOCAL",
	PortNone:       "NONE",
}

// String returns a human-readable port identifier, the decimal index
// for physical ports or the reserved port's name.
func (p PortNo) String() string {
	if text, ok := portNoText[p]; ok {
		return text
	}
	return fmt.Sprintf("%d", uint16(p))
}

// PortConfig is a bitmap of administrative port flags, settable by
// PORT_MOD and reported in FEATURES_REPLY/PORT_STATUS.
type PortConfig uint32

const (
	// PortConfigDown administratively disables the port.
	PortConfigDown PortConfig = 1 << iota

	// PortConfigNoSTP disables 802.1D spanning tree on the port.
	PortConfigNoSTP

	// PortConfigNoRecv drops all packets received on the port,
	// except 802.1D spanning tree packets.
	PortConfigNoRecv

	// PortConfigNoRecvSTP drops received 802.1D spanning tree
	// packets.
	PortConfigNoRecvSTP

	// PortConfigNoFlood is honored by FLOOD (but not ALL): a port
	// with this flag set is excluded from flood output.
	PortConfigNoFlood

	// PortConfigNoFwd drops packets forwarded to the port.
	PortConfigNoFwd

	// PortConfigNoPacketIn suppresses PACKET_IN generation for
	// packets received on the port.
	PortConfigNoPacketIn
)

var portConfigText = map[PortConfig]string{
	PortConfigDown:       "PORT_DOWN",
	PortConfigNoSTP:      "NO_STP",
	PortConfigNoRecv:     "NO_RECV",
	PortConfigNoRecvSTP:  "NO_RECV_STP",
	PortConfigNoFlood:    "NO_FLOOD",
	PortConfigNoFwd:      "NO_FWD",
	PortConfigNoPacketIn: "NO_PACKET_IN",
}

func (c PortConfig) String() string {
	if text, ok := portConfigText[c]; ok {
		return text
	}
	return fmt.Sprintf("PortConfig(%#x)", uint32(c))
}

// PortState is the current, non-configurable state of a physical
// port.
type PortState uint32

const (
	// PortStateLinkDown reports that the physical link is absent.
	PortStateLinkDown PortState = 1 << iota

	// PortStateSTPListen through PortStateSTPBlock encode the
	// 802.1D spanning tree state, mutually exclusive via
	// PortStateSTPMask.
	PortStateSTPListen PortState = 0 << 8
	PortStateSTPLearn  PortState = 1 << 8
	PortStateSTPForward PortState = 2 << 8
	PortStateSTPBlock   PortState = 3 << 8
)

// PortStateSTPMask isolates the STP sub-state from PortState.
const PortStateSTPMask PortState = 3 << 8

var portStateSTPText = map[PortState]string{
	PortStateSTPListen:  "stp-listen",
	PortStateSTPLearn:   "stp-learn",
	PortStateSTPForward: "stp-forward",
	PortStateSTPBlock:   "stp-block",
}

func (s PortState) String() string {
	if s&PortStateLinkDown != 0 {
		return "link down"
	}

	if stp := s & PortStateSTPMask; stp != PortStateSTPListen {
		return portStateSTPText[stp]
	}

	return "link up"
}

// PortFeature is a bitmap of medium, speed and negotiation
// capabilities, used for Curr/Advertised/Supported/Peer in Port.
type PortFeature uint32

const (
	PortFeature10MbitHalfDuplex PortFeature = 1 << iota
	PortFeature10MbitFullDuplex
	PortFeature100MbitHalfDuplex
	PortFeature100MbitFullDuplex
	PortFeature1GbitHalfDuplex
	PortFeature1GbitFullDuplex
	PortFeature10GbitFullDuplex
	PortFeatureCopper
	PortFeatureFiber
	PortFeatureAutoneg
	PortFeaturePause
	PortFeaturePauseAsym
)

var portFeatureText = map[PortFeature]string{
	PortFeature10MbitHalfDuplex:   "10Mb-HD",
	PortFeature10MbitFullDuplex:   "10Mb-FD",
	PortFeature100MbitHalfDuplex:  "100Mb-HD",
	PortFeature100MbitFullDuplex:  "100Mb-FD",
	PortFeature1GbitHalfDuplex:    "1Gb-HD",
	PortFeature1GbitFullDuplex:    "1Gb-FD",
	PortFeature10GbitFullDuplex:   "10Gb-FD",
	PortFeatureCopper:             "copper",
	PortFeatureFiber:              "fiber",
	PortFeatureAutoneg:            "autoneg",
	PortFeaturePause:              "pause",
	PortFeaturePauseAsym:          "pause-asym",
}

func (f PortFeature) String() string {
	if text, ok := portFeatureText[f]; ok {
		return text
	}
	return fmt.Sprintf("PortFeature(%#x)", uint32(f))
}

const portNameLen = 16

// Port describes a switch port: its index, hardware address, name,
// administrative and link state, and feature bitmaps.
type Port struct {
	PortNo PortNo
	HWAddr net.HardwareAddr
	Name   string

	Config PortConfig
	State  PortState

	// Curr is the set of features currently in effect.
	Curr PortFeature
	// Advertised is the set of features advertised by this port.
	Advertised PortFeature
	// Supported is the set of features supported by this port.
	Supported PortFeature
	// Peer is the set of features advertised by the peer.
	Peer PortFeature
}

// WriteTo implements io.WriterTo. It serializes the port description
// into the wire format.
func (p *Port) WriteTo(w io.Writer) (int64, error) {
	name := make([]byte, portNameLen)
	copy(name, []byte(p.Name))

	hwaddr := make([]byte, 6)
	copy(hwaddr, p.HWAddr)

	return encoding.WriteTo(w,
		p.PortNo,
		hwaddr,
		name,
		p.Config,
		p.State,
		p.Curr,
		p.Advertised,
		p.Supported,
		p.Peer,
	)
}

// ReadFrom implements io.ReaderFrom. It deserializes the port
// description from the wire format.
func (p *Port) ReadFrom(r io.Reader) (int64, error) {
	var name [portNameLen]byte
	p.HWAddr = make(net.HardwareAddr, 6)

	n, err := encoding.ReadFrom(r,
		&p.PortNo,
		&p.HWAddr,
		&name,
		&p.Config,
		&p.State,
		&p.Curr,
		&p.Advertised,
		&p.Supported,
		&p.Peer,
	)

	p.Name = stringFromNulTerminated(name[:])
	return n, err
}

func stringFromNulTerminated(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Ports is a list of port descriptions, used as the trailing array of
// a FEATURES_REPLY message.
type Ports []Port

// WriteTo implements io.WriterTo.
func (p Ports) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteSliceTo(w, p)
}

// ReadFrom implements io.ReaderFrom, consuming ports until EOF.
func (p *Ports) ReadFrom(r io.Reader) (int64, error) {
	*p = nil
	return encoding.ReadSliceFrom(r, encoding.ReaderMakerOf(Port{}), p)
}

// PortMod requests a change to a port's administrative configuration.
// Rewriting the hardware address while the port is up is rejected by
// the handler.
type PortMod struct {
	PortNo    PortNo
	HWAddr    net.HardwareAddr
	Config    PortConfig
	Mask      PortConfig
	Advertise PortFeature
}

// WriteTo implements io.WriterTo.
func (p *PortMod) WriteTo(w io.Writer) (int64, error) {
	hwaddr := make([]byte, 6)
	copy(hwaddr, p.HWAddr)

	return encoding.WriteTo(w,
		p.PortNo, pad2{},
		hwaddr, pad2{},
		p.Config,
		p.Mask,
		p.Advertise, pad4{},
	)
}

// ReadFrom implements io.ReaderFrom.
func (p *PortMod) ReadFrom(r io.Reader) (int64, error) {
	p.HWAddr = make(net.HardwareAddr, 6)

	return encoding.ReadFrom(r,
		&p.PortNo, &defaultPad2,
		&p.HWAddr, &defaultPad2,
		&p.Config,
		&p.Mask,
		&p.Advertise, &defaultPad4,
	)
}

// PortReason identifies why a PORT_STATUS was emitted.
type PortReason uint8

const (
	PortReasonAdd PortReason = iota
	PortReasonDelete
	PortReasonModify
)

func (r PortReason) String() string {
	switch r {
	case PortReasonAdd:
		return "ADD"
	case PortReasonDelete:
		return "DELETE"
	case PortReasonModify:
		return "MODIFY"
	default:
		return fmt.Sprintf("PortReason(%d)", uint8(r))
	}
}

// PortStatus is the asynchronous message emitted when a port is
// added, removed or its descriptor changes.
type PortStatus struct {
	Reason PortReason
	Port   Port
}

// WriteTo implements io.WriterTo.
func (p *PortStatus) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, p.Reason, pad7{}, &p.Port)
}

// ReadFrom implements io.ReaderFrom.
func (p *PortStatus) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &p.Reason, &defaultPad7, &p.Port)
}

// PortStatsRequest asks for counters of a single port, or of all
// ports when PortNo is PortNone.
type PortStatsRequest struct {
	PortNo PortNo
}

// WriteTo implements io.WriterTo.
func (p *PortStatsRequest) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, p.PortNo, pad6{})
}

// ReadFrom implements io.ReaderFrom.
func (p *PortStatsRequest) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &p.PortNo, &defaultPad6)
}

// PortStats carries the running counters for a single port.
type PortStats struct {
	PortNo     PortNo
	RxPackets  uint64
	TxPackets  uint64
	RxBytes    uint64
	TxBytes    uint64
	RxDropped  uint64
	TxDropped  uint64
	RxErrors   uint64
	TxErrors   uint64
	RxFrameErr uint64
	RxOverErr  uint64
	RxCrcErr   uint64
	Collisions uint64
}

// WriteTo implements io.WriterTo.
func (p *PortStats) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w,
		p.PortNo, pad6{},
		p.RxPackets, p.TxPackets,
		p.RxBytes, p.TxBytes,
		p.RxDropped, p.TxDropped,
		p.RxErrors, p.TxErrors,
		p.RxFrameErr, p.RxOverErr, p.RxCrcErr,
		p.Collisions,
	)
}

// ReadFrom implements io.ReaderFrom.
func (p *PortStats) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r,
		&p.PortNo, &defaultPad6,
		&p.RxPackets, &p.TxPackets,
		&p.RxBytes, &p.TxBytes,
		&p.RxDropped, &p.TxDropped,
		&p.RxErrors, &p.TxErrors,
		&p.RxFrameErr, &p.RxOverErr, &p.RxCrcErr,
		&p.Collisions,
	)
}

// PortStatsReply is a list of per-port statistics, one per requested
// port (or all ports).
type PortStatsReply []PortStats

// WriteTo implements io.WriterTo.
func (p PortStatsReply) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteSliceTo(w, p)
}

// ReadFrom implements io.ReaderFrom, consuming entries until EOF.
func (p *PortStatsReply) ReadFrom(r io.Reader) (int64, error) {
	*p = nil
	return encoding.ReadSliceFrom(r, encoding.ReaderMakerOf(PortStats{}), p)
}
