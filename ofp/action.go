package ofp

import (
	"bytes"
	"fmt"
	"io"
	"net"

	"github.com/netrack/ofswitch/internal/encoding"
)

// ActionType specifies the action type.
type ActionType uint16

// String returns a string representation of the action type.
func (a ActionType) String() string {
	text, ok := actionText[a]
	if !ok {
		return fmt.Sprintf("Action(%d)", a)
	}

	return text
}

const (
	// ActionTypeOutput outputs the packet to the switch port.
	ActionTypeOutput ActionType = iota

	// ActionTypeSetVLANVID sets the IEEE 802.1Q VLAN id.
	ActionTypeSetVLANVID

	// ActionTypeSetVLANPCP sets the IEEE 802.1Q priority code point.
	ActionTypeSetVLANPCP

	// ActionTypeStripVLAN strips the IEEE 802.1Q header.
	ActionTypeStripVLAN

	// ActionTypeSetDLSrc sets the Ethernet source address.
	ActionTypeSetDLSrc

	// ActionTypeSetDLDst sets the Ethernet destination address.
	ActionTypeSetDLDst

	// ActionTypeSetNwSrc sets the IPv4 source address.
	ActionTypeSetNwSrc

	// ActionTypeSetNwDst sets the IPv4 destination address.
	ActionTypeSetNwDst

	// ActionTypeSetTPSrc sets the TCP/UDP source port.
	ActionTypeSetTPSrc

	// ActionTypeSetTPDst sets the TCP/UDP destination port.
	ActionTypeSetTPDst
)

var actionText = map[ActionType]string{
	ActionTypeOutput:     "ActionOutput",
	ActionTypeSetVLANVID: "ActionSetVLANVID",
	ActionTypeSetVLANPCP: "ActionSetVLANPCP",
	ActionTypeStripVLAN:  "ActionStripVLAN",
	ActionTypeSetDLSrc:   "ActionSetDLSrc",
	ActionTypeSetDLDst:   "ActionSetDLDst",
	ActionTypeSetNwSrc:   "ActionSetNwSrc",
	ActionTypeSetNwDst:   "ActionSetNwDst",
	ActionTypeSetTPSrc:   "ActionSetTPSrc",
	ActionTypeSetTPDst:   "ActionSetTPDst",
}

var actionMap = map[ActionType]encoding.ReaderMaker{
	ActionTypeOutput:     encoding.ReaderMakerOf(ActionOutput{}),
	ActionTypeSetVLANVID: encoding.ReaderMakerOf(ActionSetVLANVID{}),
	ActionTypeSetVLANPCP: encoding.ReaderMakerOf(ActionSetVLANPCP{}),
	ActionTypeStripVLAN:  encoding.ReaderMakerOf(ActionStripVLAN{}),
	ActionTypeSetDLSrc:   encoding.ReaderMakerOf(ActionSetDLSrc{}),
	ActionTypeSetDLDst:   encoding.ReaderMakerOf(ActionSetDLDst{}),
	ActionTypeSetNwSrc:   encoding.ReaderMakerOf(ActionSetNwSrc{}),
	ActionTypeSetNwDst:   encoding.ReaderMakerOf(ActionSetNwDst{}),
	ActionTypeSetTPSrc:   encoding.ReaderMakerOf(ActionSetTPSrc{}),
	ActionTypeSetTPDst:   encoding.ReaderMakerOf(ActionSetTPDst{}),
}

const (
	// ContentLenMax defines the maximum length of the bytes that should
	// be submitted to the controller on output action type.
	ContentLenMax uint16 = 0xffe5

	// ContentLenNoBuffer indicates that no buffering should be applied
	// and the whole packet is to be sent to the controller.
	ContentLenNoBuffer uint16 = 0xffff
)

// action is the 4-byte header shared by every action.
type action struct {
	Type ActionType
	Len  uint16
}

func (a *action) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &a.Type, &a.Len)
}

const actionHeaderLen uint16 = 4

// Action is an interface representing an OpenFlow action.
type Action interface {
	encoding.ReadWriter

	// Type returns the type of the action.
	Type() ActionType
}

// Actions group the set of actions applied to a packet, in order.
type Actions []Action

func (a *Actions) bytes() ([]byte, error) {
	var buf bytes.Buffer

	for _, act := range *a {
		if _, err := act.WriteTo(&buf); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// WriteTo writes the list of actions to the given writer instance.
func (a *Actions) WriteTo(w io.Writer) (int64, error) {
	buf, err := a.bytes()
	if err != nil {
		return int64(len(buf)), err
	}

	return encoding.WriteTo(w, buf)
}

// ReadFrom decodes a list of actions from the wire format into the
// list of types implementing the Action interface.
func (a *Actions) ReadFrom(r io.Reader) (int64, error) {
	var actionType ActionType
	*a = nil

	rm := func() (io.ReaderFrom, error) {
		if rm, ok := actionMap[actionType]; ok {
			rd, err := rm.MakeReader()
			*a = append(*a, rd.(Action))
			return rd, err
		}

		return nil, fmt.Errorf("ofp: unknown action type: '%x'", actionType)
	}

	return encoding.ScanFrom(r, &actionType, encoding.ReaderMakerFunc(rm))
}

// ActionOutput outputs the packet to the given switch port.
//
// When Port is PortController, MaxLen indicates the max number of
// bytes to send. A MaxLen of zero means no bytes of the packet are
// sent. ContentLenNoBuffer means the packet is not buffered and is
// sent to the controller in full.
type ActionOutput struct {
	Port   PortNo
	MaxLen uint16
}

// Type returns the type of the action.
func (a *ActionOutput) Type() ActionType { return ActionTypeOutput }

// WriteTo implements the io.WriterTo interface.
func (a *ActionOutput) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, a.Port, a.MaxLen)
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionOutput) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &a.Port, &a.MaxLen)
}

// ActionSetVLANVID sets the IEEE 802.1Q VLAN id of the packet.
type ActionSetVLANVID struct {
	VLANVID uint16
}

// Type returns the type of the action.
func (a *ActionSetVLANVID) Type() ActionType { return ActionTypeSetVLANVID }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetVLANVID) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, a.VLANVID, pad2{})
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetVLANVID) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &a.VLANVID, &defaultPad2)
}

// ActionSetVLANPCP sets the IEEE 802.1Q priority code point of the packet.
type ActionSetVLANPCP struct {
	VLANPCP uint8
}

// Type returns the type of the action.
func (a *ActionSetVLANPCP) Type() ActionType { return ActionTypeSetVLANPCP }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetVLANPCP) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, a.VLANPCP, pad3{})
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetVLANPCP) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &a.VLANPCP, &defaultPad3)
}

// ActionStripVLAN strips the IEEE 802.1Q header from the packet.
type ActionStripVLAN struct{}

// Type returns the type of the action.
func (a *ActionStripVLAN) Type() ActionType { return ActionTypeStripVLAN }

// WriteTo implements the io.WriterTo interface.
func (a *ActionStripVLAN) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, pad4{})
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionStripVLAN) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &defaultPad4)
}

// ActionSetDLSrc sets the Ethernet source address of the packet.
type ActionSetDLSrc struct {
	DLSrc net.HardwareAddr
}

// Type returns the type of the action.
func (a *ActionSetDLSrc) Type() ActionType { return ActionTypeSetDLSrc }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetDLSrc) WriteTo(w io.Writer) (int64, error) {
	var addr [6]byte
	copy(addr[:], a.DLSrc)
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 12}, addr, pad6{})
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetDLSrc) ReadFrom(r io.Reader) (int64, error) {
	var addr [6]byte
	n, err := encoding.ReadFrom(r, &action{}, &addr, &defaultPad6)
	a.DLSrc = net.HardwareAddr(addr[:])
	return n, err
}

// ActionSetDLDst sets the Ethernet destination address of the packet.
type ActionSetDLDst struct {
	DLDst net.HardwareAddr
}

// Type returns the type of the action.
func (a *ActionSetDLDst) Type() ActionType { return ActionTypeSetDLDst }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetDLDst) WriteTo(w io.Writer) (int64, error) {
	var addr [6]byte
	copy(addr[:], a.DLDst)
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 12}, addr, pad6{})
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetDLDst) ReadFrom(r io.Reader) (int64, error) {
	var addr [6]byte
	n, err := encoding.ReadFrom(r, &action{}, &addr, &defaultPad6)
	a.DLDst = net.HardwareAddr(addr[:])
	return n, err
}

// ActionSetNwSrc sets the IPv4 source address of the packet.
type ActionSetNwSrc struct {
	NwSrc net.IP
}

// Type returns the type of the action.
func (a *ActionSetNwSrc) Type() ActionType { return ActionTypeSetNwSrc }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetNwSrc) WriteTo(w io.Writer) (int64, error) {
	var addr [4]byte
	copy(addr[:], a.NwSrc.To4())
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, addr)
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetNwSrc) ReadFrom(r io.Reader) (int64, error) {
	var addr [4]byte
	n, err := encoding.ReadFrom(r, &action{}, &addr)
	a.NwSrc = net.IP(addr[:])
	return n, err
}

// ActionSetNwDst sets the IPv4 destination address of the packet.
type ActionSetNwDst struct {
	NwDst net.IP
}

// Type returns the type of the action.
func (a *ActionSetNwDst) Type() ActionType { return ActionTypeSetNwDst }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetNwDst) WriteTo(w io.Writer) (int64, error) {
	var addr [4]byte
	copy(addr[:], a.NwDst.To4())
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, addr)
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetNwDst) ReadFrom(r io.Reader) (int64, error) {
	var addr [4]byte
	n, err := encoding.ReadFrom(r, &action{}, &addr)
	a.NwDst = net.IP(addr[:])
	return n, err
}

// ActionSetTPSrc sets the TCP/UDP source port of the packet.
type ActionSetTPSrc struct {
	TPSrc uint16
}

// Type returns the type of the action.
func (a *ActionSetTPSrc) Type() ActionType { return ActionTypeSetTPSrc }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetTPSrc) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, a.TPSrc, pad2{})
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetTPSrc) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &a.TPSrc, &defaultPad2)
}

// ActionSetTPDst sets the TCP/UDP destination port of the packet.
type ActionSetTPDst struct {
	TPDst uint16
}

// Type returns the type of the action.
func (a *ActionSetTPDst) Type() ActionType { return ActionTypeSetTPDst }

// WriteTo implements the io.WriterTo interface.
func (a *ActionSetTPDst) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, action{a.Type(), actionHeaderLen + 4}, a.TPDst, pad2{})
}

// ReadFrom implements the io.ReaderFrom interface.
func (a *ActionSetTPDst) ReadFrom(r io.Reader) (int64, error) {
	return encoding.ReadFrom(r, &action{}, &a.TPDst, &defaultPad2)
}
