package ofp

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/netrack/ofswitch/internal/encoding"
)

// NoBuffer is used as a buffer identifier when there is no buffered
// packet associated with a message.
const NoBuffer uint32 = 0xffffffff

const (
	// PacketInReasonNoMatch is set when there is no matching flow
	// entry (table-miss).
	PacketInReasonNoMatch PacketInReason = iota

	// PacketInReasonAction is set when a flow entry explicitly
	// outputs to the controller.
	PacketInReasonAction
)

// PacketInReason represents the reason why this packet has been sent
// to the controller.
type PacketInReason uint8

func (r PacketInReason) String() string {
	text, ok := packetInReasonText[r]
	if !ok {
		return fmt.Sprintf("PacketInReason(%d)", r)
	}
	return text
}

var packetInReasonText = map[PacketInReason]string{
	PacketInReasonNoMatch: "PacketInReasonNoMatch",
	PacketInReasonAction:  "PacketInReasonAction",
}

// PacketIn is sent by the datapath whenever a packet falls through
// to the controller, either because no flow entry matched it or
// because the matching entry's actions say so.
//
// The payload carried in Data is truncated to miss_send_len for a
// NO_MATCH, or to the triggering OUTPUT action's max length for an
// ACTION reason; Length always reports the original frame size.
type PacketIn struct {
	// Buffer is an identifier of the buffer, assigned by the
	// datapath, that holds the processed packet. NoBuffer if the
	// packet could not be buffered.
	Buffer uint32

	// Length is the total length of the original frame.
	Length uint16

	// Reason is the reason why the packet is being sent.
	Reason PacketInReason

	// InPort is the port the packet was received on.
	InPort PortNo

	// Data holds the (possibly truncated) Ethernet frame.
	Data []byte
}

// WriteTo implements io.WriterTo interface. It serializes the
// packet-in message into the wire format.
func (p *PacketIn) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, p.Buffer, p.Length,
		p.InPort, p.Reason, pad1{}, p.Data)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// packet-in message from the wire format.
func (p *PacketIn) ReadFrom(r io.Reader) (int64, error) {
	n, err := encoding.ReadFrom(r, &p.Buffer, &p.Length,
		&p.InPort, &p.Reason, &defaultPad1)
	if err != nil {
		return n, err
	}

	p.Data, err = ioutil.ReadAll(r)
	if err != nil {
		return n + int64(len(p.Data)), err
	}

	return n + int64(len(p.Data)), nil
}

// PacketOut is used by the controller to inject a packet into the
// datapath, either one carried inline or a previously buffered one.
//
// For example, to re-send a buffered packet out its original port's
// flood set:
//
//	out := &ofp.PacketOut{
//		Buffer:  packetIn.Buffer,
//		InPort:  packetIn.InPort,
//		Actions: ofp.Actions{&ofp.ActionOutput{Port: ofp.PortFlood}},
//	}
type PacketOut struct {
	// Buffer is an identifier assigned by the datapath (NoBuffer if
	// none), taken from a previous PacketIn message. When set to
	// NoBuffer, the packet bytes must follow the action list.
	Buffer uint32

	// InPort is the ingress port recorded against the packet for the
	// purposes of action processing (e.g. PortIn, loop checks).
	InPort PortNo

	// Actions lists how the packet should be processed by the
	// switch.
	Actions Actions

	// Data carries the packet bytes when Buffer is NoBuffer.
	Data []byte
}

// WriteTo implements io.WriterTo interface. It serializes the
// message into the wire format.
func (p *PacketOut) WriteTo(w io.Writer) (n int64, err error) {
	var buf bytes.Buffer

	_, err = p.Actions.WriteTo(&buf)
	if err != nil {
		return
	}

	return encoding.WriteTo(w, p.Buffer, p.InPort,
		uint16(buf.Len()), buf.Bytes(), p.Data)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// packet-out message from the wire format.
func (p *PacketOut) ReadFrom(r io.Reader) (int64, error) {
	var actionsLen uint16

	n, err := encoding.ReadFrom(r, &p.Buffer, &p.InPort, &actionsLen)
	if err != nil {
		return n, err
	}

	limrd := io.LimitReader(r, int64(actionsLen))
	p.Actions = nil

	nn, err := p.Actions.ReadFrom(limrd)
	n += nn
	if err != nil {
		return n, err
	}

	p.Data, err = ioutil.ReadAll(r)
	if err != nil {
		return n + int64(len(p.Data)), err
	}

	return n + int64(len(p.Data)), nil
}
