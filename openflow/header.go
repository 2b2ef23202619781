// Package openflow implements the control-channel framing, request
// dispatch and server machinery that sits on top of the wire messages
// defined in package ofp. Its shape mirrors net/http: a Conn reads and
// writes whole, length-prefixed OpenFlow messages, a Handler processes
// a Request and replies through a ResponseWriter, and a TypeMux
// dispatches requests to handlers registered by message type.
package openflow

import (
	"fmt"
	"io"

	"github.com/netrack/ofswitch/encoding/binary"
)

// Type identifies the kind of an OpenFlow message, carried in the
// common message header.
type Type uint8

const (
	// Immutable messages. These are accepted regardless of the
	// negotiated wire version.
	TypeHello Type = iota
	TypeError
	TypeEchoRequest
	TypeEchoReply
	TypeVendor

	// Switch configuration messages.
	TypeFeaturesRequest
	TypeFeaturesReply
	TypeGetConfigRequest
	TypeGetConfigReply
	TypeSetConfig

	// Asynchronous messages, emitted by the switch without a
	// matching request.
	TypePacketIn
	TypeFlowRemoved
	TypePortStatus

	// Controller command messages.
	TypePacketOut
	TypeFlowMod
	TypePortMod

	// Statistics request/reply pair. A single reply may be split
	// across several messages, see ofp.StatsReplyMore.
	TypeStatsRequest
	TypeStatsReply
)

var typeText = map[Type]string{
	TypeHello:            "HELLO",
	TypeError:            "ERROR",
	TypeEchoRequest:      "ECHO_REQUEST",
	TypeEchoReply:        "ECHO_REPLY",
	TypeVendor:           "VENDOR",
	TypeFeaturesRequest:  "FEATURES_REQUEST",
	TypeFeaturesReply:    "FEATURES_REPLY",
	TypeGetConfigRequest: "GET_CONFIG_REQUEST",
	TypeGetConfigReply:   "GET_CONFIG_REPLY",
	TypeSetConfig:        "SET_CONFIG",
	TypePacketIn:         "PACKET_IN",
	TypeFlowRemoved:      "FLOW_REMOVED",
	TypePortStatus:       "PORT_STATUS",
	TypePacketOut:        "PACKET_OUT",
	TypeFlowMod:          "FLOW_MOD",
	TypePortMod:          "PORT_MOD",
	TypeStatsRequest:     "STATS_REQUEST",
	TypeStatsReply:       "STATS_REPLY",
}

// String returns a human-readable name of the message type.
func (t Type) String() string {
	if text, ok := typeText[t]; ok {
		return text
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Version is the wire version carried by the common header. Only
// HELLO, ERROR, ECHO_REQUEST, ECHO_REPLY and VENDOR messages are
// allowed to carry a different version, see VersionFree.
const Version uint8 = 0x83

// HeaderLen is the length in bytes of the common OpenFlow header.
const HeaderLen = 8

// VersionFree reports whether a message of the given type is allowed
// to carry a version other than Version.
func VersionFree(t Type) bool {
	switch t {
	case TypeHello, TypeError, TypeEchoRequest, TypeEchoReply, TypeVendor:
		return true
	default:
		return false
	}
}

// Header is the fixed 8-byte prologue that begins every OpenFlow
// message: a version byte, a type byte, the total message length
// (including the header itself) and a transaction id used to pair
// requests with their replies.
type Header struct {
	Version uint8
	Type    Type
	Length  uint16
	XID     uint32
}

// Copy returns a copy of the header, convenient for building a reply
// header out of a request header (same XID, different type).
func (h Header) Copy() Header {
	return h
}

// WriteTo implements io.WriterTo. It serializes the header into the
// wire format.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	return binary.Write(w, binary.BigEndian, h)
}

// ReadFrom implements io.ReaderFrom. It deserializes the header from
// the wire format.
func (h *Header) ReadFrom(r io.Reader) (int64, error) {
	return binary.Read(r, binary.BigEndian, h)
}
