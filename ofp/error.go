package ofp

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/netrack/ofswitch/internal/encoding"
)

// ErrType indicates high-level type of error.
type ErrType uint16

// ErrCode indicates the precise type of error. The value is
// interpreted based on the error type.
type ErrCode uint16

const (
	// ErrTypeHelloFailed is returned when the hello exchange fails to
	// settle on a common protocol version.
	ErrTypeHelloFailed ErrType = iota

	// ErrTypeBadRequest is returned when the request header or body
	// is malformed.
	ErrTypeBadRequest

	// ErrTypeBadAction is returned when a flow's action list contains
	// an invalid or unsupported action.
	ErrTypeBadAction

	// ErrTypeFlowModFailed is returned when a FLOW_MOD could not be
	// applied.
	ErrTypeFlowModFailed

	// ErrTypePortModFailed is returned when a PORT_MOD request
	// failed.
	ErrTypePortModFailed

	// ErrTypeQueueOpFailed is returned when a queue operation failed.
	ErrTypeQueueOpFailed
)

func (t ErrType) String() string {
	text, ok := errTypeText[t]
	if !ok {
		return fmt.Sprintf("ErrType(%d)", t)
	}
	return text
}

var errTypeText = map[ErrType]string{
	ErrTypeHelloFailed:   "ErrTypeHelloFailed",
	ErrTypeBadRequest:    "ErrTypeBadRequest",
	ErrTypeBadAction:     "ErrTypeBadAction",
	ErrTypeFlowModFailed: "ErrTypeFlowModFailed",
	ErrTypePortModFailed: "ErrTypePortModFailed",
	ErrTypeQueueOpFailed: "ErrTypeQueueOpFailed",
}

const (
	// ErrCodeHelloFailedIncompatible is returned when there is no
	// compatible version that switch or controller supports.
	ErrCodeHelloFailedIncompatible ErrCode = iota

	// ErrCodeHelloFailedPerm is returned when permission is denied.
	ErrCodeHelloFailedPerm
)

const (
	// ErrCodeBadRequestBadVersion is returned when the version in the
	// message header is not supported.
	ErrCodeBadRequestBadVersion ErrCode = iota

	// ErrCodeBadRequestBadType is returned when the message type is
	// not supported.
	ErrCodeBadRequestBadType

	// ErrCodeBadRequestBadLen is returned when the message length
	// does not match its declared body.
	ErrCodeBadRequestBadLen

	// ErrCodeBadRequestBadPort is returned when an invalid port was
	// specified.
	ErrCodeBadRequestBadPort

	// ErrCodeBadRequestBufferUnknown is returned when the referenced
	// buffer ID does not match any live slot.
	ErrCodeBadRequestBufferUnknown
)

const (
	// ErrCodeBadActionType is returned when an unknown action type
	// was specified.
	ErrCodeBadActionType ErrCode = iota

	// ErrCodeBadActionLen is returned when an invalid action length
	// was specified.
	ErrCodeBadActionLen

	// ErrCodeBadActionOutPort is returned when an action references
	// an unknown or disallowed output port.
	ErrCodeBadActionOutPort

	// ErrCodeBadActionLoop is returned when an action would loop the
	// packet back to TABLE, NONE, or its own ingress port.
	ErrCodeBadActionLoop
)

const (
	// ErrCodeFlowModFailedUnknown is returned in case of an
	// unspecified error.
	ErrCodeFlowModFailedUnknown ErrCode = iota

	// ErrCodeFlowModFailedTableFull is returned when the flow could
	// not be added because no table had room for it.
	ErrCodeFlowModFailedTableFull

	// ErrCodeFlowModFailedOverlap is returned when an overlapping
	// flow was rejected by the overlap-check flag.
	ErrCodeFlowModFailedOverlap

	// ErrCodeFlowModFailedBadCommand is returned when an unsupported
	// or unknown command was specified.
	ErrCodeFlowModFailedBadCommand
)

const (
	// ErrCodePortModFailedBadPort is returned when the specified port
	// number does not exist.
	ErrCodePortModFailedBadPort ErrCode = iota

	// ErrCodePortModFailedBadHwAddr is returned when the specified
	// hardware address does not match the port number.
	ErrCodePortModFailedBadHwAddr

	// ErrCodePortModFailedBadConfig is returned when the specified
	// configuration is invalid.
	ErrCodePortModFailedBadConfig

	// ErrCodePortModFailedDriverError is returned when the underlying
	// port driver returned a non-recoverable error.
	ErrCodePortModFailedDriverError
)

const (
	// ErrCodeQueueOpFailedBadPort is returned when the specified port
	// is invalid or does not exist.
	ErrCodeQueueOpFailedBadPort ErrCode = iota

	// ErrCodeQueueOpFailedBadQueue is returned when the specified
	// queue does not exist.
	ErrCodeQueueOpFailedBadQueue
)

// Error is a message used by the switch to notify the controller of a
// problem.
//
// For example, to create a request to inform the controller about an
// unknown error in the flow modification message:
//
//	req, _ := openflow.NewRequest(openflow.TypeError, &Error{
//		Type: ErrTypeFlowModFailed,
//		Code: ErrCodeFlowModFailedUnknown,
//	})
type Error struct {
	// Type value indicates the high-level type of error.
	Type ErrType

	// Code value is interpreted based on the type.
	Code ErrCode

	// Data carries the offending request that caused the error,
	// truncated to the maximum length that fits the message.
	Data []byte
}

// Error implements the error interface.
func (e Error) Error() string {
	return e.String()
}

func (e Error) String() string {
	errCodeText, ok := errTypeCodeText[e.Type]
	if !ok {
		return fmt.Sprintf("ErrType(%d)Code(%d)", e.Type, e.Code)
	}
	text, ok := errCodeText[e.Code]
	if !ok {
		return fmt.Sprintf("%sCode(%d)", e.Type, e.Code)
	}
	return text
}

var errTypeCodeText = map[ErrType]map[ErrCode]string{
	ErrTypeHelloFailed: {
		ErrCodeHelloFailedIncompatible: "ErrCodeHelloFailedIncompatible",
		ErrCodeHelloFailedPerm:         "ErrCodeHelloFailedPerm",
	},
	ErrTypeBadRequest: {
		ErrCodeBadRequestBadVersion:    "ErrCodeBadRequestBadVersion",
		ErrCodeBadRequestBadType:       "ErrCodeBadRequestBadType",
		ErrCodeBadRequestBadLen:        "ErrCodeBadRequestBadLen",
		ErrCodeBadRequestBadPort:       "ErrCodeBadRequestBadPort",
		ErrCodeBadRequestBufferUnknown: "ErrCodeBadRequestBufferUnknown",
	},
	ErrTypeBadAction: {
		ErrCodeBadActionType:    "ErrCodeBadActionType",
		ErrCodeBadActionLen:     "ErrCodeBadActionLen",
		ErrCodeBadActionOutPort: "ErrCodeBadActionOutPort",
		ErrCodeBadActionLoop:    "ErrCodeBadActionLoop",
	},
	ErrTypeFlowModFailed: {
		ErrCodeFlowModFailedUnknown:    "ErrCodeFlowModFailedUnknown",
		ErrCodeFlowModFailedTableFull:  "ErrCodeFlowModFailedTableFull",
		ErrCodeFlowModFailedOverlap:    "ErrCodeFlowModFailedOverlap",
		ErrCodeFlowModFailedBadCommand: "ErrCodeFlowModFailedBadCommand",
	},
	ErrTypePortModFailed: {
		ErrCodePortModFailedBadPort:     "ErrCodePortModFailedBadPort",
		ErrCodePortModFailedBadHwAddr:   "ErrCodePortModFailedBadHwAddr",
		ErrCodePortModFailedBadConfig:   "ErrCodePortModFailedBadConfig",
		ErrCodePortModFailedDriverError: "ErrCodePortModFailedDriverError",
	},
	ErrTypeQueueOpFailed: {
		ErrCodeQueueOpFailedBadPort:  "ErrCodeQueueOpFailedBadPort",
		ErrCodeQueueOpFailedBadQueue: "ErrCodeQueueOpFailedBadQueue",
	},
}

// WriteTo implements io.WriterTo interface. It serializes the error
// message into the wire format.
func (e *Error) WriteTo(w io.Writer) (int64, error) {
	return encoding.WriteTo(w, e.Type, e.Code, e.Data)
}

// ReadFrom implements io.ReaderFrom interface. It deserializes the
// error message from the wire format.
func (e *Error) ReadFrom(r io.Reader) (n int64, err error) {
	n, err = encoding.ReadFrom(r, &e.Type, &e.Code)
	if err != nil {
		return
	}

	e.Data, err = ioutil.ReadAll(r)
	if err != nil {
		return
	}

	return n + int64(len(e.Data)), nil
}
