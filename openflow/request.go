package openflow

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
)

var (
	// ErrBodyTooLong is returned when a request body would make the
	// encoded message exceed the 16-bit length field of the common
	// header.
	ErrBodyTooLong = errors.New("openflow: request body is too long")
)

// copyReader lazily drains a io.WriterTo into an internal buffer on
// the first Read or WriteTo, so a Request built around a message body can be
// both streamed via WriteTo and read via Body without marshaling the
// body twice.
type copyReader struct {
	io.WriterTo

	once sync.Once
	buf  bytes.Buffer
	err  error
}

// WriteTo implements io.WriterTo. It writes the bytes of the
// marshaled value that Read has not yet returned, without consuming
// them.
func (r *copyReader) WriteTo(w io.Writer) (int64, error) {
	r.once.Do(func() {
		if r.WriterTo != nil {
			_, r.err = r.WriterTo.WriteTo(&r.buf)
		}
	})

	if r.err != nil {
		return 0, r.err
	}

	return bytes.NewReader(r.buf.Bytes()).WriteTo(w)
}

// Read implements io.Reader by marshaling the wrapped value into a
// buffer on first use, then draining that buffer.
func (r *copyReader) Read(p []byte) (int, error) {
	r.once.Do(func() {
		if r.WriterTo != nil {
			_, r.err = r.WriterTo.WriteTo(&r.buf)
		}
	})

	if r.err != nil {
		return 0, r.err
	}

	return r.buf.Read(p)
}

// Request is a single OpenFlow message as seen by a Handler or sent
// by a client: a decoded Header paired with a body of message-specific
// content (an ofp type such as *ofp.FlowMod).
type Request struct {
	Header Header

	// Body holds the undecoded message payload. For a server-side
	// request, it is always non-nil and returns io.EOF immediately
	// when the message has no body (e.g. HELLO).
	Body io.Reader

	// Proto identifies the protocol version the message was read
	// with or is addressed to, formatted as "OFP/0xVV".
	Proto string

	// Addr is the address the request originated from; populated by
	// Conn.Receive, unset for client-built requests.
	Addr net.Addr

	// ContentLength is the number of bytes following the header, or
	// -1 when unknown (client-built requests before marshaling).
	ContentLength int64
}

// NewRequest builds a Request of the given type, carrying body as the
// message content. body may be nil for bodyless messages.
func NewRequest(t Type, body io.WriterTo) (*Request, error) {
	req := &Request{
		Header:        Header{Version: Version, Type: t},
		Body:          &copyReader{WriterTo: body},
		Proto:         fmt.Sprintf("OFP/0x%02x", Version),
		ContentLength: -1,
	}

	return req, nil
}

// WriteTo serializes the request onto w: the header followed by the
// marshaled body, with Header.Length set to match.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	var body bytes.Buffer

	if r.Body != nil {
		if wt, ok := r.Body.(io.WriterTo); ok {
			if _, err := wt.WriteTo(&body); err != nil {
				return 0, err
			}
		} else if _, err := io.Copy(&body, r.Body); err != nil {
			return 0, err
		}
	}

	if body.Len() > math.MaxUint16-HeaderLen {
		return 0, ErrBodyTooLong
	}

	r.Header.Length = uint16(HeaderLen + body.Len())

	var buf bytes.Buffer
	if _, err := r.Header.WriteTo(&buf); err != nil {
		return 0, err
	}

	if _, err := body.WriteTo(&buf); err != nil {
		return 0, err
	}

	return buf.WriteTo(w)
}

// ReadFrom reads one full message from r: the header, then exactly
// Header.Length-HeaderLen bytes of body.
func (r *Request) ReadFrom(rd io.Reader) (int64, error) {
	n, err := r.Header.ReadFrom(rd)
	if err != nil {
		return n, err
	}

	r.Proto = fmt.Sprintf("OFP/0x%02x", r.Header.Version)

	contentLen := int(r.Header.Length) - HeaderLen
	if contentLen < 0 {
		return n, fmt.Errorf("openflow: invalid message length %d", r.Header.Length)
	}

	buf := make([]byte, contentLen)
	if contentLen > 0 {
		if _, err := io.ReadFull(rd, buf); err != nil {
			return n, err
		}
	}

	r.Body = bytes.NewBuffer(buf)
	r.ContentLength = int64(contentLen)
	n += int64(contentLen)

	return n, nil
}
