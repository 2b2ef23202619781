package openflow

import (
	"bytes"
	"io"

	"github.com/netrack/ofswitch/encoding/binary"
)

// NewReader marshals w and returns a reader over the resulting bytes.
func NewReader(w io.WriterTo) (io.Reader, error) {
	var buf bytes.Buffer

	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}

	return &buf, nil
}

// Bytes returns the big-endian binary encoding of v.
func Bytes(v interface{}) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, v)
	return buf.Bytes()
}
