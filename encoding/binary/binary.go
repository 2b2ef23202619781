// Package binary is a thin wrapper around encoding/binary that lets
// callers pass around a single ByteOrder value without repeating the
// big-endian/little-endian choice at every call site in the protocol
// packages.
package binary

import (
	"bytes"
	"encoding/binary"
	"io"
)

// ByteOrder is an alias of encoding/binary.ByteOrder, re-exported so
// that packages importing this wrapper do not also need to import
// the standard library package directly.
type ByteOrder = binary.ByteOrder

var (
	BigEndian    ByteOrder = binary.BigEndian
	LittleEndian ByteOrder = binary.LittleEndian
)

// Read reads structured binary data from r into data, using the
// specified byte order. Unlike a buffer-then-decode approach, this
// reads exactly as many bytes as data requires, which matters when r
// is a connection shared with subsequent messages.
func Read(r io.Reader, order ByteOrder, data interface{}) (int64, error) {
	n := binary.Size(data)
	if n < 0 {
		return 0, binary.Read(r, order, data)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}

	err := binary.Read(bytes.NewReader(buf), order, data)
	return int64(n), err
}

// Write writes the binary representation of data to w, using the
// specified byte order.
func Write(w io.Writer, order ByteOrder, data interface{}) (int64, error) {
	var wbuf bytes.Buffer

	if err := binary.Write(&wbuf, order, data); err != nil {
		return 0, err
	}

	return wbuf.WriteTo(w)
}

// ReadSlice reads each element of slice from r in order, using the
// specified byte order.
func ReadSlice(r io.Reader, order ByteOrder, slice []interface{}) (int64, error) {
	var total int64

	for _, elem := range slice {
		n, err := Read(r, order, elem)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// WriteSlice writes each element of slice to w in order, using the
// specified byte order.
func WriteSlice(w io.Writer, order ByteOrder, slice []interface{}) (int64, error) {
	var total int64

	for _, elem := range slice {
		n, err := Write(w, order, elem)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
