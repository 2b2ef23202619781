// Package encodingtest provides table-driven helpers for testing the
// io.WriterTo/io.ReaderFrom wire types in package ofp: construct a
// value, check it marshals to an exact byte sequence, and check that
// sequence unmarshals without error, consuming every byte.
package encodingtest

import (
	"bytes"
	"io"
	"testing"
)

// M pairs a marshaler with the exact bytes it is expected to produce.
type M struct {
	Writer io.WriterTo
	Bytes  []byte
}

// RunM checks that each Writer marshals to exactly Bytes.
func RunM(t *testing.T, tests []M) {
	for _, test := range tests {
		var buf bytes.Buffer

		n, err := test.Writer.WriteTo(&buf)
		if err != nil {
			t.Fatalf("marshal %#v: %s", test.Writer, err)
		}

		if n != int64(len(test.Bytes)) {
			t.Fatalf("marshal %#v: wrote %d bytes, want %d (%x)",
				test.Writer, n, len(test.Bytes), test.Bytes)
		}

		if !bytes.Equal(test.Bytes, buf.Bytes()) {
			t.Fatalf("marshal %#v: got %x, want %x",
				test.Writer, buf.Bytes(), test.Bytes)
		}
	}
}

// U pairs a deserializer with the bytes it should decode from. The
// decoded value itself is not compared against anything.
type U struct {
	Reader io.ReaderFrom
	Bytes  []byte
}

// RunU checks that each Reader decodes Bytes without error and
// consumes exactly len(Bytes).
func RunU(t *testing.T, tests []U) {
	for _, test := range tests {
		buf := bytes.NewBuffer(test.Bytes)

		n, err := test.Reader.ReadFrom(buf)
		if err != nil {
			t.Fatalf("unmarshal %x: %s", test.Bytes, err)
		}

		if n != int64(len(test.Bytes)) {
			t.Fatalf("unmarshal %x: read %d bytes, want %d",
				test.Bytes, n, len(test.Bytes))
		}
	}
}

// MU is a value that can both marshal and unmarshal itself, checked
// both ways against the same byte sequence.
type MU struct {
	ReadWriter interface {
		io.ReaderFrom
		io.WriterTo
	}

	Bytes []byte
}

// RunMU runs both RunM and RunU against each test case.
func RunMU(t *testing.T, tests []MU) {
	for _, test := range tests {
		RunM(t, []M{{test.ReadWriter, test.Bytes}})
		RunU(t, []U{{test.ReadWriter, test.Bytes}})
	}
}
