// Package encoding provides helpers shared by the wire-format types in
// package ofp: composing WriteTo/ReadFrom calls over a sequence of
// values, decoding homogeneous lists, and decoding tagged-union lists
// (actions) where the concrete type of each element
// is determined by a short type tag that precedes its body.
package encoding

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"reflect"
)

// countingReader counts the bytes pulled through it, so that callers
// composing several reads can report a single total.
type countingReader struct {
	io.Reader
	n int64
}

func (r *countingReader) Read(b []byte) (int, error) {
	n, err := r.Reader.Read(b)
	r.n += int64(n)
	return n, err
}

// ReadWriter is satisfied by wire types that can both serialize
// themselves and populate themselves from a reader.
type ReadWriter interface {
	io.ReaderFrom
	io.WriterTo
}

type nopWriter struct{ io.WriterTo }

func (nopWriter) ReadFrom(io.Reader) (int64, error) { return 0, io.EOF }

// NopWriter adapts a WriterTo into a ReadWriter whose ReadFrom always
// fails; useful for write-only fixtures in tests.
func NopWriter(w io.WriterTo) ReadWriter { return nopWriter{w} }

type nopReader struct{ io.ReaderFrom }

func (nopReader) WriteTo(io.Writer) (int64, error) { return 0, nil }

// NopReader adapts a ReaderFrom into a ReadWriter whose WriteTo is a
// no-op; useful for read-only fixtures in tests.
func NopReader(r io.ReaderFrom) ReadWriter { return nopReader{r} }

// WriteTo serializes each of v in order into w. Elements implementing
// io.WriterTo marshal themselves; anything else is encoded with
// encoding/binary in network byte order. The whole sequence is
// buffered and written atomically, so a marshaling error never leaves
// a partial message on the wire.
func WriteTo(w io.Writer, v ...interface{}) (int64, error) {
	var buf bytes.Buffer

	for _, elem := range v {
		var err error

		switch elem := elem.(type) {
		case nil:
			continue
		case io.WriterTo:
			_, err = elem.WriteTo(&buf)
		default:
			err = binary.Write(&buf, binary.BigEndian, elem)
		}

		if err != nil {
			return 0, err
		}
	}

	return buf.WriteTo(w)
}

// ReadFrom populates each of v in order from r. Elements implementing
// io.ReaderFrom deserialize themselves; anything else is decoded with
// encoding/binary in network byte order.
func ReadFrom(r io.Reader, v ...interface{}) (int64, error) {
	cr := &countingReader{Reader: r}

	for _, elem := range v {
		var err error

		switch elem := elem.(type) {
		case io.ReaderFrom:
			_, err = elem.ReadFrom(cr)
		default:
			err = binary.Read(cr, binary.BigEndian, elem)
		}

		if err != nil {
			return cr.n, err
		}
	}

	return cr.n, nil
}

// WriteSliceTo writes every element of the slice to w. slice must be
// a slice whose element pointers implement io.WriterTo; it panics
// otherwise.
func WriteSliceTo(w io.Writer, slice interface{}) (int64, error) {
	var n int64

	val := reflect.ValueOf(slice)
	for i := 0; i < val.Len(); i++ {
		writer := val.Index(i).Addr().Interface().(io.WriterTo)

		nn, err := writer.WriteTo(w)
		n += nn
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// ReaderMaker produces fresh io.ReaderFrom instances used to decode
// one element of a list. Implementations may inspect the upcoming
// bytes (see ScanFrom) to pick a concrete type for tagged unions.
type ReaderMaker interface {
	MakeReader() (io.ReaderFrom, error)
}

// ReaderMakerFunc adapts a function to the ReaderMaker interface.
type ReaderMakerFunc func() (io.ReaderFrom, error)

// MakeReader implements ReaderMaker.
func (fn ReaderMakerFunc) MakeReader() (io.ReaderFrom, error) { return fn() }

// ReaderMakerOf returns a ReaderMaker that always produces a new
// zero value of the same type as v. A pointer to that type must
// implement io.ReaderFrom.
func ReaderMakerOf(v interface{}) ReaderMaker {
	t := reflect.TypeOf(v)
	return ReaderMakerFunc(func() (io.ReaderFrom, error) {
		return reflect.New(t).Interface().(io.ReaderFrom), nil
	})
}

// ReadSliceFrom decodes a homogeneous list from r using rm and
// appends each decoded element to slice, a pointer to a slice value.
func ReadSliceFrom(r io.Reader, rm ReaderMaker, slice interface{}) (int64, error) {
	sliceVal := reflect.ValueOf(slice).Elem()

	return ReadFunc(r, rm, func(elem io.ReaderFrom) {
		v := reflect.ValueOf(elem).Elem()
		sliceVal.Set(reflect.Append(sliceVal, v))
	})
}

// ReadFunc decodes elements from r using rm until rm or the decoded
// reader reports io.EOF, invoking fn for each successfully decoded
// element.
func ReadFunc(r io.Reader, rm ReaderMaker, fn func(io.ReaderFrom)) (int64, error) {
	var n int64

	for {
		elem, err := rm.MakeReader()
		if err != nil {
			return n, SkipEOF(err)
		}

		nn, err := elem.ReadFrom(r)
		n += nn
		if err != nil {
			return n, SkipEOF(err)
		}

		fn(elem)
	}
}

// ScanFrom decodes a list of tagged-union elements from r. Each
// element on the wire begins with a fixed-size tag of the same shape
// as v; ScanFrom peeks that tag, decodes it into v to let the caller
// inspect it, then asks rm to produce the concrete reader for the
// element body (including the tag, which is pushed back onto the
// stream via a buffered reader so both passes see it).
func ScanFrom(r io.Reader, v interface{}, rm ReaderMaker) (int64, error) {
	tagLen := int(reflect.TypeOf(v).Elem().Size())

	var n int64
	br := bufio.NewReader(r)

	for {
		tag, err := br.Peek(tagLen)
		if err != nil {
			return n, SkipEOF(err)
		}

		if _, err := ReadFrom(bytes.NewReader(tag), v); err != nil {
			return n, err
		}

		elem, err := rm.MakeReader()
		if err != nil {
			return n, SkipEOF(err)
		}

		nn, err := elem.ReadFrom(br)
		n += nn
		if err != nil {
			return n, SkipEOF(err)
		}
	}
}

// SkipEOF turns io.EOF into nil, so that callers of ReadFunc/ScanFrom
// can treat "no more elements" as a normal, non-error termination.
func SkipEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
