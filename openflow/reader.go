package openflow

import (
	"io"
)

type writerToFunc func(io.Writer) (int64, error)

func (fn writerToFunc) WriteTo(w io.Writer) (int64, error) {
	return fn(w)
}

// MultiWriterTo composes several io.WriterTo values into one that
// writes each of them to the destination in order, stopping at the
// first error.
func MultiWriterTo(w ...io.WriterTo) io.WriterTo {
	fn := func(wr io.Writer) (int64, error) {
		var n int64

		for _, writer := range w {
			if writer == nil {
				continue
			}

			nn, err := writer.WriteTo(wr)
			n += nn

			if err != nil {
				return n, err
			}
		}

		return n, nil
	}

	return writerToFunc(fn)
}
