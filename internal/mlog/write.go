package mlog

import (
	"io"
	"strings"
)

// String returns a log line as a string.
func String(
	ids []IconWithLabel,
	icons []Icon,
	text ...string,
) string {
	w := &strings.Builder{}
	_, _ = write(w, ids, icons, text)
	return w.String()
}

// Write writes a log line to w.
func Write(
	w io.Writer,
	ids []IconWithLabel,
	icons []Icon,
	text ...string,
) (int, error) {
	return write(w, ids, icons, text)
}

func write(
	w io.Writer,
	ids []IconWithLabel,
	icons []Icon,
	text []string,
) (n int, err error) {
	wn := 0

	for _, v := range ids {
		if wn, err = writeTo(w, v); err != nil {
			return n + wn, err
		}
		n += wn

		if wn, err = w.Write(space2); err != nil {
			return n + wn, err
		}
		n += wn
	}

	for _, v := range icons {
		if wn, err = writeTo(w, v); err != nil {
			return n + wn, err
		}
		n += wn

		if wn, err = w.Write(space1); err != nil {
			return n + wn, err
		}
		n += wn
	}

	i := 0
	for _, v := range text {
		if v == "" {
			continue
		}

		if wn, err = w.Write(space1); err != nil {
			return n + wn, err
		}
		n += wn

		if i > 0 {
			if wn, err = writeTo(w, SeparatorIcon); err != nil {
				return n + wn, err
			}
			n += wn

			if wn, err = w.Write(space1); err != nil {
				return n + wn, err
			}
			n += wn
		}

		if wn, err = io.WriteString(w, v); err != nil {
			return n + wn, err
		}
		n += wn
		i++
	}

	return n, nil
}

// writeToer is implemented by values that know how to render themselves to
// an io.Writer. Its method has io.WriterTo's int64 count; writeTo converts
// that count to the int used by the rest of this package's counters.
type writeToer interface {
	WriteTo(w io.Writer) (int64, error)
}

func writeTo(w io.Writer, v writeToer) (int, error) {
	n, err := v.WriteTo(w)
	return int(n), err
}

var (
	space1 = []byte{' '}
	space2 = []byte{' ', ' '}
)
