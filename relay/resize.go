package relay

import (
	"bytes"
	"fmt"
)

const esc = 0x1b

var resizePrefix = []byte{esc, '[', '8', ';'}

// Resize is a window size request carried in-band as ESC [ 8 ; rows ; cols t.
type Resize struct {
	Rows uint16
	Cols uint16
}

func (r Resize) String() string {
	return fmt.Sprintf("%dx%d", r.Rows, r.Cols)
}

// EncodeResize returns the control sequence for a resize to rows x cols.
func EncodeResize(rows, cols uint16) []byte {
	return fmt.Appendf(nil, "\x1b[8;%d;%dt", rows, cols)
}

// FilterResize removes every complete resize sequence from buf and returns
// the remaining bytes along with the parsed requests in order of appearance.
// Partial or malformed sequences are left untouched. The result reuses buf's
// storage.
func FilterResize(buf []byte) ([]byte, []Resize) {
	if bytes.IndexByte(buf, esc) < 0 {
		return buf, nil
	}
	out := buf[:0]
	var resizes []Resize
	for i := 0; i < len(buf); {
		if buf[i] == esc {
			if r, n, ok := parseResize(buf[i:]); ok {
				resizes = append(resizes, r)
				i += n
				continue
			}
		}
		out = append(out, buf[i])
		i++
	}
	return out, resizes
}

// parseResize parses a sequence at the start of b and returns its length.
func parseResize(b []byte) (Resize, int, bool) {
	if !bytes.HasPrefix(b, resizePrefix) {
		return Resize{}, 0, false
	}
	n := len(resizePrefix)
	rows, k, ok := parseDimension(b[n:], ';')
	if !ok {
		return Resize{}, 0, false
	}
	n += k
	cols, k, ok := parseDimension(b[n:], 't')
	if !ok {
		return Resize{}, 0, false
	}
	n += k
	return Resize{Rows: rows, Cols: cols}, n, true
}

// parseDimension reads 1-5 decimal digits terminated by term and returns the
// value and the number of bytes consumed including term.
func parseDimension(b []byte, term byte) (uint16, int, bool) {
	var v uint32
	for i, c := range b {
		switch {
		case c >= '0' && c <= '9':
			if i == 5 {
				return 0, 0, false
			}
			v = v*10 + uint32(c-'0')
		case c == term && i > 0:
			if v > 0xffff {
				return 0, 0, false
			}
			return uint16(v), i + 1, true
		default:
			return 0, 0, false
		}
	}
	return 0, 0, false
}
