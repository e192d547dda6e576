package stream

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder turns UTF-8 bytes into text one chunk at a time. A multi-byte
// sequence split across chunks is held back until its remaining bytes arrive.
type Decoder struct {
	t     transform.Transformer
	carry []byte
	buf   []byte
}

// NewDecoder returns a Decoder with empty carry state
func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		buf: make([]byte, 4096),
	}
}

// Decode returns the text completed by chunk
func (d *Decoder) Decode(chunk []byte) (string, error) {
	return d.decode(chunk, false)
}

// Flush returns whatever is still held back. Incomplete sequences become U+FFFD.
func (d *Decoder) Flush() (string, error) {
	return d.decode(nil, true)
}

func (d *Decoder) decode(chunk []byte, atEOF bool) (string, error) {
	src := make([]byte, 0, len(d.carry)+len(chunk))
	src = append(src, d.carry...)
	src = append(src, chunk...)
	d.carry = nil

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.buf, src, atEOF)
		out.Write(d.buf[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			if atEOF {
				d.t.Reset()
			}
			return out.String(), nil
		case errors.Is(err, transform.ErrShortSrc):
			d.carry = append(d.carry, src...)
			return out.String(), nil
		case errors.Is(err, transform.ErrShortDst):
			if nDst == 0 && nSrc == 0 {
				d.buf = make([]byte, 2*len(d.buf))
			}
		default:
			return out.String(), err
		}
	}
}
