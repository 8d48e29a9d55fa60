package cbf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Escape sentinels of the byte-offset scheme. A delta equal to the sentinel
// of its width announces that the next, wider, delta follows.
const (
	escape8  = 0x80
	escape16 = 0x8000
	escape32 = 0x80000000
)

// ByteOffsetDecoder turns a byte-offset compressed stream into absolute
// samples of type P.
//
// Every delta is little-endian at its width. It is sign-extended to P when P
// is signed and zero-extended otherwise, then added to a running base that
// starts at zero and persists across calls. The addition wraps.
type ByteOffsetDecoder[P Integer] struct {
	r      io.Reader
	br     io.ByteReader
	base   P
	signed bool
	n      int64
	buf    [8]byte
}

// NewByteOffsetDecoder reads deltas from r. Wrap r in a bufio.Reader for
// large payloads.
func NewByteOffsetDecoder[P Integer](r io.Reader) *ByteOffsetDecoder[P] {
	d := &ByteOffsetDecoder[P]{r: r, signed: isSigned[P]()}
	if br, ok := r.(io.ByteReader); ok {
		d.br = br
	}
	return d
}

func isSigned[P Integer]() bool {
	var zero P
	return ^zero < 0
}

// BytesRead returns the number of compressed bytes consumed so far.
func (d *ByteOffsetDecoder[P]) BytesRead() int64 {
	return d.n
}

// Next decodes one sample.
func (d *ByteOffsetDecoder[P]) Next() (P, error) {
	delta, err := d.delta()
	if err != nil {
		return 0, err
	}
	d.base += delta
	return d.base, nil
}

// Decode fills dst completely. On error the contents of dst are undefined.
func (d *ByteOffsetDecoder[P]) Decode(dst []P) error {
	for i := range dst {
		v, err := d.Next()
		if err != nil {
			return fmt.Errorf("byte offset sample %d: %w", i, err)
		}
		dst[i] = v
	}
	return nil
}

func (d *ByteOffsetDecoder[P]) delta() (P, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	if b != escape8 {
		if d.signed {
			return P(int8(b)), nil
		}
		return P(b), nil
	}

	if err := d.fill(2); err != nil {
		return 0, err
	}
	v16 := binary.LittleEndian.Uint16(d.buf[:2])
	if v16 != escape16 {
		if d.signed {
			return P(int16(v16)), nil
		}
		return P(v16), nil
	}

	if err := d.fill(4); err != nil {
		return 0, err
	}
	v32 := binary.LittleEndian.Uint32(d.buf[:4])
	if v32 != escape32 {
		if d.signed {
			return P(int32(v32)), nil
		}
		return P(v32), nil
	}

	if err := d.fill(8); err != nil {
		return 0, err
	}
	v64 := binary.LittleEndian.Uint64(d.buf[:8])
	if d.signed {
		return P(int64(v64)), nil
	}
	return P(v64), nil
}

func (d *ByteOffsetDecoder[P]) readByte() (byte, error) {
	if d.br != nil {
		b, err := d.br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		d.n++
		return b, nil
	}
	if err := d.fill(1); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *ByteOffsetDecoder[P]) fill(n int) error {
	read, err := io.ReadFull(d.r, d.buf[:n])
	d.n += int64(read)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// DecodeByteOffset decodes len(dst) samples from r.
func DecodeByteOffset[P Integer](r io.Reader, dst []P) error {
	return NewByteOffsetDecoder[P](r).Decode(dst)
}

// EncodeByteOffset writes values in the byte-offset scheme and returns the
// number of bytes written. Each delta uses the narrowest width that decodes
// back to it.
func EncodeByteOffset[P Integer](w io.Writer, values []P) (int64, error) {
	signed := isSigned[P]()
	out := make([]byte, 0, len(values)+16)

	var (
		prev    P
		written int64
	)
	for _, v := range values {
		delta := v - prev
		prev = v
		out = appendDelta(out, delta, signed)

		if len(out) >= 64*1024 {
			n, err := w.Write(out)
			written += int64(n)
			if err != nil {
				return written, err
			}
			out = out[:0]
		}
	}
	n, err := w.Write(out)
	written += int64(n)
	return written, err
}

func appendDelta[P Integer](out []byte, delta P, signed bool) []byte {
	var le = binary.LittleEndian

	if signed {
		s := int64(delta)
		switch {
		case s > -128 && s < 128:
			return append(out, byte(int8(s)))
		case s > -32768 && s < 32768:
			return le.AppendUint16(append(out, escape8), uint16(int16(s)))
		case s > -2147483648 && s < 2147483648:
			out = le.AppendUint16(append(out, escape8), escape16)
			return le.AppendUint32(out, uint32(int32(s)))
		}
		out = le.AppendUint16(append(out, escape8), escape16)
		out = le.AppendUint32(out, escape32)
		return le.AppendUint64(out, uint64(s))
	}

	u := uint64(delta)
	switch {
	case u < 0x100 && u != escape8:
		return append(out, byte(u))
	case u < 0x10000 && u != escape16:
		return le.AppendUint16(append(out, escape8), uint16(u))
	case u < 0x100000000 && u != escape32:
		out = le.AppendUint16(append(out, escape8), escape16)
		return le.AppendUint32(out, uint32(u))
	}
	out = le.AppendUint16(append(out, escape8), escape16)
	out = le.AppendUint32(out, escape32)
	return le.AppendUint64(out, u)
}
