package ledger

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Records share a fixed binary layout: an 8-byte type discriminator, the
// fields in declaration order as little-endian fixed-width integers, bounded
// text as a u32 length prefix over a fixed reserved area, and the derivation
// nonce as the trailing byte. The layout is stable across versions.

// DiscriminatorSize is the byte length of the record type prefix.
const DiscriminatorSize = 8

// Discriminator returns the 8-byte type prefix for a record type name.
func Discriminator(recordType string) [DiscriminatorSize]byte {
	sum := blake2b.Sum256([]byte("record:" + recordType))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// Encoder appends fixed-layout fields to a record buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder starts a record buffer with the type discriminator.
func NewEncoder(recordType string, size int) *Encoder {
	d := Discriminator(recordType)
	buf := make([]byte, 0, size)
	return &Encoder{buf: append(buf, d[:]...)}
}

func (e *Encoder) PutBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

func (e *Encoder) PutUint8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) PutUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

func (e *Encoder) PutInt64(v int64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v))
}

// PutBoundedString writes a u32 length prefix followed by the string bytes
// padded out to max. The caller validates length before encoding.
func (e *Encoder) PutBoundedString(s string, max int) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
	for i := len(s); i < max; i++ {
		e.buf = append(e.buf, 0)
	}
}

// Bytes returns the encoded record.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads fixed-layout fields from a record buffer.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder verifies the discriminator and positions the cursor after it.
func NewDecoder(recordType string, data []byte) (*Decoder, error) {
	d := Discriminator(recordType)
	if len(data) < DiscriminatorSize {
		return nil, fmt.Errorf("decode %s: record too short (%d bytes)", recordType, len(data))
	}
	for i := range d {
		if data[i] != d[i] {
			return nil, fmt.Errorf("decode %s: discriminator mismatch", recordType)
		}
	}
	return &Decoder{buf: data, off: DiscriminatorSize}, nil
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.err = fmt.Errorf("decode: truncated record at offset %d", d.off)
		return nil
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out
}

func (d *Decoder) Bytes(n int) []byte {
	b := d.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (d *Decoder) Uint8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Uint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) Int64() int64 {
	return int64(d.Uint64())
}

// BoundedString reads a u32 length prefix and the fixed reserved area,
// returning the first length bytes.
func (d *Decoder) BoundedString(max int) string {
	lb := d.take(4)
	if lb == nil {
		return ""
	}
	n := binary.LittleEndian.Uint32(lb)
	area := d.take(max)
	if area == nil {
		return ""
	}
	if int(n) > max {
		d.err = fmt.Errorf("decode: string length %d exceeds bound %d", n, max)
		return ""
	}
	return string(area[:n])
}

// Err reports the first decoding failure, if any.
func (d *Decoder) Err() error {
	return d.err
}
