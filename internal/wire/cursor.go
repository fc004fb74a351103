// Package wire implements the big-endian byte cursor underlying every
// on-the-wire structure in the bridge: signed messages, guardian set
// records and governance payloads.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	// ErrUnderrun is returned when a read runs past the end of the buffer.
	ErrUnderrun = errors.New("buffer underrun")

	// ErrTrailingBytes is returned by Finish when undecoded bytes remain.
	ErrTrailingBytes = errors.New("trailing bytes after decode")
)

// Reader consumes a byte buffer front to back. All integers are big-endian.
//
// Errors are sticky: once a read fails, every subsequent read returns the
// zero value and the first error is reported by Err or Finish. A decode
// sequence can therefore read all fields unconditionally and check once at
// the end.
type Reader struct {
	buf []byte
	pos int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if r.Len() < n {
		r.err = errors.Wrapf(ErrUnderrun, "need %d bytes, have %d", n, r.Len())
		return nil
	}

	b := r.buf[r.pos : r.pos+n]
	r.pos += n

	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint64(b)
}

// Bytes returns the next n bytes. The returned slice aliases the underlying
// buffer; callers that retain it must copy.
func (r *Reader) Bytes(n int) []byte {
	return r.take(n)
}

// Rest consumes and returns all remaining bytes.
func (r *Reader) Rest() []byte {
	return r.take(r.Len())
}

// Finish declares the decode complete. It returns the sticky error if any
// read failed, or ErrTrailingBytes if unread bytes remain. Decoders of
// fixed-layout structures call Finish to reject padded or oversized inputs.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}

	if n := r.Len(); n > 0 {
		return errors.Wrapf(ErrTrailingBytes, "%d bytes remain", n)
	}

	return nil
}

// Writer is the symmetric big-endian encoder.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) PutUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) PutUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) PutUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) PutUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) PutBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}
