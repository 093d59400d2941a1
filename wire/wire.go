/*
 * Copyright (c) 2024, The ebox Authors
 * All rights reserved.
 *
 * Redistribution and use in source and binary forms, with or without
 * modification, are permitted provided that the following conditions are met:
 *
 *  * Redistributions of source code must retain the above copyright notice,
 *    this list of conditions and the following disclaimer.
 *
 *  * Redistributions in binary form must reproduce the above copyright notice,
 *    this list of conditions and the following disclaimer in the documentation
 *    and/or other materials provided with the distribution.
 *
 * THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
 * AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
 * IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
 * ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
 * LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
 * CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
 * SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
 * INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
 * CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
 * ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
 * POSSIBILITY OF SUCH DAMAGE.
 */

// Package wire implements the forward-only byte cursor primitives shared by
// the Box and Ebox wire formats: fixed-width integers, length-prefixed
// strings/C-strings, OpenSSH-style bignums, and SEC1 EC point encodings.
//
// All multi-byte integers are big-endian. Reader never looks backward; every
// Read* call consumes bytes from the front of the buffer. A call that returns
// an error may already have consumed part of its field (such as a length
// prefix), so the cursor is not restored on failure.
package wire

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrTruncated is returned when a length field exceeds the remaining buffer.
var ErrTruncated = errors.New("wire: truncated")

// ErrBadCString is returned when a cstring/cstring8 is missing its
// terminating NUL, or contains an embedded NUL before the terminator.
var ErrBadCString = errors.New("wire: malformed cstring")

// ErrLengthOverflow names the case of an embedded string8 length byte
// overflowing an outer structure's declared bounds. No Reader method returns
// it: a length that exceeds the remaining buffer is reported as ErrTruncated.
var ErrLengthOverflow = errors.New("wire: length overflow")

// Reader is a forward-only decoding cursor over an in-memory buffer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding. buf is not copied; callers
// must not mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// Rest returns the remaining unread bytes without consuming them.
func (r *Reader) Rest() []byte {
	return r.buf[r.pos:]
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U32BE reads a 32-bit big-endian unsigned integer.
func (r *Reader) U32BE() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// U64BE reads a 64-bit big-endian unsigned integer.
func (r *Reader) U64BE() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// Bytes reads a u32be-length-prefixed byte string ("string").
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.U32BE()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// Bytes8 reads a u8-length-prefixed byte string ("string8").
func (r *Reader) Bytes8() ([]byte, error) {
	n, err := r.U8()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// CString reads a "cstring": a u32be-length-prefixed string whose final byte
// MUST be a single terminating 0x00, with no other embedded NUL. The
// terminator is counted in the length but not included in the returned
// string.
func (r *Reader) CString() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return trimCString(b)
}

// CString8 is CString with a u8 length prefix ("cstring8").
func (r *Reader) CString8() (string, error) {
	b, err := r.Bytes8()
	if err != nil {
		return "", err
	}
	return trimCString(b)
}

func trimCString(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0x00 {
		return "", ErrBadCString
	}
	if bytes.IndexByte(b[:len(b)-1], 0x00) != -1 {
		return "", ErrBadCString
	}
	return string(b[:len(b)-1]), nil
}

// BigNum reads a "bignum": big-endian two's-complement bytes with a
// mandatory sign byte, matching the OpenSSH mpint convention, prefixed by a
// u32be length.
func (r *Reader) BigNum() ([]byte, error) {
	b, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	return decodeBigNum(b), nil
}

// BigNum8 is BigNum with a u8 length prefix ("bignum8").
func (r *Reader) BigNum8() ([]byte, error) {
	b, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	return decodeBigNum(b), nil
}

// decodeBigNum strips leading zero bytes, including the sign byte, the way
// encoding/ssh's buffer.go treats mpint values: the stored bytes are
// two's-complement with a mandatory sign byte, but non-negative Shamir/EC
// scalars in this codebase never need the sign bit, so callers receive the
// magnitude.
func decodeBigNum(b []byte) []byte {
	for len(b) > 1 && b[0] == 0x00 {
		b = b[1:]
	}
	return b
}

// Key reads an opaque SSH public-key blob ("key"): a u32be-length-prefixed
// string whose own first field (also u32be-length-prefixed) is the
// algorithm name. The blob is returned uninterpreted; see ParseKeyAlgo,
// DecodeECDSAKey and DecodeEd25519Key for parsers.
func (r *Reader) Key() ([]byte, error) {
	return r.Bytes()
}

// ECKey reads an "eckey": a string containing a SEC1 uncompressed point
// (leading byte 0x04). The leading byte is validated here; curve-specific
// on-curve validation is performed by eccrypto's Curve.UnmarshalUncompressed.
func (r *Reader) ECKey() ([]byte, error) {
	b, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || b[0] != 0x04 {
		return nil, ErrBadPoint
	}
	return b, nil
}

// ECKey8 reads an "eckey8": a string8 containing a SEC1 compressed point
// (leading byte 0x02 or 0x03).
func (r *Reader) ECKey8() ([]byte, error) {
	b, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || (b[0] != 0x02 && b[0] != 0x03) {
		return nil, ErrBadPoint
	}
	return b, nil
}

// ErrBadPoint is returned when an eckey/eckey8 field has the wrong leading
// byte for its encoding, or (at a higher layer) does not lie on the curve.
var ErrBadPoint = errors.New("wire: bad EC point encoding")

// Writer is a forward-only encoding cursor, backed by a growable buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated encoded buffer.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// U8 appends a single byte.
func (w *Writer) U8(v uint8) {
	w.buf.WriteByte(v)
}

// Raw appends b verbatim, with no length prefix. Used to splice in a nested
// structure (e.g. a Part) that encodes itself.
func (w *Writer) Raw(b []byte) {
	w.buf.Write(b)
}

// U32BE appends a 32-bit big-endian unsigned integer.
func (w *Writer) U32BE(v uint32) {
	w.buf.Write([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// U64BE appends a 64-bit big-endian unsigned integer.
func (w *Writer) U64BE(v uint64) {
	var b [8]byte
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	w.buf.Write(b[:])
}

// PutBytes appends a u32be-length-prefixed byte string.
func (w *Writer) PutBytes(b []byte) {
	w.U32BE(uint32(len(b)))
	w.buf.Write(b)
}

// PutBytes8 appends a u8-length-prefixed byte string. Panics if len(b) >
// 255, which would make the length structurally unrepresentable; callers
// are expected to have validated field sizes against the format's own
// budget before reaching the wire layer.
func (w *Writer) PutBytes8(b []byte) {
	if len(b) > 255 {
		panic(fmt.Sprintf("wire: string8 field too long: %d", len(b)))
	}
	w.U8(uint8(len(b)))
	w.buf.Write(b)
}

// PutCString appends a cstring: value followed by a single terminating NUL,
// length-prefixed as a whole.
func (w *Writer) PutCString(s string) {
	w.PutBytes(append([]byte(s), 0x00))
}

// PutCString8 appends a cstring8.
func (w *Writer) PutCString8(s string) {
	w.PutBytes8(append([]byte(s), 0x00))
}

// PutBigNum appends a bignum: two's-complement big-endian bytes with a
// mandatory sign byte so the value reads as non-negative.
func (w *Writer) PutBigNum(magnitude []byte) {
	w.PutBytes(encodeBigNum(magnitude))
}

// PutBigNum8 appends a bignum8.
func (w *Writer) PutBigNum8(magnitude []byte) {
	w.PutBytes8(encodeBigNum(magnitude))
}

func encodeBigNum(magnitude []byte) []byte {
	for len(magnitude) > 0 && magnitude[0] == 0x00 {
		magnitude = magnitude[1:]
	}
	if len(magnitude) > 0 && magnitude[0]&0x80 != 0 {
		out := make([]byte, len(magnitude)+1)
		copy(out[1:], magnitude)
		return out
	}
	if len(magnitude) == 0 {
		return []byte{0x00}
	}
	return magnitude
}

// PutKey appends an opaque SSH public-key blob verbatim (the caller is
// responsible for having built it as algorithm-name-prefixed bytes).
func (w *Writer) PutKey(blob []byte) {
	w.PutBytes(blob)
}

// PutECKey appends an "eckey": the SEC1 uncompressed point, length-prefixed
// as a string.
func (w *Writer) PutECKey(uncompressed []byte) {
	w.PutBytes(uncompressed)
}

// PutECKey8 appends an "eckey8": the SEC1 compressed point, length-prefixed
// as a string8.
func (w *Writer) PutECKey8(compressed []byte) {
	w.PutBytes8(compressed)
}
