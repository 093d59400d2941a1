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

package wire

import "errors"

// ErrBadKeyBlob is returned when a "key" blob's internal structure (its own
// nested string fields) doesn't parse.
var ErrBadKeyBlob = errors.New("wire: malformed key blob")

// EncodeECDSAKey builds an OpenSSH-style "ecdsa-sha2-<curveID>" public key
// blob: algorithm name, curve identifier, and the uncompressed point, each
// as nested u32be-length-prefixed fields. This is the PUBKEY/CAK "key"
// encoding for EC recipients.
func EncodeECDSAKey(curveID string, uncompressedPoint []byte) []byte {
	w := NewWriter()
	w.PutBytes([]byte("ecdsa-sha2-" + curveID))
	w.PutBytes([]byte(curveID))
	w.PutBytes(uncompressedPoint)
	return w.Bytes()
}

// EncodeEd25519Key builds an OpenSSH-style "ssh-ed25519" public key blob.
// Ed25519 is the canonical non-EC case the "key" primitive exists for: the
// Card Authentication Key (CAK) part tag is explicitly allowed to carry a
// non-EC key (spec 4.4).
func EncodeEd25519Key(pub []byte) []byte {
	w := NewWriter()
	w.PutBytes([]byte("ssh-ed25519"))
	w.PutBytes(pub)
	return w.Bytes()
}

// ParseKeyAlgo extracts the algorithm name prefix from a "key" blob and
// returns the remaining nested fields, unparsed.
func ParseKeyAlgo(blob []byte) (algo string, rest []byte, err error) {
	r := NewReader(blob)
	nameBytes, err := r.Bytes()
	if err != nil {
		return "", nil, ErrBadKeyBlob
	}
	return string(nameBytes), r.Rest(), nil
}

// DecodeECDSAKey parses the curve identifier and uncompressed point out of
// the nested fields following an "ecdsa-sha2-*" algorithm name.
func DecodeECDSAKey(rest []byte) (curveID string, point []byte, err error) {
	r := NewReader(rest)
	idBytes, err := r.Bytes()
	if err != nil {
		return "", nil, ErrBadKeyBlob
	}
	point, err = r.Bytes()
	if err != nil {
		return "", nil, ErrBadKeyBlob
	}
	return string(idBytes), point, nil
}

// DecodeEd25519Key parses the raw public key out of the nested field
// following an "ssh-ed25519" algorithm name.
func DecodeEd25519Key(rest []byte) (pub []byte, err error) {
	r := NewReader(rest)
	pub, err = r.Bytes()
	if err != nil {
		return nil, ErrBadKeyBlob
	}
	return pub, nil
}
