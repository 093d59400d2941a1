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

package eccrypto

import (
	"crypto/sha512"
	"errors"
)

// ErrUnsupportedKDF is returned when a kdf name isn't "sha512", the only
// KDF this format defines.
var ErrUnsupportedKDF = errors.New("eccrypto: unsupported kdf")

const KDFName = "sha512"

// KDFByName validates a kdf cstring8 name, returning ErrUnsupportedKDF for
// anything but "sha512". There is only one KDF function, so this exists
// purely as the parse-time validation gate spec §7 requires.
func KDFByName(name string) error {
	if name != KDFName {
		return ErrUnsupportedKDF
	}
	return nil
}

// DeriveKey computes K = SHA512(sharedX || nonce)[:keyLen]. The full
// 64-byte digest is truncated, never expanded (spec §4.2).
func DeriveKey(sharedX, nonce []byte, keyLen int) []byte {
	h := sha512.New()
	h.Write(sharedX)
	h.Write(nonce)
	sum := h.Sum(nil)
	return sum[:keyLen]
}
