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

// Package csrand is the single CSPRNG entry point for the container
// format: every ephemeral EC keypair, Box nonce, IV, and Shamir polynomial
// coefficient is drawn from here rather than from crypto/rand directly, so
// that the one place sourcing secret-relevant randomness is easy to audit.
// crypto/rand.Reader is already safe for concurrent use, so independent
// seal/unseal operations may call into this package from multiple
// goroutines without additional locking (spec §5).
package csrand

import (
	cryptRand "crypto/rand"
	"io"
)

// Reader is the CSPRNG, exposed directly for APIs that want an io.Reader
// (e.g. elliptic.GenerateKey).
var Reader io.Reader = cryptRand.Reader

// Bytes fills buf with cryptographically secure random data.
func Bytes(buf []byte) error {
	_, err := io.ReadFull(Reader, buf)
	return err
}

// New returns a freshly allocated n-byte buffer of random data.
func New(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := Bytes(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
