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

// Package sss implements Shamir secret sharing over GF(2^8), using the AES
// field polynomial x^8 + x^4 + x^3 + x + 1 (0x11b). A 32-byte secret splits
// into M shares of the form (1-byte x-coordinate, 32-byte y); any N of them
// reconstruct the secret via Lagrange interpolation at x=0.
package sss

import (
	"errors"

	"github.com/arekinath/ebox/csrand"
)

// SecretLen is the fixed width of the secret this package splits and
// combines (an intermediate Ebox key or masked variant of one).
const SecretLen = 32

// ShareLen is the width of one share: a 1-byte x-coordinate followed by
// SecretLen bytes of y.
const ShareLen = 1 + SecretLen

// ErrDuplicateShare is returned when two shares passed to Combine carry the
// same x-coordinate.
var ErrDuplicateShare = errors.New("sss: duplicate share x-coordinate")

// ErrNotEnoughShares is returned when Combine is given no shares at all.
// This package itself only requires >=1 share and leaves threshold
// enforcement to the Ebox layer (spec
// INSUFFICIENT_SHARES is a caller-recoverable condition, not fatal here).
var ErrNotEnoughShares = errors.New("sss: no shares given")

// ErrBadShareLength is returned when a share is not exactly ShareLen bytes.
var ErrBadShareLength = errors.New("sss: malformed share length")

// gfExp/gfLog are anti-log/log tables over GF(2^8) with generator 3,
// reduced modulo the AES polynomial. gfInv is derived from them so that
// Lagrange division (unlike the naive article-grade reference this is
// grounded on) is exact GF(2^8) division, not integer arithmetic.
var (
	gfExp [510]byte
	gfLog [256]byte
	gfInv [256]byte
)

func init() {
	x := byte(1)
	for i := 0; i < 255; i++ {
		gfExp[i] = x
		gfLog[x] = byte(i)
		x = gfMulNoTable(x, 3)
	}
	for i := 255; i < 510; i++ {
		gfExp[i] = gfExp[i-255]
	}
	for a := 1; a < 256; a++ {
		// a * a^-1 = 1  <=>  log(a) + log(a^-1) = 0 (mod 255)
		gfInv[a] = gfExp[(255-int(gfLog[byte(a)]))%255]
	}
}

func gfMulNoTable(a, b byte) byte {
	var r byte
	for b > 0 {
		if b&1 != 0 {
			r ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= 0x1b
		}
		b >>= 1
	}
	return r
}

func gfMul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return gfExp[int(gfLog[a])+int(gfLog[b])]
}

func gfDiv(a, b byte) byte {
	if a == 0 {
		return 0
	}
	// b == 0 is a caller bug (division by zero coefficient difference);
	// panicking here would leak nothing secret, but Combine never calls
	// this with b == 0 because x-coordinate distinctness is checked first.
	return gfMul(a, gfInv[b])
}

// evalPolynomial evaluates, in GF(256), the degree-(len(coeffs)-1)
// polynomial whose coefficients are coeffs (coeffs[0] is the constant
// term), at point x, one byte lane at a time.
func evalPolynomial(coeffs []byte, x byte) byte {
	var result byte
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = gfMul(result, x) ^ coeffs[i]
	}
	return result
}

// Split breaks a SecretLen-byte secret into m shares such that any n of
// them reconstruct it, and no fewer do. For each of the 32 secret bytes, a
// random degree-(n-1) polynomial is built with that byte as the constant
// term, then evaluated at x = 1..m.
func Split(secret []byte, n, m int, rand func([]byte) error) ([][]byte, error) {
	if len(secret) != SecretLen {
		return nil, errors.New("sss: secret must be 32 bytes")
	}
	if n < 1 || m < n || m > 255 {
		return nil, errors.New("sss: invalid threshold/part count")
	}
	if rand == nil {
		rand = csrand.Bytes
	}

	// coeffs[byteIdx][termIdx]
	coeffs := make([][]byte, SecretLen)
	for b := 0; b < SecretLen; b++ {
		coeffs[b] = make([]byte, n)
		coeffs[b][0] = secret[b]
		if n > 1 {
			rest := make([]byte, n-1)
			if err := rand(rest); err != nil {
				return nil, err
			}
			copy(coeffs[b][1:], rest)
		}
	}

	shares := make([][]byte, m)
	for i := 0; i < m; i++ {
		x := byte(i + 1)
		share := make([]byte, ShareLen)
		share[0] = x
		for b := 0; b < SecretLen; b++ {
			share[1+b] = evalPolynomial(coeffs[b], x)
		}
		shares[i] = share
	}
	return shares, nil
}

// Combine reconstructs the SecretLen-byte secret from at least one share,
// via Lagrange interpolation at x=0. The caller (the Ebox recovery layer)
// is responsible for enforcing that at least the configuration's threshold
// number of shares were supplied; supplying fewer just yields the wrong
// secret, which manifests as an AEAD auth failure one layer up rather than
// a structural error here.
func Combine(shares [][]byte) ([]byte, error) {
	if len(shares) == 0 {
		return nil, ErrNotEnoughShares
	}
	seen := make(map[byte]bool, len(shares))
	for _, s := range shares {
		if len(s) != ShareLen {
			return nil, ErrBadShareLength
		}
		if seen[s[0]] {
			return nil, ErrDuplicateShare
		}
		seen[s[0]] = true
	}

	secret := make([]byte, SecretLen)
	for b := 0; b < SecretLen; b++ {
		var acc byte
		for i, si := range shares {
			xi := si[0]
			yi := si[1+b]

			num := byte(1)
			den := byte(1)
			for j, sj := range shares {
				if i == j {
					continue
				}
				xj := sj[0]
				num = gfMul(num, xj)       // (0 - x_j) == x_j in GF(2^n)
				den = gfMul(den, xi^xj)    // x_i - x_j == x_i XOR x_j
			}
			term := gfMul(yi, gfDiv(num, den))
			acc ^= term
		}
		secret[b] = acc
	}
	return secret, nil
}
