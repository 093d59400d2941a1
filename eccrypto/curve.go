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

// Package eccrypto implements the crypto primitives of the container
// format: the NIST curve registry, ECDH, the SHA-512 KDF, and the AEAD
// cipher suite table. Only the curves and ciphers enumerated in the format
// are supported; there is no algorithm-agility hook (spec non-goal).
package eccrypto

import (
	"crypto/elliptic"
	"errors"
	"math/big"
)

// ErrUnsupportedCurve is returned when a curve name or identifier does not
// match one of the three registered NIST curves.
var ErrUnsupportedCurve = errors.New("eccrypto: unsupported curve")

// ErrBadPoint is returned when a point is not on the named curve, or is the
// point at infinity where an identity point is disallowed.
var ErrBadPoint = errors.New("eccrypto: point not on curve, or identity")

// Curve describes one of the three NIST curves this format recognizes.
type Curve struct {
	Name   string
	curve  elliptic.Curve
	coordW int // coordinate width in bytes
}

// CoordWidth returns the byte width of one coordinate (and so of an ECDH
// shared-secret X value) on this curve.
func (c *Curve) CoordWidth() int { return c.coordW }

// Std returns the stdlib elliptic.Curve backing this registry entry.
func (c *Curve) Std() elliptic.Curve { return c.curve }

var (
	P256 = &Curve{Name: "nistp256", curve: elliptic.P256(), coordW: 32}
	P384 = &Curve{Name: "nistp384", curve: elliptic.P384(), coordW: 48}
	P521 = &Curve{Name: "nistp521", curve: elliptic.P521(), coordW: 66}
)

var byName = map[string]*Curve{
	P256.Name: P256,
	P384.Name: P384,
	P521.Name: P521,
}

// ByName looks up a curve by its canonical cstring8 name.
func ByName(name string) (*Curve, error) {
	c, ok := byName[name]
	if !ok {
		return nil, ErrUnsupportedCurve
	}
	return c, nil
}

// GenerateKey produces a fresh EC keypair on the curve, returning the raw
// private scalar and the point.
func (c *Curve) GenerateKey(rand randReader) (priv []byte, x, y *big.Int, err error) {
	priv, x, y, err = elliptic.GenerateKey(c.curve, rand)
	return
}

type randReader interface {
	Read([]byte) (int, error)
}

// MarshalUncompressed encodes (x, y) as a SEC1 uncompressed point (leading
// 0x04), the "eckey" wire encoding.
func (c *Curve) MarshalUncompressed(x, y *big.Int) []byte {
	return elliptic.Marshal(c.curve, x, y)
}

// MarshalCompressed encodes (x, y) as a SEC1 compressed point (leading 0x02
// or 0x03), the "eckey8" wire encoding.
func (c *Curve) MarshalCompressed(x, y *big.Int) []byte {
	return elliptic.MarshalCompressed(c.curve, x, y)
}

// UnmarshalUncompressed decodes an "eckey" blob, rejecting off-curve points
// and the identity point.
func (c *Curve) UnmarshalUncompressed(b []byte) (x, y *big.Int, err error) {
	x, y = elliptic.Unmarshal(c.curve, b)
	return c.checkPoint(x, y)
}

// UnmarshalCompressed decodes an "eckey8" blob, rejecting off-curve points
// and the identity point.
func (c *Curve) UnmarshalCompressed(b []byte) (x, y *big.Int, err error) {
	x, y = elliptic.UnmarshalCompressed(c.curve, b)
	return c.checkPoint(x, y)
}

func (c *Curve) checkPoint(x, y *big.Int) (*big.Int, *big.Int, error) {
	if x == nil || y == nil {
		return nil, nil, ErrBadPoint
	}
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, nil, ErrBadPoint
	}
	if !c.curve.IsOnCurve(x, y) {
		return nil, nil, ErrBadPoint
	}
	return x, y, nil
}

// ECDH computes the X-coordinate of d*Q, left-padded to CoordWidth() bytes.
func (c *Curve) ECDH(d []byte, qx, qy *big.Int) []byte {
	x, _ := c.curve.ScalarMult(qx, qy, d)
	out := make([]byte, c.coordW)
	xb := x.Bytes()
	copy(out[c.coordW-len(xb):], xb)
	return out
}

// ScalarBaseMult computes d*G, the public point for private scalar d.
func (c *Curve) ScalarBaseMult(d []byte) (x, y *big.Int) {
	return c.curve.ScalarBaseMult(d)
}
