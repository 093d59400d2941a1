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

// Package piv models the hardware token as the capability the rest of the
// container format treats it as: an oracle that performs
// ECDH(privkey_in_slot, peer_pub) and, optionally, attests its identity via
// a Card Authentication Key. The actual PIV driver (APDU transport, PIN
// entry, smart-card middleware) is an external collaborator and out of
// scope here (spec 1); Software is the in-memory stand-in spec 9
// explicitly sanctions for testing.
package piv

import (
	"errors"
	"io"
	"math/big"

	"github.com/agl/ed25519"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/wire"
)

// CAKSlot is the PIV key reference for the Card Authentication Key.
const CAKSlot = 0x9e

// ErrWrongSlot is returned when the oracle is asked to operate against a
// slot it doesn't hold a key for.
var ErrWrongSlot = errors.New("piv: no key in requested slot")

// ErrWrongCurve is returned when the oracle's key is on a different curve
// than the request.
var ErrWrongCurve = errors.New("piv: key is on a different curve")

// Oracle is the capability a hardware token (or its software stand-in)
// exposes to Box/Ebox unseal: compute the ECDH shared X-coordinate between
// the private key held in a PIV slot and a peer's public point.
type Oracle interface {
	ECDH(curve *eccrypto.Curve, slot uint8, peerX, peerY *big.Int) (sharedX []byte, err error)
}

// Attester is the optional capability to produce a Card Authentication Key
// public key blob for a Part's CAK tag, used by the enclosing application
// to attest device identity before a PIN prompt (spec GLOSSARY). Box/Ebox
// never verifies a CAK signature themselves -- that belongs to the PIV
// driver collaborator -- but the container format does carry the public
// key blob, so the core needs to be able to read and write it.
type Attester interface {
	CAK() (blob []byte, err error)
}

// Software is a PIV oracle backed by raw private-key material held in
// process memory, the reference substitute spec 9 calls for in tests.
type Software struct {
	Curve *eccrypto.Curve
	Priv  []byte // raw scalar, Curve.CoordWidth() bytes

	Slot uint8 // 0 is treated as a wildcard: GUIDSlotValid=0 Boxes pass slot=0

	cakPub []byte // ed25519 public key, or nil if this oracle doesn't attest
}

// NewSoftware wraps a raw EC private scalar as an Oracle for the given
// curve and PIV slot.
func NewSoftware(curve *eccrypto.Curve, priv []byte, slot uint8) *Software {
	return &Software{Curve: curve, Priv: priv, Slot: slot}
}

// ECDH implements Oracle.
func (s *Software) ECDH(curve *eccrypto.Curve, slot uint8, peerX, peerY *big.Int) ([]byte, error) {
	if curve.Name != s.Curve.Name {
		return nil, ErrWrongCurve
	}
	if slot != 0 && s.Slot != 0 && slot != s.Slot {
		return nil, ErrWrongSlot
	}
	return curve.ECDH(s.Priv, peerX, peerY), nil
}

// GenerateCAK equips the oracle with a fresh Ed25519 Card Authentication
// Key, the canonical non-EC CAK case (spec 4.4), and returns its public
// blob.
func (s *Software) GenerateCAK(rand io.Reader) ([]byte, error) {
	pub, _, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	s.cakPub = pub[:]
	return s.CAK()
}

// CAK implements Attester.
func (s *Software) CAK() ([]byte, error) {
	if s.cakPub == nil {
		return nil, errors.New("piv: no CAK configured")
	}
	return wire.EncodeEd25519Key(s.cakPub), nil
}
