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

// Package box implements the Box primitive: anonymous sealed-box encryption
// of a payload to an EC recipient public key, built from ephemeral ECDH plus
// an AEAD cipher keyed by a SHA-512 KDF. A Box carries everything needed to
// unseal it except the recipient's private key, which the caller supplies
// through a piv.Oracle.
package box

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/arekinath/ebox/csrand"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/wire"
)

// Magic and version identify the Box wire format.
var Magic = [2]byte{0xB0, 0xC5}

const Version = 2

// MinNonceLen is the minimum nonce length a freshly sealed Box generates.
// Shorter nonces are tolerated when parsing an existing Box (spec §8
// boundary case), since that check belongs to the Ebox layer, not here.
const MinNonceLen = 16

var (
	ErrBadMagic      = errors.New("box: bad magic")
	ErrBadVersion    = errors.New("box: unsupported version")
	ErrAuthFail      = errors.New("box: authentication failed")
	ErrIdentityPoint = errors.New("box: public key is the identity point")
	ErrShortTag      = errors.New("box: ciphertext shorter than AEAD tag")
)

// Box is a sealed container: every field needed to attempt an unseal, plus
// the opaque GUID/slot addressing hint used to pick a hardware token.
type Box struct {
	GUIDSlotValid bool
	GUID          []byte // opaque, typically 16 bytes; empty when !GUIDSlotValid
	Slot          uint8

	Cipher *eccrypto.CipherSuite
	KDF    string

	Nonce []byte // box-level KDF nonce

	Curve            *eccrypto.Curve
	RecipientX       *big.Int
	RecipientY       *big.Int
	EphemeralX       *big.Int
	EphemeralY       *big.Int
	IV               []byte // cipher IV; empty means all-zeroes of Cipher.IVLen
	CiphertextAndTag []byte
}

// SealOpts carries the optional inputs to Seal; the zero value requests a
// freshly generated ephemeral keypair, a fresh random nonce, an empty IV,
// and no GUID/slot addressing.
type SealOpts struct {
	GUID          []byte
	Slot          uint8
	Nonce         []byte // must be >= MinNonceLen if supplied
	IV            []byte
	EphemeralPriv []byte // raw scalar; if nil, a fresh keypair is generated
}

// Seal encrypts plaintext to recipient (X, Y) on curve, using cipher, per
// spec §4.3. The returned Box is ready to serialize.
func Seal(curve *eccrypto.Curve, cipher *eccrypto.CipherSuite, recipientX, recipientY *big.Int, plaintext []byte, opts SealOpts) (*Box, error) {
	if recipientX.Sign() == 0 && recipientY.Sign() == 0 {
		return nil, ErrIdentityPoint
	}

	ephPriv := opts.EphemeralPriv
	var ephX, ephY *big.Int
	if ephPriv == nil {
		var err error
		ephPriv, ephX, ephY, err = curve.GenerateKey(csrand.Reader)
		if err != nil {
			return nil, err
		}
		// Only a self-generated ephemeral is ours to erase. A
		// caller-supplied one (the Ebox per-curve sharing case) outlives
		// this single Seal call; its owner erases it once the last Box on
		// that curve has been sealed.
		defer zero(ephPriv)
	} else {
		ephX, ephY = curve.ScalarBaseMult(ephPriv)
	}

	sharedX := curve.ECDH(ephPriv, recipientX, recipientY)
	defer zero(sharedX)

	nonce := opts.Nonce
	if nonce == nil {
		n, err := csrand.New(MinNonceLen)
		if err != nil {
			return nil, err
		}
		nonce = n
	}

	key := eccrypto.DeriveKey(sharedX, nonce, cipher.KeyLen)
	defer zero(key)

	iv := opts.IV
	ivForCipher := iv
	if len(ivForCipher) == 0 {
		ivForCipher = make([]byte, cipher.IVLen)
	}

	aead, err := cipher.New(key)
	if err != nil {
		return nil, err
	}
	ctAndTag := aead.Seal(nil, ivForCipher, plaintext, nil)

	b := &Box{
		GUIDSlotValid:    len(opts.GUID) > 0 || opts.Slot != 0,
		GUID:             opts.GUID,
		Slot:             opts.Slot,
		Cipher:           cipher,
		KDF:              eccrypto.KDFName,
		Nonce:            nonce,
		Curve:            curve,
		RecipientX:       recipientX,
		RecipientY:       recipientY,
		EphemeralX:       ephX,
		EphemeralY:       ephY,
		IV:               iv,
		CiphertextAndTag: ctAndTag,
	}
	return b, nil
}

// Oracle is the capability Unseal needs to recover the shared ECDH secret:
// perform ECDH(privkey_in_slot, peer_pub) without ever exposing the private
// scalar to this package.
type Oracle interface {
	ECDH(curve *eccrypto.Curve, slot uint8, peerX, peerY *big.Int) ([]byte, error)
}

// Unseal decrypts the Box using oracle to perform the ECDH step, per spec
// §4.3. An AEAD authentication failure is reported as ErrAuthFail and never
// returns partial plaintext.
func (b *Box) Unseal(oracle Oracle) ([]byte, error) {
	if b.EphemeralX.Sign() == 0 && b.EphemeralY.Sign() == 0 {
		return nil, ErrIdentityPoint
	}
	if len(b.CiphertextAndTag) < b.Cipher.TagLen {
		return nil, ErrShortTag
	}

	sharedX, err := oracle.ECDH(b.Curve, b.Slot, b.EphemeralX, b.EphemeralY)
	if err != nil {
		return nil, err
	}
	defer zero(sharedX)

	key := eccrypto.DeriveKey(sharedX, b.Nonce, b.Cipher.KeyLen)
	defer zero(key)

	iv := b.IV
	if len(iv) == 0 {
		iv = make([]byte, b.Cipher.IVLen)
	}

	aead, err := b.Cipher.New(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, iv, b.CiphertextAndTag, nil)
	if err != nil {
		return nil, ErrAuthFail
	}
	return pt, nil
}

// Encode serializes the Box per the wire format of spec §6.
func (b *Box) Encode() []byte {
	w := wire.NewWriter()
	w.U8(Magic[0])
	w.U8(Magic[1])
	w.U8(Version)

	if b.GUIDSlotValid {
		w.U8(1)
		w.PutBytes8(b.GUID)
		w.U8(b.Slot)
	} else {
		w.U8(0)
		w.PutBytes8(nil)
		w.U8(0)
	}

	w.PutCString8(b.Cipher.Name)
	w.PutCString8(b.KDF)
	w.PutBytes8(b.Nonce)
	w.PutCString8(b.Curve.Name)
	w.PutECKey8(b.Curve.MarshalCompressed(b.RecipientX, b.RecipientY))
	w.PutECKey8(b.Curve.MarshalCompressed(b.EphemeralX, b.EphemeralY))
	w.PutBytes8(b.IV)
	w.PutBytes(b.CiphertextAndTag)

	return w.Bytes()
}

// Decode parses a Box from buf, validating magic, version, and that both
// curve points are on-curve and non-identity (spec §4.3 step 1). It does
// NOT attempt decryption.
func Decode(buf []byte) (*Box, error) {
	r := wire.NewReader(buf)

	m0, err := r.U8()
	if err != nil {
		return nil, err
	}
	m1, err := r.U8()
	if err != nil {
		return nil, err
	}
	if m0 != Magic[0] || m1 != Magic[1] {
		return nil, ErrBadMagic
	}

	version, err := r.U8()
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, ErrBadVersion
	}

	guidSlotValid, err := r.U8()
	if err != nil {
		return nil, err
	}
	guid, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	slot, err := r.U8()
	if err != nil {
		return nil, err
	}

	cipherName, err := r.CString8()
	if err != nil {
		return nil, err
	}
	cipher, err := eccrypto.CipherByName(cipherName)
	if err != nil {
		return nil, err
	}

	kdfName, err := r.CString8()
	if err != nil {
		return nil, err
	}
	if err := eccrypto.KDFByName(kdfName); err != nil {
		return nil, err
	}

	nonce, err := r.Bytes8()
	if err != nil {
		return nil, err
	}

	curveName, err := r.CString8()
	if err != nil {
		return nil, err
	}
	curve, err := eccrypto.ByName(curveName)
	if err != nil {
		return nil, err
	}

	recipBlob, err := r.ECKey8()
	if err != nil {
		return nil, err
	}
	recipX, recipY, err := curve.UnmarshalCompressed(recipBlob)
	if err != nil {
		return nil, err
	}

	ephBlob, err := r.ECKey8()
	if err != nil {
		return nil, err
	}
	ephX, ephY, err := curve.UnmarshalCompressed(ephBlob)
	if err != nil {
		return nil, err
	}

	iv, err := r.Bytes8()
	if err != nil {
		return nil, err
	}

	ctAndTag, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	if len(ctAndTag) < cipher.TagLen {
		return nil, ErrShortTag
	}

	b := &Box{
		GUIDSlotValid:    guidSlotValid != 0,
		GUID:             guid,
		Slot:             slot,
		Cipher:           cipher,
		KDF:              kdfName,
		Nonce:            nonce,
		Curve:            curve,
		RecipientX:       recipX,
		RecipientY:       recipY,
		EphemeralX:       ephX,
		EphemeralY:       ephY,
		IV:               iv,
		CiphertextAndTag: ctAndTag,
	}
	return b, nil
}

// Equal reports whether two Boxes encode identically, used by
// serialization-idempotence tests rather than relying on reflect.DeepEqual
// across *big.Int fields.
func (b *Box) Equal(o *Box) bool {
	return bytes.Equal(b.Encode(), o.Encode())
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
