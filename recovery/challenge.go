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

// Package recovery implements the challenge/response protocol of spec §4.5:
// a replay-resistant, copy-paste-safe way to invoke a remote recovery token
// over a text channel the core never touches directly.
package recovery

import (
	"errors"
	"math/big"

	"github.com/arekinath/ebox/box"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/wire"
)

// Challenge metadata tag IDs. These are a separate namespace from the Part
// tags in package ebox: here every body is string8-shaped and an unknown
// tag is always skipped, never fatal (spec §9's tagged-extensibility note).
const (
	TagHostname    uint8 = 1
	TagCTime       uint8 = 2
	TagDescription uint8 = 3
	TagWords       uint8 = 4
)

const (
	ChallengeVersion = 1
	TypeRecovery     = 1
)

var (
	ErrBadVersion         = errors.New("recovery: unsupported challenge version")
	ErrBadType            = errors.New("recovery: unsupported challenge type")
	ErrMissingRequiredTag = errors.New("recovery: missing required tag")
)

// Challenge is the plaintext carried inside the outer challenge Box: a
// request for one hardware token to decrypt one Ebox part's key-piece Box,
// addressed so the answer can only go to this session's temporary key.
type Challenge struct {
	PartID uint8

	TempPubCurve *eccrypto.Curve
	TempPubX     *big.Int
	TempPubY     *big.Int

	// InnerEph/InnerNonce/InnerIV/InnerCiphertext are the fields of the
	// original key-piece Box that the outer Box's own cipher/kdf/curve/
	// recipient (which MUST match) do not need to repeat.
	InnerEphX        *big.Int
	InnerEphY        *big.Int
	InnerNonce       []byte
	InnerIV          []byte
	InnerCiphertext  []byte

	Hostname       string
	HasHostname    bool
	CTime          uint64
	HasCTime       bool
	Description    string
	HasDescription bool
	Words          [4]uint8
	HasWords       bool
}

// Metadata is the caller-supplied optional fields for Build.
type Metadata struct {
	Hostname    string
	Description string
	CTime       uint64
	Words       [4]uint8
}

// Build constructs the plaintext payload of a challenge for recovery part
// partID, wrapping the key-piece Box's own eph/nonce/iv/ct_tag fields
// (spec §6's challenge payload layout).
func Build(partID uint8, tempCurve *eccrypto.Curve, tempX, tempY *big.Int, inner *box.Box, meta Metadata) []byte {
	w := wire.NewWriter()
	w.U8(ChallengeVersion)
	w.U8(TypeRecovery)
	w.U8(partID)
	w.PutECKey8(tempCurve.MarshalCompressed(tempX, tempY))

	w.PutECKey8(inner.Curve.MarshalCompressed(inner.EphemeralX, inner.EphemeralY))
	w.PutBytes8(inner.Nonce)
	w.PutBytes8(inner.IV)
	w.PutBytes8(inner.CiphertextAndTag)

	w.U8(TagHostname)
	w.PutCString8(meta.Hostname)

	w.U8(TagCTime)
	var ctimeBuf [8]byte
	v := meta.CTime
	for i := 7; i >= 0; i-- {
		ctimeBuf[i] = byte(v)
		v >>= 8
	}
	w.PutBytes8(ctimeBuf[:])

	w.U8(TagDescription)
	w.PutCString8(meta.Description)

	w.U8(TagWords)
	w.PutBytes8(meta.Words[:])

	w.U8(0x00)
	return w.Bytes()
}

// Parse decodes a challenge payload (the plaintext produced by Build, after
// the caller has unsealed the outer Box it was wrapped in).
func Parse(curve *eccrypto.Curve, buf []byte) (*Challenge, error) {
	r := wire.NewReader(buf)

	version, err := r.U8()
	if err != nil {
		return nil, err
	}
	if version != ChallengeVersion {
		return nil, ErrBadVersion
	}
	typ, err := r.U8()
	if err != nil {
		return nil, err
	}
	if typ != TypeRecovery {
		return nil, ErrBadType
	}
	partID, err := r.U8()
	if err != nil {
		return nil, err
	}

	tempBlob, err := r.ECKey8()
	if err != nil {
		return nil, err
	}
	tempX, tempY, err := curve.UnmarshalCompressed(tempBlob)
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
	nonce, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	iv, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	ctAndTag, err := r.Bytes8()
	if err != nil {
		return nil, err
	}

	c := &Challenge{
		PartID:          partID,
		TempPubCurve:    curve,
		TempPubX:        tempX,
		TempPubY:        tempY,
		InnerEphX:       ephX,
		InnerEphY:       ephY,
		InnerNonce:      nonce,
		InnerIV:         iv,
		InnerCiphertext: ctAndTag,
	}

	for {
		tag, err := r.U8()
		if err != nil {
			return nil, err
		}
		if tag == 0x00 {
			break
		}
		body, err := r.Bytes8()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagHostname:
			s, err := trimNUL(body)
			if err != nil {
				return nil, err
			}
			c.Hostname = s
			c.HasHostname = true
		case TagCTime:
			if len(body) != 8 {
				return nil, ErrMissingRequiredTag
			}
			var v uint64
			for _, b := range body {
				v = v<<8 | uint64(b)
			}
			c.CTime = v
			c.HasCTime = true
		case TagDescription:
			s, err := trimNUL(body)
			if err != nil {
				return nil, err
			}
			c.Description = s
			c.HasDescription = true
		case TagWords:
			if len(body) != 4 {
				return nil, ErrMissingRequiredTag
			}
			copy(c.Words[:], body)
			c.HasWords = true
		default:
			// Unrecognized challenge-metadata tag: always string8-bodied,
			// always skippable (spec §9).
		}
	}

	if !c.HasCTime || !c.HasWords {
		return nil, ErrMissingRequiredTag
	}
	return c, nil
}

func trimNUL(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0x00 {
		return "", wire.ErrBadCString
	}
	return string(b[:len(b)-1]), nil
}

// BuildOuter wraps a challenge payload in the outer Box addressed to the
// same hardware key as inner, per spec §4.5 step 2: cipher/kdf/curve/
// recipient MUST match the inner key-piece Box, and the outer Box carries
// the part's own GUID/slot so the responder knows which token to use.
func BuildOuter(inner *box.Box, partID uint8, guid []byte, slot uint8, tempCurve *eccrypto.Curve, tempX, tempY *big.Int, meta Metadata) (*box.Box, error) {
	payload := Build(partID, tempCurve, tempX, tempY, inner, meta)
	return box.Seal(inner.Curve, inner.Cipher, inner.RecipientX, inner.RecipientY, payload, box.SealOpts{
		GUID: guid,
		Slot: slot,
	})
}

// OpenOuter unseals an outer challenge Box with oracle and parses its
// payload.
func OpenOuter(outer *box.Box, oracle box.Oracle) (*Challenge, error) {
	pt, err := outer.Unseal(oracle)
	if err != nil {
		return nil, err
	}
	return Parse(outer.Curve, pt)
}
