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

package recovery

import (
	"errors"

	"github.com/arekinath/ebox/box"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/wire"
)

const (
	RespTagID       uint8 = 1
	RespTagKeypiece uint8 = 2
)

var ErrIDMismatch = errors.New("recovery: response ID does not match pending challenge")

// Response is the plaintext carried inside the outer response Box.
type Response struct {
	PartID      uint8
	HasID       bool
	Keypiece    []byte
	HasKeypiece bool
}

// BuildResponsePayload encodes the ID/KEYPIECE tagged fields of spec §6.
func BuildResponsePayload(partID uint8, share []byte) []byte {
	w := wire.NewWriter()
	w.U8(RespTagID)
	w.PutBytes8([]byte{partID})
	w.U8(RespTagKeypiece)
	w.PutBytes8(share)
	w.U8(0x00)
	return w.Bytes()
}

// ParseResponsePayload decodes a response payload. Unknown tags are
// skipped provided they have a string8 body (spec §4.5 step 3).
func ParseResponsePayload(buf []byte) (*Response, error) {
	r := wire.NewReader(buf)
	resp := &Response{}
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
		case RespTagID:
			if len(body) != 1 {
				return nil, ErrMissingRequiredTag
			}
			resp.PartID = body[0]
			resp.HasID = true
		case RespTagKeypiece:
			resp.Keypiece = body
			resp.HasKeypiece = true
		default:
			// unknown, string8-bodied, skip
		}
	}
	if !resp.HasID || !resp.HasKeypiece {
		return nil, ErrMissingRequiredTag
	}
	return resp, nil
}

// Answer unseals a challenge with the hardware token, recovers the
// underlying key-piece share, and builds the outer response Box addressed
// to the challenge's temporary key (spec §4.5 "Response construction").
func Answer(outerChallenge *box.Box, oracle box.Oracle, responseCipher *eccrypto.CipherSuite) (*box.Box, error) {
	chal, err := OpenOuter(outerChallenge, oracle)
	if err != nil {
		return nil, err
	}

	inner := &box.Box{
		GUIDSlotValid:    outerChallenge.GUIDSlotValid,
		GUID:             outerChallenge.GUID,
		Slot:             outerChallenge.Slot,
		Cipher:           outerChallenge.Cipher,
		KDF:              outerChallenge.KDF,
		Nonce:            chal.InnerNonce,
		Curve:            outerChallenge.Curve,
		RecipientX:       outerChallenge.RecipientX,
		RecipientY:       outerChallenge.RecipientY,
		EphemeralX:       chal.InnerEphX,
		EphemeralY:       chal.InnerEphY,
		IV:               chal.InnerIV,
		CiphertextAndTag: chal.InnerCiphertext,
	}
	share, err := inner.Unseal(oracle)
	if err != nil {
		return nil, err
	}

	payload := BuildResponsePayload(chal.PartID, share)
	return box.Seal(chal.TempPubCurve, responseCipher, chal.TempPubX, chal.TempPubY, payload, box.SealOpts{})
}

// VerifyResponse unseals an outer response Box with the recovery machine's
// temporary key and returns the recovered share, checking that its echoed
// ID matches expectedPartID.
func VerifyResponse(outerResponse *box.Box, tempOracle box.Oracle, expectedPartID uint8) ([]byte, error) {
	pt, err := outerResponse.Unseal(tempOracle)
	if err != nil {
		return nil, err
	}
	resp, err := ParseResponsePayload(pt)
	if err != nil {
		return nil, err
	}
	if resp.PartID != expectedPartID {
		return nil, ErrIDMismatch
	}
	return resp.Keypiece, nil
}
