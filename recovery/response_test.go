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
	"bytes"
	"testing"

	"github.com/arekinath/ebox/box"
	"github.com/arekinath/ebox/csrand"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/piv"
)

func TestResponsePayloadRoundTrip(t *testing.T) {
	share := []byte("0123456789012345678901234567890123")
	payload := BuildResponsePayload(9, share)

	resp, err := ParseResponsePayload(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.HasID || resp.PartID != 9 {
		t.Fatal("part ID round trip mismatch")
	}
	if !resp.HasKeypiece || !bytes.Equal(resp.Keypiece, share) {
		t.Fatal("keypiece round trip mismatch")
	}
}

func TestResponsePayloadSkipsUnknownTag(t *testing.T) {
	w := responsePayloadWithExtraTag(t, 9, []byte("share-bytes-for-this-one-test-xx"))
	resp, err := ParseResponsePayload(w)
	if err != nil {
		t.Fatal(err)
	}
	if resp.PartID != 9 {
		t.Fatal("unexpected tag corrupted parsing of recognized fields")
	}
}

// responsePayloadWithExtraTag hand-builds a response payload carrying an
// unrecognized, string8-bodied tag ahead of the required ones, the shape
// spec §9 requires every implementation to tolerate.
func responsePayloadWithExtraTag(t *testing.T, partID uint8, share []byte) []byte {
	t.Helper()
	const unknownTag = 0x7f
	payload := BuildResponsePayload(partID, share)
	out := append([]byte{unknownTag, 4, 'n', 'o', 'p', 'e'}, payload...)
	return out
}

func TestAnswerAndVerifyEndToEnd(t *testing.T) {
	curve := eccrypto.P256
	recipPriv, recipX, recipY, err := curve.GenerateKey(csrand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	share := []byte("0123456789012345678901234567890123")
	inner, err := box.Seal(curve, eccrypto.ChaCha20Poly1305, recipX, recipY, share, box.SealOpts{
		GUID: []byte("0123456789abcdef"),
		Slot: 0x9d,
	})
	if err != nil {
		t.Fatal(err)
	}

	tempPriv, tempX, tempY, err := curve.GenerateKey(csrand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	outerChal, err := BuildOuter(inner, 4, inner.GUID, inner.Slot, curve, tempX, tempY, Metadata{CTime: 1, Words: [4]uint8{1, 2, 3, 4}})
	if err != nil {
		t.Fatal(err)
	}

	tokenOracle := piv.NewSoftware(curve, recipPriv, 0x9d)
	outerResp, err := Answer(outerChal, tokenOracle, eccrypto.ChaCha20Poly1305)
	if err != nil {
		t.Fatal(err)
	}

	tempOracle := piv.NewSoftware(curve, tempPriv, 0)
	got, err := VerifyResponse(outerResp, tempOracle, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, share) {
		t.Fatal("recovered share does not match the original key-piece plaintext")
	}
}

func TestVerifyResponseRejectsMismatchedID(t *testing.T) {
	curve := eccrypto.P256
	recipPriv, recipX, recipY, err := curve.GenerateKey(csrand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	share := []byte("0123456789012345678901234567890123")
	inner, err := box.Seal(curve, eccrypto.ChaCha20Poly1305, recipX, recipY, share, box.SealOpts{})
	if err != nil {
		t.Fatal(err)
	}

	tempPriv, tempX, tempY, err := curve.GenerateKey(csrand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	outerChal, err := BuildOuter(inner, 2, nil, 0, curve, tempX, tempY, Metadata{CTime: 1, Words: [4]uint8{1, 2, 3, 4}})
	if err != nil {
		t.Fatal(err)
	}

	tokenOracle := piv.NewSoftware(curve, recipPriv, 0)
	outerResp, err := Answer(outerChal, tokenOracle, eccrypto.ChaCha20Poly1305)
	if err != nil {
		t.Fatal(err)
	}

	tempOracle := piv.NewSoftware(curve, tempPriv, 0)
	if _, err := VerifyResponse(outerResp, tempOracle, 99); err != ErrIDMismatch {
		t.Fatalf("got %v, want ErrIDMismatch", err)
	}
}
