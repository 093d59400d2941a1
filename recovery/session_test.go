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
	"github.com/arekinath/ebox/sss"
)

// recoveryPart is one simulated hardware token participating in a 2-of-3
// recovery: it holds one Shamir share, sealed as a key-piece Box addressed
// to that token's own keypair.
type recoveryPart struct {
	id       uint8
	priv     []byte
	keypiece *box.Box
	oracle   box.Oracle
}

func buildRecoveryParts(t *testing.T, curve *eccrypto.Curve, n, m int) ([][]byte, []*recoveryPart) {
	t.Helper()
	secret := make([]byte, sss.SecretLen)
	if err := csrand.Bytes(secret); err != nil {
		t.Fatal(err)
	}
	shares, err := sss.Split(secret, n, m, csrand.Bytes)
	if err != nil {
		t.Fatal(err)
	}

	parts := make([]*recoveryPart, m)
	for i := 0; i < m; i++ {
		priv, x, y, err := curve.GenerateKey(csrand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		kp, err := box.Seal(curve, eccrypto.ChaCha20Poly1305, x, y, shares[i], box.SealOpts{})
		if err != nil {
			t.Fatal(err)
		}
		parts[i] = &recoveryPart{
			id:       uint8(i + 1),
			priv:     priv,
			keypiece: kp,
			oracle:   piv.NewSoftware(curve, priv, 0),
		}
	}
	return [][]byte{secret}, parts
}

func TestSessionCollectSharesAndCombine(t *testing.T) {
	curve := eccrypto.P256
	secretWrap, parts := buildRecoveryParts(t, curve, 2, 3)
	secret := secretWrap[0]

	sess, err := New(curve, 2, nil)
	if err != nil {
		t.Fatal(err)
	}

	responses := make(map[uint8]*box.Box)
	for _, p := range parts[:2] {
		sess.EmitChallenge(p.id)
		outerChal, err := BuildOuter(p.keypiece, p.id, nil, 0, curve, sess.TempX, sess.TempY, Metadata{CTime: 1, Words: [4]uint8{1, 2, 3, 4}})
		if err != nil {
			t.Fatal(err)
		}
		outerResp, err := Answer(outerChal, p.oracle, eccrypto.ChaCha20Poly1305)
		if err != nil {
			t.Fatal(err)
		}
		responses[p.id] = outerResp
	}

	accepted, err := sess.CollectShares(responses)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 2 {
		t.Fatalf("got %d accepted shares, want 2", accepted)
	}

	got, err := sess.Combine()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatal("recombined secret does not match the original")
	}
	sess.Done()
}

func TestSessionCombineBeforeThresholdFails(t *testing.T) {
	curve := eccrypto.P256
	_, parts := buildRecoveryParts(t, curve, 2, 3)

	sess, err := New(curve, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	sess.EmitChallenge(parts[0].id)
	outerChal, err := BuildOuter(parts[0].keypiece, parts[0].id, nil, 0, curve, sess.TempX, sess.TempY, Metadata{CTime: 1, Words: [4]uint8{1, 2, 3, 4}})
	if err != nil {
		t.Fatal(err)
	}
	outerResp, err := Answer(outerChal, parts[0].oracle, eccrypto.ChaCha20Poly1305)
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.AcceptResponse(parts[0].id, outerResp); err != nil {
		t.Fatal(err)
	}

	if _, err := sess.Combine(); err != ErrNotEnoughAccepted {
		t.Fatalf("got %v, want ErrNotEnoughAccepted", err)
	}
	sess.Abort()
}

func TestSessionAcceptResponseWrongStateRejected(t *testing.T) {
	curve := eccrypto.P256
	_, parts := buildRecoveryParts(t, curve, 2, 3)

	sess, err := New(curve, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	outerChal, err := BuildOuter(parts[0].keypiece, parts[0].id, nil, 0, curve, sess.TempX, sess.TempY, Metadata{CTime: 1, Words: [4]uint8{1, 2, 3, 4}})
	if err != nil {
		t.Fatal(err)
	}
	outerResp, err := Answer(outerChal, parts[0].oracle, eccrypto.ChaCha20Poly1305)
	if err != nil {
		t.Fatal(err)
	}

	// No EmitChallenge call was made for this part, so it has no tracked
	// state yet.
	if err := sess.AcceptResponse(parts[0].id, outerResp); err != ErrWrongState {
		t.Fatalf("got %v, want ErrWrongState", err)
	}
	sess.Abort()
}

func TestSessionAbortZeroesTempPriv(t *testing.T) {
	curve := eccrypto.P256
	sess, err := New(curve, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	sess.Abort()
	if sess.tempPriv != nil {
		t.Fatal("temp private key not cleared after Abort")
	}
	// Idempotent: calling Abort again must not panic.
	sess.Abort()
}
