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

package ebox

import (
	"bytes"
	"testing"

	"github.com/arekinath/ebox/box"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/piv"
)

type recipient struct {
	spec   PartSpec
	oracle box.Oracle
}

func newRecipient(curve *eccrypto.Curve, privByte byte, slot uint8) recipient {
	priv := bytes.Repeat([]byte{privByte}, curve.CoordWidth())
	x, y := curve.ScalarBaseMult(priv)
	return recipient{
		spec: PartSpec{
			Curve:      curve,
			RecipientX: x,
			RecipientY: y,
			Cipher:     eccrypto.ChaCha20Poly1305,
			HasSlot:    true,
			Slot:       slot,
		},
		oracle: piv.NewSoftware(curve, priv, slot),
	}
}

func buildPrimaryPlusRecovery(t *testing.T) (*Ebox, recipient, []recipient) {
	t.Helper()
	curve := eccrypto.P256

	primary := newRecipient(curve, 0x01, 0x9D)
	r1 := newRecipient(curve, 0x02, 0x9D)
	r2 := newRecipient(curve, 0x03, 0x9D)
	r3 := newRecipient(curve, 0x04, 0x9D)

	e, err := Seal(SealInput{
		Type:   TypeKey,
		Final:  bytes.Repeat([]byte{0xAB}, 32),
		Cipher: eccrypto.AES256GCM,
		Configs: []ConfigSpec{
			{Type: ConfigPrimary, Parts: []PartSpec{primary.spec}},
			{Type: ConfigRecovery, N: 2, Parts: []PartSpec{r1.spec, r2.spec, r3.spec}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return e, primary, []recipient{r1, r2, r3}
}

func TestPrimaryUnsealsDirectly(t *testing.T) {
	e, primary, _ := buildPrimaryPlusRecovery(t)
	got, err := e.UnsealPrimary(primary.oracle)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{0xAB}, 32)) {
		t.Fatalf("got %x", got)
	}
}

func TestRecoveryAnyTwoOfThree(t *testing.T) {
	e, _, recov := buildPrimaryPlusRecovery(t)
	cfg := e.RecoveryConfigs()[0]

	combos := [][2]int{{0, 1}, {0, 2}, {1, 2}}
	for _, c := range combos {
		oracles := make([]box.Oracle, len(recov))
		oracles[c[0]] = recov[c[0]].oracle
		oracles[c[1]] = recov[c[1]].oracle
		got, err := e.UnsealRecovery(cfg, oracles)
		if err != nil {
			t.Fatalf("combo %v: %v", c, err)
		}
		if !bytes.Equal(got, bytes.Repeat([]byte{0xAB}, 32)) {
			t.Fatalf("combo %v: got %x", c, got)
		}
	}
}

func TestRecoveryInsufficientShares(t *testing.T) {
	e, _, recov := buildPrimaryPlusRecovery(t)
	cfg := e.RecoveryConfigs()[0]

	oracles := make([]box.Oracle, len(recov))
	oracles[0] = recov[0].oracle
	_, err := e.UnsealRecovery(cfg, oracles)
	if err != ErrInsufficientShares {
		t.Fatalf("got %v, want ErrInsufficientShares", err)
	}
}

func TestEphemeralSharingInvariant(t *testing.T) {
	curve := eccrypto.P256
	primary := newRecipient(curve, 0x10, 0x9D)
	r1 := newRecipient(curve, 0x11, 0x9D)
	r2 := newRecipient(curve, 0x12, 0x9D)

	e, err := Seal(SealInput{
		Type:   TypeKey,
		Final:  bytes.Repeat([]byte{0x01}, 32),
		Cipher: eccrypto.AES256GCM,
		Configs: []ConfigSpec{
			{Type: ConfigPrimary, Parts: []PartSpec{primary.spec}},
			{Type: ConfigRecovery, N: 1, Parts: []PartSpec{r1.spec, r2.spec}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	curves := e.EphemeralCurves()
	if len(curves) != 1 {
		t.Fatalf("got %d distinct ephemeral curves, want 1 (all parts share P-256)", len(curves))
	}
}

func TestCrossConfigIsolation(t *testing.T) {
	curve := eccrypto.P256
	primary := newRecipient(curve, 0x20, 0x9D)
	a1 := newRecipient(curve, 0x21, 0x9D)
	a2 := newRecipient(curve, 0x22, 0x9D)
	a3 := newRecipient(curve, 0x23, 0x9D)
	b1 := newRecipient(curve, 0x21, 0x9D) // same recipient keys reused across configs
	b2 := newRecipient(curve, 0x22, 0x9D)
	b3 := newRecipient(curve, 0x23, 0x9D)

	e, err := Seal(SealInput{
		Type:   TypeKey,
		Final:  bytes.Repeat([]byte{0xCD}, 32),
		Cipher: eccrypto.AES256GCM,
		Configs: []ConfigSpec{
			{Type: ConfigPrimary, Parts: []PartSpec{primary.spec}},
			{Type: ConfigRecovery, N: 2, Parts: []PartSpec{a1.spec, a2.spec, a3.spec}},
			{Type: ConfigRecovery, N: 2, Parts: []PartSpec{b1.spec, b2.spec, b3.spec}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	cfgA := e.RecoveryConfigs()[0]
	cfgB := e.RecoveryConfigs()[1]

	// Mix: config A's part 0 box + config B's part 1 box, combined as if
	// both were shares of the same configuration.
	mixed := &Config{Type: ConfigRecovery, N: 2, Nonce: cfgA.Nonce, Parts: []*Part{cfgA.Parts[0], cfgB.Parts[1]}}
	oracles := []box.Oracle{a1.oracle, b2.oracle}
	_, err = e.UnsealRecovery(mixed, oracles)
	if err != ErrBadShares {
		t.Fatalf("got %v, want ErrBadShares", err)
	}
}

func TestSerializationIdempotence(t *testing.T) {
	e, _, _ := buildPrimaryPlusRecovery(t)
	encoded := e.Encode()
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded.Encode(), encoded) {
		t.Fatal("decode(encode(e)) != encode(e)")
	}
}

func TestGUIDSlotValidZeroRoundTrip(t *testing.T) {
	curve := eccrypto.P256
	priv := bytes.Repeat([]byte{0x30}, 32)
	x, y := curve.ScalarBaseMult(priv)

	e, err := Seal(SealInput{
		Type:   TypeKey,
		Final:  bytes.Repeat([]byte{0x09}, 32),
		Cipher: eccrypto.AES256GCM,
		Configs: []ConfigSpec{
			{Type: ConfigPrimary, Parts: []PartSpec{{
				Curve:      curve,
				RecipientX: x,
				RecipientY: y,
				Cipher:     eccrypto.ChaCha20Poly1305,
			}}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(e.Encode())
	if err != nil {
		t.Fatal(err)
	}
	part := decoded.Configs[0].Parts[0]
	if part.GUIDSlotValid() {
		t.Fatal("expected guid_slot_valid=false when neither GUID nor slot supplied")
	}
	oracle := piv.NewSoftware(curve, priv, 0)
	got, err := decoded.UnsealPrimary(oracle)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{0x09}, 32)) {
		t.Fatalf("got %x", got)
	}
}
