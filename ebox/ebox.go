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

// Package ebox assembles Box instances into the primary-or-threshold-
// recovery container: a Shamir-split intermediate key protects a recovery
// payload, ephemeral EC keys are deduplicated per curve across every Box in
// the container, and a per-config nonce mask keeps shares from distinct
// recovery configurations from being combinable with one another.
package ebox

import (
	"errors"
	"math/big"
	"sort"

	"github.com/arekinath/ebox/box"
	"github.com/arekinath/ebox/csrand"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/sss"
	"github.com/arekinath/ebox/wire"
	"golang.org/x/sync/errgroup"
)

// EboxType distinguishes what the recovery payload represents.
type EboxType uint8

const (
	TypeTemplate EboxType = 1
	TypeKey      EboxType = 2
	TypeStream   EboxType = 3
)

var Magic = [2]byte{0xEB, 0x0C}

const Version = 3

var (
	ErrBadMagic           = errors.New("ebox: bad magic")
	ErrBadVersion         = errors.New("ebox: unsupported version")
	ErrNoPrimaryConfig    = errors.New("ebox: no PRIMARY config present")
	ErrMissingEphemeral   = errors.New("ebox: no ephemeral key for curve")
	ErrInsufficientShares = errors.New("ebox: fewer than N shares recovered")
	ErrBadShares          = errors.New("ebox: recovered shares did not unlock recovery box")
	ErrBadRecoveryPayload = errors.New("ebox: malformed recovery plaintext")
	ErrNoPartsInConfig    = errors.New("ebox: config has no parts")
	ErrNonceTooShort      = errors.New("ebox: nonce shorter than 16 bytes")
)

// ephemeral is one entry of the Ebox-level curve -> ephemeral-public-key
// table. Kept as an ordered slice (not a map) so Encode is deterministic.
type ephemeral struct {
	Curve *eccrypto.Curve
	X, Y  *big.Int
}

// Ebox is a sealed primary-or-threshold-recovery container.
type Ebox struct {
	Type             EboxType
	RecoveryCipher   *eccrypto.CipherSuite
	RecoveryIV       []byte
	RecoveryCTAndTag []byte

	ephemerals []ephemeral
	Configs    []*Config
}

func (e *Ebox) lookupEphemeral(curveName string) (x, y *big.Int, ok bool) {
	for _, eph := range e.ephemerals {
		if eph.Curve.Name == curveName {
			return eph.X, eph.Y, true
		}
	}
	return nil, nil, false
}

// EphemeralCurves returns the set of curves this Ebox carries a shared
// ephemeral key for, the ephemeral-sharing invariant of spec §8.
func (e *Ebox) EphemeralCurves() []string {
	out := make([]string, len(e.ephemerals))
	for i, eph := range e.ephemerals {
		out[i] = eph.Curve.Name
	}
	return out
}

// Encode serializes the Ebox per the wire format of spec §6.
func (e *Ebox) Encode() []byte {
	w := wire.NewWriter()
	w.U8(Magic[0])
	w.U8(Magic[1])
	w.U8(Version)
	w.U8(uint8(e.Type))

	w.PutCString8(e.RecoveryCipher.Name)
	w.PutBytes8(e.RecoveryIV)
	w.PutBytes8(e.RecoveryCTAndTag)

	w.U8(uint8(len(e.ephemerals)))
	for _, eph := range e.ephemerals {
		w.PutCString8(eph.Curve.Name)
		w.PutECKey8(eph.Curve.MarshalCompressed(eph.X, eph.Y))
	}

	w.U8(uint8(len(e.Configs)))
	for _, cfg := range e.Configs {
		w.Raw(cfg.encode())
	}

	return w.Bytes()
}

// Decode parses an Ebox from buf.
func Decode(buf []byte) (*Ebox, error) {
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

	typ, err := r.U8()
	if err != nil {
		return nil, err
	}

	recCipherName, err := r.CString8()
	if err != nil {
		return nil, err
	}
	recCipher, err := eccrypto.CipherByName(recCipherName)
	if err != nil {
		return nil, err
	}

	recIV, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	recCTAndTag, err := r.Bytes8()
	if err != nil {
		return nil, err
	}

	nEphems, err := r.U8()
	if err != nil {
		return nil, err
	}
	ephems := make([]ephemeral, nEphems)
	for i := 0; i < int(nEphems); i++ {
		curveName, err := r.CString8()
		if err != nil {
			return nil, err
		}
		curve, err := eccrypto.ByName(curveName)
		if err != nil {
			return nil, err
		}
		blob, err := r.ECKey8()
		if err != nil {
			return nil, err
		}
		x, y, err := curve.UnmarshalCompressed(blob)
		if err != nil {
			return nil, err
		}
		ephems[i] = ephemeral{Curve: curve, X: x, Y: y}
	}

	nConfigs, err := r.U8()
	if err != nil {
		return nil, err
	}
	configs := make([]*Config, nConfigs)
	for i := 0; i < int(nConfigs); i++ {
		cfg, err := decodeConfig(r)
		if err != nil {
			return nil, err
		}
		configs[i] = cfg
	}

	return &Ebox{
		Type:             EboxType(typ),
		RecoveryCipher:   recCipher,
		RecoveryIV:       recIV,
		RecoveryCTAndTag: recCTAndTag,
		ephemerals:       ephems,
		Configs:          configs,
	}, nil
}

// PartSpec describes one recipient to seal a Config part for.
type PartSpec struct {
	Curve      *eccrypto.Curve
	RecipientX *big.Int
	RecipientY *big.Int
	Cipher     *eccrypto.CipherSuite

	PubKey  []byte
	Name    string
	HasName bool
	CAK     []byte
	GUID    []byte
	HasGUID bool
	Slot    uint8
	HasSlot bool
}

// ConfigSpec describes one configuration to build during Seal. N is the
// Shamir threshold for RECOVERY configs and is ignored (forced to 1) for
// PRIMARY, which must carry exactly one part.
type ConfigSpec struct {
	Type  ConfigType
	N     uint8
	Parts []PartSpec
}

// SealInput gathers everything Seal needs to assemble a new Ebox.
type SealInput struct {
	Type   EboxType
	Final  []byte // the protected key/template/stream material
	Extra  []byte // opaque application metadata stored alongside Final
	Cipher *eccrypto.CipherSuite
	Configs []ConfigSpec
}

// Seal assembles a new Ebox per spec §4.4: one shared ephemeral keypair per
// curve, a fresh intermediate key protecting the recovery payload, and one
// Box per part (wrapping either the final key directly, for PRIMARY, or a
// Shamir share of a nonce-masked intermediate key, for RECOVERY).
func Seal(in SealInput) (*Ebox, error) {
	if len(in.Configs) == 0 {
		return nil, errors.New("ebox: no configs supplied")
	}

	curves := map[string]*eccrypto.Curve{}
	for _, cfg := range in.Configs {
		if len(cfg.Parts) == 0 {
			return nil, ErrNoPartsInConfig
		}
		for _, p := range cfg.Parts {
			curves[p.Curve.Name] = p.Curve
		}
	}

	names := make([]string, 0, len(curves))
	for name := range curves {
		names = append(names, name)
	}
	sort.Strings(names)

	ephPrivs := make(map[string][]byte, len(names))
	ephPubs := make(map[string][2]*big.Int, len(names))
	defer func() {
		for _, priv := range ephPrivs {
			zero(priv)
		}
	}()

	ephemerals := make([]ephemeral, 0, len(names))
	for _, name := range names {
		c := curves[name]
		priv, x, y, err := c.GenerateKey(csrand.Reader)
		if err != nil {
			return nil, err
		}
		ephPrivs[name] = priv
		ephPubs[name] = [2]*big.Int{x, y}
		ephemerals = append(ephemerals, ephemeral{Curve: c, X: x, Y: y})
	}

	ik, err := csrand.New(sss.SecretLen)
	if err != nil {
		return nil, err
	}
	defer zero(ik)

	configs := make([]*Config, 0, len(in.Configs))
	for _, cfgSpec := range in.Configs {
		cfg, err := sealConfig(cfgSpec, in.Final, ik, ephPrivs)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	recoveryPlaintext := encodeRecoveryPlaintext(in.Final, in.Extra)
	recKey := ik[:in.Cipher.KeyLen]
	recIV := make([]byte, in.Cipher.IVLen)
	aead, err := in.Cipher.New(recKey)
	if err != nil {
		return nil, err
	}
	recCTAndTag := aead.Seal(nil, recIV, recoveryPlaintext, nil)

	return &Ebox{
		Type:             in.Type,
		RecoveryCipher:   in.Cipher,
		RecoveryIV:       nil,
		RecoveryCTAndTag: recCTAndTag,
		ephemerals:       ephemerals,
		Configs:          configs,
	}, nil
}

func sealConfig(spec ConfigSpec, final, ik []byte, ephPrivs map[string][]byte) (*Config, error) {
	switch spec.Type {
	case ConfigPrimary:
		if len(spec.Parts) != 1 {
			return nil, errors.New("ebox: PRIMARY config must have exactly one part")
		}
		// PRIMARY wraps the final key itself (spec §4.4): unlike RECOVERY,
		// there is no masked-intermediate-key indirection to unwind.
		part, err := sealPart(spec.Parts[0], final, ephPrivs)
		if err != nil {
			return nil, err
		}
		return &Config{Type: ConfigPrimary, N: 1, Nonce: nil, Parts: []*Part{part}}, nil

	case ConfigRecovery:
		if int(spec.N) < 1 || int(spec.N) > len(spec.Parts) {
			return nil, errors.New("ebox: invalid RECOVERY threshold")
		}
		cfgNonce, err := csrand.New(16)
		if err != nil {
			return nil, err
		}
		ikCfg := xor32(ik, expand32(cfgNonce))
		defer zero(ikCfg)

		shares, err := sss.Split(ikCfg, int(spec.N), len(spec.Parts), nil)
		if err != nil {
			return nil, err
		}

		parts := make([]*Part, len(spec.Parts))
		for i, ps := range spec.Parts {
			part, err := sealPart(ps, shares[i], ephPrivs)
			if err != nil {
				return nil, err
			}
			parts[i] = part
		}
		return &Config{Type: ConfigRecovery, N: spec.N, Nonce: cfgNonce, Parts: parts}, nil

	default:
		return nil, ErrBadConfigType
	}
}

func sealPart(ps PartSpec, plaintext []byte, ephPrivs map[string][]byte) (*Part, error) {
	ephPriv, ok := ephPrivs[ps.Curve.Name]
	if !ok {
		return nil, ErrMissingEphemeral
	}
	b, err := box.Seal(ps.Curve, ps.Cipher, ps.RecipientX, ps.RecipientY, plaintext, box.SealOpts{
		EphemeralPriv: ephPriv,
	})
	if err != nil {
		return nil, err
	}
	return &Part{
		PubKey:  ps.PubKey,
		Name:    ps.Name,
		HasName: ps.HasName,
		CAK:     ps.CAK,
		GUID:    ps.GUID,
		HasGUID: ps.HasGUID,
		Slot:    ps.Slot,
		HasSlot: ps.HasSlot,
		Box:     partBoxFromBox(b),
	}, nil
}

// UnsealPrimary locates the first PRIMARY config and unseals its single part
// directly to the final key material (spec §4.4's primary path; the
// recovery box is never touched).
func (e *Ebox) UnsealPrimary(oracle box.Oracle) ([]byte, error) {
	for _, cfg := range e.Configs {
		if cfg.Type != ConfigPrimary {
			continue
		}
		part := cfg.Parts[0]
		ephX, ephY, ok := e.lookupEphemeral(part.Box.Curve.Name)
		if !ok {
			return nil, ErrMissingEphemeral
		}
		b := part.Box.toBox(ephX, ephY, part.GUIDSlotValid(), part.GUID, part.Slot)
		return b.Unseal(oracle)
	}
	return nil, ErrNoPrimaryConfig
}

// UnsealRecovery reconstructs the final key via a RECOVERY config's
// threshold shares. oracles[i] supplies the capability to unseal
// cfg.Parts[i]; a nil entry means that part is unavailable. At least cfg.N
// parts must successfully unseal, or ErrInsufficientShares is returned.
// Shares from a different config (or a corrupted config) combine to the
// wrong intermediate key, which surfaces as ErrBadShares when the recovery
// box's AEAD tag fails to verify -- never as a distinguishable parse error
// (spec §7 policy).
func (e *Ebox) UnsealRecovery(cfg *Config, oracles []box.Oracle) ([]byte, error) {
	if cfg.Type != ConfigRecovery {
		return nil, errors.New("ebox: config is not RECOVERY")
	}

	shares := make([][]byte, 0, len(cfg.Parts))
	for i, part := range cfg.Parts {
		if i >= len(oracles) || oracles[i] == nil {
			continue
		}
		ephX, ephY, ok := e.lookupEphemeral(part.Box.Curve.Name)
		if !ok {
			continue
		}
		b := part.Box.toBox(ephX, ephY, part.GUIDSlotValid(), part.GUID, part.Slot)
		share, err := b.Unseal(oracles[i])
		if err != nil {
			continue
		}
		shares = append(shares, share)
		if len(shares) == int(cfg.N) {
			break
		}
	}
	if len(shares) < int(cfg.N) {
		return nil, ErrInsufficientShares
	}

	ikCfg, err := sss.Combine(shares)
	if err != nil {
		return nil, err
	}
	defer zero(ikCfg)

	ik := xor32(ikCfg, expand32(cfg.Nonce))
	defer zero(ik)

	recKey := ik[:e.RecoveryCipher.KeyLen]
	recIV := e.RecoveryIV
	if len(recIV) == 0 {
		recIV = make([]byte, e.RecoveryCipher.IVLen)
	}
	aead, err := e.RecoveryCipher.New(recKey)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, recIV, e.RecoveryCTAndTag, nil)
	if err != nil {
		return nil, ErrBadShares
	}
	final, _, err := decodeRecoveryPlaintext(pt)
	if err != nil {
		return nil, err
	}
	return final, nil
}

// RecoveryConfigs returns every RECOVERY config in the Ebox, in storage
// order, for a caller to choose among.
func (e *Ebox) RecoveryConfigs() []*Config {
	out := make([]*Config, 0, len(e.Configs))
	for _, cfg := range e.Configs {
		if cfg.Type == ConfigRecovery {
			out = append(out, cfg)
		}
	}
	return out
}

// SealMany seals a batch of independent Eboxes concurrently, the way spec
// §5 allows independent seal operations to run in parallel. The returned
// slice is in input order. Every seal runs to completion even when another
// fails; once all have finished, the first error returned by any of them is
// surfaced and no slice is returned.
func SealMany(inputs []SealInput) ([]*Ebox, error) {
	out := make([]*Ebox, len(inputs))
	var g errgroup.Group
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			e, err := Seal(in)
			if err != nil {
				return err
			}
			out[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func expand32(nonce []byte) []byte {
	out := make([]byte, 32)
	n := len(nonce)
	if n > 32 {
		n = 32
	}
	copy(out, nonce[:n])
	return out
}

func xor32(a, b []byte) []byte {
	out := make([]byte, 32)
	for i := 0; i < 32; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func encodeRecoveryPlaintext(final, extra []byte) []byte {
	w := wire.NewWriter()
	w.PutBytes(final)
	w.PutBytes(extra)
	return w.Bytes()
}

func decodeRecoveryPlaintext(pt []byte) (final, extra []byte, err error) {
	r := wire.NewReader(pt)
	final, err = r.Bytes()
	if err != nil {
		return nil, nil, ErrBadRecoveryPayload
	}
	extra, err = r.Bytes()
	if err != nil {
		return nil, nil, ErrBadRecoveryPayload
	}
	return final, extra, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
