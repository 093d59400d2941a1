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
	"errors"
	"math/big"

	"github.com/arekinath/ebox/box"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/wire"
)

// Part tag IDs. Optional is a bit-flag, not a tag of its own: a tag byte
// with it set marks an unrecognized tag's body as a skippable string8.
const (
	TagPubKey uint8 = 1
	TagName   uint8 = 2
	TagCAK    uint8 = 3
	TagGUID   uint8 = 4
	TagBox    uint8 = 5
	TagSlot   uint8 = 6

	TagOptional uint8 = 0x80
)

var (
	// ErrUnknownTag is returned when a part contains a non-OPTIONAL tag this
	// package doesn't recognize; per spec §4.4 such tags are NOT
	// length-prefixed, so there is no way to skip past them safely.
	ErrUnknownTag = errors.New("ebox: unknown required part tag")

	// ErrMissingBox is returned when a part's terminator is reached without
	// having seen a BOX tag; every part MUST carry one.
	ErrMissingBox = errors.New("ebox: part has no BOX tag")
)

// PartBox is the Box-minus-header structure a part's BOX tag carries: every
// Box field except the magic/version/guid_slot_valid/guid/slot header (those
// live at the Part level via the GUID/SLOT tags) and the ephemeral public
// key (shared per curve at the enclosing Ebox level, not per-part).
type PartBox struct {
	Cipher *eccrypto.CipherSuite
	KDF    string
	Nonce  []byte

	Curve      *eccrypto.Curve
	RecipientX *big.Int
	RecipientY *big.Int

	IV               []byte
	CiphertextAndTag []byte
}

func partBoxFromBox(b *box.Box) *PartBox {
	return &PartBox{
		Cipher:           b.Cipher,
		KDF:              b.KDF,
		Nonce:            b.Nonce,
		Curve:            b.Curve,
		RecipientX:       b.RecipientX,
		RecipientY:       b.RecipientY,
		IV:               b.IV,
		CiphertextAndTag: b.CiphertextAndTag,
	}
}

// toBox reassembles a full box.Box around this PartBox, filling in the
// ephemeral public key (looked up per curve by the caller) and the
// guid/slot header carried by the enclosing Part's own tags.
func (pb *PartBox) toBox(ephX, ephY *big.Int, guidSlotValid bool, guid []byte, slot uint8) *box.Box {
	return &box.Box{
		GUIDSlotValid:    guidSlotValid,
		GUID:             guid,
		Slot:             slot,
		Cipher:           pb.Cipher,
		KDF:              pb.KDF,
		Nonce:            pb.Nonce,
		Curve:            pb.Curve,
		RecipientX:       pb.RecipientX,
		RecipientY:       pb.RecipientY,
		EphemeralX:       ephX,
		EphemeralY:       ephY,
		IV:               pb.IV,
		CiphertextAndTag: pb.CiphertextAndTag,
	}
}

func (pb *PartBox) encode(w *wire.Writer) {
	w.PutCString8(pb.Cipher.Name)
	w.PutCString8(pb.KDF)
	w.PutBytes8(pb.Nonce)
	w.PutCString8(pb.Curve.Name)
	w.PutECKey8(pb.Curve.MarshalCompressed(pb.RecipientX, pb.RecipientY))
	w.PutBytes8(pb.IV)
	w.PutBytes(pb.CiphertextAndTag)
}

func decodePartBox(r *wire.Reader) (*PartBox, error) {
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
	if len(nonce) < box.MinNonceLen {
		return nil, ErrNonceTooShort
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
	iv, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	ctAndTag, err := r.Bytes()
	if err != nil {
		return nil, err
	}
	if len(ctAndTag) < cipher.TagLen {
		return nil, box.ErrShortTag
	}
	return &PartBox{
		Cipher:           cipher,
		KDF:              kdfName,
		Nonce:            nonce,
		Curve:            curve,
		RecipientX:       recipX,
		RecipientY:       recipY,
		IV:               iv,
		CiphertextAndTag: ctAndTag,
	}, nil
}

// Part is one recipient within a Config: its identifying PIV metadata and
// the Box wrapping its share of the secret.
type Part struct {
	PubKey  []byte // opaque "key" blob, nil if absent
	Name    string
	HasName bool
	CAK     []byte // opaque "key" blob, possibly non-EC, nil if absent
	GUID    []byte
	HasGUID bool
	Slot    uint8
	HasSlot bool

	Box *PartBox // required
}

// GUIDSlotValid reports whether this part carries GUID/slot addressing,
// mirroring the Box-level guid_slot_valid flag the reconstituted Box needs.
func (p *Part) GUIDSlotValid() bool {
	return p.HasGUID || p.HasSlot
}

func (p *Part) encode() []byte {
	w := wire.NewWriter()
	if p.PubKey != nil {
		w.U8(TagPubKey)
		w.PutKey(p.PubKey)
	}
	if p.HasName {
		w.U8(TagName)
		w.PutCString8(p.Name)
	}
	if p.CAK != nil {
		w.U8(TagCAK)
		w.PutKey(p.CAK)
	}
	if p.HasGUID {
		w.U8(TagGUID)
		w.PutBytes8(p.GUID)
	}
	w.U8(TagBox)
	p.Box.encode(w)
	if p.HasSlot {
		w.U8(TagSlot)
		w.U8(p.Slot)
	}
	w.U8(0x00)
	return w.Bytes()
}

func decodePart(r *wire.Reader) (*Part, error) {
	p := &Part{}
	for {
		tag, err := r.U8()
		if err != nil {
			return nil, err
		}
		if tag == 0x00 {
			break
		}
		base := tag &^ TagOptional
		optional := tag&TagOptional != 0

		switch base {
		case TagPubKey:
			blob, err := r.Key()
			if err != nil {
				return nil, err
			}
			p.PubKey = blob
		case TagName:
			name, err := r.CString8()
			if err != nil {
				return nil, err
			}
			p.Name = name
			p.HasName = true
		case TagCAK:
			blob, err := r.Key()
			if err != nil {
				return nil, err
			}
			p.CAK = blob
		case TagGUID:
			guid, err := r.Bytes8()
			if err != nil {
				return nil, err
			}
			p.GUID = guid
			p.HasGUID = true
		case TagBox:
			pb, err := decodePartBox(r)
			if err != nil {
				return nil, err
			}
			p.Box = pb
		case TagSlot:
			slot, err := r.U8()
			if err != nil {
				return nil, err
			}
			p.Slot = slot
			p.HasSlot = true
		default:
			if !optional {
				return nil, ErrUnknownTag
			}
			// Unrecognized OPTIONAL tag: its body is a string8, skip it.
			if _, err := r.Bytes8(); err != nil {
				return nil, err
			}
		}
	}
	if p.Box == nil {
		return nil, ErrMissingBox
	}
	return p, nil
}
