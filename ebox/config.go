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

	"github.com/arekinath/ebox/wire"
)

// ConfigType distinguishes the two unlock paths a configuration can offer.
type ConfigType uint8

const (
	ConfigPrimary  ConfigType = 1
	ConfigRecovery ConfigType = 2
)

var ErrBadConfigType = errors.New("ebox: unrecognized config type")

// Config is one unlock path: PRIMARY configs carry a single part whose Box
// directly wraps the final key; RECOVERY configs carry M parts whose Boxes
// each wrap one Shamir share of an N-of-M threshold.
type Config struct {
	Type  ConfigType
	N     uint8
	Nonce []byte // empty for PRIMARY, >=16 bytes for RECOVERY
	Parts []*Part
}

// M is the part count, the Shamir share total for RECOVERY configs.
func (c *Config) M() uint8 { return uint8(len(c.Parts)) }

func (c *Config) encode() []byte {
	w := wire.NewWriter()
	w.U8(uint8(c.Type))
	w.U8(c.N)
	w.U8(c.M())
	w.PutBytes8(c.Nonce)
	for _, p := range c.Parts {
		w.Raw(p.encode())
	}
	return w.Bytes()
}

func decodeConfig(r *wire.Reader) (*Config, error) {
	typ, err := r.U8()
	if err != nil {
		return nil, err
	}
	if typ != uint8(ConfigPrimary) && typ != uint8(ConfigRecovery) {
		return nil, ErrBadConfigType
	}
	n, err := r.U8()
	if err != nil {
		return nil, err
	}
	m, err := r.U8()
	if err != nil {
		return nil, err
	}
	nonce, err := r.Bytes8()
	if err != nil {
		return nil, err
	}
	if typ == uint8(ConfigRecovery) && len(nonce) < 16 {
		return nil, ErrNonceTooShort
	}
	parts := make([]*Part, m)
	for i := 0; i < int(m); i++ {
		p, err := decodePart(r)
		if err != nil {
			return nil, err
		}
		parts[i] = p
	}
	return &Config{Type: ConfigType(typ), N: n, Nonce: nonce, Parts: parts}, nil
}
