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

package eccrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/pschlump/AesCCM"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrUnsupportedCipher is returned when a cipher name does not match one of
// the registered AEAD suites.
var ErrUnsupportedCipher = errors.New("eccrypto: unsupported cipher suite")

// ErrNonAEADCipher names the case of a cipher suite that is not an AEAD
// construction. Nothing returns it: the registry below only ever contains
// AEAD suites, and CipherByName reports an unrecognized or malformed cipher
// name as ErrUnsupportedCipher.
var ErrNonAEADCipher = errors.New("eccrypto: cipher is not AEAD")

// CipherSuite describes one authenticated symmetric cipher.
type CipherSuite struct {
	Name    string
	KeyLen  int
	IVLen   int // cipher-required IV/nonce length, distinct from the Box nonce
	TagLen  int
	newAEAD func(key []byte) (cipher.AEAD, error)
}

// New constructs a cipher.AEAD bound to key, which must be KeyLen bytes.
func (cs *CipherSuite) New(key []byte) (cipher.AEAD, error) {
	return cs.newAEAD(key)
}

var (
	ChaCha20Poly1305 = &CipherSuite{
		Name:   "chacha20-poly1305",
		KeyLen: chacha20poly1305.KeySize,
		IVLen:  chacha20poly1305.NonceSize,
		TagLen: 16,
		newAEAD: func(key []byte) (cipher.AEAD, error) {
			return chacha20poly1305.New(key)
		},
	}

	AES256GCM = &CipherSuite{
		Name:   "aes256-gcm",
		KeyLen: 32,
		IVLen:  12,
		TagLen: 16,
		newAEAD: func(key []byte) (cipher.AEAD, error) {
			blk, err := aes.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return cipher.NewGCM(blk)
		},
	}

	AES256CCM = &CipherSuite{
		Name:   "aes256-ccm",
		KeyLen: 32,
		IVLen:  12,
		TagLen: 16,
		newAEAD: func(key []byte) (cipher.AEAD, error) {
			blk, err := aes.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return aesccm.NewCCM(blk, 16, 12)
		},
	}
)

var ciphersByName = map[string]*CipherSuite{
	ChaCha20Poly1305.Name: ChaCha20Poly1305,
	AES256GCM.Name:        AES256GCM,
	AES256CCM.Name:        AES256CCM,
}

// CipherByName looks up a registered AEAD cipher suite by its cstring8
// name. Every entry in the registry is AEAD by construction; a name that
// isn't found at all is ErrUnsupportedCipher.
func CipherByName(name string) (*CipherSuite, error) {
	cs, ok := ciphersByName[name]
	if !ok {
		return nil, ErrUnsupportedCipher
	}
	return cs, nil
}
