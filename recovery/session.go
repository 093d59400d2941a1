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
	"math/big"
	"sync"

	"github.com/arekinath/ebox/box"
	"github.com/arekinath/ebox/csrand"
	"github.com/arekinath/ebox/eccrypto"
	"github.com/arekinath/ebox/piv"
	"github.com/arekinath/ebox/sss"
	"golang.org/x/sync/errgroup"
)

// State is one node of the recovery session state machine of spec §4.5:
//
//	INIT -> CHALLENGE_EMITTED[part] -> RESPONSE_RECEIVED[part] -> SHARE_ACCEPTED
//	                                                           \-> ABORT
//	SHARE_ACCEPTED x N -> COMBINE -> UNSEAL_RECOVERY -> DONE
//	any state -> ABORT
type State int

const (
	StateInit State = iota
	StateChallengeEmitted
	StateResponseReceived
	StateShareAccepted
	StateDone
	StateAbort
)

var (
	ErrWrongState         = errors.New("recovery: operation invalid for this part's current state")
	ErrSessionClosed      = errors.New("recovery: session already in a terminal state")
	ErrUnknownPart        = errors.New("recovery: part_id not tracked by this session")
	ErrNotEnoughAccepted  = errors.New("recovery: fewer than N shares accepted")
)

// Logger is the one-method interface the session uses to flag non-fatal
// conditions, such as memory locking being unavailable (spec §4.5's "when
// unavailable, proceed but flag a warning"). Satisfied trivially by
// *log.Logger.
type Logger interface {
	Printf(format string, args ...any)
}

type partProgress struct {
	state State
	share []byte
}

// Session drives one recovery attempt against a single RECOVERY
// configuration: it owns the temporary keypair (locked in memory for the
// session's lifetime where the platform allows it), tracks each part's progress through the state
// machine, and combines accepted shares once the threshold is met.
type Session struct {
	mu sync.Mutex

	Curve    *eccrypto.Curve
	tempPriv []byte
	TempX    *big.Int
	TempY    *big.Int

	threshold int
	parts     map[uint8]*partProgress

	locked bool
	logger Logger

	terminal State
}

// New starts a session for a RECOVERY config with the given threshold, on
// curve, locking the temporary private key's memory if the platform
// supports it.
func New(curve *eccrypto.Curve, threshold int, logger Logger) (*Session, error) {
	priv, x, y, err := curve.GenerateKey(csrand.Reader)
	if err != nil {
		return nil, err
	}
	s := &Session{
		Curve:     curve,
		tempPriv:  priv,
		TempX:     x,
		TempY:     y,
		threshold: threshold,
		parts:     make(map[uint8]*partProgress),
		logger:    logger,
	}
	if err := lockMemory(priv); err != nil {
		if logger != nil {
			logger.Printf("recovery: could not lock temporary key memory: %v", err)
		}
	} else {
		s.locked = true
	}
	return s, nil
}

// Oracle returns the capability to unseal a Box addressed to this
// session's temporary public key.
func (s *Session) Oracle() box.Oracle {
	return piv.NewSoftware(s.Curve, s.tempPriv, 0)
}

// EmitChallenge puts part partID in CHALLENGE_EMITTED, whatever state it was
// in before (including ABORT and SHARE_ACCEPTED); any share already accepted
// for that part is discarded.
func (s *Session) EmitChallenge(partID uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parts[partID] = &partProgress{state: StateChallengeEmitted}
}

// AcceptResponse verifies a response Box against the pending challenge for
// partID and, on success, transitions that part to SHARE_ACCEPTED. A
// verification failure transitions it to ABORT for that part alone (spec
// §4.5's "BAD_RESPONSE (discard)" branch) and is returned to the caller.
func (s *Session) AcceptResponse(partID uint8, outerResponse *box.Box) error {
	s.mu.Lock()
	pp, ok := s.parts[partID]
	s.mu.Unlock()
	if !ok || pp.state != StateChallengeEmitted {
		return ErrWrongState
	}

	share, err := VerifyResponse(outerResponse, s.Oracle(), partID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		pp.state = StateAbort
		return err
	}
	pp.state = StateShareAccepted
	pp.share = share
	return nil
}

// CollectShares verifies a batch of pending responses concurrently (spec
// §5's independent-operations-in-parallel allowance) and returns the
// number newly accepted plus the first verification error encountered, if
// any; partial progress from other responses in the batch is preserved
// regardless of one failing.
func (s *Session) CollectShares(responses map[uint8]*box.Box) (int, error) {
	var g errgroup.Group
	var mu sync.Mutex
	accepted := 0
	for partID, resp := range responses {
		partID, resp := partID, resp
		g.Go(func() error {
			err := s.AcceptResponse(partID, resp)
			if err != nil {
				return err
			}
			mu.Lock()
			accepted++
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	return accepted, err
}

// Combine gathers threshold of the SHARE_ACCEPTED parts' shares, once at
// least threshold have accepted, and reconstructs the config's masked
// intermediate key via Shamir combination. Accepted shares beyond the
// threshold are not used.
func (s *Session) Combine() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shares := make([][]byte, 0, len(s.parts))
	for _, pp := range s.parts {
		if pp.state == StateShareAccepted {
			shares = append(shares, pp.share)
		}
		if len(shares) == s.threshold {
			break
		}
	}
	if len(shares) < s.threshold {
		return nil, ErrNotEnoughAccepted
	}
	return sss.Combine(shares)
}

// Abort destroys the temporary private key and marks the session terminal.
// It is safe to call Abort more than once or after Done.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroy()
	s.terminal = StateAbort
}

// Done marks the session terminal after a successful recovery and destroys
// the temporary private key, exactly as Abort does (spec §4.5: "on any
// terminal transition t_priv is zeroized").
func (s *Session) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroy()
	s.terminal = StateDone
}

func (s *Session) destroy() {
	if s.tempPriv == nil {
		return
	}
	if s.locked {
		unlockMemory(s.tempPriv)
	}
	for i := range s.tempPriv {
		s.tempPriv[i] = 0
	}
	s.tempPriv = nil
}
