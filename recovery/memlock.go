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

//go:build linux

package recovery

import "golang.org/x/sys/unix"

// lockMemory pins buf's pages so the temporary key material is never
// written to swap, and asks the kernel to exclude it from core dumps where
// supported. Best-effort: a failing mlock is returned, and the session
// proceeds with a logged warning, since mlock commonly requires a privilege
// or ulimit the caller's environment may not grant (spec §4.5/§5's
// memory-locking requirement, soft-fail variant). A failing madvise is
// ignored and produces no warning.
func lockMemory(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if err := unix.Mlock(buf); err != nil {
		return err
	}
	_ = unix.Madvise(buf, unix.MADV_DONTDUMP)
	return nil
}

// unlockMemory releases a lock established by lockMemory. Errors are not
// actionable at this point (the caller is already tearing the key down)
// and are intentionally ignored.
func unlockMemory(buf []byte) {
	if len(buf) == 0 {
		return
	}
	_ = unix.Munlock(buf)
}
