// Copyright 2026 The nanod Authors
// This file is part of the nanod library.
//
// The nanod library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The nanod library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the nanod library. If not, see <http://www.gnu.org/licenses/>.

package wallet

import "golang.org/x/crypto/argon2"

const aesKeySize = 32 // AES-256

// argon2IDKey derives a symmetric key from a passphrase, the
// memory-hard KDF this store uses in place of the original's
// iterated-SHA256-then-AES scheme: argon2id is resistant to the
// GPU/ASIC brute-forcing plain iterated hashing is not, which matters
// for a file whose entire job is to resist offline attack once stolen.
func argon2IDKey(passphrase string, salt []byte, iterations uint32, memoryKiB uint32, threads uint8) []byte {
	return argon2.IDKey([]byte(passphrase), salt, iterations, memoryKiB, threads, aesKeySize)
}
