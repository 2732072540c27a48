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

import (
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/store"
)

type encBlob struct {
	nonce  []byte
	cipher []byte
}

// record is the on-disk shape of one wallet, encoded as 2-byte
// length-prefixed blobs plus fixed-width counts and accounts, rather
// than reaching for a generic serialization library: every field
// here is either a short byte blob or a fixed-width account, so a
// hand-rolled codec is no heavier than wiring one in.
type record struct {
	salt           []byte
	nonce          []byte
	cipherSeed     []byte
	index          uint32
	representative map[common.Account]common.Account
	adhoc          map[common.Account]encBlob
}

var errShortRecord = errors.New("wallet: truncated record")

func putBlob(buf []byte, b []byte) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

func takeBlob(b []byte) (blob, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, errShortRecord
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return nil, nil, errShortRecord
	}
	return b[2 : 2+n], b[2+n:], nil
}

func encodeRecord(r record) []byte {
	var buf []byte
	buf = putBlob(buf, r.salt)
	buf = putBlob(buf, r.nonce)
	buf = putBlob(buf, r.cipherSeed)

	var idxBuf [4]byte
	binary.BigEndian.PutUint32(idxBuf[:], r.index)
	buf = append(buf, idxBuf[:]...)

	var repCount [4]byte
	binary.BigEndian.PutUint32(repCount[:], uint32(len(r.representative)))
	buf = append(buf, repCount[:]...)
	for acct, rep := range r.representative {
		buf = append(buf, acct.Bytes()...)
		buf = append(buf, rep.Bytes()...)
	}

	var adhocCount [4]byte
	binary.BigEndian.PutUint32(adhocCount[:], uint32(len(r.adhoc)))
	buf = append(buf, adhocCount[:]...)
	for acct, blob := range r.adhoc {
		buf = append(buf, acct.Bytes()...)
		buf = putBlob(buf, blob.nonce)
		buf = putBlob(buf, blob.cipher)
	}
	return buf
}

func decodeRecord(b []byte, r *record) error {
	var err error
	if r.salt, b, err = takeBlob(b); err != nil {
		return err
	}
	if r.nonce, b, err = takeBlob(b); err != nil {
		return err
	}
	if r.cipherSeed, b, err = takeBlob(b); err != nil {
		return err
	}
	if len(b) < 4 {
		return errShortRecord
	}
	r.index = binary.BigEndian.Uint32(b)
	b = b[4:]

	if len(b) < 4 {
		return errShortRecord
	}
	repCount := binary.BigEndian.Uint32(b)
	b = b[4:]
	r.representative = make(map[common.Account]common.Account, repCount)
	for i := uint32(0); i < repCount; i++ {
		if len(b) < 2*common.AccountSize {
			return errShortRecord
		}
		acct := common.BytesToAccount(b[:common.AccountSize])
		rep := common.BytesToAccount(b[common.AccountSize : 2*common.AccountSize])
		r.representative[acct] = rep
		b = b[2*common.AccountSize:]
	}

	if len(b) < 4 {
		return errShortRecord
	}
	adhocCount := binary.BigEndian.Uint32(b)
	b = b[4:]
	r.adhoc = make(map[common.Account]encBlob, adhocCount)
	for i := uint32(0); i < adhocCount; i++ {
		if len(b) < common.AccountSize {
			return errShortRecord
		}
		acct := common.BytesToAccount(b[:common.AccountSize])
		b = b[common.AccountSize:]
		var blob encBlob
		if blob.nonce, b, err = takeBlob(b); err != nil {
			return err
		}
		if blob.cipher, b, err = takeBlob(b); err != nil {
			return err
		}
		r.adhoc[acct] = blob
	}
	return nil
}

// persist re-encrypts and writes the wallet's current state, called
// after every key-issuing mutation (new deterministic index, new ad-hoc
// key) so a crash never loses an issued key. Representative changes are
// written only when one of those next calls persist.
func (w *Wallet) persist(passphrase string) error {
	w.mu.Lock()
	if w.locked {
		w.mu.Unlock()
		return ErrLocked
	}
	if w.kdfSalt == nil {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			w.mu.Unlock()
			return err
		}
		w.kdfSalt = salt
	}
	key := deriveKey(passphrase, w.kdfSalt, w.cfg)

	nonce, cipherSeed, err := encryptGCM(key, w.seed[:])
	if err != nil {
		w.mu.Unlock()
		return err
	}

	adhocEnc := make(map[common.Account]encBlob, len(w.adhoc))
	for acct, prv := range w.adhoc {
		n, c, err := encryptGCM(key, prv)
		if err != nil {
			w.mu.Unlock()
			return err
		}
		adhocEnc[acct] = encBlob{nonce: n, cipher: c}
	}

	rep := make(map[common.Account]common.Account, len(w.representative))
	for k, v := range w.representative {
		rep[k] = v
	}

	rec := record{
		salt: w.kdfSalt, nonce: nonce, cipherSeed: cipherSeed,
		index: w.nextIndex, representative: rep, adhoc: adhocEnc,
	}
	id := w.id
	w.mu.Unlock()

	raw := encodeRecord(rec)
	return w.db.Update(func(txn store.Txn) error {
		return txn.Put(store.TableWallets, id, raw)
	})
}
