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

// Package common holds the fixed-width value types shared by every
// subsystem: hashes, account ids, signatures and balances.
package common

import (
	"encoding/hex"
	"errors"
	"math/big"
)

const (
	HashSize      = 32
	AccountSize   = 32
	SignatureSize = 64
	AmountSize    = 16
)

// Hash is a content digest: a block hash, a vote hash or a root.
type Hash [HashSize]byte

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

func BytesToHash(b []byte) Hash {
	var h Hash
	copy(h[len(h)-len(b):], b)
	return h
}

func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, err
	}
	if len(b) != HashSize {
		return Hash{}, errors.New("common: wrong hash length")
	}
	return BytesToHash(b), nil
}

// Account identifies a chain: it is the ed25519 public key of the account.
type Account [AccountSize]byte

func (a Account) IsZero() bool { return a == Account{} }

func (a Account) String() string { return hex.EncodeToString(a[:]) }

func (a Account) Bytes() []byte {
	b := make([]byte, AccountSize)
	copy(b, a[:])
	return b
}

func BytesToAccount(b []byte) Account {
	var a Account
	copy(a[len(a)-len(b):], b)
	return a
}

// Signature is an ed25519 signature over a canonical block or vote hash.
type Signature [SignatureSize]byte

func (s Signature) Bytes() []byte {
	b := make([]byte, SignatureSize)
	copy(b, s[:])
	return b
}

func BytesToSignature(b []byte) Signature {
	var s Signature
	copy(s[len(s)-len(b):], b)
	return s
}

// Amount is a 128-bit unsigned balance, big-endian on the wire.
type Amount [AmountSize]byte

func (a Amount) Big() *big.Int {
	return new(big.Int).SetBytes(a[:])
}

func (a Amount) IsZero() bool { return a == Amount{} }

// Cmp compares two amounts as unsigned 128-bit integers.
func (a Amount) Cmp(b Amount) int {
	return a.Big().Cmp(b.Big())
}

func AmountFromBig(v *big.Int) (Amount, error) {
	var a Amount
	if v.Sign() < 0 {
		return a, errors.New("common: negative amount")
	}
	b := v.Bytes()
	if len(b) > AmountSize {
		return a, errors.New("common: amount overflows 128 bits")
	}
	copy(a[AmountSize-len(b):], b)
	return a, nil
}

// BytesToAmount right-aligns b into a 128-bit Amount.
func BytesToAmount(b []byte) Amount {
	var a Amount
	copy(a[len(a)-len(b):], b)
	return a
}

func AmountFromUint64(v uint64) Amount {
	a, _ := AmountFromBig(new(big.Int).SetUint64(v))
	return a
}

// Add returns a+b, erroring on overflow past 128 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	return AmountFromBig(new(big.Int).Add(a.Big(), b.Big()))
}

// Sub returns a-b, erroring if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	return AmountFromBig(new(big.Int).Sub(a.Big(), b.Big()))
}
