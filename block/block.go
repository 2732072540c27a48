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

// Package block is the block model (L2): a tagged sum over the five
// block variants, each content-addressed and canonically hashed the
// same way regardless of variant. The set of variants is fixed and
// hashing is the only virtualized behavior, so each variant gets its
// own struct implementing Block rather than a shared class hierarchy.
package block

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/blake2b"

	"github.com/nanocurrency/nano-node-sub005/common"
)

// Type tags a block variant.
type Type uint8

const (
	TypeSend Type = iota + 1
	TypeReceive
	TypeOpen
	TypeChange
	TypeState
)

func (t Type) String() string {
	switch t {
	case TypeSend:
		return "send"
	case TypeReceive:
		return "receive"
	case TypeOpen:
		return "open"
	case TypeChange:
		return "change"
	case TypeState:
		return "state"
	default:
		return "unknown"
	}
}

// Epoch tags a block with the bootstrap-epoch it was assigned, gating
// protocol upgrades without moving value (epoch blocks, glossary).
type Epoch uint8

const (
	Epoch0 Epoch = iota
	Epoch1
	Epoch2
)

// Block is the shared interface every variant satisfies. Hashing is the
// only behavior that differs per variant; everything else is read off
// the common envelope.
type Block interface {
	Type() Type
	Epoch() Epoch
	Previous() common.Hash
	// Root is the account id for an open block, Previous for everything
	// else (glossary: Root).
	Root() common.Hash
	Signature() common.Signature
	SetSignature(common.Signature)
	// Hash is the content digest over every non-signature field.
	Hash() common.Hash
	// CanonicalBytes serializes every non-signature field in declared
	// order with fixed widths, big-endian, for both hashing and the wire.
	CanonicalBytes() []byte
}

// SendBlock moves value out of the signer's account into a pending
// entry owed to destination.
type SendBlock struct {
	PreviousHash common.Hash
	Destination  common.Account
	Balance      common.Amount // balance AFTER the send
	Sig          common.Signature
	Ep           Epoch
}

func (b *SendBlock) Type() Type               { return TypeSend }
func (b *SendBlock) Epoch() Epoch             { return b.Ep }
func (b *SendBlock) Previous() common.Hash    { return b.PreviousHash }
func (b *SendBlock) Root() common.Hash        { return b.PreviousHash }
func (b *SendBlock) Signature() common.Signature { return b.Sig }
func (b *SendBlock) SetSignature(s common.Signature) { b.Sig = s }

func (b *SendBlock) CanonicalBytes() []byte {
	buf := make([]byte, 0, 1+common.HashSize+common.AccountSize+common.AmountSize)
	buf = append(buf, byte(TypeSend))
	buf = append(buf, b.PreviousHash[:]...)
	buf = append(buf, b.Destination[:]...)
	buf = append(buf, b.Balance[:]...)
	return buf
}

func (b *SendBlock) Hash() common.Hash { return hashCanonical(b) }

// ReceiveBlock consumes a pending entry created by a prior send block.
type ReceiveBlock struct {
	PreviousHash common.Hash
	Source       common.Hash // hash of the send block being received
	Sig          common.Signature
	Ep           Epoch
}

func (b *ReceiveBlock) Type() Type               { return TypeReceive }
func (b *ReceiveBlock) Epoch() Epoch             { return b.Ep }
func (b *ReceiveBlock) Previous() common.Hash    { return b.PreviousHash }
func (b *ReceiveBlock) Root() common.Hash        { return b.PreviousHash }
func (b *ReceiveBlock) Signature() common.Signature { return b.Sig }
func (b *ReceiveBlock) SetSignature(s common.Signature) { b.Sig = s }

func (b *ReceiveBlock) CanonicalBytes() []byte {
	buf := make([]byte, 0, 1+2*common.HashSize)
	buf = append(buf, byte(TypeReceive))
	buf = append(buf, b.PreviousHash[:]...)
	buf = append(buf, b.Source[:]...)
	return buf
}

func (b *ReceiveBlock) Hash() common.Hash { return hashCanonical(b) }

// OpenBlock is the first block of an account chain; its root is the
// account id itself since there is no previous block.
type OpenBlock struct {
	Source         common.Hash
	Representative common.Account
	Account        common.Account
	Sig            common.Signature
	Ep             Epoch
}

func (b *OpenBlock) Type() Type               { return TypeOpen }
func (b *OpenBlock) Epoch() Epoch             { return b.Ep }
func (b *OpenBlock) Previous() common.Hash    { return common.Hash{} }
func (b *OpenBlock) Root() common.Hash        { return common.Hash(b.Account) }
func (b *OpenBlock) Signature() common.Signature { return b.Sig }
func (b *OpenBlock) SetSignature(s common.Signature) { b.Sig = s }

func (b *OpenBlock) CanonicalBytes() []byte {
	buf := make([]byte, 0, 1+common.HashSize+2*common.AccountSize)
	buf = append(buf, byte(TypeOpen))
	buf = append(buf, b.Source[:]...)
	buf = append(buf, b.Representative[:]...)
	buf = append(buf, b.Account[:]...)
	return buf
}

func (b *OpenBlock) Hash() common.Hash { return hashCanonical(b) }

// ChangeBlock moves an account's delegated weight to a new representative
// without moving value.
type ChangeBlock struct {
	PreviousHash   common.Hash
	Representative common.Account
	Sig            common.Signature
	Ep             Epoch
}

func (b *ChangeBlock) Type() Type               { return TypeChange }
func (b *ChangeBlock) Epoch() Epoch             { return b.Ep }
func (b *ChangeBlock) Previous() common.Hash    { return b.PreviousHash }
func (b *ChangeBlock) Root() common.Hash        { return b.PreviousHash }
func (b *ChangeBlock) Signature() common.Signature { return b.Sig }
func (b *ChangeBlock) SetSignature(s common.Signature) { b.Sig = s }

func (b *ChangeBlock) CanonicalBytes() []byte {
	buf := make([]byte, 0, 1+common.HashSize+common.AccountSize)
	buf = append(buf, byte(TypeChange))
	buf = append(buf, b.PreviousHash[:]...)
	buf = append(buf, b.Representative[:]...)
	return buf
}

func (b *ChangeBlock) Hash() common.Hash { return hashCanonical(b) }

// StateBlock is the unified variant: the sign of Balance-priorBalance
// (tracked by the ledger, not the block itself) determines whether Link
// is a send destination, a receive source hash, or unused.
type StateBlock struct {
	Account        common.Account
	PreviousHash   common.Hash
	Representative common.Account
	Balance        common.Amount
	Link           common.Hash
	Sig            common.Signature
	Ep             Epoch
}

func (b *StateBlock) Type() Type            { return TypeState }
func (b *StateBlock) Epoch() Epoch          { return b.Ep }
func (b *StateBlock) Previous() common.Hash { return b.PreviousHash }
func (b *StateBlock) Root() common.Hash {
	if b.PreviousHash.IsZero() {
		return common.Hash(b.Account)
	}
	return b.PreviousHash
}
func (b *StateBlock) Signature() common.Signature    { return b.Sig }
func (b *StateBlock) SetSignature(s common.Signature) { b.Sig = s }

func (b *StateBlock) CanonicalBytes() []byte {
	buf := make([]byte, 0, 1+common.AccountSize+common.HashSize+common.AccountSize+common.AmountSize+common.HashSize)
	buf = append(buf, byte(TypeState))
	buf = append(buf, b.Account[:]...)
	buf = append(buf, b.PreviousHash[:]...)
	buf = append(buf, b.Representative[:]...)
	buf = append(buf, b.Balance[:]...)
	buf = append(buf, b.Link[:]...)
	return buf
}

func (b *StateBlock) Hash() common.Hash { return hashCanonical(b) }

func hashCanonical(b Block) common.Hash {
	sum := blake2b.Sum256(b.CanonicalBytes())
	return common.Hash(sum)
}

var ErrBadSignature = errors.New("block: signature does not verify")

// VerifySignature checks b.Signature() against signer using ed25519,
// the scheme every block and vote in this system is signed with.
func VerifySignature(b Block, signer common.Account) error {
	sig := b.Signature()
	h := b.Hash()
	if !ed25519.Verify(signer[:], h[:], sig[:]) {
		return ErrBadSignature
	}
	return nil
}

// Sign produces b's signature under prv and sets it on b.
func Sign(b Block, prv ed25519.PrivateKey) {
	h := b.Hash()
	sig := ed25519.Sign(prv, h[:])
	b.SetSignature(common.BytesToSignature(sig))
}

// EncodeUint64 / DecodeUint64 are the fixed-width big-endian helpers
// used throughout wire encoding.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func DecodeUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

var ErrShortBody = errors.New("block: canonical body too short for its type")

// ParseBody reconstructs a Block from canonical bytes previously produced
// by CanonicalBytes, dispatching on the leading type tag. The signature
// and epoch are not part of the canonical body and must be set by the
// caller.
func ParseBody(body []byte) (Block, error) {
	if len(body) < 1 {
		return nil, ErrShortBody
	}
	switch Type(body[0]) {
	case TypeSend:
		if len(body) != 1+common.HashSize+common.AccountSize+common.AmountSize {
			return nil, ErrShortBody
		}
		off := 1
		b := &SendBlock{}
		b.PreviousHash = common.BytesToHash(body[off : off+common.HashSize])
		off += common.HashSize
		b.Destination = common.BytesToAccount(body[off : off+common.AccountSize])
		off += common.AccountSize
		b.Balance = common.BytesToAmount(body[off : off+common.AmountSize])
		return b, nil
	case TypeReceive:
		if len(body) != 1+2*common.HashSize {
			return nil, ErrShortBody
		}
		off := 1
		b := &ReceiveBlock{}
		b.PreviousHash = common.BytesToHash(body[off : off+common.HashSize])
		off += common.HashSize
		b.Source = common.BytesToHash(body[off : off+common.HashSize])
		return b, nil
	case TypeOpen:
		if len(body) != 1+common.HashSize+2*common.AccountSize {
			return nil, ErrShortBody
		}
		off := 1
		b := &OpenBlock{}
		b.Source = common.BytesToHash(body[off : off+common.HashSize])
		off += common.HashSize
		b.Representative = common.BytesToAccount(body[off : off+common.AccountSize])
		off += common.AccountSize
		b.Account = common.BytesToAccount(body[off : off+common.AccountSize])
		return b, nil
	case TypeChange:
		if len(body) != 1+common.HashSize+common.AccountSize {
			return nil, ErrShortBody
		}
		off := 1
		b := &ChangeBlock{}
		b.PreviousHash = common.BytesToHash(body[off : off+common.HashSize])
		off += common.HashSize
		b.Representative = common.BytesToAccount(body[off : off+common.AccountSize])
		return b, nil
	case TypeState:
		want := 1 + common.AccountSize + common.HashSize + common.AccountSize + common.AmountSize + common.HashSize
		if len(body) != want {
			return nil, ErrShortBody
		}
		off := 1
		b := &StateBlock{}
		b.Account = common.BytesToAccount(body[off : off+common.AccountSize])
		off += common.AccountSize
		b.PreviousHash = common.BytesToHash(body[off : off+common.HashSize])
		off += common.HashSize
		b.Representative = common.BytesToAccount(body[off : off+common.AccountSize])
		off += common.AccountSize
		b.Balance = common.BytesToAmount(body[off : off+common.AmountSize])
		off += common.AmountSize
		b.Link = common.BytesToHash(body[off : off+common.HashSize])
		return b, nil
	default:
		return nil, ErrShortBody
	}
}
