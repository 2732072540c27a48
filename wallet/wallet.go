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

// Package wallet is the encrypted key store (L9): deterministic
// seed+index key derivation, ad-hoc imported keys, and a representative
// cache, all persisted behind a passphrase-derived encryption key.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"sync"

	"github.com/pborman/uuid"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ed25519"

	"github.com/nanocurrency/nano-node-sub005/common"
	"github.com/nanocurrency/nano-node-sub005/config"
	"github.com/nanocurrency/nano-node-sub005/log"
	"github.com/nanocurrency/nano-node-sub005/store"
)

var logger = log.NewModuleLogger(log.Wallet)

var (
	ErrLocked        = errors.New("wallet: locked")
	ErrWrongPassword = errors.New("wallet: wrong password or corrupt record")
	ErrNotFound      = errors.New("wallet: not found")
	ErrUnknownKey    = errors.New("wallet: unknown account")
)

const seedSize = 32

// Wallet is one unlocked key store: a deterministic seed plus any
// ad-hoc imported keys, and the representative each of its accounts
// votes/delegates through.
type Wallet struct {
	id  uuid.UUID
	cfg config.Config
	db  store.Store

	mu             sync.Mutex
	locked         bool
	seed           [seedSize]byte
	kdfSalt        []byte
	nextIndex      uint32
	adhoc          map[common.Account]ed25519.PrivateKey
	representative map[common.Account]common.Account
}

// Store is a wallet manager over a single store.Store, keyed by wallet
// id in store.TableWallets the way the ledger keys its own tables by
// account or hash.
type Store struct {
	cfg config.Config
	db  store.Store

	mu      sync.Mutex
	opened  map[string]*Wallet
}

// New builds a wallet Store backed by db.
func New(cfg config.Config, db store.Store) *Store {
	return &Store{cfg: cfg, db: db, opened: make(map[string]*Wallet)}
}

// Create generates a fresh random seed, encrypts it under passphrase
// using an Argon2id-derived key, and persists the record. The returned
// Wallet is already unlocked.
func (s *Store) Create(passphrase string) (*Wallet, error) {
	var seed [seedSize]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	id := uuid.NewRandom()

	w := &Wallet{
		id:             id,
		cfg:            s.cfg,
		db:             s.db,
		seed:           seed,
		adhoc:          make(map[common.Account]ed25519.PrivateKey),
		representative: make(map[common.Account]common.Account),
	}
	if err := w.persist(passphrase); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.opened[id.String()] = w
	s.mu.Unlock()
	logger.Info("wallet created", "id", id.String())
	return w, nil
}

// Open loads and decrypts the wallet stored under id.
func (s *Store) Open(id uuid.UUID, passphrase string) (*Wallet, error) {
	var rec record
	err := s.db.View(func(txn store.Txn) error {
		raw, err := txn.Get(store.TableWallets, id)
		if err != nil {
			return err
		}
		return decodeRecord(raw, &rec)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	key := deriveKey(passphrase, rec.salt, s.cfg)
	seedBytes, err := decryptGCM(key, rec.nonce, rec.cipherSeed)
	if err != nil {
		return nil, ErrWrongPassword
	}

	w := &Wallet{
		id:             id,
		cfg:            s.cfg,
		db:             s.db,
		kdfSalt:        rec.salt,
		nextIndex:      rec.index,
		representative: rec.representative,
		adhoc:          make(map[common.Account]ed25519.PrivateKey),
	}
	copy(w.seed[:], seedBytes)

	for acct, enc := range rec.adhoc {
		prv, err := decryptGCM(key, enc.nonce, enc.cipher)
		if err != nil {
			return nil, ErrWrongPassword
		}
		w.adhoc[acct] = ed25519.PrivateKey(prv)
	}

	s.mu.Lock()
	s.opened[id.String()] = w
	s.mu.Unlock()
	return w, nil
}

// Wallets lists the ids of every wallet this store has persisted.
func (s *Store) Wallets() ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := s.db.View(func(txn store.Txn) error {
		c := txn.NewCursor(store.TableWallets)
		defer c.Close()
		for ok := c.Seek(nil); ok; ok = c.Next() {
			out = append(out, uuid.UUID(append([]byte(nil), c.Key()...)))
		}
		return nil
	})
	return out, err
}

// ID reports this wallet's store key.
func (w *Wallet) ID() uuid.UUID { return w.id }

// Lock wipes the decrypted seed and ad-hoc private keys from memory.
// The wallet must be re-opened with Store.Open to use again.
func (w *Wallet) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.seed {
		w.seed[i] = 0
	}
	for acct := range w.adhoc {
		delete(w.adhoc, acct)
	}
	w.locked = true
}

func (w *Wallet) IsLocked() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.locked
}

// Deterministic derives the index'th account from this wallet's seed,
// the way a seed-based wallet regenerates its entire account chain from
// one secret: child = blake2b256(seed || big-endian(index)), used
// directly as an ed25519 seed.
func (w *Wallet) Deterministic(index uint32) (common.Account, ed25519.PrivateKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locked {
		return common.Account{}, nil, ErrLocked
	}
	return deriveChild(w.seed, index)
}

// NextDeterministic derives and reserves the next unused index, the way
// a wallet UI's "new account" button advances its own counter.
func (w *Wallet) NextDeterministic(passphrase string) (common.Account, error) {
	w.mu.Lock()
	if w.locked {
		w.mu.Unlock()
		return common.Account{}, ErrLocked
	}
	index := w.nextIndex
	w.nextIndex++
	w.mu.Unlock()

	acct, _, err := deriveChild(w.seed, index)
	if err != nil {
		return common.Account{}, err
	}
	if err := w.persist(passphrase); err != nil {
		return common.Account{}, err
	}
	return acct, nil
}

func deriveChild(seed [seedSize]byte, index uint32) (common.Account, ed25519.PrivateKey, error) {
	buf := make([]byte, seedSize+4)
	copy(buf, seed[:])
	buf[seedSize] = byte(index >> 24)
	buf[seedSize+1] = byte(index >> 16)
	buf[seedSize+2] = byte(index >> 8)
	buf[seedSize+3] = byte(index)
	sum := blake2b.Sum256(buf)
	prv := ed25519.NewKeyFromSeed(sum[:])
	pub := prv.Public().(ed25519.PublicKey)
	return common.BytesToAccount(pub), prv, nil
}

// Adhoc imports an externally-generated ed25519 key, the way a user
// pastes in a private key from another wallet rather than deriving one
// from this wallet's own seed.
func (w *Wallet) Adhoc(prv ed25519.PrivateKey, passphrase string) (common.Account, error) {
	if len(prv) != ed25519.PrivateKeySize {
		return common.Account{}, errors.New("wallet: wrong private key length")
	}
	pub := prv.Public().(ed25519.PublicKey)
	acct := common.BytesToAccount(pub)

	w.mu.Lock()
	if w.locked {
		w.mu.Unlock()
		return common.Account{}, ErrLocked
	}
	w.adhoc[acct] = prv
	w.mu.Unlock()

	if err := w.persist(passphrase); err != nil {
		return common.Account{}, err
	}
	return acct, nil
}

// PrivateKeyFor resolves acct's signing key, whether deterministic
// (re-derived on demand) or ad-hoc (looked up).
func (w *Wallet) PrivateKeyFor(acct common.Account) (ed25519.PrivateKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locked {
		return nil, ErrLocked
	}
	if prv, ok := w.adhoc[acct]; ok {
		return prv, nil
	}
	for i := uint32(0); i < w.nextIndex; i++ {
		candidate, prv, err := deriveChild(w.seed, i)
		if err != nil {
			return nil, err
		}
		if candidate == acct {
			return prv, nil
		}
	}
	return nil, ErrUnknownKey
}

// SetRepresentative records the representative acct delegates its
// weight to. This is the wallet's "representatives cache": a node
// consults it to pick confirm_req targets and to auto-populate a
// change block's representative field without re-asking the user,
// mirroring the representative cache kept alongside account keys in
// the original wallet store. The change is held in memory; it reaches
// the store with the wallet's next persist (NextDeterministic or Adhoc).
func (w *Wallet) SetRepresentative(acct, rep common.Account) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.representative == nil {
		w.representative = make(map[common.Account]common.Account)
	}
	w.representative[acct] = rep
}

// Representative returns acct's cached representative, if one has been
// recorded.
func (w *Wallet) Representative(acct common.Account) (common.Account, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rep, ok := w.representative[acct]
	return rep, ok
}

// Accounts lists every account this wallet can currently sign for:
// every derived index below the watermark, plus ad-hoc imports.
func (w *Wallet) Accounts() []common.Account {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]common.Account, 0, int(w.nextIndex)+len(w.adhoc))
	for i := uint32(0); i < w.nextIndex; i++ {
		acct, _, _ := deriveChild(w.seed, i)
		out = append(out, acct)
	}
	for acct := range w.adhoc {
		out = append(out, acct)
	}
	return out
}

func deriveKey(passphrase string, salt []byte, cfg config.Config) []byte {
	memKiB := cfg.WalletKDFMemoryKiB
	if memKiB == 0 {
		memKiB = 64 * 1024
	}
	iters := cfg.WalletKDFIterations
	if iters == 0 {
		iters = 1
	}
	threads := cfg.WalletKDFThreads
	if threads == 0 {
		threads = 4
	}
	return argon2IDKey(passphrase, salt, iters, memKiB, threads)
}

func encryptGCM(key, plaintext []byte) (nonce, cipherText []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}
	return nonce, gcm.Seal(nil, nonce, plaintext, nil), nil
}

func decryptGCM(key, nonce, cipherText []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, cipherText, nil)
}
