package runtime

import (
	"bytes"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/pkg/types"
	"github.com/lugondev/flashswap/pkg/view"
)

// Ledger is the account store transactions execute against.
// It is safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*types.Account
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[solana.PublicKey]*types.Account)}
}

// Account returns a copy of the account stored under key.
func (l *Ledger) Account(key solana.PublicKey) (*types.Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return acc.Clone(), true
}

// Put stores a copy of acc under key.
func (l *Ledger) Put(key solana.PublicKey, acc *types.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[key] = acc.Clone()
}

// Delete removes key from the ledger.
func (l *Ledger) Delete(key solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.accounts, key)
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.accounts)
}

// Keys returns every key in byte order.
func (l *Ledger) Keys() []solana.PublicKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]solana.PublicKey, 0, len(l.accounts))
	for k := range l.accounts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := &Ledger{accounts: make(map[solana.PublicKey]*types.Account, len(l.accounts))}
	for k, acc := range l.accounts {
		out.accounts[k] = acc.Clone()
	}
	return out
}

// commit replaces the contents of l with those of work.
func (l *Ledger) commit(work *Ledger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = work.accounts
}

// get returns the stored pointer; callers must own the ledger exclusively.
func (l *Ledger) get(key solana.PublicKey) (*types.Account, bool) {
	acc, ok := l.accounts[key]
	return acc, ok
}

func (l *Ledger) set(key solana.PublicKey, acc *types.Account) {
	l.accounts[key] = acc
}

// TokenBalance reads the amount of a token account.
func (l *Ledger) TokenBalance(key solana.PublicKey) (uint64, error) {
	acc, ok := l.Account(key)
	if !ok {
		return 0, errors.ErrUninitializedAccount.Withf("token account %s", key)
	}
	v, err := view.NewTokenAccountView(acc.Data)
	if err != nil {
		return 0, errors.ErrInvalidAccountData.WithCause(err)
	}
	return v.Amount(), nil
}

// MintSupply reads the supply of a mint.
func (l *Ledger) MintSupply(key solana.PublicKey) (uint64, error) {
	acc, ok := l.Account(key)
	if !ok {
		return 0, errors.ErrUninitializedAccount.Withf("mint %s", key)
	}
	v, err := view.NewMintView(acc.Data)
	if err != nil {
		return 0, errors.ErrInvalidAccountData.WithCause(err)
	}
	return v.Supply(), nil
}

// Lamports returns the lamport balance of key, zero when absent.
func (l *Ledger) Lamports(key solana.PublicKey) uint64 {
	acc, ok := l.Account(key)
	if !ok {
		return 0
	}
	return acc.Lamports
}
