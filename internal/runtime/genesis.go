package runtime

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/pkg/types"
	"github.com/lugondev/flashswap/pkg/view"
)

// Rent parameters used when funding new accounts.
const (
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2
)

// MinimumBalance returns the rent-exempt balance for an account of space bytes.
func MinimumBalance(space int) uint64 {
	return uint64(accountStorageOverhead+space) * lamportsPerByteYear * exemptionThreshold
}

// FundAccount credits lamports to a system-owned wallet, creating it if needed.
func (l *Ledger) FundAccount(key solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[key]
	if !ok {
		acc = &types.Account{Owner: solana.SystemProgramID}
		l.accounts[key] = acc
	}
	acc.Lamports += lamports
}

// AddMint stores an initialized mint owned by the token program.
func (l *Ledger) AddMint(key, authority solana.PublicKey, decimals uint8) {
	l.Put(key, &types.Account{
		Lamports: MinimumBalance(view.MintLen),
		Data:     view.NewMintData(authority, decimals, 0),
		Owner:    solana.TokenProgramID,
	})
}

// AddTokenAccount stores a token account holding amount and raises the
// mint supply accordingly.
func (l *Ledger) AddTokenAccount(key, mint, owner solana.PublicKey, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.accounts[mint]
	if !ok {
		return errors.ErrUninitializedAccount.Withf("mint %s", mint)
	}
	mv, err := view.NewMintView(m.Data)
	if err != nil {
		return errors.ErrInvalidAccountData.WithCause(err)
	}
	supply := mv.Supply() + amount
	if supply < amount {
		return errors.ErrArithmeticOverflow
	}
	mv.SetSupply(supply)

	l.accounts[key] = &types.Account{
		Lamports: MinimumBalance(view.TokenAccountLen),
		Data:     view.NewTokenAccountData(mint, owner, amount),
		Owner:    solana.TokenProgramID,
	}
	return nil
}
