package storage

import (
	"context"
	"fmt"

	"github.com/lugondev/flashswap/internal/runtime"
)

// SaveLedger makes repo hold exactly the accounts of l. Stored accounts
// missing from l, such as closed escrows, are deleted.
func SaveLedger(ctx context.Context, repo AccountRepository, l *runtime.Ledger) error {
	keys := l.Keys()
	live := make(map[string]bool, len(keys))
	models := make([]*AccountModel, 0, len(keys))
	for _, key := range keys {
		acc, ok := l.Account(key)
		if !ok {
			continue
		}
		live[key.String()] = true
		models = append(models, AccountToModel(key, acc))
	}

	stored, err := repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list stored accounts: %w", err)
	}
	for _, m := range stored {
		if live[m.Pubkey] {
			continue
		}
		if err := repo.Delete(ctx, m.Pubkey); err != nil {
			return fmt.Errorf("delete stale account %s: %w", m.Pubkey, err)
		}
	}

	if err := repo.SaveBatch(ctx, models); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

// LoadLedger builds a ledger from every stored account.
func LoadLedger(ctx context.Context, repo AccountRepository) (*runtime.Ledger, error) {
	models, err := repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored accounts: %w", err)
	}
	l := runtime.NewLedger()
	for _, m := range models {
		key, acc, err := m.ToAccount()
		if err != nil {
			return nil, err
		}
		l.Put(key, acc)
	}
	return l, nil
}
