package file

import (
	"context"

	"github.com/lugondev/flashswap/internal/storage"
)

type fileAccountRepository struct {
	repo *FileRepository
}

func (r *fileAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	return r.SaveBatch(ctx, []*storage.AccountModel{account})
}

func (r *fileAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	if len(accounts) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	for _, account := range accounts {
		copied := *account
		r.repo.accounts[account.Pubkey] = &copied
	}
	return r.repo.flush()
}

func (r *fileAccountRepository) FindByPubkey(_ context.Context, pubkey string) (*storage.AccountModel, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	m, ok := r.repo.accounts[pubkey]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fileAccountRepository) FindByOwner(_ context.Context, owner string) ([]*storage.AccountModel, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	return r.repo.sorted(func(m *storage.AccountModel) bool { return m.Owner == owner }), nil
}

func (r *fileAccountRepository) FindAll(_ context.Context) ([]*storage.AccountModel, error) {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	return r.repo.sorted(nil), nil
}

func (r *fileAccountRepository) Delete(_ context.Context, pubkey string) error {
	r.repo.mu.Lock()
	defer r.repo.mu.Unlock()
	if _, ok := r.repo.accounts[pubkey]; !ok {
		return nil
	}
	delete(r.repo.accounts, pubkey)
	return r.repo.flush()
}
