package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested account is not stored.
var ErrNotFound = errors.New("account not found")

type AccountRepository interface {
	Save(ctx context.Context, account *AccountModel) error
	SaveBatch(ctx context.Context, accounts []*AccountModel) error
	FindByPubkey(ctx context.Context, pubkey string) (*AccountModel, error)
	FindByOwner(ctx context.Context, owner string) ([]*AccountModel, error)
	FindAll(ctx context.Context) ([]*AccountModel, error)
	Delete(ctx context.Context, pubkey string) error
}

type Repository interface {
	Accounts() AccountRepository
	Close() error
	Ping(ctx context.Context) error
}
