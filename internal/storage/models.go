package storage

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/pkg/types"
)

// AccountModel is the persisted form of one ledger account.
type AccountModel struct {
	Pubkey     string    `json:"pubkey" yaml:"pubkey"`
	Lamports   uint64    `json:"lamports" yaml:"lamports"`
	Data       string    `json:"data" yaml:"data"` // base64
	Owner      string    `json:"owner" yaml:"owner"`
	Executable bool      `json:"executable" yaml:"executable"`
	RentEpoch  uint64    `json:"rent_epoch" yaml:"rent_epoch"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// AccountToModel converts a ledger account to its persisted form.
func AccountToModel(pubkey solana.PublicKey, account *types.Account) *AccountModel {
	return &AccountModel{
		Pubkey:     pubkey.String(),
		Lamports:   account.Lamports,
		Data:       base64.StdEncoding.EncodeToString(account.Data),
		Owner:      account.Owner.String(),
		Executable: account.Executable,
		RentEpoch:  account.RentEpoch,
		UpdatedAt:  time.Now().UTC(),
	}
}

// ToAccount converts the model back to a ledger key and account.
func (m *AccountModel) ToAccount() (solana.PublicKey, *types.Account, error) {
	key, err := solana.PublicKeyFromBase58(m.Pubkey)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("invalid pubkey %q: %w", m.Pubkey, err)
	}
	owner, err := solana.PublicKeyFromBase58(m.Owner)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("account %s: invalid owner %q: %w", m.Pubkey, m.Owner, err)
	}
	data, err := base64.StdEncoding.DecodeString(m.Data)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("account %s: invalid data: %w", m.Pubkey, err)
	}
	return key, &types.Account{
		Lamports:   m.Lamports,
		Data:       data,
		Owner:      owner,
		Executable: m.Executable,
		RentEpoch:  m.RentEpoch,
	}, nil
}
