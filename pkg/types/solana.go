// Package types provides the account and instruction records shared by the
// runtime, the program and the client builders. Keys reuse solana-go types.
package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Pubkey is a Solana public key (32 bytes).
type Pubkey = solana.PublicKey

// Account represents a Solana account with its data and metadata.
type Account struct {
	// Lamports is the number of lamports owned by this account.
	Lamports uint64 `json:"lamports" yaml:"lamports"`

	// Data is the data held in this account.
	Data []byte `json:"data" yaml:"data"`

	// Owner is the program that owns this account.
	Owner Pubkey `json:"owner" yaml:"owner"`

	// Executable indicates if the account contains a program.
	Executable bool `json:"executable" yaml:"executable"`

	// RentEpoch is the epoch at which this account will next owe rent.
	RentEpoch uint64 `json:"rent_epoch" yaml:"rent_epoch"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	out := *a
	out.Data = append([]byte(nil), a.Data...)
	return &out
}

// AccountMeta describes a single account involved in an instruction.
type AccountMeta struct {
	// Pubkey is the public key of the account.
	Pubkey Pubkey `json:"pubkey"`

	// IsSigner indicates if the account is a signer.
	IsSigner bool `json:"is_signer"`

	// IsWritable indicates if the account is writable.
	IsWritable bool `json:"is_writable"`
}

// FromSolanaAccountMeta creates AccountMeta from solana-go AccountMeta.
func FromSolanaAccountMeta(meta *solana.AccountMeta) AccountMeta {
	return AccountMeta{
		Pubkey:     meta.PublicKey,
		IsSigner:   meta.IsSigner,
		IsWritable: meta.IsWritable,
	}
}

// Instruction represents a Solana instruction.
type Instruction struct {
	// ProgramID is the program that will process this instruction.
	ProgramID Pubkey `json:"program_id"`

	// Accounts is the list of accounts to pass to the program.
	Accounts []AccountMeta `json:"accounts"`

	// Data is the instruction data.
	Data []byte `json:"data"`
}

// Discriminator returns the first data byte, or false when data is empty.
func (ix *Instruction) Discriminator() (byte, bool) {
	if len(ix.Data) == 0 {
		return 0, false
	}
	return ix.Data[0], true
}

// AccountAt returns the key at position i, or false when out of range.
func (ix *Instruction) AccountAt(i int) (Pubkey, bool) {
	if i < 0 || i >= len(ix.Accounts) {
		return Pubkey{}, false
	}
	return ix.Accounts[i].Pubkey, true
}

// FromSolanaInstruction flattens a solana-go instruction into an Instruction.
func FromSolanaInstruction(ix solana.Instruction) (Instruction, error) {
	data, err := ix.Data()
	if err != nil {
		return Instruction{}, fmt.Errorf("failed to encode instruction data: %w", err)
	}
	metas := ix.Accounts()
	accounts := make([]AccountMeta, 0, len(metas))
	for _, meta := range metas {
		accounts = append(accounts, FromSolanaAccountMeta(meta))
	}
	return Instruction{
		ProgramID: ix.ProgramID(),
		Accounts:  accounts,
		Data:      data,
	}, nil
}

