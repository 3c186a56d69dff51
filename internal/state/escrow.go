package state

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
)

// MaxLoanPairs bounds the number of token pairs one flash loan may move.
const MaxLoanPairs = 10

const (
	escrowHeaderLen = 32 + 1
	escrowEntryLen  = 32 + 32 + 8
)

// LoanEntry tracks one borrowed token pair until it is repaid.
type LoanEntry struct {
	// Protocol is the lender-side token account the funds came from.
	Protocol solana.PublicKey
	// Borrower is the token account that received the funds.
	Borrower solana.PublicKey
	// ExpectedBalance is the balance Protocol must hold again before the loan
	// settles: its pre-loan balance plus the fee.
	ExpectedBalance uint64
}

// LoanEscrow is the per-borrower record written by Loan and consumed by Repay.
type LoanEscrow struct {
	Borrower solana.PublicKey
	Entries  []LoanEntry
}

// EscrowLen returns the account size needed for n entries.
func EscrowLen(n int) int {
	return escrowHeaderLen + n*escrowEntryLen
}

// LoadEscrow decodes a LoanEscrow, rejecting entry counts outside 1..=MaxLoanPairs.
func LoadEscrow(data []byte) (*LoanEscrow, error) {
	if len(data) < escrowHeaderLen {
		return nil, errors.ErrInvalidAccountData.Withf("escrow length %d", len(data))
	}

	dec := bin.NewBinDecoder(data)
	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, errors.ErrInvalidAccountData.WithCause(err)
	}
	count, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.ErrInvalidAccountData.WithCause(err)
	}
	if count == 0 || int(count) > MaxLoanPairs {
		return nil, errors.ErrInvalidAccountData.Withf("escrow entry count %d", count)
	}
	if len(data) != EscrowLen(int(count)) {
		return nil, errors.ErrInvalidAccountData.Withf("escrow length %d, want %d", len(data), EscrowLen(int(count)))
	}

	escrow := &LoanEscrow{
		Borrower: solana.PublicKeyFromBytes(raw),
		Entries:  make([]LoanEntry, count),
	}
	for i := range escrow.Entries {
		entry := &escrow.Entries[i]
		if raw, err = dec.ReadNBytes(32); err != nil {
			return nil, errors.ErrInvalidAccountData.WithCause(err)
		}
		entry.Protocol = solana.PublicKeyFromBytes(raw)
		if raw, err = dec.ReadNBytes(32); err != nil {
			return nil, errors.ErrInvalidAccountData.WithCause(err)
		}
		entry.Borrower = solana.PublicKeyFromBytes(raw)
		if entry.ExpectedBalance, err = dec.ReadUint64(bin.LE); err != nil {
			return nil, errors.ErrInvalidAccountData.WithCause(err)
		}
	}

	return escrow, nil
}

// Encode returns the escrow encoding. It fails when the entry count is out of bounds.
func (e *LoanEscrow) Encode() ([]byte, error) {
	if len(e.Entries) == 0 || len(e.Entries) > MaxLoanPairs {
		return nil, errors.ErrInvalidLoanPairs.Withf("%d entries", len(e.Entries))
	}

	buf := bytes.NewBuffer(make([]byte, 0, EscrowLen(len(e.Entries))))
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteBytes(e.Borrower[:], false)
	_ = enc.WriteUint8(uint8(len(e.Entries)))
	for _, entry := range e.Entries {
		_ = enc.WriteBytes(entry.Protocol[:], false)
		_ = enc.WriteBytes(entry.Borrower[:], false)
		_ = enc.WriteUint64(entry.ExpectedBalance, bin.LE)
	}
	return buf.Bytes(), nil
}
