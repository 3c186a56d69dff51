// Package introspect validates how instructions of one transaction compose.
//
// A flash loan is only safe when the transaction that takes it also settles
// it. The host has no callback primitive, so Loan and Repay look at their
// sibling instructions through a TransactionContext and refuse to run unless
// the counterpart is present.
package introspect

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/pkg/types"
)

// TransactionContext is a read-only view of the enclosing transaction.
type TransactionContext interface {
	// Instructions returns the top-level instructions in execution order.
	Instructions() []types.Instruction

	// CurrentIndex returns the position of the executing top-level instruction.
	CurrentIndex() int
}

// Match describes the sibling instruction being looked for.
type Match struct {
	ProgramID     solana.PublicKey
	Discriminator byte
	// AccountIndex is the position Account must occupy in the sibling.
	AccountIndex int
	Account      solana.PublicKey
}

// Matches reports whether ix satisfies m.
func (m Match) Matches(ix *types.Instruction) bool {
	if !ix.ProgramID.Equals(m.ProgramID) {
		return false
	}
	disc, ok := ix.Discriminator()
	if !ok || disc != m.Discriminator {
		return false
	}
	key, ok := ix.AccountAt(m.AccountIndex)
	return ok && key.Equals(m.Account)
}

// InstructionAt returns the instruction at index i.
func InstructionAt(tx TransactionContext, i int) (*types.Instruction, error) {
	ixs := tx.Instructions()
	if i < 0 || i >= len(ixs) {
		return nil, errors.ErrInvalidInstructionIndex.Withf("index %d of %d", i, len(ixs))
	}
	return &ixs[i], nil
}

// FindAfter returns the index of the first instruction after the current one
// satisfying m, or -1.
func FindAfter(tx TransactionContext, m Match) int {
	ixs := tx.Instructions()
	for i := tx.CurrentIndex() + 1; i < len(ixs); i++ {
		if m.Matches(&ixs[i]) {
			return i
		}
	}
	return -1
}

// FindBefore returns the index of the closest instruction before the current
// one satisfying m, or -1.
func FindBefore(tx TransactionContext, m Match) int {
	ixs := tx.Instructions()
	start := tx.CurrentIndex() - 1
	if start >= len(ixs) {
		start = len(ixs) - 1
	}
	for i := start; i >= 0; i-- {
		if m.Matches(&ixs[i]) {
			return i
		}
	}
	return -1
}

// RequireLaterRepay fails with MissingRepayInstruction unless a later
// instruction settles the escrow named in m.
func RequireLaterRepay(tx TransactionContext, m Match) (int, error) {
	i := FindAfter(tx, m)
	if i < 0 {
		return -1, errors.ErrMissingRepayInstruction.Withf("no repay for escrow %s after instruction %d", m.Account, tx.CurrentIndex())
	}
	return i, nil
}

// RequireEarlierLoan fails with MissingLoanInstruction unless an earlier
// instruction opened the escrow named in m.
func RequireEarlierLoan(tx TransactionContext, m Match) (int, error) {
	i := FindBefore(tx, m)
	if i < 0 {
		return -1, errors.ErrMissingLoanInstruction.Withf("no loan for escrow %s before instruction %d", m.Account, tx.CurrentIndex())
	}
	return i, nil
}

// Static is a fixed TransactionContext, used by tests and offline tooling.
type Static struct {
	List  []types.Instruction
	Index int
}

func (s *Static) Instructions() []types.Instruction { return s.List }
func (s *Static) CurrentIndex() int                 { return s.Index }
