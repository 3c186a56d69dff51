package program_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/address"
	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/program"
	"github.com/lugondev/flashswap/pkg/client"
)

const loanFee uint16 = 50

type lender struct {
	*harness
	protocolX solana.PublicKey
	protocolY solana.PublicKey
	borrowerX solana.PublicKey
	borrowerY solana.PublicKey
	escrow    solana.PublicKey
}

// newLender funds protocol accounts held by the 50 bps loan authority and
// gives the user small balances to pay fees from.
func newLender(t *testing.T) *lender {
	t.Helper()
	h := newHarness(t, 30)
	l := &lender{
		harness:   h,
		protocolX: solana.PublicKey{0xb1},
		protocolY: solana.PublicKey{0xb2},
		borrowerX: solana.PublicKey{0xb3},
		borrowerY: solana.PublicKey{0xb4},
	}
	authority, err := h.cl.LoanAuthority(loanFee)
	require.NoError(t, err)
	l.escrow, _, err = address.Escrow(programID, h.user)
	require.NoError(t, err)

	ledger := h.rt.Ledger()
	require.NoError(t, ledger.AddTokenAccount(l.protocolX, h.mintX, authority, 10_000))
	require.NoError(t, ledger.AddTokenAccount(l.protocolY, h.mintY, authority, 20_000))
	require.NoError(t, ledger.AddTokenAccount(l.borrowerX, h.mintX, h.user, 10))
	require.NoError(t, ledger.AddTokenAccount(l.borrowerY, h.mintY, h.user, 10))
	return l
}

func (l *lender) loanRepay(pairs []client.LoanPair, between ...solana.Instruction) ([]solana.Instruction, error) {
	loan, err := l.cl.Loan(l.user, loanFee, pairs)
	if err != nil {
		return nil, err
	}
	repay, err := l.cl.Repay(l.user, pairs)
	if err != nil {
		return nil, err
	}
	ixs := append([]solana.Instruction{loan}, between...)
	return append(ixs, repay), nil
}

func (l *lender) balances() [4]uint64 {
	return [4]uint64{l.balance(l.protocolX), l.balance(l.borrowerX), l.balance(l.protocolY), l.balance(l.borrowerY)}
}

func (l *lender) escrowExists() bool {
	_, ok := l.rt.Ledger().Account(l.escrow)
	return ok
}

func TestLoan_RepaysShortfall(t *testing.T) {
	l := newLender(t)
	lamports := l.rt.Ledger().Lamports(l.user)

	ixs, err := l.loanRepay([]client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 500}})
	require.NoError(t, err)
	receipt := l.mustExec([]solana.PublicKey{l.user}, ixs...)

	assert.Equal(t, uint64(10_002), l.balance(l.protocolX), "500 at 50 bps owes 2")
	assert.Equal(t, uint64(8), l.balance(l.borrowerX))
	assert.Contains(t, receipt.Logs, "Program log: repay 0: 502 to "+l.protocolX.String())
	assert.False(t, l.escrowExists(), "escrow is closed by repay")
	assert.Equal(t, lamports, l.rt.Ledger().Lamports(l.user), "escrow rent is refunded")
}

func TestLoan_ManualRepayment(t *testing.T) {
	l := newLender(t)

	manual := token.NewTransferInstruction(502, l.borrowerX, l.protocolX, l.user, nil).Build()
	ixs, err := l.loanRepay([]client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 500}}, manual)
	require.NoError(t, err)
	receipt := l.mustExec([]solana.PublicKey{l.user}, ixs...)

	assert.Equal(t, uint64(10_002), l.balance(l.protocolX))
	assert.Equal(t, uint64(8), l.balance(l.borrowerX))
	assert.Contains(t, receipt.Logs, "Program log: repay 0: already settled")
}

func TestLoan_MultiplePairs(t *testing.T) {
	l := newLender(t)
	pairs := []client.LoanPair{
		{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 500},
		{Protocol: l.protocolY, Borrower: l.borrowerY, Amount: 1000},
	}

	ixs, err := l.loanRepay(pairs)
	require.NoError(t, err)
	l.mustExec([]solana.PublicKey{l.user}, ixs...)

	assert.Equal(t, [4]uint64{10_002, 8, 20_005, 5}, l.balances())
}

func TestLoan_FundsUsableBeforeRepay(t *testing.T) {
	l := newLender(t)
	require.NoError(t, l.deposit(1000, 1000, 1000))

	// borrow X into the user's trading account, swap some of it, repay
	pair := client.LoanPair{Protocol: l.protocolX, Borrower: l.la.UserX, Amount: 5000}
	swap := l.cl.Swap(l.pool, l.user, l.la.UserX, l.la.UserY, program.SwapArgs{IsX: true, Amount: 100, Expiration: now})
	ixs, err := l.loanRepay([]client.LoanPair{pair}, swap)
	require.NoError(t, err)

	userX := l.balance(l.la.UserX)
	l.mustExec([]solana.PublicKey{l.user}, ixs...)

	assert.Equal(t, uint64(10_025), l.balance(l.protocolX))
	assert.Equal(t, userX-100-25, l.balance(l.la.UserX))
}

func TestLoan_WithoutRepayRollsBack(t *testing.T) {
	l := newLender(t)
	before := l.balances()

	loan, err := l.cl.Loan(l.user, loanFee, []client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 500}})
	require.NoError(t, err)
	_, err = l.exec([]solana.PublicKey{l.user}, loan)
	assert.ErrorIs(t, err, errors.ErrMissingRepayInstruction)
	assert.Equal(t, before, l.balances())
	assert.False(t, l.escrowExists())

	// a repay for another borrower does not count
	other, err := l.cl.Repay(l.admin, []client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX}})
	require.NoError(t, err)
	_, err = l.exec([]solana.PublicKey{l.user, l.admin}, loan, other)
	assert.ErrorIs(t, err, errors.ErrMissingRepayInstruction)

	// nor does one placed before the loan
	repay, err := l.cl.Repay(l.user, []client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX}})
	require.NoError(t, err)
	_, err = l.exec([]solana.PublicKey{l.user}, repay, loan)
	assert.ErrorIs(t, err, errors.ErrMissingLoanInstruction)
	assert.Equal(t, before, l.balances())
}

func TestRepay_MismatchedAccounts(t *testing.T) {
	l := newLender(t)
	before := l.balances()

	loan, err := l.cl.Loan(l.user, loanFee, []client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 500}})
	require.NoError(t, err)

	for name, pairs := range map[string][]client.LoanPair{
		"other protocol": {{Protocol: l.protocolY, Borrower: l.borrowerX}},
		"other borrower": {{Protocol: l.protocolX, Borrower: l.borrowerY}},
		"extra pair": {
			{Protocol: l.protocolX, Borrower: l.borrowerX},
			{Protocol: l.protocolY, Borrower: l.borrowerY},
		},
	} {
		repay, err := l.cl.Repay(l.user, pairs)
		require.NoError(t, err)
		_, err = l.exec([]solana.PublicKey{l.user}, loan, repay)
		assert.ErrorIs(t, err, errors.ErrInvalidAccountData, name)
		assert.Equal(t, before, l.balances(), name)
		assert.False(t, l.escrowExists(), name)
	}
}

func TestRepay_BorrowerCannotCoverFee(t *testing.T) {
	l := newLender(t)
	before := l.balances()

	spend := token.NewTransferInstruction(505, l.borrowerX, l.la.UserX, l.user, nil).Build()
	ixs, err := l.loanRepay([]client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 500}}, spend)
	require.NoError(t, err)

	_, err = l.exec([]solana.PublicKey{l.user}, ixs...)
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
	assert.Equal(t, before, l.balances())
}

func TestLoan_Rejects(t *testing.T) {
	l := newLender(t)
	signers := []solana.PublicKey{l.user}

	dup, err := l.loanRepay([]client.LoanPair{
		{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 1},
		{Protocol: l.protocolX, Borrower: l.borrowerY, Amount: 1},
	})
	require.NoError(t, err)
	_, err = l.exec(signers, dup...)
	assert.ErrorIs(t, err, errors.ErrDuplicateProtocol)

	// protocol accounts must be held by the authority of the requested fee
	loan, err := l.cl.Loan(l.user, 30, []client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 1}})
	require.NoError(t, err)
	repay, err := l.cl.Repay(l.user, []client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX}})
	require.NoError(t, err)
	_, err = l.exec(signers, loan, repay)
	assert.ErrorIs(t, err, errors.ErrOwnerMismatch)

	// more amounts than pairs
	bad := solana.NewInstruction(programID, loan.Accounts(), program.LoanArgs{Fee: 30, Amounts: []uint64{1, 2}}.Encode())
	_, err = l.exec(signers, bad, repay)
	assert.ErrorIs(t, err, errors.ErrInvalidInstructionData)

	// lending more than the protocol holds
	big, err := l.loanRepay([]client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 10_001}})
	require.NoError(t, err)
	_, err = l.exec(signers, big...)
	assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
}

func TestLoan_RequiresBorrowerSignature(t *testing.T) {
	l := newLender(t)
	ixs, err := l.loanRepay([]client.LoanPair{{Protocol: l.protocolX, Borrower: l.borrowerX, Amount: 1}})
	require.NoError(t, err)

	_, err = l.exec(nil, ixs...)
	assert.ErrorIs(t, err, errors.ErrMissingRequiredSignature)
}
