package program

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/address"
	"github.com/lugondev/flashswap/internal/curve"
	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/introspect"
	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/state"
)

// Fixed account prefixes of Loan and Repay. Token account pairs
// (protocol[w], borrower_token[w]) follow.
const (
	loanFixedAccounts  = 5 // borrower[s,w], loan_authority, escrow[w], instructions_sysvar, token_program
	repayFixedAccounts = 4 // borrower[s,w], escrow[w], instructions_sysvar, token_program

	// positions of the escrow account, matched by introspection
	loanEscrowIndex  = 2
	repayEscrowIndex = 1
)

// loanPair is one (protocol, borrower) token account pair.
type loanPair struct {
	protocol *runtime.AccountInfo
	borrower *runtime.AccountInfo
}

// splitPairs groups the trailing accounts into pairs, 1 to state.MaxLoanPairs of them.
func splitPairs(rest []*runtime.AccountInfo) ([]loanPair, error) {
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, errors.ErrInvalidLoanPairs.Withf("%d trailing accounts", len(rest))
	}
	if len(rest)/2 > state.MaxLoanPairs {
		return nil, errors.ErrInvalidLoanPairs.Withf("%d pairs, at most %d", len(rest)/2, state.MaxLoanPairs)
	}
	pairs := make([]loanPair, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		pairs = append(pairs, loanPair{protocol: rest[i], borrower: rest[i+1]})
	}
	return pairs, nil
}

func requireInstructionsSysvar(a *runtime.AccountInfo) error {
	return requireKey(a, solana.SysVarInstructionsPubkey, errors.ErrInvalidArgument)
}

// loan moves funds from protocol accounts held by the per-fee loan authority
// to the borrower, after recording what each protocol account must hold again
// by the end of the transaction.
func (p *Program) loan(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	args, err := DecodeLoan(payload)
	if err != nil {
		return err
	}
	if err := requireAccounts(accounts, loanFixedAccounts); err != nil {
		return err
	}
	borrower, loanAuthority, escrow := accounts[0], accounts[1], accounts[2]
	pairs, err := splitPairs(accounts[loanFixedAccounts:])
	if err != nil {
		return err
	}
	if len(args.Amounts) != len(pairs) {
		return errors.ErrInvalidInstructionData.Withf("%d amounts for %d pairs", len(args.Amounts), len(pairs))
	}
	if err := state.ValidateFee(args.Fee); err != nil {
		return err
	}
	if err := requireSigner(borrower); err != nil {
		return err
	}
	if err := requireInstructionsSysvar(accounts[3]); err != nil {
		return err
	}
	if err := requireTokenProgram(accounts[4]); err != nil {
		return err
	}

	authKey, authBump, err := address.LoanAuthority(p.id, args.Fee)
	if err != nil {
		return err
	}
	if err := requireKey(loanAuthority, authKey, errors.ErrInvalidSeeds); err != nil {
		return err
	}
	escrowKey, escrowBump, err := address.Escrow(p.id, borrower.Key)
	if err != nil {
		return err
	}
	if err := requireKey(escrow, escrowKey, errors.ErrInvalidSeeds); err != nil {
		return err
	}

	seen := make(map[solana.PublicKey]bool, len(pairs))
	record := &state.LoanEscrow{Borrower: borrower.Key, Entries: make([]state.LoanEntry, 0, len(pairs))}
	for i, pair := range pairs {
		if seen[pair.protocol.Key] {
			return errors.ErrDuplicateProtocol.Withf("account %s", pair.protocol.Key)
		}
		seen[pair.protocol.Key] = true

		pv, err := readTokenAccount(pair.protocol)
		if err != nil {
			return err
		}
		if !pv.Owner().Equals(authKey) {
			return errors.ErrOwnerMismatch.Withf("protocol account %s held by %s", pair.protocol.Key, pv.Owner())
		}
		fee, err := curve.FeeOf(args.Amounts[i], args.Fee)
		if err != nil {
			return err
		}
		expected, err := curve.CheckedAdd(pv.Amount(), fee)
		if err != nil {
			return err
		}
		record.Entries = append(record.Entries, state.LoanEntry{
			Protocol:        pair.protocol.Key,
			Borrower:        pair.borrower.Key,
			ExpectedBalance: expected,
		})
	}

	if _, err := introspect.RequireLaterRepay(ctx, introspect.Match{
		ProgramID:     p.id,
		Discriminator: uint8(InstructionRepay),
		AccountIndex:  repayEscrowIndex,
		Account:       escrowKey,
	}); err != nil {
		return err
	}

	encoded, err := record.Encode()
	if err != nil {
		return err
	}
	escrowSeeds := address.WithBump(address.EscrowSeeds(borrower.Key), escrowBump)
	if err := ctx.Provisioner().CreateAccount(borrower, escrow, p.id, len(encoded), escrowSeeds); err != nil {
		return err
	}
	if err := escrow.WriteData(func(data []byte) error {
		copy(data, encoded)
		return nil
	}); err != nil {
		return err
	}

	signer := address.WithBump(address.LoanAuthoritySeeds(args.Fee), authBump)
	for i, pair := range pairs {
		if err := transfer(ctx, pair.protocol.Key, pair.borrower.Key, authKey, args.Amounts[i], signer); err != nil {
			return err
		}
		ctx.Log("loan %d: %d to %s, expected back %d", i, args.Amounts[i], pair.borrower.Key, record.Entries[i].ExpectedBalance)
	}
	return nil
}

// repay tops every protocol account up to its recorded balance from the
// paired borrower account and closes the escrow.
func (p *Program) repay(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	if err := checkLen("repay", payload, 0); err != nil {
		return err
	}
	if err := requireAccounts(accounts, repayFixedAccounts); err != nil {
		return err
	}
	borrower, escrow := accounts[0], accounts[1]
	if err := requireSigner(borrower); err != nil {
		return err
	}
	if err := requireInstructionsSysvar(accounts[2]); err != nil {
		return err
	}
	if err := requireTokenProgram(accounts[3]); err != nil {
		return err
	}

	escrowKey, _, err := address.Escrow(p.id, borrower.Key)
	if err != nil {
		return err
	}
	if err := requireKey(escrow, escrowKey, errors.ErrInvalidSeeds); err != nil {
		return err
	}
	if _, err := introspect.RequireEarlierLoan(ctx, introspect.Match{
		ProgramID:     p.id,
		Discriminator: uint8(InstructionLoan),
		AccountIndex:  loanEscrowIndex,
		Account:       escrowKey,
	}); err != nil {
		return err
	}

	if !escrow.IsOwnedBy(p.id) {
		return errors.ErrInvalidAccountOwner.Withf("escrow %s", escrow.Key)
	}
	data, err := escrow.ReadData()
	if err != nil {
		return err
	}
	record, err := state.LoadEscrow(data)
	if err != nil {
		return err
	}
	if !record.Borrower.Equals(borrower.Key) {
		return errors.ErrInvalidAccountData.Withf("escrow belongs to %s", record.Borrower)
	}

	rest := accounts[repayFixedAccounts:]
	if len(rest) != 2*len(record.Entries) {
		return errors.ErrInvalidAccountData.Withf("%d trailing accounts for %d loan entries", len(rest), len(record.Entries))
	}
	pairs, err := splitPairs(rest)
	if err != nil {
		return err
	}
	for i, entry := range record.Entries {
		if !pairs[i].protocol.Key.Equals(entry.Protocol) || !pairs[i].borrower.Key.Equals(entry.Borrower) {
			return errors.ErrInvalidAccountData.Withf("pair %d does not match the recorded loan", i)
		}
	}

	for i, entry := range record.Entries {
		pv, err := readTokenAccount(pairs[i].protocol)
		if err != nil {
			return err
		}
		if pv.Amount() >= entry.ExpectedBalance {
			ctx.Log("repay %d: already settled", i)
			continue
		}
		shortfall := entry.ExpectedBalance - pv.Amount()
		if err := transfer(ctx, entry.Borrower, entry.Protocol, borrower.Key, shortfall, nil); err != nil {
			return err
		}
		ctx.Log("repay %d: %d to %s", i, shortfall, entry.Protocol)
	}

	return ctx.Provisioner().CloseAccount(escrow, borrower)
}
