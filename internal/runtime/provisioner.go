package runtime

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/pkg/types"
	"github.com/lugondev/flashswap/pkg/view"
)

// Provisioner creates and closes accounts on behalf of the invoking program.
// New accounts are funded rent-exempt from a signing payer.
type Provisioner struct {
	frame *InvokeContext
}

// CreateAccount allocates space zeroed bytes at target and assigns it to owner.
// When seeds are given, target must be the calling program's address for them;
// otherwise target must have signed.
func (p *Provisioner) CreateAccount(payer, target *AccountInfo, owner solana.PublicKey, space int, seeds [][]byte) error {
	if !payer.IsSigner {
		return errors.ErrMissingRequiredSignature.Withf("payer %s", payer.Key)
	}
	if !payer.IsWritable || !target.IsWritable {
		return errors.ErrReadonlyDataModified.Withf("payer and new account must be writable")
	}
	if target.Exists() {
		return errors.ErrAccountAlreadyInitialized.Withf("account %s", target.Key)
	}
	if seeds != nil {
		addr, err := solana.CreateProgramAddress(seeds, p.frame.programID)
		if err != nil {
			return errors.ErrInvalidSeeds.WithCause(err)
		}
		if !addr.Equals(target.Key) {
			return errors.ErrInvalidSeeds.Withf("expected %s, got %s", addr, target.Key)
		}
	} else if !target.IsSigner {
		return errors.ErrMissingRequiredSignature.Withf("new account %s", target.Key)
	}

	ledger := p.frame.exec.ledger
	funder, ok := ledger.get(payer.Key)
	rent := MinimumBalance(space)
	if !ok || funder.Lamports < rent {
		return errors.ErrInsufficientFunds.Withf("payer %s needs %d lamports", payer.Key, rent)
	}
	funder.Lamports -= rent

	ledger.set(target.Key, &types.Account{
		Lamports: rent,
		Data:     make([]byte, space),
		Owner:    owner,
	})
	return nil
}

// CreateMint creates an initialized mint with authority as mint authority.
func (p *Provisioner) CreateMint(payer, target *AccountInfo, authority solana.PublicKey, decimals uint8, seeds [][]byte) error {
	if err := p.CreateAccount(payer, target, solana.TokenProgramID, view.MintLen, seeds); err != nil {
		return err
	}
	acc, _ := p.frame.exec.ledger.get(target.Key)
	copy(acc.Data, view.NewMintData(authority, decimals, 0))
	return nil
}

// CreateTokenAccount creates an empty token account of mint held by owner.
func (p *Provisioner) CreateTokenAccount(payer, target *AccountInfo, mint, owner solana.PublicKey, seeds [][]byte) error {
	m, ok := p.frame.exec.ledger.get(mint)
	if !ok || !m.Owner.Equals(solana.TokenProgramID) {
		return errors.ErrInvalidAccountData.Withf("mint %s", mint)
	}
	if _, err := view.NewMintView(m.Data); err != nil {
		return errors.ErrInvalidAccountData.WithCause(err)
	}
	if err := p.CreateAccount(payer, target, solana.TokenProgramID, view.TokenAccountLen, seeds); err != nil {
		return err
	}
	acc, _ := p.frame.exec.ledger.get(target.Key)
	copy(acc.Data, view.NewTokenAccountData(mint, owner, 0))
	return nil
}

// CloseAccount deletes target, owned by the calling program, and moves its
// lamports to destination.
func (p *Provisioner) CloseAccount(target, destination *AccountInfo) error {
	if !target.IsWritable || !destination.IsWritable {
		return errors.ErrReadonlyDataModified.Withf("closed account and destination must be writable")
	}
	if target.Key.Equals(destination.Key) {
		return errors.ErrInvalidArgument.Withf("cannot close %s into itself", target.Key)
	}
	ledger := p.frame.exec.ledger
	acc, ok := ledger.get(target.Key)
	if !ok {
		return errors.ErrUninitializedAccount.Withf("account %s", target.Key)
	}
	if !acc.Owner.Equals(p.frame.programID) {
		return errors.ErrExternalDataModified.Withf("account %s owned by %s", target.Key, acc.Owner)
	}
	if st, ok := p.frame.exec.borrows[target.Key]; ok && (st.mutable || st.shared > 0) {
		return errors.ErrAccountBorrowFailed.Withf("account %s is borrowed", target.Key)
	}

	dest, ok := ledger.get(destination.Key)
	if !ok {
		dest = &types.Account{Owner: solana.SystemProgramID}
		ledger.set(destination.Key, dest)
	}
	if dest.Lamports+acc.Lamports < dest.Lamports {
		return errors.ErrArithmeticOverflow
	}
	dest.Lamports += acc.Lamports
	delete(ledger.accounts, target.Key)
	return nil
}
