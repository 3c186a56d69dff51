package runtime

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
)

// borrowState counts outstanding views of one account's data.
type borrowState struct {
	shared  int
	mutable bool
}

// AccountInfo is an account as seen by the program processing an instruction.
// Instances with the same key inside one invocation are shared.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool

	frame *InvokeContext
}

func (a *AccountInfo) state() *borrowState {
	borrows := a.frame.exec.borrows
	st, ok := borrows[a.Key]
	if !ok {
		st = &borrowState{}
		borrows[a.Key] = st
	}
	return st
}

// Exists reports whether the account is present in the ledger.
func (a *AccountInfo) Exists() bool {
	_, ok := a.frame.exec.ledger.get(a.Key)
	return ok
}

// Owner returns the owning program, or the zero key when absent.
func (a *AccountInfo) Owner() solana.PublicKey {
	acc, ok := a.frame.exec.ledger.get(a.Key)
	if !ok {
		return solana.PublicKey{}
	}
	return acc.Owner
}

// IsOwnedBy reports whether the account exists and is owned by program.
func (a *AccountInfo) IsOwnedBy(program solana.PublicKey) bool {
	return a.Exists() && a.Owner().Equals(program)
}

func (a *AccountInfo) Lamports() uint64 {
	acc, ok := a.frame.exec.ledger.get(a.Key)
	if !ok {
		return 0
	}
	return acc.Lamports
}

func (a *AccountInfo) DataLen() int {
	acc, ok := a.frame.exec.ledger.get(a.Key)
	if !ok {
		return 0
	}
	return len(acc.Data)
}

// BorrowData returns a read-only view of the account data and its release func.
// It fails while the data is mutably borrowed.
func (a *AccountInfo) BorrowData() ([]byte, func(), error) {
	acc, ok := a.frame.exec.ledger.get(a.Key)
	if !ok {
		return nil, nil, errors.ErrUninitializedAccount.Withf("account %s", a.Key)
	}
	st := a.state()
	if st.mutable {
		return nil, nil, errors.ErrAccountBorrowFailed.Withf("account %s is mutably borrowed", a.Key)
	}
	st.shared++
	released := false
	return acc.Data, func() {
		if !released {
			released = true
			st.shared--
		}
	}, nil
}

// BorrowMutData returns the writable account data and its release func. Only
// the owning program may write, only through a writable account, and only
// while no other view is outstanding.
func (a *AccountInfo) BorrowMutData() ([]byte, func(), error) {
	acc, ok := a.frame.exec.ledger.get(a.Key)
	if !ok {
		return nil, nil, errors.ErrUninitializedAccount.Withf("account %s", a.Key)
	}
	if !a.IsWritable {
		return nil, nil, errors.ErrReadonlyDataModified.Withf("account %s", a.Key)
	}
	if !acc.Owner.Equals(a.frame.programID) {
		return nil, nil, errors.ErrExternalDataModified.Withf("account %s owned by %s", a.Key, acc.Owner)
	}
	st := a.state()
	if st.mutable || st.shared > 0 {
		return nil, nil, errors.ErrAccountBorrowFailed.Withf("account %s already borrowed", a.Key)
	}
	st.mutable = true
	released := false
	return acc.Data, func() {
		if !released {
			released = true
			st.mutable = false
		}
	}, nil
}

// ReadData borrows, copies and releases the account data.
func (a *AccountInfo) ReadData() ([]byte, error) {
	data, release, err := a.BorrowData()
	if err != nil {
		return nil, err
	}
	defer release()
	return append([]byte(nil), data...), nil
}

// WriteData borrows the data mutably for the duration of fn.
func (a *AccountInfo) WriteData(fn func(data []byte) error) error {
	data, release, err := a.BorrowMutData()
	if err != nil {
		return err
	}
	defer release()
	return fn(data)
}
