package runtime

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/pkg/types"
)

// MaxInvokeDepth bounds the invocation stack, top-level instruction included.
const MaxInvokeDepth = 4

// Clock is the chain time visible to instructions.
type Clock struct {
	Slot          uint64
	UnixTimestamp int64
}

// execution is the mutable state of one transaction.
type execution struct {
	ledger       *Ledger
	instructions []types.Instruction
	index        int
	clock        Clock
	borrows      map[solana.PublicKey]*borrowState
	logs         []string
	invocations  int
	processed    int
}

func (e *execution) log(format string, args ...any) {
	e.logs = append(e.logs, fmt.Sprintf(format, args...))
}

// InvokeContext is handed to a program for one invocation. It exposes the
// clock, the enclosing transaction and cross-program invocation.
type InvokeContext struct {
	ctx       context.Context
	rt        *Runtime
	exec      *execution
	programID solana.PublicKey
	depth     int
	byKey     map[solana.PublicKey]*AccountInfo
}

// Context returns the context the transaction runs under.
func (c *InvokeContext) Context() context.Context {
	return c.ctx
}

// ProgramID returns the id of the program being invoked.
func (c *InvokeContext) ProgramID() solana.PublicKey {
	return c.programID
}

// Depth returns the invocation depth, 1 for top-level instructions.
func (c *InvokeContext) Depth() int {
	return c.depth
}

// Clock returns the chain clock.
func (c *InvokeContext) Clock() Clock {
	return c.exec.clock
}

// Instructions returns the top-level instructions of the transaction.
func (c *InvokeContext) Instructions() []types.Instruction {
	return c.exec.instructions
}

// CurrentIndex returns the index of the executing top-level instruction.
func (c *InvokeContext) CurrentIndex() int {
	return c.exec.index
}

// Log appends a "Program log:" line to the transaction logs.
func (c *InvokeContext) Log(format string, args ...any) {
	c.exec.log("Program log: "+format, args...)
}

// Invoke runs ix as a cross-program invocation. Each seeds entry, with its
// bump included, makes the matching address of the calling program a signer.
func (c *InvokeContext) Invoke(ix solana.Instruction, signerSeeds ...[][]byte) error {
	if c.depth >= MaxInvokeDepth {
		return errors.ErrCallDepth.Withf("depth %d", c.depth+1)
	}

	inner, err := types.FromSolanaInstruction(ix)
	if err != nil {
		return errors.ErrInvalidInstructionData.WithCause(err)
	}
	program, ok := c.rt.program(inner.ProgramID)
	if !ok {
		return errors.ErrUnsupportedProgram.Withf("program %s", inner.ProgramID)
	}

	signers := make(map[solana.PublicKey]bool, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := solana.CreateProgramAddress(seeds, c.programID)
		if err != nil {
			return errors.ErrInvalidSeeds.WithCause(err)
		}
		signers[addr] = true
	}

	for _, meta := range inner.Accounts {
		caller, ok := c.byKey[meta.Pubkey]
		if !ok {
			return errors.ErrMissingAccount.Withf("account %s", meta.Pubkey)
		}
		if meta.IsWritable && !caller.IsWritable {
			return errors.ErrPrivilegeEscalation.Withf("account %s is not writable", meta.Pubkey)
		}
		if meta.IsSigner && !caller.IsSigner && !signers[meta.Pubkey] {
			return errors.ErrPrivilegeEscalation.Withf("account %s did not sign", meta.Pubkey)
		}
		if st, ok := c.exec.borrows[meta.Pubkey]; ok && st.mutable {
			return errors.ErrAccountBorrowFailed.Withf("account %s is mutably borrowed by caller", meta.Pubkey)
		}
	}

	c.exec.invocations++
	return c.rt.invoke(c.ctx, c.exec, program, inner.Accounts, inner.Data, c.depth+1)
}

// Provisioner returns the account creation helper bound to this invocation.
func (c *InvokeContext) Provisioner() *Provisioner {
	return &Provisioner{frame: c}
}
