// Package program implements flashswap: a constant-product pool over two
// token mints with liquidity units, plus a flash-loan escrow settled inside
// the same transaction.
//
// Every instruction re-reads and re-validates the accounts it is handed.
// Nothing is cached between calls.
package program

import (
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/lugondev/flashswap/internal/common"
	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/runtime"
)

// HandlerFunc processes one decoded instruction.
type HandlerFunc func(p *Program, ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error

var handlers = map[Instruction]HandlerFunc{
	InstructionInitialize:      (*Program).initialize,
	InstructionDeposit:         (*Program).deposit,
	InstructionWithdraw:        (*Program).withdraw,
	InstructionSwap:            (*Program).swap,
	InstructionUpdateAuthority: (*Program).updateAuthority,
	InstructionUpdateFee:       (*Program).updateFee,
	InstructionToggleLock:      (*Program).toggleLock,
	InstructionRemoveAuthority: (*Program).removeAuthority,
	InstructionLoan:            (*Program).loan,
	InstructionRepay:           (*Program).repay,
}

// Program is the flashswap program bound to the id it is deployed under.
type Program struct {
	common.LoggerMixin
	id solana.PublicKey
}

// New creates the program for id. A nil logger keeps the standard logger.
func New(id solana.PublicKey, logger logrus.FieldLogger) *Program {
	p := &Program{LoggerMixin: common.NewLoggerMixin(), id: id}
	p.SetLogger(logger)
	return p
}

// ProgramID implements runtime.Program.
func (p *Program) ProgramID() solana.PublicKey {
	return p.id
}

// Process implements runtime.Program.
func (p *Program) Process(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return errors.ErrInvalidInstructionData.Withf("empty instruction data")
	}
	disc := Instruction(data[0])
	handler, ok := handlers[disc]
	if !ok {
		return errors.ErrInvalidInstructionData.Withf("unknown instruction %d", data[0])
	}

	ctx.Log("Instruction: %s", disc)
	p.GetLogger().WithFields(logrus.Fields{
		"instruction": disc.String(),
		"accounts":    len(accounts),
		"depth":       ctx.Depth(),
	}).Debug("processing instruction")

	return handler(p, ctx, accounts, data[1:])
}
