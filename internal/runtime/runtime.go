// Package runtime is the host flashswap executes in: an account ledger,
// in-order transaction execution with whole-transaction rollback,
// cross-program invocation with program-derived signers, a builtin SPL token
// program and an account provisioner.
//
// A transaction runs against a private copy of the ledger. The copy replaces
// the ledger only when every instruction succeeds, so a failing instruction
// discards the effects of all earlier ones.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lugondev/flashswap/internal/common"
	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/metrics"
	"github.com/lugondev/flashswap/pkg/types"
)

// Program processes instructions addressed to its id.
type Program interface {
	ProgramID() solana.PublicKey
	Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error
}

// Transaction is an ordered list of instructions and the keys that signed it.
type Transaction struct {
	Signers      []solana.PublicKey
	Instructions []types.Instruction
}

// NewTransaction builds a transaction from solana-go instructions.
func NewTransaction(signers []solana.PublicKey, instructions ...solana.Instruction) (*Transaction, error) {
	tx := &Transaction{Signers: signers}
	for _, ix := range instructions {
		flat, err := types.FromSolanaInstruction(ix)
		if err != nil {
			return nil, err
		}
		tx.Instructions = append(tx.Instructions, flat)
	}
	return tx, nil
}

// Receipt describes the outcome of one transaction.
type Receipt struct {
	ID uuid.UUID
	// Logs holds the program log lines in execution order.
	Logs []string
	Err  error
	// ErrorCode is the numeric code of Err, zero on success.
	ErrorCode uint32
	// FailedInstruction is the index of the failing instruction, or -1.
	FailedInstruction int
	Invocations       int
	Duration          time.Duration
}

// Succeeded reports whether the transaction committed.
func (r *Receipt) Succeeded() bool {
	return r.Err == nil
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithClock sets the source of chain time.
func WithClock(clock func() Clock) Option {
	return func(r *Runtime) {
		r.clock = clock
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runtime) {
		r.SetLogger(logger)
	}
}

// Runtime executes transactions against a ledger, one at a time.
type Runtime struct {
	common.LoggerMixin

	mu       sync.Mutex
	ledger   *Ledger
	programs map[solana.PublicKey]Program
	clock    func() Clock
	metrics  metrics.Metrics
}

// New creates a runtime over ledger with the token program registered.
func New(ledger *Ledger, opts ...Option) *Runtime {
	if ledger == nil {
		ledger = NewLedger()
	}
	r := &Runtime{
		LoggerMixin: common.NewLoggerMixin(),
		ledger:      ledger,
		programs:    make(map[solana.PublicKey]Program),
		clock: func() Clock {
			return Clock{UnixTimestamp: time.Now().Unix()}
		},
		metrics: metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Register(NewTokenProgram())
	return r
}

// Register adds programs, replacing any registered under the same id.
func (r *Runtime) Register(programs ...Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range programs {
		r.programs[p.ProgramID()] = p
	}
}

// Ledger returns the committed ledger.
func (r *Runtime) Ledger() *Ledger {
	return r.ledger
}

// SetClock pins the chain clock.
func (r *Runtime) SetClock(c Clock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = func() Clock { return c }
}

func (r *Runtime) program(id solana.PublicKey) (Program, bool) {
	p, ok := r.programs[id]
	return p, ok
}

// Execute runs tx to completion. On failure the ledger is left untouched and
// the returned error equals Receipt.Err.
func (r *Runtime) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	receipt := &Receipt{
		ID:                uuid.New(),
		FailedInstruction: -1,
	}
	exec := &execution{
		ledger:       r.ledger.Clone(),
		instructions: tx.Instructions,
		clock:        r.clock(),
	}

	err := r.run(ctx, exec, tx)

	receipt.Logs = exec.logs
	receipt.Invocations = exec.invocations
	receipt.Duration = time.Since(start)

	logger := r.GetLogger().WithFields(logrus.Fields{
		"tx":           receipt.ID.String(),
		"instructions": len(tx.Instructions),
		"duration":     receipt.Duration,
	})
	if err != nil {
		receipt.Err = err
		receipt.ErrorCode = errors.NumberOf(err)
		receipt.FailedInstruction = exec.index
		r.record(ctx, exec, receipt)
		logger.WithError(err).WithField("failed_instruction", exec.index).Debug("transaction rolled back")
		return receipt, err
	}

	r.ledger.commit(exec.ledger)
	r.record(ctx, exec, receipt)
	logger.Debug("transaction committed")
	return receipt, nil
}

func (r *Runtime) run(ctx context.Context, exec *execution, tx *Transaction) error {
	signed := make(map[solana.PublicKey]bool, len(tx.Signers))
	for _, s := range tx.Signers {
		signed[s] = true
	}

	for i := range tx.Instructions {
		exec.index = i
		if err := ctx.Err(); err != nil {
			return errors.ErrContextCanceled.WithCause(err)
		}

		ix := &tx.Instructions[i]
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !signed[meta.Pubkey] {
				return errors.ErrMissingRequiredSignature.Withf("instruction %d: %s", i, meta.Pubkey)
			}
		}
		program, ok := r.program(ix.ProgramID)
		if !ok {
			return errors.ErrUnsupportedProgram.Withf("program %s", ix.ProgramID)
		}

		exec.borrows = make(map[solana.PublicKey]*borrowState)
		if err := r.invoke(ctx, exec, program, ix.Accounts, ix.Data, 1); err != nil {
			return errors.Wrap(err, fmt.Sprintf("instruction %d", i))
		}
		exec.processed++
	}
	return nil
}

// invoke runs one program frame.
func (r *Runtime) invoke(ctx context.Context, exec *execution, program Program, metas []types.AccountMeta, data []byte, depth int) error {
	frame := &InvokeContext{
		ctx:       ctx,
		rt:        r,
		exec:      exec,
		programID: program.ProgramID(),
		depth:     depth,
		byKey:     make(map[solana.PublicKey]*AccountInfo, len(metas)),
	}

	accounts := make([]*AccountInfo, 0, len(metas))
	for _, meta := range metas {
		info, ok := frame.byKey[meta.Pubkey]
		if !ok {
			info = &AccountInfo{Key: meta.Pubkey, frame: frame}
			frame.byKey[meta.Pubkey] = info
		}
		info.IsSigner = info.IsSigner || meta.IsSigner
		info.IsWritable = info.IsWritable || meta.IsWritable
		accounts = append(accounts, info)
	}

	exec.log("Program %s invoke [%d]", frame.programID, depth)
	if err := program.Process(frame, accounts, data); err != nil {
		exec.log("Program %s failed: %v", frame.programID, err)
		return err
	}
	exec.log("Program %s success", frame.programID)
	return nil
}

func (r *Runtime) record(ctx context.Context, exec *execution, receipt *Receipt) {
	m := r.metrics
	_ = m.IncrementCounter(ctx, metrics.MetricTransactionsExecuted, 1)
	_ = m.IncrementCounter(ctx, metrics.MetricInstructionsProcessed, uint64(exec.processed))
	_ = m.IncrementCounter(ctx, metrics.MetricCrossProgramInvocations, uint64(receipt.Invocations))
	_ = m.RecordHistogram(ctx, metrics.MetricTransactionTimeMilliseconds, float64(receipt.Duration.Microseconds())/1000)
	if receipt.Err != nil {
		_ = m.IncrementCounter(ctx, metrics.MetricTransactionsFailed, 1)
		_ = m.IncrementCounter(ctx, metrics.MetricTransactionsRolledBack, 1)
		return
	}
	_ = m.IncrementCounter(ctx, metrics.MetricTransactionsSucceeded, 1)
	_ = m.UpdateGauge(ctx, metrics.MetricLedgerAccounts, float64(r.ledger.Len()))
}
