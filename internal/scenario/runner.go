package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/sirupsen/logrus"

	"github.com/lugondev/flashswap/internal/common"
	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/program"
	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/pkg/client"
)

// Result is the outcome of one step.
type Result struct {
	Step         int
	Name         string
	Instructions []solana.Instruction
	Receipt      *runtime.Receipt
	// Mismatches lists every way the step differed from its expectation.
	Mismatches []string
}

// Passed reports whether the step met its expectation.
func (r *Result) Passed() bool {
	return len(r.Mismatches) == 0
}

// Runner replays scenarios against a runtime with the program registered.
type Runner struct {
	common.LoggerMixin

	rt    *runtime.Runtime
	cl    *client.Client
	sc    *Scenario
	keys  map[string]solana.PublicKey
	pools map[string]*client.PoolKeys
	// token accounts waiting for their mint to exist
	pending []Token
}

// NewRunner prepares sc on rt: it funds wallets and creates mints and token
// accounts that are not already in the ledger, so a scenario can continue
// from a stored snapshot.
func NewRunner(rt *runtime.Runtime, programID solana.PublicKey, sc *Scenario, logger logrus.FieldLogger) (*Runner, error) {
	r := &Runner{
		LoggerMixin: common.NewLoggerMixin(),
		rt:          rt,
		cl:          client.New(programID),
		sc:          sc,
		keys:        make(map[string]solana.PublicKey),
		pools:       make(map[string]*client.PoolKeys),
	}
	r.SetLogger(logger)

	if err := r.deriveKeys(); err != nil {
		return nil, err
	}
	if err := r.genesis(); err != nil {
		return nil, err
	}
	return r, nil
}

// Key returns the address behind a scenario name.
func (r *Runner) Key(name string) (solana.PublicKey, bool) {
	k, ok := r.keys[name]
	return k, ok
}

// Pool returns the derived addresses of a named pool.
func (r *Runner) Pool(name string) (*client.PoolKeys, bool) {
	p, ok := r.pools[name]
	return p, ok
}

// Names returns every wallet, mint and token name in sorted order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.keys))
	for n := range r.keys {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// address maps a name to a fixed key derived from the program id, so that
// equal names in different scenarios of one program collide on purpose.
func (r *Runner) address(name string) (solana.PublicKey, error) {
	return solana.CreateWithSeed(r.cl.ProgramID, name, solana.SystemProgramID)
}

func (r *Runner) deriveKeys() error {
	for _, w := range r.sc.Wallets {
		if err := r.bind(w.Name); err != nil {
			return err
		}
	}
	for _, m := range r.sc.Mints {
		if err := r.bind(m.Name); err != nil {
			return err
		}
	}
	for _, tk := range r.sc.Tokens {
		if err := r.bind(tk.Name); err != nil {
			return err
		}
	}
	for _, p := range r.sc.Pools {
		keys, err := r.cl.Pool(p.Seed, r.keys[p.MintX], r.keys[p.MintY])
		if err != nil {
			return fmt.Errorf("pool %s: %w", p.Name, err)
		}
		r.pools[p.Name] = keys
	}
	return nil
}

func (r *Runner) bind(name string) error {
	key, err := r.address(name)
	if err != nil {
		return fmt.Errorf("derive address of %q: %w", name, err)
	}
	r.keys[name] = key
	return nil
}

func (r *Runner) genesis() error {
	ledger := r.rt.Ledger()
	for _, w := range r.sc.Wallets {
		if _, ok := ledger.Account(r.keys[w.Name]); !ok {
			ledger.FundAccount(r.keys[w.Name], w.Lamports)
		}
	}
	for _, m := range r.sc.Mints {
		if _, ok := ledger.Account(r.keys[m.Name]); !ok {
			ledger.AddMint(r.keys[m.Name], r.keys[m.Authority], m.Decimals)
		}
	}
	r.pending = append(r.pending, r.sc.Tokens...)
	return r.materialize()
}

// materialize creates pending token accounts whose mint now exists.
func (r *Runner) materialize() error {
	ledger := r.rt.Ledger()
	waiting := r.pending[:0]
	for _, tk := range r.pending {
		key := r.keys[tk.Name]
		if _, ok := ledger.Account(key); ok {
			continue
		}
		mint, err := r.mintOf(tk)
		if err != nil {
			return err
		}
		if _, ok := ledger.Account(mint); !ok {
			waiting = append(waiting, tk)
			continue
		}
		owner, err := r.ownerOf(tk)
		if err != nil {
			return err
		}
		if err := ledger.AddTokenAccount(key, mint, owner, tk.Amount); err != nil {
			return fmt.Errorf("token %s: %w", tk.Name, err)
		}
		r.GetLogger().WithFields(logrus.Fields{"token": tk.Name, "address": key}).Debug("token account created")
	}
	r.pending = waiting
	return nil
}

func (r *Runner) mintOf(tk Token) (solana.PublicKey, error) {
	if pool, ok := strings.CutPrefix(tk.Mint, lpMintPrefix); ok {
		return r.pools[pool].LPMint, nil
	}
	return r.keys[tk.Mint], nil
}

func (r *Runner) ownerOf(tk Token) (solana.PublicKey, error) {
	if fee, ok := strings.CutPrefix(tk.Owner, loanOwnerPrefix); ok {
		f, err := parseFee(fee)
		if err != nil {
			return solana.PublicKey{}, err
		}
		return r.cl.LoanAuthority(f)
	}
	return r.keys[tk.Owner], nil
}

// Run executes every step in order. A step whose outcome differs from its
// expectation does not stop the run.
func (r *Runner) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, 0, len(r.sc.Steps))
	for i := range r.sc.Steps {
		res, err := r.RunStep(ctx, i)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// RunStep executes step i and compares it with its expectation. Errors
// returned here are scenario errors, not transaction failures.
func (r *Runner) RunStep(ctx context.Context, i int) (*Result, error) {
	st := r.sc.Steps[i]
	clock := r.sc.Clock
	if st.Clock != 0 {
		clock = st.Clock
	}
	r.rt.SetClock(runtime.Clock{UnixTimestamp: clock})

	ixs := make([]solana.Instruction, 0, len(st.Instructions))
	for j, op := range st.Instructions {
		ix, err := r.build(op, clock)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s) instruction %d: %w", i, st.Name, j, err)
		}
		ixs = append(ixs, ix)
	}
	signers := make([]solana.PublicKey, 0, len(st.Signers))
	for _, s := range st.Signers {
		signers = append(signers, r.keys[s])
	}
	tx, err := runtime.NewTransaction(signers, ixs...)
	if err != nil {
		return nil, fmt.Errorf("step %d (%s): %w", i, st.Name, err)
	}

	receipt, _ := r.rt.Execute(ctx, tx)
	if err := r.materialize(); err != nil {
		return nil, err
	}

	res := &Result{Step: i, Name: st.Name, Instructions: ixs, Receipt: receipt}
	r.check(res, st.Expect)

	r.GetLogger().WithFields(logrus.Fields{
		"step":   i,
		"name":   st.Name,
		"passed": res.Passed(),
		"error":  errors.CodeOf(receipt.Err),
	}).Info("step executed")
	return res, nil
}

func (r *Runner) check(res *Result, want Expect) {
	got := errors.CodeOf(res.Receipt.Err)
	switch {
	case want.Error == "" && res.Receipt.Err != nil:
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("unexpected failure: %v", res.Receipt.Err))
	case want.Error != "" && res.Receipt.Err == nil:
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("expected %s, transaction succeeded", want.Error))
	case want.Error != "" && !strings.EqualFold(want.Error, got):
		res.Mismatches = append(res.Mismatches, fmt.Sprintf("expected %s, got %v", want.Error, res.Receipt.Err))
	}

	names := make([]string, 0, len(want.Balances))
	for name := range want.Balances {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		balance, err := r.rt.Ledger().TokenBalance(r.keys[name])
		if err != nil {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("balance of %s: %v", name, err))
			continue
		}
		if balance != want.Balances[name] {
			res.Mismatches = append(res.Mismatches, fmt.Sprintf("balance of %s: want %d, got %d", name, want.Balances[name], balance))
		}
	}
}

// build turns an op into an instruction, filling defaults from the step.
func (r *Runner) build(op Op, clock int64) (solana.Instruction, error) {
	expiration := clock
	if op.Expiration != nil {
		expiration = *op.Expiration
	}
	pool, err := r.poolFor(op)
	if err != nil {
		return nil, err
	}
	user := r.keys[op.User]

	switch op.Op {
	case OpInitialize:
		var authority *solana.PublicKey
		if op.Authority != "" {
			a, ok := r.keys[op.Authority]
			if !ok {
				return nil, fmt.Errorf("unknown authority %q", op.Authority)
			}
			authority = &a
		}
		return r.cl.Initialize(user, pool, op.Fee, authority), nil

	case OpDeposit:
		return r.cl.Deposit(pool, r.liquidity(op), program.DepositArgs{
			Amount: op.Amount, MaxX: op.MaxX, MaxY: op.MaxY, Expiration: expiration,
		}), nil

	case OpWithdraw:
		return r.cl.Withdraw(pool, r.liquidity(op), program.WithdrawArgs{
			Amount: op.Amount, MinX: op.MinX, MinY: op.MinY, Expiration: expiration,
		}), nil

	case OpSwap:
		var isX bool
		switch strings.ToLower(op.Side) {
		case "x":
			isX = true
		case "y":
		default:
			return nil, fmt.Errorf("swap side must be x or y, got %q", op.Side)
		}
		return r.cl.Swap(pool, user, r.keys[op.X], r.keys[op.Y], program.SwapArgs{
			IsX: isX, Amount: op.Amount, Min: op.Min, Expiration: expiration,
		}), nil

	case OpUpdateAuthority:
		next, ok := r.keys[op.Authority]
		if !ok {
			return nil, fmt.Errorf("unknown authority %q", op.Authority)
		}
		return r.cl.UpdateAuthority(user, pool.Config, next), nil

	case OpUpdateFee:
		return r.cl.UpdateFee(user, pool.Config, op.Fee), nil

	case OpToggleLock:
		return r.cl.ToggleLock(user, pool.Config), nil

	case OpRemoveAuthority:
		return r.cl.RemoveAuthority(user, pool.Config), nil

	case OpLoan:
		pairs, err := r.pairs(op.Pairs)
		if err != nil {
			return nil, err
		}
		return r.cl.Loan(user, op.Fee, pairs)

	case OpRepay:
		pairs, err := r.pairs(op.Pairs)
		if err != nil {
			return nil, err
		}
		return r.cl.Repay(user, pairs)

	case OpTransfer:
		from, ok := r.keys[op.From]
		if !ok {
			return nil, fmt.Errorf("unknown token %q", op.From)
		}
		to, ok := r.keys[op.To]
		if !ok {
			return nil, fmt.Errorf("unknown token %q", op.To)
		}
		return token.NewTransferInstruction(op.Amount, from, to, user, nil).ValidateAndBuild()
	}
	return nil, fmt.Errorf("unknown op %q", op.Op)
}

func (r *Runner) poolFor(op Op) (*client.PoolKeys, error) {
	switch op.Op {
	case OpLoan, OpRepay, OpTransfer:
		return nil, nil
	}
	pool, ok := r.pools[op.Pool]
	if !ok {
		return nil, fmt.Errorf("unknown pool %q", op.Pool)
	}
	return pool, nil
}

func (r *Runner) liquidity(op Op) client.LiquidityAccounts {
	return client.LiquidityAccounts{
		User:   r.keys[op.User],
		UserX:  r.keys[op.X],
		UserY:  r.keys[op.Y],
		UserLP: r.keys[op.LP],
	}
}

func (r *Runner) pairs(in []Pair) ([]client.LoanPair, error) {
	out := make([]client.LoanPair, 0, len(in))
	for _, p := range in {
		protocol, ok := r.keys[p.Protocol]
		if !ok {
			return nil, fmt.Errorf("unknown token %q", p.Protocol)
		}
		borrower, ok := r.keys[p.Borrower]
		if !ok {
			return nil, fmt.Errorf("unknown token %q", p.Borrower)
		}
		out = append(out, client.LoanPair{Protocol: protocol, Borrower: borrower, Amount: p.Amount})
	}
	return out, nil
}
