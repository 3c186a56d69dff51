package program_test

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/address"
	"github.com/lugondev/flashswap/internal/common"
	"github.com/lugondev/flashswap/internal/program"
	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/state"
	"github.com/lugondev/flashswap/pkg/client"
)

const now = int64(1_700_000_000)

var programID = solana.MustPublicKeyFromBase58("F1ashSwap1111111111111111111111111111111111")

type harness struct {
	t  *testing.T
	rt *runtime.Runtime
	cl *client.Client

	admin solana.PublicKey
	user  solana.PublicKey
	mintX solana.PublicKey
	mintY solana.PublicKey

	pool *client.PoolKeys
	la   client.LiquidityAccounts
}

// newHarness creates two mints, a user holding 1_000_000 of each and an
// initialized pool with the given fee, administered by h.admin.
func newHarness(t *testing.T, fee uint16) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		cl:    client.New(programID),
		admin: solana.PublicKey{0xad},
		user:  solana.PublicKey{0xee},
		mintX: solana.PublicKey{0x01},
		mintY: solana.PublicKey{0x02},
	}

	ledger := runtime.NewLedger()
	ledger.FundAccount(h.admin, 1_000_000_000)
	ledger.FundAccount(h.user, 1_000_000_000)
	ledger.AddMint(h.mintX, h.admin, 6)
	ledger.AddMint(h.mintY, h.admin, 6)

	h.la = client.LiquidityAccounts{
		User:   h.user,
		UserX:  solana.PublicKey{0xe1},
		UserY:  solana.PublicKey{0xe2},
		UserLP: solana.PublicKey{0xe3},
	}
	require.NoError(t, ledger.AddTokenAccount(h.la.UserX, h.mintX, h.user, 1_000_000))
	require.NoError(t, ledger.AddTokenAccount(h.la.UserY, h.mintY, h.user, 1_000_000))

	h.rt = runtime.New(ledger,
		runtime.WithLogger(common.DiscardLogger()),
		runtime.WithClock(func() runtime.Clock { return runtime.Clock{UnixTimestamp: now} }),
	)
	h.rt.Register(program.New(programID, common.DiscardLogger()))

	var err error
	h.pool, err = h.cl.Pool(7, h.mintX, h.mintY)
	require.NoError(t, err)

	admin := h.admin
	h.mustExec([]solana.PublicKey{h.admin}, h.cl.Initialize(h.admin, h.pool, fee, &admin))
	require.NoError(t, ledger.AddTokenAccount(h.la.UserLP, h.pool.LPMint, h.user, 0))
	return h
}

func (h *harness) exec(signers []solana.PublicKey, ixs ...solana.Instruction) (*runtime.Receipt, error) {
	h.t.Helper()
	tx, err := runtime.NewTransaction(signers, ixs...)
	require.NoError(h.t, err)
	return h.rt.Execute(context.Background(), tx)
}

func (h *harness) mustExec(signers []solana.PublicKey, ixs ...solana.Instruction) *runtime.Receipt {
	h.t.Helper()
	receipt, err := h.exec(signers, ixs...)
	require.NoError(h.t, err, "logs: %v", receiptLogs(receipt))
	return receipt
}

func receiptLogs(r *runtime.Receipt) []string {
	if r == nil {
		return nil
	}
	return r.Logs
}

func (h *harness) balance(key solana.PublicKey) uint64 {
	h.t.Helper()
	b, err := h.rt.Ledger().TokenBalance(key)
	require.NoError(h.t, err)
	return b
}

func (h *harness) supply() uint64 {
	h.t.Helper()
	s, err := h.rt.Ledger().MintSupply(h.pool.LPMint)
	require.NoError(h.t, err)
	return s
}

func (h *harness) config() *state.PoolConfig {
	h.t.Helper()
	acc, ok := h.rt.Ledger().Account(h.pool.Config)
	require.True(h.t, ok)
	cfg, err := state.LoadConfig(acc.Data)
	require.NoError(h.t, err)
	return cfg
}

// poolWith returns a copy of the pool keys with the derived addresses edited
// by fn. h.pool is left untouched.
func (h *harness) poolWith(fn func(p *address.Pool)) *client.PoolKeys {
	keys := *h.pool
	addrs := *h.pool.Pool
	fn(&addrs)
	keys.Pool = &addrs
	return &keys
}

// snapshot captures every balance a pool operation can touch.
func (h *harness) snapshot() [5]uint64 {
	return [5]uint64{
		h.balance(h.la.UserX), h.balance(h.la.UserY), h.balance(h.la.UserLP),
		h.balance(h.pool.VaultX), h.balance(h.pool.VaultY),
	}
}

func (h *harness) deposit(amount, maxX, maxY uint64) error {
	_, err := h.exec([]solana.PublicKey{h.user}, h.cl.Deposit(h.pool, h.la, program.DepositArgs{
		Amount: amount, MaxX: maxX, MaxY: maxY, Expiration: now,
	}))
	return err
}

func (h *harness) withdraw(amount, minX, minY uint64) error {
	_, err := h.exec([]solana.PublicKey{h.user}, h.cl.Withdraw(h.pool, h.la, program.WithdrawArgs{
		Amount: amount, MinX: minX, MinY: minY, Expiration: now,
	}))
	return err
}

func (h *harness) swap(isX bool, amount, minOut uint64) error {
	_, err := h.exec([]solana.PublicKey{h.user}, h.cl.Swap(h.pool, h.user, h.la.UserX, h.la.UserY, program.SwapArgs{
		IsX: isX, Amount: amount, Min: minOut, Expiration: now,
	}))
	return err
}
