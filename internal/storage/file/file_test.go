package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/common"
	"github.com/lugondev/flashswap/internal/config"
	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/storage"
	"github.com/lugondev/flashswap/pkg/types"
)

func TestFileRepository_SaveAndFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.yaml")
	repo, err := NewFileRepository(path)
	require.NoError(t, err)

	ctx := context.Background()
	key := solana.PublicKey{1, 2, 3}
	model := storage.AccountToModel(key, &types.Account{Lamports: 42, Data: []byte{0xde, 0xad}, Owner: solana.TokenProgramID})
	require.NoError(t, repo.Accounts().Save(ctx, model))

	got, err := repo.Accounts().FindByPubkey(ctx, key.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.Lamports)

	_, err = repo.Accounts().FindByPubkey(ctx, solana.PublicKey{9}.String())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	owned, err := repo.Accounts().FindByOwner(ctx, solana.TokenProgramID.String())
	require.NoError(t, err)
	assert.Len(t, owned, 1)

	// a second handle sees what the first one wrote
	reopened, err := NewFileRepository(path)
	require.NoError(t, err)
	all, err := reopened.Accounts().FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, acc, err := all[0].ToAccount()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, acc.Data)

	require.NoError(t, repo.Accounts().Delete(ctx, key.String()))
	all, err = repo.Accounts().FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileRepository_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 7\naccounts: []\n"), 0o644))

	_, err := NewFileRepository(path)
	assert.Error(t, err)
}

func TestLedgerSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := &config.StorageConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "ledger.yaml")}

	cm, err := storage.NewConnectionManager(cfg, common.DiscardLogger())
	require.NoError(t, err)
	repo, err := cm.Connect(ctx)
	require.NoError(t, err)
	defer cm.Close()

	mint, holder, wallet := solana.PublicKey{1}, solana.PublicKey{2}, solana.PublicKey{3}
	ledger := runtime.NewLedger()
	ledger.FundAccount(wallet, 5_000)
	ledger.AddMint(mint, wallet, 6)
	require.NoError(t, ledger.AddTokenAccount(holder, mint, wallet, 750))
	require.NoError(t, storage.SaveLedger(ctx, repo.Accounts(), ledger))

	accounts, err := cm.Accounts()
	require.NoError(t, err)
	loaded, err := storage.LoadLedger(ctx, accounts)
	require.NoError(t, err)
	assert.Equal(t, ledger.Keys(), loaded.Keys())
	balance, err := loaded.TokenBalance(holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), balance)
	supply, err := loaded.MintSupply(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), supply)
	assert.Equal(t, uint64(5_000), loaded.Lamports(wallet))

	// accounts closed since the last save disappear from the store
	ledger.Delete(holder)
	require.NoError(t, storage.SaveLedger(ctx, repo.Accounts(), ledger))
	_, err = repo.Accounts().FindByPubkey(ctx, holder.String())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUnknownDriver(t *testing.T) {
	_, err := storage.NewRepositoryFromConfig(context.Background(), &config.StorageConfig{Driver: "etcd"})
	assert.ErrorContains(t, err, `storage driver "etcd" not registered`)
}
