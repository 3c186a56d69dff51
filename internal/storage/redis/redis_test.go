package redis

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/storage"
	"github.com/lugondev/flashswap/pkg/types"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestNewRedisRepository_NilClient(t *testing.T) {
	_, err := NewRedisRepository(nil, "x")
	assert.Error(t, err)
}

func TestKeyspace(t *testing.T) {
	k := keyspace("test")
	assert.Equal(t, "test:accounts", k.index())
	assert.Equal(t, "test:account:abc", k.account("abc"))
}

func TestRedisAccountRepository(t *testing.T) {
	client := setupTestRedis(t)
	repo, err := NewRedisRepository(client, "test")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))

	a, b := solana.PublicKey{1}, solana.PublicKey{2}
	require.NoError(t, repo.Accounts().SaveBatch(ctx, []*storage.AccountModel{
		storage.AccountToModel(a, &types.Account{Lamports: 1, Owner: solana.SystemProgramID}),
		storage.AccountToModel(b, &types.Account{Lamports: 2, Data: []byte{7}, Owner: solana.TokenProgramID}),
	}))

	got, err := repo.Accounts().FindByPubkey(ctx, b.String())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Lamports)

	owned, err := repo.Accounts().FindByOwner(ctx, solana.SystemProgramID.String())
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, a.String(), owned[0].Pubkey)

	require.NoError(t, repo.Accounts().Delete(ctx, a.String()))
	_, err = repo.Accounts().FindByPubkey(ctx, a.String())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	members, err := client.SMembers(ctx, "test:accounts").Result()
	require.NoError(t, err)
	assert.Equal(t, []string{b.String()}, members)
}

func TestRedisLedgerSnapshot(t *testing.T) {
	client := setupTestRedis(t)
	repo, err := NewRedisRepository(client, "snap")
	require.NoError(t, err)
	ctx := context.Background()

	mint, holder := solana.PublicKey{1}, solana.PublicKey{2}
	ledger := runtime.NewLedger()
	ledger.AddMint(mint, holder, 9)
	require.NoError(t, ledger.AddTokenAccount(holder, mint, holder, 33))
	require.NoError(t, storage.SaveLedger(ctx, repo.Accounts(), ledger))

	loaded, err := storage.LoadLedger(ctx, repo.Accounts())
	require.NoError(t, err)
	balance, err := loaded.TokenBalance(holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(33), balance)
}
