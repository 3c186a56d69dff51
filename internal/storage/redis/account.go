package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/lugondev/flashswap/internal/storage"
)

type redisAccountRepository struct {
	client redis.Cmdable
	keys   keyspace
}

func (r *redisAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	return r.SaveBatch(ctx, []*storage.AccountModel{account})
}

func (r *redisAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	if len(accounts) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, account := range accounts {
		b, err := json.Marshal(account)
		if err != nil {
			return fmt.Errorf("marshal account %s: %w", account.Pubkey, err)
		}
		pipe.Set(ctx, r.keys.account(account.Pubkey), b, 0)
		pipe.SAdd(ctx, r.keys.index(), account.Pubkey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

func (r *redisAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	val, err := r.client.Get(ctx, r.keys.account(pubkey)).Result()
	if err == redis.Nil {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	var m storage.AccountModel
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return nil, fmt.Errorf("unmarshal account %s: %w", pubkey, err)
	}
	return &m, nil
}

func (r *redisAccountRepository) FindByOwner(ctx context.Context, owner string) ([]*storage.AccountModel, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*storage.AccountModel, 0, len(all))
	for _, m := range all {
		if m.Owner == owner {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *redisAccountRepository) FindAll(ctx context.Context) ([]*storage.AccountModel, error) {
	pubkeys, err := r.client.SMembers(ctx, r.keys.index()).Result()
	if err != nil {
		return nil, fmt.Errorf("list accounts index: %w", err)
	}
	if len(pubkeys) == 0 {
		return []*storage.AccountModel{}, nil
	}
	sort.Strings(pubkeys)

	redisKeys := make([]string, len(pubkeys))
	for i, pk := range pubkeys {
		redisKeys[i] = r.keys.account(pk)
	}
	vals, err := r.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget accounts: %w", err)
	}

	out := make([]*storage.AccountModel, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// indexed but value gone
			continue
		}
		var m storage.AccountModel
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("unmarshal account %s: %w", pubkeys[i], err)
		}
		out = append(out, &m)
	}
	return out, nil
}

func (r *redisAccountRepository) Delete(ctx context.Context, pubkey string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.keys.account(pubkey))
	pipe.SRem(ctx, r.keys.index(), pubkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
