package program

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/state"
)

// updateConfig runs mutate against the config at accounts[1] on behalf of the
// signing authority at accounts[0], then stores the result.
func (p *Program) updateConfig(accounts []*runtime.AccountInfo, mutate func(cfg *state.PoolConfig, caller solana.PublicKey) error) error {
	if err := requireAccounts(accounts, 2); err != nil {
		return err
	}
	caller, config := accounts[0], accounts[1]
	if err := requireSigner(caller); err != nil {
		return err
	}
	if err := requireWritable(config); err != nil {
		return err
	}
	cfg, err := p.loadConfig(config)
	if err != nil {
		return err
	}
	if err := mutate(cfg, caller.Key); err != nil {
		return err
	}
	return storeConfig(config, cfg)
}

func (p *Program) updateAuthority(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	authority, err := DecodeUpdateAuthority(payload)
	if err != nil {
		return err
	}
	return p.updateConfig(accounts, func(cfg *state.PoolConfig, caller solana.PublicKey) error {
		if err := cfg.SetAuthority(caller, authority); err != nil {
			return err
		}
		ctx.Log("authority set to %s", authority)
		return nil
	})
}

func (p *Program) updateFee(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	fee, err := DecodeUpdateFee(payload)
	if err != nil {
		return err
	}
	return p.updateConfig(accounts, func(cfg *state.PoolConfig, caller solana.PublicKey) error {
		if err := cfg.SetFee(caller, fee); err != nil {
			return err
		}
		ctx.Log("fee set to %d bps", fee)
		return nil
	})
}

func (p *Program) toggleLock(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	if err := checkLen("toggle lock", payload, 0); err != nil {
		return err
	}
	return p.updateConfig(accounts, func(cfg *state.PoolConfig, caller solana.PublicKey) error {
		if err := cfg.SetLocked(caller, !cfg.Locked); err != nil {
			return err
		}
		ctx.Log("locked=%t", cfg.Locked)
		return nil
	})
}

func (p *Program) removeAuthority(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	if err := checkLen("remove authority", payload, 0); err != nil {
		return err
	}
	return p.updateConfig(accounts, func(cfg *state.PoolConfig, caller solana.PublicKey) error {
		if err := cfg.RemoveAuthority(caller); err != nil {
			return err
		}
		ctx.Log("authority removed")
		return nil
	})
}
