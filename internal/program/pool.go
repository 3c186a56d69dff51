package program

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/address"
	"github.com/lugondev/flashswap/internal/curve"
	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/state"
)

// LPDecimals is the precision of every liquidity mint.
const LPDecimals = 6

// Account positions.
const (
	initAccountsLen     = 10
	liquidityAccountLen = 12
	swapAccountsLen     = 10
)

// initialize: initializer[s,w], mint_x, mint_y, mint_lp[w], vault_x[w],
// vault_y[w], authority, config[w], system_program, token_program.
func (p *Program) initialize(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	args, err := DecodeInitialize(payload)
	if err != nil {
		return err
	}
	if err := requireAccounts(accounts, initAccountsLen); err != nil {
		return err
	}
	initializer, mintX, mintY, mintLP := accounts[0], accounts[1], accounts[2], accounts[3]
	vaultX, vaultY, authority, config := accounts[4], accounts[5], accounts[6], accounts[7]

	if err := requireSigner(initializer); err != nil {
		return err
	}
	if err := requireKey(accounts[8], solana.SystemProgramID, errors.ErrIncorrectProgramID); err != nil {
		return err
	}
	if err := requireTokenProgram(accounts[9]); err != nil {
		return err
	}
	if err := state.ValidateFee(args.Fee); err != nil {
		return err
	}
	if mintX.Key.Equals(mintY.Key) {
		return errors.ErrIdenticalMints.Withf("mint %s", mintX.Key)
	}
	for _, m := range []*runtime.AccountInfo{mintX, mintY} {
		if _, err := readMint(m); err != nil {
			return errors.ErrInvalidMint.WithCause(err)
		}
	}

	addrs, err := address.DerivePool(p.id, args.Seed, mintX.Key, mintY.Key)
	if err != nil {
		return err
	}
	for _, c := range []struct {
		info *runtime.AccountInfo
		want solana.PublicKey
	}{
		{config, addrs.Config},
		{mintLP, addrs.LPMint},
		{authority, addrs.Authority},
		{vaultX, addrs.VaultX},
		{vaultY, addrs.VaultY},
	} {
		if err := requireKey(c.info, c.want, errors.ErrInvalidSeeds); err != nil {
			return err
		}
	}

	prov := ctx.Provisioner()
	configSeeds := address.WithBump(address.ConfigSeeds(args.Seed, mintX.Key, mintY.Key), addrs.ConfigBump)
	if err := prov.CreateAccount(initializer, config, p.id, state.ConfigLen, configSeeds); err != nil {
		return err
	}
	lpSeeds := address.WithBump(address.LPSeeds(config.Key), addrs.LPBump)
	if err := prov.CreateMint(initializer, mintLP, addrs.Authority, LPDecimals, lpSeeds); err != nil {
		return err
	}
	vaultXSeeds := address.WithBump(address.VaultSeeds(config.Key, mintX.Key), addrs.VaultXBump)
	if err := prov.CreateTokenAccount(initializer, vaultX, mintX.Key, addrs.Authority, vaultXSeeds); err != nil {
		return err
	}
	vaultYSeeds := address.WithBump(address.VaultSeeds(config.Key, mintY.Key), addrs.VaultYBump)
	if err := prov.CreateTokenAccount(initializer, vaultY, mintY.Key, addrs.Authority, vaultYSeeds); err != nil {
		return err
	}

	cfg := &state.PoolConfig{
		Seed:       args.Seed,
		Authority:  state.NoAuthority,
		MintX:      mintX.Key,
		MintY:      mintY.Key,
		Fee:        args.Fee,
		ConfigBump: addrs.ConfigBump,
		LPBump:     addrs.LPBump,
		AuthBump:   addrs.AuthBump,
	}
	if args.Authority != nil {
		cfg.Authority = *args.Authority
	}
	if err := storeConfig(config, cfg); err != nil {
		return err
	}
	ctx.Log("pool %s created, fee %d bps", config.Key, cfg.Fee)
	return nil
}

// liquidityAccounts are the shared positions of Deposit and Withdraw:
// user[s], mint_x, mint_y, mint_lp[w], vault_x[w], vault_y[w], user_x[w],
// user_y[w], user_lp[w], authority, config, token_program.
type liquidityAccounts struct {
	user, mintLP, userX, userY, userLP *runtime.AccountInfo
	pool                               *pool
	supply                             uint64
}

func (p *Program) openLiquidity(accounts []*runtime.AccountInfo) (*liquidityAccounts, error) {
	if err := requireAccounts(accounts, liquidityAccountLen); err != nil {
		return nil, err
	}
	la := &liquidityAccounts{
		user:   accounts[0],
		mintLP: accounts[3],
		userX:  accounts[6],
		userY:  accounts[7],
		userLP: accounts[8],
	}
	if err := requireSigner(la.user); err != nil {
		return nil, err
	}
	if err := requireTokenProgram(accounts[11]); err != nil {
		return nil, err
	}

	pl, err := p.openPool(accounts[10], accounts[1], accounts[2], accounts[9], accounts[4], accounts[5])
	if err != nil {
		return nil, err
	}
	la.pool = pl
	if la.supply, err = p.checkLPMint(pl, la.mintLP); err != nil {
		return nil, err
	}
	return la, nil
}

func (p *Program) deposit(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	args, err := DecodeDeposit(payload)
	if err != nil {
		return err
	}
	la, err := p.openLiquidity(accounts)
	if err != nil {
		return err
	}
	if err := CheckExpiration(args.Expiration, ctx.Clock().UnixTimestamp); err != nil {
		return err
	}

	pl := la.pool
	x, y, err := curve.DepositAmounts(pl.reserves(la.supply), args.Amount, args.MaxX, args.MaxY)
	if err != nil {
		return err
	}
	if x > args.MaxX || y > args.MaxY {
		return errors.ErrSlippageExceeded.Withf("deposit needs (%d, %d), max (%d, %d)", x, y, args.MaxX, args.MaxY)
	}

	if err := transfer(ctx, la.userX.Key, pl.vaultX.Key, la.user.Key, x, nil); err != nil {
		return err
	}
	if err := transfer(ctx, la.userY.Key, pl.vaultY.Key, la.user.Key, y, nil); err != nil {
		return err
	}
	if err := mintTo(ctx, la.mintLP.Key, la.userLP.Key, pl.authority.Key, args.Amount, pl.authSigner()); err != nil {
		return err
	}
	ctx.Log("deposit x=%d y=%d liquidity=%d", x, y, args.Amount)
	return nil
}

func (p *Program) withdraw(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	args, err := DecodeWithdraw(payload)
	if err != nil {
		return err
	}
	la, err := p.openLiquidity(accounts)
	if err != nil {
		return err
	}
	if err := CheckExpiration(args.Expiration, ctx.Clock().UnixTimestamp); err != nil {
		return err
	}

	pl := la.pool
	x, y, err := curve.WithdrawAmounts(pl.reserves(la.supply), args.Amount)
	if err != nil {
		return err
	}
	if x < args.MinX || y < args.MinY {
		return errors.ErrSlippageExceeded.Withf("withdraw yields (%d, %d), min (%d, %d)", x, y, args.MinX, args.MinY)
	}

	if err := burn(ctx, la.userLP.Key, la.mintLP.Key, la.user.Key, args.Amount); err != nil {
		return err
	}
	if err := transfer(ctx, pl.vaultX.Key, la.userX.Key, pl.authority.Key, x, pl.authSigner()); err != nil {
		return err
	}
	if err := transfer(ctx, pl.vaultY.Key, la.userY.Key, pl.authority.Key, y, pl.authSigner()); err != nil {
		return err
	}
	ctx.Log("withdraw x=%d y=%d liquidity=%d", x, y, args.Amount)
	return nil
}

// swap: user[s], mint_x, mint_y, user_x[w], user_y[w], vault_x[w], vault_y[w],
// authority, config, token_program.
func (p *Program) swap(ctx *runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	args, err := DecodeSwap(payload)
	if err != nil {
		return err
	}
	if err := requireAccounts(accounts, swapAccountsLen); err != nil {
		return err
	}
	user, userX, userY := accounts[0], accounts[3], accounts[4]
	if err := requireSigner(user); err != nil {
		return err
	}
	if err := requireTokenProgram(accounts[9]); err != nil {
		return err
	}
	pl, err := p.openPool(accounts[8], accounts[1], accounts[2], accounts[7], accounts[5], accounts[6])
	if err != nil {
		return err
	}
	if err := CheckExpiration(args.Expiration, ctx.Clock().UnixTimestamp); err != nil {
		return err
	}

	res, err := curve.Swap(pl.reserves(0), pl.cfg.Fee, args.IsX, args.Amount, args.Min)
	if err != nil {
		return err
	}

	userIn, vaultIn, vaultOut, userOut := userX, pl.vaultX, pl.vaultY, userY
	if !args.IsX {
		userIn, vaultIn, vaultOut, userOut = userY, pl.vaultY, pl.vaultX, userX
	}
	if err := transfer(ctx, userIn.Key, vaultIn.Key, user.Key, res.AmountIn, nil); err != nil {
		return err
	}
	if err := transfer(ctx, vaultOut.Key, userOut.Key, pl.authority.Key, res.AmountOut, pl.authSigner()); err != nil {
		return err
	}
	ctx.Log("swap in=%d fee=%d out=%d", res.AmountIn, res.Fee, res.AmountOut)
	return nil
}
