package program

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/address"
	"github.com/lugondev/flashswap/internal/curve"
	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/state"
	"github.com/lugondev/flashswap/pkg/view"
)

func requireAccounts(accounts []*runtime.AccountInfo, n int) error {
	if len(accounts) < n {
		return errors.ErrNotEnoughAccountKeys.Withf("got %d accounts, want %d", len(accounts), n)
	}
	return nil
}

func requireSigner(a *runtime.AccountInfo) error {
	if !a.IsSigner {
		return errors.ErrMissingRequiredSignature.Withf("account %s", a.Key)
	}
	return nil
}

func requireWritable(a *runtime.AccountInfo) error {
	if !a.IsWritable {
		return errors.ErrReadonlyDataModified.Withf("account %s must be writable", a.Key)
	}
	return nil
}

func requireKey(a *runtime.AccountInfo, want solana.PublicKey, code *errors.ProgramError) error {
	if !a.Key.Equals(want) {
		return code.Withf("expected %s, got %s", want, a.Key)
	}
	return nil
}

func requireTokenProgram(a *runtime.AccountInfo) error {
	return requireKey(a, solana.TokenProgramID, errors.ErrIncorrectProgramID)
}

// readTokenAccount decodes a token account owned by the token program.
func readTokenAccount(a *runtime.AccountInfo) (*view.TokenAccountView, error) {
	if !a.IsOwnedBy(solana.TokenProgramID) {
		return nil, errors.ErrInvalidAccountOwner.Withf("token account %s", a.Key)
	}
	data, err := a.ReadData()
	if err != nil {
		return nil, err
	}
	v, err := view.NewTokenAccountView(data)
	if err != nil {
		return nil, errors.ErrInvalidAccountData.Withf("token account %s", a.Key).WithCause(err)
	}
	return v, nil
}

func readMint(a *runtime.AccountInfo) (*view.MintView, error) {
	if !a.IsOwnedBy(solana.TokenProgramID) {
		return nil, errors.ErrInvalidAccountOwner.Withf("mint %s", a.Key)
	}
	data, err := a.ReadData()
	if err != nil {
		return nil, err
	}
	v, err := view.NewMintView(data)
	if err != nil {
		return nil, errors.ErrInvalidAccountData.Withf("mint %s", a.Key).WithCause(err)
	}
	return v, nil
}

// loadConfig reads the pool config and checks it lives at its derived address.
func (p *Program) loadConfig(a *runtime.AccountInfo) (*state.PoolConfig, error) {
	if !a.IsOwnedBy(p.id) {
		return nil, errors.ErrInvalidAccountOwner.Withf("config %s", a.Key)
	}
	data, err := a.ReadData()
	if err != nil {
		return nil, err
	}
	cfg, err := state.LoadConfig(data)
	if err != nil {
		return nil, err
	}
	if err := address.Verify(a.Key, address.ConfigSeeds(cfg.Seed, cfg.MintX, cfg.MintY), cfg.ConfigBump, p.id); err != nil {
		return nil, err
	}
	return cfg, nil
}

// storeConfig writes cfg back into its account.
func storeConfig(a *runtime.AccountInfo, cfg *state.PoolConfig) error {
	return a.WriteData(cfg.WriteTo)
}

// pool is a validated view of the accounts shared by Deposit, Withdraw and Swap.
type pool struct {
	cfg       *state.PoolConfig
	config    *runtime.AccountInfo
	authority *runtime.AccountInfo
	vaultX    *runtime.AccountInfo
	vaultY    *runtime.AccountInfo
	reserveX  uint64
	reserveY  uint64
}

// authSigner returns the seeds signing for the pool transfer authority.
func (pl *pool) authSigner() [][]byte {
	return address.WithBump(address.AuthSeeds(pl.config.Key), pl.cfg.AuthBump)
}

func (pl *pool) reserves(supply uint64) curve.Reserves {
	return curve.Reserves{X: pl.reserveX, Y: pl.reserveY, Supply: supply, Decimals: curve.DefaultDecimals}
}

// openPool loads the config, rejects locked pools and foreign mints, and
// checks the authority and vaults belong to the pool.
func (p *Program) openPool(config, mintX, mintY, authority, vaultX, vaultY *runtime.AccountInfo) (*pool, error) {
	cfg, err := p.loadConfig(config)
	if err != nil {
		return nil, err
	}
	if cfg.IsLocked() {
		return nil, errors.ErrPoolLocked.Withf("pool %s", config.Key)
	}
	if err := requireKey(mintX, cfg.MintX, errors.ErrInvalidMint); err != nil {
		return nil, err
	}
	if err := requireKey(mintY, cfg.MintY, errors.ErrInvalidMint); err != nil {
		return nil, err
	}
	if err := address.Verify(authority.Key, address.AuthSeeds(config.Key), cfg.AuthBump, p.id); err != nil {
		return nil, err
	}

	if err := p.requireVault(vaultX, config.Key, cfg.MintX); err != nil {
		return nil, err
	}
	if err := p.requireVault(vaultY, config.Key, cfg.MintY); err != nil {
		return nil, err
	}

	pl := &pool{cfg: cfg, config: config, authority: authority, vaultX: vaultX, vaultY: vaultY}
	if pl.reserveX, err = checkVault(vaultX, cfg.MintX, authority.Key); err != nil {
		return nil, err
	}
	if pl.reserveY, err = checkVault(vaultY, cfg.MintY, authority.Key); err != nil {
		return nil, err
	}
	return pl, nil
}

// requireVault checks vault is the pool's derived vault for mint. Vault bumps
// are not stored, so the address is derived again.
func (p *Program) requireVault(vault *runtime.AccountInfo, config, mint solana.PublicKey) error {
	derived, _, err := address.Derive(address.VaultSeeds(config, mint), p.id)
	if err != nil {
		return err
	}
	return requireKey(vault, derived, errors.ErrInvalidSeeds)
}

// checkVault returns the vault balance after checking its mint and holder.
func checkVault(vault *runtime.AccountInfo, mint, authority solana.PublicKey) (uint64, error) {
	v, err := readTokenAccount(vault)
	if err != nil {
		return 0, err
	}
	if !v.Mint().Equals(mint) {
		return 0, errors.ErrInvalidMint.Withf("vault %s holds %s", vault.Key, v.Mint())
	}
	if !v.Owner().Equals(authority) {
		return 0, errors.ErrOwnerMismatch.Withf("vault %s held by %s", vault.Key, v.Owner())
	}
	return v.Amount(), nil
}

// checkLPMint verifies the liquidity mint address and returns its supply.
func (p *Program) checkLPMint(pl *pool, mintLP *runtime.AccountInfo) (uint64, error) {
	if err := address.Verify(mintLP.Key, address.LPSeeds(pl.config.Key), pl.cfg.LPBump, p.id); err != nil {
		return 0, err
	}
	mv, err := readMint(mintLP)
	if err != nil {
		return 0, err
	}
	return mv.Supply(), nil
}
