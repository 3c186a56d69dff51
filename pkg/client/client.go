// Package client builds flashswap instructions with their account lists in
// the order the program expects.
package client

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/address"
	"github.com/lugondev/flashswap/internal/program"
)

// Client builds instructions for one deployed program id.
type Client struct {
	ProgramID solana.PublicKey
}

func New(programID solana.PublicKey) *Client {
	return &Client{ProgramID: programID}
}

// PoolKeys are the derived addresses of a pool plus its mints.
type PoolKeys struct {
	*address.Pool
	Seed  uint64
	MintX solana.PublicKey
	MintY solana.PublicKey
}

// Pool derives every address of the pool identified by seed and its mints.
func (c *Client) Pool(seed uint64, mintX, mintY solana.PublicKey) (*PoolKeys, error) {
	addrs, err := address.DerivePool(c.ProgramID, seed, mintX, mintY)
	if err != nil {
		return nil, err
	}
	return &PoolKeys{Pool: addrs, Seed: seed, MintX: mintX, MintY: mintY}, nil
}

func (c *Client) instruction(data []byte, metas ...*solana.AccountMeta) solana.Instruction {
	return solana.NewInstruction(c.ProgramID, solana.AccountMetaSlice(metas), data)
}

func readonly(key solana.PublicKey) *solana.AccountMeta { return solana.NewAccountMeta(key, false, false) }
func writable(key solana.PublicKey) *solana.AccountMeta { return solana.NewAccountMeta(key, true, false) }
func signer(key solana.PublicKey) *solana.AccountMeta   { return solana.NewAccountMeta(key, false, true) }
func payer(key solana.PublicKey) *solana.AccountMeta    { return solana.NewAccountMeta(key, true, true) }

// Initialize creates the pool. A nil authority makes it immutable.
func (c *Client) Initialize(initializer solana.PublicKey, pool *PoolKeys, fee uint16, authority *solana.PublicKey) solana.Instruction {
	data := program.InitializeArgs{Seed: pool.Seed, Fee: fee, Authority: authority}.Encode()
	return c.instruction(data,
		payer(initializer),
		readonly(pool.MintX),
		readonly(pool.MintY),
		writable(pool.LPMint),
		writable(pool.VaultX),
		writable(pool.VaultY),
		readonly(pool.Authority),
		writable(pool.Config),
		readonly(solana.SystemProgramID),
		readonly(solana.TokenProgramID),
	)
}

// LiquidityAccounts are the user-side token accounts of Deposit and Withdraw.
type LiquidityAccounts struct {
	User   solana.PublicKey
	UserX  solana.PublicKey
	UserY  solana.PublicKey
	UserLP solana.PublicKey
}

func (c *Client) liquidity(data []byte, pool *PoolKeys, la LiquidityAccounts) solana.Instruction {
	return c.instruction(data,
		signer(la.User),
		readonly(pool.MintX),
		readonly(pool.MintY),
		writable(pool.LPMint),
		writable(pool.VaultX),
		writable(pool.VaultY),
		writable(la.UserX),
		writable(la.UserY),
		writable(la.UserLP),
		readonly(pool.Authority),
		readonly(pool.Config),
		readonly(solana.TokenProgramID),
	)
}

func (c *Client) Deposit(pool *PoolKeys, la LiquidityAccounts, args program.DepositArgs) solana.Instruction {
	return c.liquidity(args.Encode(), pool, la)
}

func (c *Client) Withdraw(pool *PoolKeys, la LiquidityAccounts, args program.WithdrawArgs) solana.Instruction {
	return c.liquidity(args.Encode(), pool, la)
}

func (c *Client) Swap(pool *PoolKeys, user, userX, userY solana.PublicKey, args program.SwapArgs) solana.Instruction {
	return c.instruction(args.Encode(),
		signer(user),
		readonly(pool.MintX),
		readonly(pool.MintY),
		writable(userX),
		writable(userY),
		writable(pool.VaultX),
		writable(pool.VaultY),
		readonly(pool.Authority),
		readonly(pool.Config),
		readonly(solana.TokenProgramID),
	)
}

func (c *Client) admin(data []byte, authority, config solana.PublicKey) solana.Instruction {
	return c.instruction(data, signer(authority), writable(config))
}

func (c *Client) UpdateAuthority(authority, config, next solana.PublicKey) solana.Instruction {
	return c.admin(program.EncodeUpdateAuthority(next), authority, config)
}

func (c *Client) UpdateFee(authority, config solana.PublicKey, fee uint16) solana.Instruction {
	return c.admin(program.EncodeUpdateFee(fee), authority, config)
}

func (c *Client) ToggleLock(authority, config solana.PublicKey) solana.Instruction {
	return c.admin(program.EncodeEmpty(program.InstructionToggleLock), authority, config)
}

func (c *Client) RemoveAuthority(authority, config solana.PublicKey) solana.Instruction {
	return c.admin(program.EncodeEmpty(program.InstructionRemoveAuthority), authority, config)
}

// LoanPair is one lender token account, the borrower token account it pays
// into, and the amount lent. Amount is ignored by Repay.
type LoanPair struct {
	Protocol solana.PublicKey
	Borrower solana.PublicKey
	Amount   uint64
}

func pairMetas(pairs []LoanPair) []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, 0, 2*len(pairs))
	for _, p := range pairs {
		metas = append(metas, writable(p.Protocol), writable(p.Borrower))
	}
	return metas
}

// LoanAuthority derives the account holding lendable funds at fee.
func (c *Client) LoanAuthority(fee uint16) (solana.PublicKey, error) {
	key, _, err := address.LoanAuthority(c.ProgramID, fee)
	return key, err
}

// Loan lends every pair's amount at fee. It must be followed by a Repay for
// the same borrower in the same transaction.
func (c *Client) Loan(borrower solana.PublicKey, fee uint16, pairs []LoanPair) (solana.Instruction, error) {
	authority, err := c.LoanAuthority(fee)
	if err != nil {
		return nil, err
	}
	escrow, _, err := address.Escrow(c.ProgramID, borrower)
	if err != nil {
		return nil, err
	}

	args := program.LoanArgs{Fee: fee, Amounts: make([]uint64, len(pairs))}
	for i, p := range pairs {
		args.Amounts[i] = p.Amount
	}
	metas := []*solana.AccountMeta{
		payer(borrower),
		readonly(authority),
		writable(escrow),
		readonly(solana.SysVarInstructionsPubkey),
		readonly(solana.TokenProgramID),
	}
	return c.instruction(args.Encode(), append(metas, pairMetas(pairs)...)...), nil
}

// Repay settles the borrower's open loan. pairs must list the loan's pairs in order.
func (c *Client) Repay(borrower solana.PublicKey, pairs []LoanPair) (solana.Instruction, error) {
	escrow, _, err := address.Escrow(c.ProgramID, borrower)
	if err != nil {
		return nil, err
	}
	metas := []*solana.AccountMeta{
		payer(borrower),
		writable(escrow),
		readonly(solana.SysVarInstructionsPubkey),
		readonly(solana.TokenProgramID),
	}
	return c.instruction(program.EncodeEmpty(program.InstructionRepay), append(metas, pairMetas(pairs)...)...), nil
}
