package runtime

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/pkg/decoder"
	"github.com/lugondev/flashswap/pkg/view"
)

// SPL token instruction discriminators handled by TokenProgram.
const (
	TokenInstructionTransfer uint8 = 3
	TokenInstructionMintTo   uint8 = 7
	TokenInstructionBurn     uint8 = 8
)

// TokenProgram is a builtin implementation of the SPL token instructions the
// pool needs: Transfer, MintTo and Burn with single-signer authorities.
type TokenProgram struct{}

func NewTokenProgram() *TokenProgram {
	return &TokenProgram{}
}

func (p *TokenProgram) ProgramID() solana.PublicKey {
	return solana.TokenProgramID
}

func (p *TokenProgram) Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
	if len(data) != 9 {
		return errors.ErrInvalidInstructionData.Withf("token instruction length %d", len(data))
	}
	amount := binary.LittleEndian.Uint64(data[1:9])
	if len(accounts) < 3 {
		return errors.ErrNotEnoughAccountKeys
	}

	switch data[0] {
	case TokenInstructionTransfer:
		ctx.Log("Instruction: Transfer")
		return p.transfer(accounts[0], accounts[1], accounts[2], amount)
	case TokenInstructionMintTo:
		ctx.Log("Instruction: MintTo")
		return p.mintTo(accounts[0], accounts[1], accounts[2], amount)
	case TokenInstructionBurn:
		ctx.Log("Instruction: Burn")
		return p.burn(accounts[0], accounts[1], accounts[2], amount)
	default:
		return errors.ErrInvalidInstructionData.Withf("unsupported token instruction %d", data[0])
	}
}

var tokenInstructionNames = map[uint8]string{
	TokenInstructionTransfer: "Transfer",
	TokenInstructionMintTo:   "MintTo",
	TokenInstructionBurn:     "Burn",
}

// TokenAmount is the argument of every token instruction TokenProgram runs.
type TokenAmount struct {
	Amount uint64
}

// NewTokenDecoder decodes the instructions TokenProgram understands.
func NewTokenDecoder() decoder.Decoder {
	return decoder.NewDecoderFunc("spl-token", solana.TokenProgramID,
		func(data []byte) bool {
			if len(data) != 9 {
				return false
			}
			_, ok := tokenInstructionNames[data[0]]
			return ok
		},
		func(data []byte) (*decoder.Event, error) {
			amount, err := decoder.DecodeU64LE(data[1:])
			if err != nil {
				return nil, err
			}
			return &decoder.Event{
				Name:          tokenInstructionNames[data[0]],
				Data:          TokenAmount{Amount: amount},
				Discriminator: data[:1],
			}, nil
		},
	)
}

// tokenAccount decodes a copy of a token account.
func tokenAccount(info *AccountInfo) (*view.TokenAccountView, error) {
	if !info.IsOwnedBy(solana.TokenProgramID) {
		return nil, errors.ErrInvalidAccountOwner.Withf("token account %s", info.Key)
	}
	data, err := info.ReadData()
	if err != nil {
		return nil, err
	}
	v, err := view.NewTokenAccountView(data)
	if err != nil {
		return nil, errors.ErrInvalidAccountData.WithCause(err)
	}
	if v.IsFrozen() {
		return nil, errors.ErrInvalidAccountData.Withf("token account %s is frozen", info.Key)
	}
	return v, nil
}

func checkAuthority(expected solana.PublicKey, authority *AccountInfo) error {
	if !expected.Equals(authority.Key) {
		return errors.ErrOwnerMismatch.Withf("expected %s, got %s", expected, authority.Key)
	}
	if !authority.IsSigner {
		return errors.ErrMissingRequiredSignature.Withf("authority %s", authority.Key)
	}
	return nil
}

// setAmount writes a new balance into a token account.
func setAmount(info *AccountInfo, amount uint64) error {
	return info.WriteData(func(data []byte) error {
		v, err := view.NewTokenAccountView(data)
		if err != nil {
			return errors.ErrInvalidAccountData.WithCause(err)
		}
		v.SetAmount(amount)
		return nil
	})
}

func (p *TokenProgram) transfer(src, dst, owner *AccountInfo, amount uint64) error {
	from, err := tokenAccount(src)
	if err != nil {
		return err
	}
	to, err := tokenAccount(dst)
	if err != nil {
		return err
	}
	if !from.Mint().Equals(to.Mint()) {
		return errors.ErrMintMismatch.Withf("%s -> %s", from.Mint(), to.Mint())
	}
	if err := checkAuthority(from.Owner(), owner); err != nil {
		return err
	}
	if from.Amount() < amount {
		return errors.ErrInsufficientFunds.Withf("balance %d, transfer %d", from.Amount(), amount)
	}
	if src.Key.Equals(dst.Key) {
		return nil
	}
	credited := to.Amount() + amount
	if credited < amount {
		return errors.ErrArithmeticOverflow
	}
	if err := setAmount(src, from.Amount()-amount); err != nil {
		return err
	}
	return setAmount(dst, credited)
}

func (p *TokenProgram) mintTo(mint, dst, authority *AccountInfo, amount uint64) error {
	if !mint.IsOwnedBy(solana.TokenProgramID) {
		return errors.ErrInvalidAccountOwner.Withf("mint %s", mint.Key)
	}
	data, err := mint.ReadData()
	if err != nil {
		return err
	}
	mv, err := view.NewMintView(data)
	if err != nil {
		return errors.ErrInvalidAccountData.WithCause(err)
	}
	mintAuthority, ok := mv.MintAuthority()
	if !ok {
		return errors.ErrOwnerMismatch.Withf("mint %s has a fixed supply", mint.Key)
	}
	if err := checkAuthority(mintAuthority, authority); err != nil {
		return err
	}

	to, err := tokenAccount(dst)
	if err != nil {
		return err
	}
	if !to.Mint().Equals(mint.Key) {
		return errors.ErrMintMismatch.Withf("account %s holds %s", dst.Key, to.Mint())
	}

	supply := mv.Supply() + amount
	credited := to.Amount() + amount
	if supply < amount || credited < amount {
		return errors.ErrArithmeticOverflow
	}
	if err := mint.WriteData(func(buf []byte) error {
		v, err := view.NewMintView(buf)
		if err != nil {
			return errors.ErrInvalidAccountData.WithCause(err)
		}
		v.SetSupply(supply)
		return nil
	}); err != nil {
		return err
	}
	return setAmount(dst, credited)
}

func (p *TokenProgram) burn(src, mint, owner *AccountInfo, amount uint64) error {
	from, err := tokenAccount(src)
	if err != nil {
		return err
	}
	if !from.Mint().Equals(mint.Key) {
		return errors.ErrMintMismatch.Withf("account %s holds %s", src.Key, from.Mint())
	}
	if err := checkAuthority(from.Owner(), owner); err != nil {
		return err
	}
	if from.Amount() < amount {
		return errors.ErrInsufficientFunds.Withf("balance %d, burn %d", from.Amount(), amount)
	}

	if !mint.IsOwnedBy(solana.TokenProgramID) {
		return errors.ErrInvalidAccountOwner.Withf("mint %s", mint.Key)
	}
	data, err := mint.ReadData()
	if err != nil {
		return err
	}
	mv, err := view.NewMintView(data)
	if err != nil {
		return errors.ErrInvalidAccountData.WithCause(err)
	}
	if mv.Supply() < amount {
		return errors.ErrArithmeticOverflow
	}

	if err := mint.WriteData(func(buf []byte) error {
		v, err := view.NewMintView(buf)
		if err != nil {
			return errors.ErrInvalidAccountData.WithCause(err)
		}
		v.SetSupply(mv.Supply() - amount)
		return nil
	}); err != nil {
		return err
	}
	return setAmount(src, from.Amount()-amount)
}
