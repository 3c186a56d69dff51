package program

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/lugondev/flashswap/internal/runtime"
)

// Token program invocations. signer is nil when authority signed the
// enclosing instruction itself.

func transfer(ctx *runtime.InvokeContext, from, to, authority solana.PublicKey, amount uint64, signer [][]byte) error {
	ix := token.NewTransferInstruction(amount, from, to, authority, nil).Build()
	return invoke(ctx, ix, signer)
}

func mintTo(ctx *runtime.InvokeContext, mint, to, authority solana.PublicKey, amount uint64, signer [][]byte) error {
	ix := token.NewMintToInstruction(amount, mint, to, authority, nil).Build()
	return invoke(ctx, ix, signer)
}

func burn(ctx *runtime.InvokeContext, from, mint, owner solana.PublicKey, amount uint64) error {
	ix := token.NewBurnInstruction(amount, from, mint, owner, nil).Build()
	return ctx.Invoke(ix)
}

func invoke(ctx *runtime.InvokeContext, ix solana.Instruction, signer [][]byte) error {
	if signer == nil {
		return ctx.Invoke(ix)
	}
	return ctx.Invoke(ix, signer)
}
