package address

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/errors"
)

var (
	programA = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	programB = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	mintX    = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	mintY    = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func TestDerive_DependsOnProgramID(t *testing.T) {
	seeds := ConfigSeeds(7, mintX, mintY)

	a, bumpA, err := Derive(seeds, programA)
	require.NoError(t, err)
	b, _, err := Derive(seeds, programB)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	again, bumpAgain, err := Derive(seeds, programA)
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.Equal(t, bumpA, bumpAgain)
}

func TestVerify(t *testing.T) {
	seeds := AuthSeeds(solana.PublicKey{1})
	addr, bump, err := Derive(seeds, programA)
	require.NoError(t, err)

	assert.NoError(t, Verify(addr, seeds, bump, programA))
	assert.ErrorIs(t, Verify(addr, seeds, bump, programB), errors.ErrInvalidSeeds)
	assert.ErrorIs(t, Verify(solana.PublicKey{2}, seeds, bump, programA), errors.ErrInvalidSeeds)
}

func TestConfigSeeds_Layout(t *testing.T) {
	seeds := ConfigSeeds(0x0102, mintX, mintY)
	require.Len(t, seeds, 4)
	assert.Equal(t, []byte("config"), seeds[0])
	assert.Equal(t, []byte{0x02, 0x01, 0, 0, 0, 0, 0, 0}, seeds[1])
	assert.Equal(t, mintX[:], seeds[2])

	fee := LoanAuthoritySeeds(500)
	assert.Equal(t, []byte{0xf4, 0x01}, fee[1])
}

func TestDerivePool(t *testing.T) {
	pool, err := DerivePool(programA, 1, mintX, mintY)
	require.NoError(t, err)

	assert.NoError(t, Verify(pool.Config, ConfigSeeds(1, mintX, mintY), pool.ConfigBump, programA))
	assert.NoError(t, Verify(pool.LPMint, LPSeeds(pool.Config), pool.LPBump, programA))
	assert.NoError(t, Verify(pool.Authority, AuthSeeds(pool.Config), pool.AuthBump, programA))
	assert.NotEqual(t, pool.VaultX, pool.VaultY)

	other, err := DerivePool(programA, 2, mintX, mintY)
	require.NoError(t, err)
	assert.NotEqual(t, pool.Config, other.Config, "seed disambiguates pools of one pair")
}

func TestWithBump_DoesNotAlias(t *testing.T) {
	seeds := make([][]byte, 1, 4)
	seeds[0] = []byte("a")
	signed := WithBump(seeds, 9)
	assert.Len(t, seeds, 1)
	assert.Equal(t, [][]byte{[]byte("a"), {9}}, signed)
}
