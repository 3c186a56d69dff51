package state

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/errors"
)

func testConfig() *PoolConfig {
	return &PoolConfig{
		Seed:       42,
		Authority:  solana.PublicKey{9},
		MintX:      solana.PublicKey{1},
		MintY:      solana.PublicKey{2},
		Fee:        30,
		ConfigBump: 255,
		LPBump:     254,
		AuthBump:   253,
	}
}

func TestPoolConfig_Layout(t *testing.T) {
	cfg := testConfig()
	data := cfg.Encode()
	require.Len(t, data, ConfigLen)
	assert.Equal(t, 110, ConfigLen)

	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[0:8]))
	assert.Equal(t, byte(9), data[8])
	assert.Equal(t, byte(1), data[40])
	assert.Equal(t, byte(2), data[72])
	assert.Equal(t, uint16(30), binary.LittleEndian.Uint16(data[104:106]))
	assert.Equal(t, byte(0), data[106])
	assert.Equal(t, []byte{255, 254, 253}, data[107:110])

	loaded, err := LoadConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfig_Rejects(t *testing.T) {
	_, err := LoadConfig(make([]byte, ConfigLen-1))
	assert.ErrorIs(t, err, errors.ErrInvalidAccountData)

	data := testConfig().Encode()
	data[106] = 2
	_, err = LoadConfig(data)
	assert.ErrorIs(t, err, errors.ErrInvalidAccountData)
}

func TestPoolConfig_WriteTo(t *testing.T) {
	cfg := testConfig()
	assert.ErrorIs(t, cfg.WriteTo(make([]byte, 10)), errors.ErrInvalidAccountData)

	dst := make([]byte, ConfigLen)
	require.NoError(t, cfg.WriteTo(dst))
	assert.Equal(t, cfg.Encode(), dst)
}

func TestPoolConfig_AdminMutators(t *testing.T) {
	admin := solana.PublicKey{9}
	stranger := solana.PublicKey{7}

	t.Run("fee", func(t *testing.T) {
		cfg := testConfig()
		assert.ErrorIs(t, cfg.SetFee(stranger, 50), errors.ErrInvalidAuthority)
		assert.ErrorIs(t, cfg.SetFee(admin, MaxFee), errors.ErrInvalidFee)
		require.NoError(t, cfg.SetFee(admin, 9_999))
		assert.Equal(t, uint16(9_999), cfg.Fee)
	})

	t.Run("lock", func(t *testing.T) {
		cfg := testConfig()
		require.NoError(t, cfg.SetLocked(admin, true))
		assert.True(t, cfg.IsLocked())
		assert.ErrorIs(t, cfg.SetLocked(stranger, false), errors.ErrInvalidAuthority)
	})

	t.Run("authority", func(t *testing.T) {
		cfg := testConfig()
		require.NoError(t, cfg.SetAuthority(admin, stranger))
		assert.ErrorIs(t, cfg.SetFee(admin, 10), errors.ErrInvalidAuthority)
		require.NoError(t, cfg.SetFee(stranger, 10))
	})

	t.Run("removed authority is permanent", func(t *testing.T) {
		cfg := testConfig()
		require.NoError(t, cfg.RemoveAuthority(admin))
		assert.False(t, cfg.HasAuthority())

		assert.ErrorIs(t, cfg.SetFee(admin, 10), errors.ErrImmutableConfig)
		assert.ErrorIs(t, cfg.SetLocked(admin, true), errors.ErrImmutableConfig)
		assert.ErrorIs(t, cfg.SetAuthority(NoAuthority, admin), errors.ErrImmutableConfig)
	})
}

func TestLoanEscrow_Codec(t *testing.T) {
	escrow := &LoanEscrow{
		Borrower: solana.PublicKey{3},
		Entries: []LoanEntry{
			{Protocol: solana.PublicKey{4}, Borrower: solana.PublicKey{5}, ExpectedBalance: 1_002},
			{Protocol: solana.PublicKey{6}, Borrower: solana.PublicKey{7}, ExpectedBalance: 77},
		},
	}

	data, err := escrow.Encode()
	require.NoError(t, err)
	assert.Len(t, data, EscrowLen(2))
	assert.Equal(t, 33+2*72, len(data))

	loaded, err := LoadEscrow(data)
	require.NoError(t, err)
	assert.Equal(t, escrow, loaded)
}

func TestLoanEscrow_Bounds(t *testing.T) {
	_, err := (&LoanEscrow{}).Encode()
	assert.ErrorIs(t, err, errors.ErrInvalidLoanPairs)

	_, err = (&LoanEscrow{Entries: make([]LoanEntry, MaxLoanPairs+1)}).Encode()
	assert.ErrorIs(t, err, errors.ErrInvalidLoanPairs)

	data := make([]byte, EscrowLen(1))
	_, err = LoadEscrow(data)
	assert.ErrorIs(t, err, errors.ErrInvalidAccountData, "zero count")

	data[32] = 2
	_, err = LoadEscrow(data)
	assert.ErrorIs(t, err, errors.ErrInvalidAccountData, "length disagrees with count")
}
