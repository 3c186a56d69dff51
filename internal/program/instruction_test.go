package program

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/runtime"
)

func TestInitializeArgs_Codec(t *testing.T) {
	authority := solana.PublicKey{7}

	data := InitializeArgs{Seed: 42, Fee: 30, Authority: &authority}.Encode()
	require.Len(t, data, 1+initializeWithAuthorityLen)
	assert.Equal(t, byte(InstructionInitialize), data[0])

	args, err := DecodeInitialize(data[1:])
	require.NoError(t, err)
	assert.Equal(t, uint64(42), args.Seed)
	assert.Equal(t, uint16(30), args.Fee)
	require.NotNil(t, args.Authority)
	assert.Equal(t, authority, *args.Authority)

	short := InitializeArgs{Seed: 1, Fee: 5}.Encode()
	require.Len(t, short, 1+initializeLen)
	args, err = DecodeInitialize(short[1:])
	require.NoError(t, err)
	assert.Nil(t, args.Authority)

	// an explicit zero key also means no authority
	zero := solana.PublicKey{}
	args, err = DecodeInitialize(InitializeArgs{Seed: 1, Authority: &zero}.Encode()[1:])
	require.NoError(t, err)
	assert.Nil(t, args.Authority)

	_, err = DecodeInitialize(make([]byte, 11))
	assert.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestDepositWithdraw_Codec(t *testing.T) {
	in := DepositArgs{Amount: 10, MaxX: 20, MaxY: 30, Expiration: -5}
	data := in.Encode()
	require.Len(t, data, 33)

	out, err := DecodeDeposit(data[1:])
	require.NoError(t, err)
	assert.Equal(t, in, *out)

	w, err := DecodeWithdraw(WithdrawArgs{Amount: 1, MinX: 2, MinY: 3, Expiration: 4}.Encode()[1:])
	require.NoError(t, err)
	assert.Equal(t, WithdrawArgs{Amount: 1, MinX: 2, MinY: 3, Expiration: 4}, *w)

	_, err = DecodeDeposit(DepositArgs{Amount: 1, MaxX: 0, MaxY: 1}.Encode()[1:])
	assert.ErrorIs(t, err, errors.ErrZeroAmount)

	_, err = DecodeWithdraw(data[1:20])
	assert.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestSwap_Codec(t *testing.T) {
	data := SwapArgs{IsX: true, Amount: 100, Min: 0, Expiration: 9}.Encode()
	require.Len(t, data, 26)

	args, err := DecodeSwap(data[1:])
	require.NoError(t, err)
	assert.True(t, args.IsX)
	assert.Equal(t, uint64(100), args.Amount)
	assert.Zero(t, args.Min)

	bad := append([]byte(nil), data[1:]...)
	bad[0] = 2
	_, err = DecodeSwap(bad)
	assert.ErrorIs(t, err, errors.ErrInvalidInstructionData)

	_, err = DecodeSwap(SwapArgs{Amount: 0}.Encode()[1:])
	assert.ErrorIs(t, err, errors.ErrZeroAmount)
}

func TestAdmin_Codec(t *testing.T) {
	key := solana.PublicKey{9, 9}
	got, err := DecodeUpdateAuthority(EncodeUpdateAuthority(key)[1:])
	require.NoError(t, err)
	assert.Equal(t, key, got)

	fee, err := DecodeUpdateFee(EncodeUpdateFee(250)[1:])
	require.NoError(t, err)
	assert.Equal(t, uint16(250), fee)

	assert.Equal(t, []byte{6}, EncodeEmpty(InstructionToggleLock))
	assert.Equal(t, "RemoveAuthority", InstructionRemoveAuthority.String())
	assert.Equal(t, "Instruction(42)", Instruction(42).String())
}

func TestLoan_Codec(t *testing.T) {
	args, err := DecodeLoan(LoanArgs{Fee: 50, Amounts: []uint64{500, 7}}.Encode()[1:])
	require.NoError(t, err)
	assert.Equal(t, uint16(50), args.Fee)
	assert.Equal(t, []uint64{500, 7}, args.Amounts)

	_, err = DecodeLoan([]byte{50, 0})
	assert.ErrorIs(t, err, errors.ErrInvalidInstructionData)

	_, err = DecodeLoan(LoanArgs{Fee: 50, Amounts: make([]uint64, 11)}.Encode()[1:])
	assert.ErrorIs(t, err, errors.ErrInvalidLoanPairs)

	_, err = DecodeLoan(LoanArgs{Fee: 50, Amounts: []uint64{1, 0}}.Encode()[1:])
	assert.ErrorIs(t, err, errors.ErrZeroAmount)
}

func TestSplitPairs(t *testing.T) {
	infos := func(n int) []*runtime.AccountInfo {
		out := make([]*runtime.AccountInfo, n)
		for i := range out {
			out[i] = &runtime.AccountInfo{Key: solana.PublicKey{byte(i + 1)}}
		}
		return out
	}

	pairs, err := splitPairs(infos(4))
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, solana.PublicKey{3}, pairs[1].protocol.Key)
	assert.Equal(t, solana.PublicKey{4}, pairs[1].borrower.Key)

	for _, n := range []int{0, 3, 22} {
		_, err := splitPairs(infos(n))
		assert.ErrorIs(t, err, errors.ErrInvalidLoanPairs, "n=%d", n)
	}
}

func TestCheckExpiration(t *testing.T) {
	assert.NoError(t, CheckExpiration(100, 100))
	assert.NoError(t, CheckExpiration(101, 100))
	assert.ErrorIs(t, CheckExpiration(99, 100), errors.ErrExpired)
}

func TestDecoder(t *testing.T) {
	programID := solana.PublicKey{9}
	d := NewDecoder(programID)
	assert.Equal(t, programID, d.GetProgramID())

	event, err := d.Decode(SwapArgs{IsX: true, Amount: 10, Min: 9, Expiration: 100}.Encode())
	require.NoError(t, err)
	assert.Equal(t, "Swap", event.Name)
	assert.Equal(t, SwapArgs{IsX: true, Amount: 10, Min: 9, Expiration: 100}, event.Data)
	assert.Equal(t, programID, event.ProgramID)
	assert.Equal(t, "Swap {IsX:true Amount:10 Min:9 Expiration:100}", event.String())

	event, err = d.Decode(EncodeEmpty(InstructionRepay))
	require.NoError(t, err)
	assert.Equal(t, "Repay", event.String())

	assert.False(t, d.CanDecode(nil))
	assert.False(t, d.CanDecode([]byte{42}))

	_, err = d.Decode(append(EncodeEmpty(InstructionToggleLock), 1))
	assert.Equal(t, errors.ErrCodeInvalidInstructionData, errors.CodeOf(err))
}
