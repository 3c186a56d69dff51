package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/internal/state"
)

// Instruction is the leading discriminator byte of every payload.
type Instruction uint8

const (
	InstructionInitialize Instruction = iota
	InstructionDeposit
	InstructionWithdraw
	InstructionSwap
	InstructionUpdateAuthority
	InstructionUpdateFee
	InstructionToggleLock
	InstructionRemoveAuthority
	InstructionLoan
	InstructionRepay
)

var instructionNames = map[Instruction]string{
	InstructionInitialize:      "Initialize",
	InstructionDeposit:         "Deposit",
	InstructionWithdraw:        "Withdraw",
	InstructionSwap:            "Swap",
	InstructionUpdateAuthority: "UpdateAuthority",
	InstructionUpdateFee:       "UpdateFee",
	InstructionToggleLock:      "ToggleLock",
	InstructionRemoveAuthority: "RemoveAuthority",
	InstructionLoan:            "Loan",
	InstructionRepay:           "Repay",
}

func (i Instruction) String() string {
	if name, ok := instructionNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Instruction(%d)", uint8(i))
}

// Payload sizes, discriminator excluded.
const (
	initializeLen              = 8 + 2
	initializeWithAuthorityLen = initializeLen + 32
	depositLen                 = 8 + 8 + 8 + 8
	withdrawLen                = depositLen
	swapLen                    = 1 + 8 + 8 + 8
	updateAuthorityLen         = 32
	updateFeeLen               = 2
	loanHeaderLen              = 2
)

// InitializeArgs creates a pool. A nil or zero Authority makes the config
// immutable from the start.
type InitializeArgs struct {
	Seed      uint64
	Fee       uint16
	Authority *solana.PublicKey
}

type DepositArgs struct {
	Amount     uint64
	MaxX       uint64
	MaxY       uint64
	Expiration int64
}

type WithdrawArgs struct {
	Amount     uint64
	MinX       uint64
	MinY       uint64
	Expiration int64
}

type SwapArgs struct {
	IsX        bool
	Amount     uint64
	Min        uint64
	Expiration int64
}

// LoanArgs holds the fee rate and one amount per (protocol, borrower) pair.
type LoanArgs struct {
	Fee     uint16
	Amounts []uint64
}

// encoder writes a discriminator-prefixed payload. Writes into a bytes.Buffer
// cannot fail, so the first error is kept only for completeness.
type encoder struct {
	buf *bytes.Buffer
	enc *bin.Encoder
}

func newEncoder(disc Instruction, size int) *encoder {
	buf := bytes.NewBuffer(make([]byte, 0, size+1))
	e := &encoder{buf: buf, enc: bin.NewBinEncoder(buf)}
	_ = e.enc.WriteUint8(uint8(disc))
	return e
}

func (e *encoder) u8(v uint8) *encoder   { _ = e.enc.WriteUint8(v); return e }
func (e *encoder) u16(v uint16) *encoder { _ = e.enc.WriteUint16(v, bin.LE); return e }
func (e *encoder) u64(v uint64) *encoder { _ = e.enc.WriteUint64(v, bin.LE); return e }
func (e *encoder) i64(v int64) *encoder  { _ = e.enc.WriteInt64(v, bin.LE); return e }
func (e *encoder) key(k solana.PublicKey) *encoder {
	_ = e.enc.WriteBytes(k[:], false)
	return e
}
func (e *encoder) bytes() []byte { return e.buf.Bytes() }

// Encode returns the instruction data for Initialize.
func (a InitializeArgs) Encode() []byte {
	e := newEncoder(InstructionInitialize, initializeWithAuthorityLen).u64(a.Seed).u16(a.Fee)
	if a.Authority != nil {
		e.key(*a.Authority)
	}
	return e.bytes()
}

func (a DepositArgs) Encode() []byte {
	return newEncoder(InstructionDeposit, depositLen).u64(a.Amount).u64(a.MaxX).u64(a.MaxY).i64(a.Expiration).bytes()
}

func (a WithdrawArgs) Encode() []byte {
	return newEncoder(InstructionWithdraw, withdrawLen).u64(a.Amount).u64(a.MinX).u64(a.MinY).i64(a.Expiration).bytes()
}

func (a SwapArgs) Encode() []byte {
	var isX uint8
	if a.IsX {
		isX = 1
	}
	return newEncoder(InstructionSwap, swapLen).u8(isX).u64(a.Amount).u64(a.Min).i64(a.Expiration).bytes()
}

func (a LoanArgs) Encode() []byte {
	e := newEncoder(InstructionLoan, loanHeaderLen+8*len(a.Amounts)).u16(a.Fee)
	for _, amount := range a.Amounts {
		e.u64(amount)
	}
	return e.bytes()
}

// EncodeUpdateAuthority returns the payload handing the pool to authority.
func EncodeUpdateAuthority(authority solana.PublicKey) []byte {
	return newEncoder(InstructionUpdateAuthority, updateAuthorityLen).key(authority).bytes()
}

func EncodeUpdateFee(fee uint16) []byte {
	return newEncoder(InstructionUpdateFee, updateFeeLen).u16(fee).bytes()
}

// EncodeEmpty returns a payload made of the discriminator alone.
func EncodeEmpty(disc Instruction) []byte {
	return []byte{uint8(disc)}
}

func checkLen(what string, payload []byte, want int) error {
	if len(payload) != want {
		return errors.ErrInvalidInstructionData.Withf("%s payload length %d, want %d", what, len(payload), want)
	}
	return nil
}

// DecodeInitialize reads an Initialize payload, discriminator excluded.
func DecodeInitialize(payload []byte) (*InitializeArgs, error) {
	if len(payload) != initializeLen && len(payload) != initializeWithAuthorityLen {
		return nil, errors.ErrInvalidInstructionData.Withf("initialize payload length %d", len(payload))
	}
	dec := bin.NewBinDecoder(payload)
	args := &InitializeArgs{}
	var err error
	if args.Seed, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, errors.DecodeFailed("seed", err)
	}
	if args.Fee, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, errors.DecodeFailed("fee", err)
	}
	if len(payload) == initializeWithAuthorityLen {
		raw, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, errors.DecodeFailed("authority", err)
		}
		if key := solana.PublicKeyFromBytes(raw); !key.Equals(state.NoAuthority) {
			args.Authority = &key
		}
	}
	return args, nil
}

// readBounded reads amount, two bounds and an expiration, rejecting zeros.
func readBounded(what string, payload []byte) (amount, a, b uint64, expiration int64, err error) {
	if err = checkLen(what, payload, depositLen); err != nil {
		return
	}
	dec := bin.NewBinDecoder(payload)
	if amount, err = dec.ReadUint64(bin.LE); err != nil {
		return 0, 0, 0, 0, errors.DecodeFailed(what, err)
	}
	if a, err = dec.ReadUint64(bin.LE); err != nil {
		return 0, 0, 0, 0, errors.DecodeFailed(what, err)
	}
	if b, err = dec.ReadUint64(bin.LE); err != nil {
		return 0, 0, 0, 0, errors.DecodeFailed(what, err)
	}
	if expiration, err = dec.ReadInt64(bin.LE); err != nil {
		return 0, 0, 0, 0, errors.DecodeFailed(what, err)
	}
	if amount == 0 || a == 0 || b == 0 {
		return 0, 0, 0, 0, errors.ErrZeroAmount.Withf("%s amounts must be non-zero", what)
	}
	return amount, a, b, expiration, nil
}

func DecodeDeposit(payload []byte) (*DepositArgs, error) {
	amount, maxX, maxY, exp, err := readBounded("deposit", payload)
	if err != nil {
		return nil, err
	}
	return &DepositArgs{Amount: amount, MaxX: maxX, MaxY: maxY, Expiration: exp}, nil
}

func DecodeWithdraw(payload []byte) (*WithdrawArgs, error) {
	amount, minX, minY, exp, err := readBounded("withdraw", payload)
	if err != nil {
		return nil, err
	}
	return &WithdrawArgs{Amount: amount, MinX: minX, MinY: minY, Expiration: exp}, nil
}

// DecodeSwap reads a Swap payload. The side flag must be 0 or 1; min may be zero.
func DecodeSwap(payload []byte) (*SwapArgs, error) {
	if err := checkLen("swap", payload, swapLen); err != nil {
		return nil, err
	}
	dec := bin.NewBinDecoder(payload)
	side, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.DecodeFailed("swap side", err)
	}
	if side > 1 {
		return nil, errors.ErrInvalidInstructionData.Withf("swap side %d", side)
	}
	args := &SwapArgs{IsX: side == 1}
	if args.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, errors.DecodeFailed("swap amount", err)
	}
	if args.Min, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, errors.DecodeFailed("swap minimum", err)
	}
	if args.Expiration, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, errors.DecodeFailed("swap expiration", err)
	}
	if args.Amount == 0 {
		return nil, errors.ErrZeroAmount.Withf("swap amount is zero")
	}
	return args, nil
}

func DecodeUpdateAuthority(payload []byte) (solana.PublicKey, error) {
	if err := checkLen("update authority", payload, updateAuthorityLen); err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(payload), nil
}

func DecodeUpdateFee(payload []byte) (uint16, error) {
	if err := checkLen("update fee", payload, updateFeeLen); err != nil {
		return 0, err
	}
	fee, err := bin.NewBinDecoder(payload).ReadUint16(bin.LE)
	if err != nil {
		return 0, errors.DecodeFailed("fee", err)
	}
	return fee, nil
}

// DecodeLoan reads a Loan payload: a fee followed by one or more amounts,
// at most state.MaxLoanPairs of them.
func DecodeLoan(payload []byte) (*LoanArgs, error) {
	if len(payload) < loanHeaderLen+8 || (len(payload)-loanHeaderLen)%8 != 0 {
		return nil, errors.ErrInvalidInstructionData.Withf("loan payload length %d", len(payload))
	}
	n := (len(payload) - loanHeaderLen) / 8
	if n > state.MaxLoanPairs {
		return nil, errors.ErrInvalidLoanPairs.Withf("%d amounts, at most %d", n, state.MaxLoanPairs)
	}

	dec := bin.NewBinDecoder(payload)
	fee, err := dec.ReadUint16(bin.LE)
	if err != nil {
		return nil, errors.DecodeFailed("loan fee", err)
	}
	args := &LoanArgs{Fee: fee, Amounts: make([]uint64, n)}
	for i := range args.Amounts {
		if args.Amounts[i], err = dec.ReadUint64(bin.LE); err != nil {
			return nil, errors.DecodeFailed("loan amount", err)
		}
		if args.Amounts[i] == 0 {
			return nil, errors.ErrZeroAmount.Withf("loan amount %d is zero", i)
		}
	}
	return args, nil
}
