package program

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
	"github.com/lugondev/flashswap/pkg/decoder"
)

// NewDecoder returns a decoder for the instructions of the program deployed
// at programID.
func NewDecoder(programID solana.PublicKey) decoder.Decoder {
	return decoder.NewDecoderFunc("flashswap", programID, canDecode, decodeInstruction)
}

func canDecode(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	_, ok := instructionNames[Instruction(data[0])]
	return ok
}

func decodeInstruction(data []byte) (*decoder.Event, error) {
	if !canDecode(data) {
		return nil, errors.ErrInvalidInstructionData.Withf("unknown discriminator")
	}
	disc, payload := Instruction(data[0]), data[1:]

	var (
		args interface{}
		err  error
	)
	switch disc {
	case InstructionInitialize:
		args, err = deref(DecodeInitialize(payload))
	case InstructionDeposit:
		args, err = deref(DecodeDeposit(payload))
	case InstructionWithdraw:
		args, err = deref(DecodeWithdraw(payload))
	case InstructionSwap:
		args, err = deref(DecodeSwap(payload))
	case InstructionUpdateAuthority:
		args, err = DecodeUpdateAuthority(payload)
	case InstructionUpdateFee:
		args, err = DecodeUpdateFee(payload)
	case InstructionLoan:
		args, err = deref(DecodeLoan(payload))
	default:
		err = checkLen(disc.String(), payload, 0)
	}
	if err != nil {
		return nil, err
	}
	return &decoder.Event{
		Name:          disc.String(),
		Data:          args,
		RawData:       data,
		Discriminator: data[:1],
	}, nil
}

func deref[T any](v *T, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return *v, nil
}
