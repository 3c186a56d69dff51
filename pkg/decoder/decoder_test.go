package decoder

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefixDecoder(name string, programID solana.PublicKey, prefix byte) Decoder {
	return NewDecoderFunc(name, programID,
		func(data []byte) bool { return len(data) > 0 && data[0] == prefix },
		func(data []byte) (*Event, error) {
			v, err := DecodeU64LE(data[1:])
			if err != nil {
				return nil, err
			}
			return &Event{Name: name, Data: v}, nil
		},
	)
}

func TestRegistry_Decode(t *testing.T) {
	progA, progB := solana.PublicKey{1}, solana.PublicKey{2}
	r := NewRegistry()
	r.Register(prefixDecoder("a", progA, 1))
	r.RegisterForProgram(progB, prefixDecoder("b", solana.PublicKey{}, 1))

	data := []byte{1, 5, 0, 0, 0, 0, 0, 0, 0}
	event, err := r.Decode(data, &progA)
	require.NoError(t, err)
	assert.Equal(t, "a", event.Name)
	assert.Equal(t, uint64(5), event.Data)
	assert.Equal(t, progA, event.ProgramID)
	assert.Equal(t, data, event.RawData)

	event, err = r.Decode(data, &progB)
	require.NoError(t, err)
	assert.Equal(t, "b", event.Name)

	_, err = r.Decode([]byte{2}, &progA)
	assert.ErrorContains(t, err, "no decoder found for program")

	_, err = r.Decode([]byte{1, 0}, &progA)
	assert.ErrorContains(t, err, "insufficient data for u64")

	assert.Equal(t, []string{"a", "b"}, r.ListDecoders())
	_, ok := r.Get("b")
	assert.True(t, ok)
	assert.Len(t, r.GetForProgram(progB), 1)
}

func TestRegistry_Fallback(t *testing.T) {
	r := NewRegistry()
	r.SetFallbackDecoder(Raw())

	event, err := r.Decode([]byte{42, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Unknown(42)", event.Name)
	assert.Equal(t, "Unknown(42)", event.String())

	_, err = r.Decode(nil, nil)
	assert.EqualError(t, err, "no decoder found")
}

func TestRegistry_DecodeInstructions(t *testing.T) {
	prog := solana.PublicKey{3}
	r := NewRegistry()
	r.Register(prefixDecoder("transfer", prog, 3))

	ixs := []solana.Instruction{
		solana.NewInstruction(prog, nil, []byte{3, 7, 0, 0, 0, 0, 0, 0, 0}),
		solana.NewInstruction(prog, nil, []byte{3, 8, 0, 0, 0, 0, 0, 0, 0}),
	}
	events, err := r.DecodeInstructions(ixs)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "transfer 8", events[1].String())

	ixs = append(ixs, solana.NewInstruction(prog, nil, []byte{4}))
	_, err = r.DecodeInstructions(ixs)
	assert.ErrorContains(t, err, "instruction 2")
}
