// Package decoder turns raw instruction data into named, structured events.
//
// Decoders are registered per program; the registry routes data to the
// decoders of the program that received it and falls back to a catch-all
// decoder when none of them claims it.
//
//	registry := decoder.NewRegistry()
//	registry.RegisterForProgram(programID, myDecoder)
//	event, err := registry.Decode(data, &programID)
package decoder

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Event is a decoded instruction.
type Event struct {
	// Name is the instruction name.
	Name string

	// Data holds the decoded arguments, nil when the instruction has none.
	Data interface{}

	// RawData is the original payload.
	RawData []byte

	ProgramID solana.PublicKey

	// Discriminator is the prefix that selected the instruction.
	Discriminator []byte
}

func (e *Event) String() string {
	if e.Data == nil {
		return e.Name
	}
	return fmt.Sprintf("%s %+v", e.Name, e.Data)
}

// Decoder decodes the instructions of one program.
type Decoder interface {
	// Decode decodes raw data into an Event.
	Decode(data []byte) (*Event, error)

	// CanDecode reports whether data carries a known discriminator.
	CanDecode(data []byte) bool

	GetName() string

	// GetProgramID returns the program this decoder handles, or the zero
	// key when it is not bound to one.
	GetProgramID() solana.PublicKey
}

// DecoderFunc adapts plain functions to Decoder.
type DecoderFunc struct {
	name      string
	programID solana.PublicKey
	canDecode func([]byte) bool
	decode    func([]byte) (*Event, error)
}

func NewDecoderFunc(
	name string,
	programID solana.PublicKey,
	canDecode func([]byte) bool,
	decode func([]byte) (*Event, error),
) *DecoderFunc {
	return &DecoderFunc{
		name:      name,
		programID: programID,
		canDecode: canDecode,
		decode:    decode,
	}
}

func (d *DecoderFunc) Decode(data []byte) (*Event, error) {
	event, err := d.decode(data)
	if err != nil {
		return nil, err
	}
	if event.ProgramID.IsZero() {
		event.ProgramID = d.programID
	}
	if event.RawData == nil {
		event.RawData = data
	}
	return event, nil
}

func (d *DecoderFunc) CanDecode(data []byte) bool {
	return d.canDecode(data)
}

func (d *DecoderFunc) GetName() string {
	return d.name
}

func (d *DecoderFunc) GetProgramID() solana.PublicKey {
	return d.programID
}

// Registry routes data to the decoders registered for its program.
type Registry struct {
	mu               sync.RWMutex
	decoders         map[string]Decoder
	decodersByPubkey map[solana.PublicKey][]Decoder
	fallbackDecoder  Decoder
}

func NewRegistry() *Registry {
	return &Registry{
		decoders:         make(map[string]Decoder),
		decodersByPubkey: make(map[solana.PublicKey][]Decoder),
	}
}

// Register registers a decoder under its name and, when it is bound to a
// program, under that program as well.
func (r *Registry) Register(decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decoders[decoder.GetName()] = decoder
	if programID := decoder.GetProgramID(); !programID.IsZero() {
		r.decodersByPubkey[programID] = append(r.decodersByPubkey[programID], decoder)
	}
}

// RegisterForProgram binds decoder to programID regardless of the program
// the decoder reports.
func (r *Registry) RegisterForProgram(programID solana.PublicKey, decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decoders[decoder.GetName()] = decoder
	r.decodersByPubkey[programID] = append(r.decodersByPubkey[programID], decoder)
}

// SetFallbackDecoder sets the decoder used when no program decoder applies.
func (r *Registry) SetFallbackDecoder(decoder Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbackDecoder = decoder
}

func (r *Registry) Get(name string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[name]
	return d, ok
}

func (r *Registry) GetForProgram(programID solana.PublicKey) []Decoder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Decoder(nil), r.decodersByPubkey[programID]...)
}

// Decode decodes data sent to programID. Without a program every registered
// decoder is tried.
func (r *Registry) Decode(data []byte, programID *solana.PublicKey) (*Event, error) {
	r.mu.RLock()
	var candidates []Decoder
	if programID != nil {
		candidates = r.decodersByPubkey[*programID]
	} else {
		for _, name := range r.sortedNames() {
			candidates = append(candidates, r.decoders[name])
		}
	}
	fallback := r.fallbackDecoder
	r.mu.RUnlock()

	for _, d := range candidates {
		if d.CanDecode(data) {
			return d.Decode(data)
		}
	}
	if fallback != nil && fallback.CanDecode(data) {
		return fallback.Decode(data)
	}
	if programID != nil {
		return nil, fmt.Errorf("no decoder found for program %s", programID)
	}
	return nil, fmt.Errorf("no decoder found")
}

// DecodeInstructions decodes every instruction in order, failing on the
// first one no decoder accepts.
func (r *Registry) DecodeInstructions(ixs []solana.Instruction) ([]*Event, error) {
	events := make([]*Event, 0, len(ixs))
	for i, ix := range ixs {
		data, err := ix.Data()
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		programID := ix.ProgramID()
		event, err := r.Decode(data, &programID)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// ListDecoders returns the registered decoder names, sorted.
func (r *Registry) ListDecoders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw is a fallback decoder that names data by its first byte.
func Raw() Decoder {
	return NewDecoderFunc("raw", solana.PublicKey{},
		func(data []byte) bool { return len(data) > 0 },
		func(data []byte) (*Event, error) {
			return &Event{
				Name:          fmt.Sprintf("Unknown(%d)", data[0]),
				Discriminator: data[:1],
			}, nil
		},
	)
}

func DecodeU64LE(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("insufficient data for u64: need 8 bytes, got %d", len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}
