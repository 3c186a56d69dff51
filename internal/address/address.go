// Package address derives the program-controlled addresses used by flashswap.
// The program id is always passed in; nothing here depends on a deployed id.
package address

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
)

var (
	ConfigPrefix   = []byte("config")
	LPPrefix       = []byte("lp")
	AuthPrefix     = []byte("auth")
	VaultPrefix    = []byte("vault")
	ProtocolPrefix = []byte("protocol")
	LoanPrefix     = []byte("loan")
)

// Derive finds the canonical off-curve address and bump for seeds.
func Derive(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, 0, errors.ErrInvalidSeeds.WithCause(err)
	}
	return addr, bump, nil
}

// Verify checks that addr is the address seeds and bump produce under programID.
func Verify(addr solana.PublicKey, seeds [][]byte, bump uint8, programID solana.PublicKey) error {
	derived, err := solana.CreateProgramAddress(WithBump(seeds, bump), programID)
	if err != nil {
		return errors.ErrInvalidSeeds.WithCause(err)
	}
	if !derived.Equals(addr) {
		return errors.ErrInvalidSeeds.Withf("expected %s, got %s", derived, addr)
	}
	return nil
}

// WithBump returns seeds followed by the bump byte, ready to sign with.
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	out = append(out, seeds...)
	return append(out, []byte{bump})
}

func ConfigSeeds(seed uint64, mintX, mintY solana.PublicKey) [][]byte {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], seed)
	return [][]byte{ConfigPrefix, raw[:], mintX[:], mintY[:]}
}

func LPSeeds(config solana.PublicKey) [][]byte {
	return [][]byte{LPPrefix, config[:]}
}

func AuthSeeds(config solana.PublicKey) [][]byte {
	return [][]byte{AuthPrefix, config[:]}
}

func VaultSeeds(config, mint solana.PublicKey) [][]byte {
	return [][]byte{VaultPrefix, config[:], mint[:]}
}

func LoanAuthoritySeeds(fee uint16) [][]byte {
	var raw [2]byte
	binary.LittleEndian.PutUint16(raw[:], fee)
	return [][]byte{ProtocolPrefix, raw[:]}
}

func EscrowSeeds(borrower solana.PublicKey) [][]byte {
	return [][]byte{LoanPrefix, borrower[:]}
}

// Pool groups every address of one pool.
type Pool struct {
	Config     solana.PublicKey
	ConfigBump uint8
	LPMint     solana.PublicKey
	LPBump     uint8
	Authority  solana.PublicKey
	AuthBump   uint8
	VaultX     solana.PublicKey
	VaultXBump uint8
	VaultY     solana.PublicKey
	VaultYBump uint8
}

// DerivePool derives the config, LP mint, transfer authority and vaults of a pool.
func DerivePool(programID solana.PublicKey, seed uint64, mintX, mintY solana.PublicKey) (*Pool, error) {
	var (
		p   Pool
		err error
	)
	if p.Config, p.ConfigBump, err = Derive(ConfigSeeds(seed, mintX, mintY), programID); err != nil {
		return nil, err
	}
	if p.LPMint, p.LPBump, err = Derive(LPSeeds(p.Config), programID); err != nil {
		return nil, err
	}
	if p.Authority, p.AuthBump, err = Derive(AuthSeeds(p.Config), programID); err != nil {
		return nil, err
	}
	if p.VaultX, p.VaultXBump, err = Derive(VaultSeeds(p.Config, mintX), programID); err != nil {
		return nil, err
	}
	if p.VaultY, p.VaultYBump, err = Derive(VaultSeeds(p.Config, mintY), programID); err != nil {
		return nil, err
	}
	return &p, nil
}

func LoanAuthority(programID solana.PublicKey, fee uint16) (solana.PublicKey, uint8, error) {
	return Derive(LoanAuthoritySeeds(fee), programID)
}

func Escrow(programID, borrower solana.PublicKey) (solana.PublicKey, uint8, error) {
	return Derive(EscrowSeeds(borrower), programID)
}
