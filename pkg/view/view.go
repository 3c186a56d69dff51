// Package view reads and writes SPL token account and mint records at fixed
// offsets. Views hold the buffer they were built from; getters copy fields out
// and setters write in place, so a view over a mutable borrow edits the account.
package view

import (
	"encoding/binary"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidBuffer      = errors.New("invalid buffer size")
	ErrInvalidAccountData = errors.New("invalid account data")
)

// Token account layout.
const (
	TokenAccountLen = 165

	tokenMintOffset   = 0
	tokenOwnerOffset  = 32
	tokenAmountOffset = 64
	tokenStateOffset  = 108
)

// Mint layout.
const (
	MintLen = 82

	mintAuthorityOptionOffset = 0
	mintAuthorityOffset       = 4
	mintSupplyOffset          = 36
	mintDecimalsOffset        = 44
	mintInitializedOffset     = 45
)

// TokenAccountState mirrors the SPL account state byte.
type TokenAccountState uint8

const (
	TokenAccountUninitialized TokenAccountState = iota
	TokenAccountInitialized
	TokenAccountFrozen
)

type TokenAccountView struct {
	buffer []byte
}

func NewTokenAccountView(buffer []byte) (*TokenAccountView, error) {
	if len(buffer) != TokenAccountLen {
		return nil, ErrInvalidBuffer
	}
	v := &TokenAccountView{buffer: buffer}
	if v.State() == TokenAccountUninitialized {
		return nil, ErrInvalidAccountData
	}
	return v, nil
}

// NewTokenAccountData lays out an initialized token account.
func NewTokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	buf := make([]byte, TokenAccountLen)
	copy(buf[tokenMintOffset:], mint[:])
	copy(buf[tokenOwnerOffset:], owner[:])
	binary.LittleEndian.PutUint64(buf[tokenAmountOffset:], amount)
	buf[tokenStateOffset] = byte(TokenAccountInitialized)
	return buf
}

func (v *TokenAccountView) Mint() solana.PublicKey {
	return solana.PublicKeyFromBytes(v.buffer[tokenMintOffset : tokenMintOffset+32])
}

func (v *TokenAccountView) Owner() solana.PublicKey {
	return solana.PublicKeyFromBytes(v.buffer[tokenOwnerOffset : tokenOwnerOffset+32])
}

func (v *TokenAccountView) Amount() uint64 {
	return binary.LittleEndian.Uint64(v.buffer[tokenAmountOffset : tokenAmountOffset+8])
}

func (v *TokenAccountView) SetAmount(amount uint64) {
	binary.LittleEndian.PutUint64(v.buffer[tokenAmountOffset:tokenAmountOffset+8], amount)
}

func (v *TokenAccountView) State() TokenAccountState {
	return TokenAccountState(v.buffer[tokenStateOffset])
}

func (v *TokenAccountView) IsFrozen() bool {
	return v.State() == TokenAccountFrozen
}

type MintView struct {
	buffer []byte
}

func NewMintView(buffer []byte) (*MintView, error) {
	if len(buffer) != MintLen {
		return nil, ErrInvalidBuffer
	}
	v := &MintView{buffer: buffer}
	if !v.IsInitialized() {
		return nil, ErrInvalidAccountData
	}
	return v, nil
}

// NewMintData lays out an initialized mint with a mint authority and no
// freeze authority.
func NewMintData(authority solana.PublicKey, decimals uint8, supply uint64) []byte {
	buf := make([]byte, MintLen)
	binary.LittleEndian.PutUint32(buf[mintAuthorityOptionOffset:], 1)
	copy(buf[mintAuthorityOffset:], authority[:])
	binary.LittleEndian.PutUint64(buf[mintSupplyOffset:], supply)
	buf[mintDecimalsOffset] = decimals
	buf[mintInitializedOffset] = 1
	return buf
}

// MintAuthority returns the mint authority and whether one is set.
func (v *MintView) MintAuthority() (solana.PublicKey, bool) {
	if binary.LittleEndian.Uint32(v.buffer[mintAuthorityOptionOffset:mintAuthorityOptionOffset+4]) == 0 {
		return solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(v.buffer[mintAuthorityOffset : mintAuthorityOffset+32]), true
}

func (v *MintView) Supply() uint64 {
	return binary.LittleEndian.Uint64(v.buffer[mintSupplyOffset : mintSupplyOffset+8])
}

func (v *MintView) SetSupply(supply uint64) {
	binary.LittleEndian.PutUint64(v.buffer[mintSupplyOffset:mintSupplyOffset+8], supply)
}

func (v *MintView) Decimals() uint8 {
	return v.buffer[mintDecimalsOffset]
}

func (v *MintView) IsInitialized() bool {
	return v.buffer[mintInitializedOffset] != 0
}
