package view

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestTokenAccountView(t *testing.T) {
	mint := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	owner := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	buf := NewTokenAccountData(mint, owner, 1_000_000)
	if len(buf) != TokenAccountLen {
		t.Fatalf("Expected length %d, got %d", TokenAccountLen, len(buf))
	}

	view, err := NewTokenAccountView(buf)
	if err != nil {
		t.Fatalf("Failed to create token account view: %v", err)
	}

	if !view.Mint().Equals(mint) {
		t.Errorf("Expected mint %s, got %s", mint, view.Mint())
	}
	if !view.Owner().Equals(owner) {
		t.Errorf("Expected owner %s, got %s", owner, view.Owner())
	}
	if view.Amount() != 1_000_000 {
		t.Errorf("Expected amount 1000000, got %d", view.Amount())
	}

	view.SetAmount(42)
	if got := binary.LittleEndian.Uint64(buf[64:72]); got != 42 {
		t.Errorf("Expected SetAmount to write through to offset 64, got %d", got)
	}
	if view.IsFrozen() {
		t.Error("Expected account not to be frozen")
	}
}

func TestTokenAccountView_InvalidBuffer(t *testing.T) {
	if _, err := NewTokenAccountView(make([]byte, 100)); err != ErrInvalidBuffer {
		t.Errorf("Expected ErrInvalidBuffer, got %v", err)
	}
	if _, err := NewTokenAccountView(make([]byte, TokenAccountLen)); err != ErrInvalidAccountData {
		t.Errorf("Expected ErrInvalidAccountData for uninitialized account, got %v", err)
	}
}

func TestMintView(t *testing.T) {
	authority := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	buf := NewMintData(authority, 6, 500)

	view, err := NewMintView(buf)
	if err != nil {
		t.Fatalf("Failed to create mint view: %v", err)
	}

	got, ok := view.MintAuthority()
	if !ok || !got.Equals(authority) {
		t.Errorf("Expected authority %s, got %s (set=%v)", authority, got, ok)
	}
	if view.Decimals() != 6 {
		t.Errorf("Expected 6 decimals, got %d", view.Decimals())
	}

	view.SetSupply(1500)
	if view.Supply() != 1500 {
		t.Errorf("Expected supply 1500, got %d", view.Supply())
	}

	binary.LittleEndian.PutUint32(buf[0:4], 0)
	if _, ok := view.MintAuthority(); ok {
		t.Error("Expected no mint authority after clearing option tag")
	}
}

func BenchmarkTokenAccountView(b *testing.B) {
	buf := NewTokenAccountData(solana.PublicKey{1}, solana.PublicKey{2}, 7)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		view, _ := NewTokenAccountView(buf)
		_ = view.Mint()
		_ = view.Owner()
		_ = view.Amount()
	}
}
