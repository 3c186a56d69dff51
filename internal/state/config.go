// Package state holds the fixed-layout records the flashswap program keeps in
// its accounts. Records are decoded into plain structs and encoded back
// explicitly; nothing aliases account memory.
package state

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/flashswap/internal/errors"
)

// ConfigLen is the encoded size of a PoolConfig.
const ConfigLen = 8 + 32 + 32 + 32 + 2 + 1 + 1 + 1 + 1

// MaxFee is the exclusive upper bound of the swap fee in basis points.
const MaxFee uint16 = 10_000

// NoAuthority marks a pool whose config can no longer be changed.
var NoAuthority = solana.PublicKey{}

// PoolConfig describes one pool for a token pair and seed.
type PoolConfig struct {
	Seed       uint64
	Authority  solana.PublicKey
	MintX      solana.PublicKey
	MintY      solana.PublicKey
	Fee        uint16
	Locked     bool
	ConfigBump uint8
	LPBump     uint8
	AuthBump   uint8
}

// LoadConfig decodes a PoolConfig from account data.
func LoadConfig(data []byte) (*PoolConfig, error) {
	if len(data) != ConfigLen {
		return nil, errors.ErrInvalidAccountData.Withf("config length %d, want %d", len(data), ConfigLen)
	}

	dec := bin.NewBinDecoder(data)
	cfg := &PoolConfig{}
	var err error

	if cfg.Seed, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, errors.ErrInvalidAccountData.WithCause(err)
	}
	for _, key := range []*solana.PublicKey{&cfg.Authority, &cfg.MintX, &cfg.MintY} {
		raw, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, errors.ErrInvalidAccountData.WithCause(err)
		}
		*key = solana.PublicKeyFromBytes(raw)
	}
	if cfg.Fee, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, errors.ErrInvalidAccountData.WithCause(err)
	}
	locked, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.ErrInvalidAccountData.WithCause(err)
	}
	switch locked {
	case 0:
	case 1:
		cfg.Locked = true
	default:
		return nil, errors.ErrInvalidAccountData.Withf("invalid locked flag %d", locked)
	}
	for _, bump := range []*uint8{&cfg.ConfigBump, &cfg.LPBump, &cfg.AuthBump} {
		if *bump, err = dec.ReadUint8(); err != nil {
			return nil, errors.ErrInvalidAccountData.WithCause(err)
		}
	}

	return cfg, nil
}

// Encode returns the fixed-size encoding of the config.
func (c *PoolConfig) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, ConfigLen))
	enc := bin.NewBinEncoder(buf)

	// writes into a bytes.Buffer never fail
	_ = enc.WriteUint64(c.Seed, bin.LE)
	_ = enc.WriteBytes(c.Authority[:], false)
	_ = enc.WriteBytes(c.MintX[:], false)
	_ = enc.WriteBytes(c.MintY[:], false)
	_ = enc.WriteUint16(c.Fee, bin.LE)
	_ = enc.WriteBool(c.Locked)
	_ = enc.WriteUint8(c.ConfigBump)
	_ = enc.WriteUint8(c.LPBump)
	_ = enc.WriteUint8(c.AuthBump)

	return buf.Bytes()
}

// WriteTo stores the config into an account buffer of exactly ConfigLen bytes.
func (c *PoolConfig) WriteTo(dst []byte) error {
	if len(dst) != ConfigLen {
		return errors.ErrInvalidAccountData.Withf("config length %d, want %d", len(dst), ConfigLen)
	}
	copy(dst, c.Encode())
	return nil
}

func (c *PoolConfig) IsLocked() bool {
	return c.Locked
}

func (c *PoolConfig) HasAuthority() bool {
	return !c.Authority.Equals(NoAuthority)
}

// ValidateFee rejects fees of 100% or more.
func ValidateFee(fee uint16) error {
	if fee >= MaxFee {
		return errors.ErrInvalidFee.Withf("fee %d bps", fee)
	}
	return nil
}

// CheckAdmin fails unless caller may administer the pool.
func (c *PoolConfig) CheckAdmin(caller solana.PublicKey) error {
	if !c.HasAuthority() {
		return errors.ErrImmutableConfig
	}
	if !caller.Equals(c.Authority) {
		return errors.ErrInvalidAuthority
	}
	return nil
}

func (c *PoolConfig) SetFee(caller solana.PublicKey, fee uint16) error {
	if err := c.CheckAdmin(caller); err != nil {
		return err
	}
	if err := ValidateFee(fee); err != nil {
		return err
	}
	c.Fee = fee
	return nil
}

// SetAuthority hands the pool to a new authority. Passing NoAuthority freezes
// the config for good.
func (c *PoolConfig) SetAuthority(caller, authority solana.PublicKey) error {
	if err := c.CheckAdmin(caller); err != nil {
		return err
	}
	c.Authority = authority
	return nil
}

func (c *PoolConfig) RemoveAuthority(caller solana.PublicKey) error {
	return c.SetAuthority(caller, NoAuthority)
}

func (c *PoolConfig) SetLocked(caller solana.PublicKey, locked bool) error {
	if err := c.CheckAdmin(caller); err != nil {
		return err
	}
	c.Locked = locked
	return nil
}
