// Package curve implements the constant-product liquidity math used by the
// pool: proportional deposit and withdraw amounts and fee-on-input swaps.
//
// All functions are pure. Products are taken in 128 bits and every result must
// fit back into a uint64, otherwise the call fails with ArithmeticOverflow.
// Deposits round up and withdrawals round down so rounding never drains the pool.
package curve

import (
	"lukechampine.com/uint128"

	"github.com/lugondev/flashswap/internal/errors"
)

// FeeDenominator is the number of basis points in 100%.
const FeeDenominator = 10_000

// DefaultDecimals is the precision used by SpotPrice when none is set.
const DefaultDecimals = 6

// Reserves is a snapshot of the pool balances and outstanding liquidity units.
type Reserves struct {
	X        uint64
	Y        uint64
	Supply   uint64
	Decimals uint8
}

// SwapResult is the resolution of a single swap.
type SwapResult struct {
	AmountIn         uint64
	Fee              uint64
	AmountInAfterFee uint64
	AmountOut        uint64
}

// DepositAmounts resolves how much of each asset must be paid for liquidity
// units. The first deposit into an empty pool takes maxX and maxY verbatim.
func DepositAmounts(r Reserves, liquidity, maxX, maxY uint64) (x, y uint64, err error) {
	if liquidity == 0 {
		return 0, 0, errors.ErrZeroAmount.Withf("liquidity is zero")
	}
	if r.Supply == 0 {
		if maxX == 0 || maxY == 0 {
			return 0, 0, errors.ErrZeroAmount.Withf("initial deposit needs both assets")
		}
		return maxX, maxY, nil
	}

	if x, err = MulDivUp(r.X, liquidity, r.Supply); err != nil {
		return 0, 0, err
	}
	if y, err = MulDivUp(r.Y, liquidity, r.Supply); err != nil {
		return 0, 0, err
	}
	if x == 0 && y == 0 {
		return 0, 0, errors.ErrZeroAmount
	}
	return x, y, nil
}

// WithdrawAmounts resolves how much of each asset liquidity units redeem for.
// Burning the whole supply returns the full reserves.
func WithdrawAmounts(r Reserves, liquidity uint64) (x, y uint64, err error) {
	if liquidity == 0 {
		return 0, 0, errors.ErrZeroAmount.Withf("liquidity is zero")
	}
	if liquidity > r.Supply {
		return 0, 0, errors.ErrInsufficientLiquidity.Withf("liquidity %d exceeds supply %d", liquidity, r.Supply)
	}
	if liquidity == r.Supply {
		return r.X, r.Y, nil
	}

	if x, err = MulDiv(r.X, liquidity, r.Supply); err != nil {
		return 0, 0, err
	}
	if y, err = MulDiv(r.Y, liquidity, r.Supply); err != nil {
		return 0, 0, err
	}
	if x == 0 && y == 0 {
		return 0, 0, errors.ErrZeroAmount
	}
	return x, y, nil
}

// Swap quotes a trade of amountIn on side X (isX) or Y. The fee is taken from
// the input and stays in the pool.
func Swap(r Reserves, fee uint16, isX bool, amountIn, minOut uint64) (SwapResult, error) {
	if fee >= FeeDenominator {
		return SwapResult{}, errors.ErrInvalidFee.Withf("fee %d bps", fee)
	}

	reserveIn, reserveOut := r.Y, r.X
	if isX {
		reserveIn, reserveOut = r.X, r.Y
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapResult{}, errors.ErrZeroAmount.Withf("pool has no liquidity")
	}

	feeAmount, err := FeeOf(amountIn, fee)
	if err != nil {
		return SwapResult{}, err
	}
	inAfterFee := amountIn - feeAmount
	if inAfterFee == 0 {
		return SwapResult{}, errors.ErrZeroAmount.Withf("input after fee is zero")
	}

	num := uint128.From64(reserveOut).Mul64(inAfterFee)
	den := uint128.From64(reserveIn).Add64(inAfterFee)
	out, err := narrow(num.Div(den))
	if err != nil {
		return SwapResult{}, err
	}
	if out == 0 {
		return SwapResult{}, errors.ErrZeroAmount.Withf("output is zero")
	}
	if out < minOut {
		return SwapResult{}, errors.ErrSlippageExceeded.Withf("output %d below minimum %d", out, minOut)
	}

	return SwapResult{
		AmountIn:         amountIn,
		Fee:              feeAmount,
		AmountInAfterFee: inAfterFee,
		AmountOut:        out,
	}, nil
}

// FeeOf returns floor(amount * fee / 10000).
func FeeOf(amount uint64, fee uint16) (uint64, error) {
	return MulDiv(amount, uint64(fee), FeeDenominator)
}

// SpotPrice returns the marginal price of one unit of the chosen side in
// units of the other, scaled by 10^Decimals.
func SpotPrice(r Reserves, isX bool) (uint64, error) {
	base, quote := r.Y, r.X
	if isX {
		base, quote = r.X, r.Y
	}
	if base == 0 {
		return 0, errors.ErrZeroAmount.Withf("pool has no liquidity")
	}
	decimals := r.Decimals
	if decimals == 0 {
		decimals = DefaultDecimals
	}
	scale := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		if scale > ^uint64(0)/10 {
			return 0, errors.ErrArithmeticOverflow
		}
		scale *= 10
	}
	return MulDiv(quote, scale, base)
}

// Invariant returns k = x * y.
func Invariant(x, y uint64) uint128.Uint128 {
	return uint128.From64(x).Mul64(y)
}

// MulDiv returns floor(a * b / c).
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, errors.ErrArithmeticOverflow.Withf("division by zero")
	}
	return narrow(uint128.From64(a).Mul64(b).Div64(c))
}

// MulDivUp returns ceil(a * b / c).
func MulDivUp(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, errors.ErrArithmeticOverflow.Withf("division by zero")
	}
	q, r := uint128.From64(a).Mul64(b).QuoRem64(c)
	if r != 0 {
		q = q.Add64(1)
	}
	return narrow(q)
}

// CheckedAdd returns a + b or ArithmeticOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, errors.ErrArithmeticOverflow.Withf("%d + %d", a, b)
	}
	return sum, nil
}

// CheckedSub returns a - b or ArithmeticOverflow.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, errors.ErrArithmeticOverflow.Withf("%d - %d", a, b)
	}
	return a - b, nil
}

func narrow(v uint128.Uint128) (uint64, error) {
	if v.Hi != 0 {
		return 0, errors.ErrArithmeticOverflow
	}
	return v.Lo, nil
}
