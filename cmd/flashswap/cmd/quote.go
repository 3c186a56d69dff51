package cmd

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lugondev/flashswap/internal/curve"
	"github.com/lugondev/flashswap/internal/program"
)

var (
	quoteX         uint64
	quoteY         uint64
	quoteSupply    uint64
	quoteFee       uint16
	quoteSide      string
	quoteAmount    uint64
	quoteDecimalsX uint8
	quoteDecimalsY uint8
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Quote pool operations from reserves",
	Long: `Quote deposits, withdrawals and swaps with the same math the program
uses. Amounts are raw token units; human amounts are shown alongside using the
mint decimals.`,
}

var quoteSwapCmd = &cobra.Command{
	Use:     "swap",
	Short:   "Quote a swap",
	Example: `  flashswap quote swap --x 100000 --y 200000 --fee 30 --side x --amount 10000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		isX, err := parseSide(quoteSide)
		if err != nil {
			return err
		}
		r := curve.Reserves{X: quoteX, Y: quoteY}
		res, err := curve.Swap(r, quoteFee, isX, quoteAmount, 0)
		if err != nil {
			return err
		}

		// out is strictly below the output reserve, so only the input side can overflow
		inDec, outDec := quoteDecimalsX, quoteDecimalsY
		var after curve.Reserves
		if isX {
			x, err := curve.CheckedAdd(quoteX, res.AmountIn)
			if err != nil {
				return err
			}
			after = curve.Reserves{X: x, Y: quoteY - res.AmountOut}
		} else {
			inDec, outDec = quoteDecimalsY, quoteDecimalsX
			y, err := curve.CheckedAdd(quoteY, res.AmountIn)
			if err != nil {
				return err
			}
			after = curve.Reserves{X: quoteX - res.AmountOut, Y: y}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Amount in:      %s\n", human(res.AmountIn, inDec))
		fmt.Fprintf(out, "Fee:            %s (%d bps)\n", human(res.Fee, inDec), quoteFee)
		fmt.Fprintf(out, "Amount out:     %s\n", human(res.AmountOut, outDec))
		printPrice(out, "Price before:  ", r, isX)
		printPrice(out, "Price after:   ", after, isX)
		return nil
	},
}

var quoteDepositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Quote the assets needed to mint liquidity units",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := curve.Reserves{X: quoteX, Y: quoteY, Supply: quoteSupply}
		x, y, err := curve.DepositAmounts(r, quoteAmount, quoteX, quoteY)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Liquidity: %s\n", human(quoteAmount, program.LPDecimals))
		fmt.Fprintf(out, "Pay X:     %s\n", human(x, quoteDecimalsX))
		fmt.Fprintf(out, "Pay Y:     %s\n", human(y, quoteDecimalsY))
		return nil
	},
}

var quoteWithdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Quote the assets redeemed by burning liquidity units",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := curve.Reserves{X: quoteX, Y: quoteY, Supply: quoteSupply}
		x, y, err := curve.WithdrawAmounts(r, quoteAmount)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Liquidity:  %s\n", human(quoteAmount, program.LPDecimals))
		fmt.Fprintf(out, "Receive X:  %s\n", human(x, quoteDecimalsX))
		fmt.Fprintf(out, "Receive Y:  %s\n", human(y, quoteDecimalsY))
		return nil
	},
}

func parseSide(side string) (bool, error) {
	switch strings.ToLower(side) {
	case "x":
		return true, nil
	case "y":
		return false, nil
	}
	return false, fmt.Errorf("side must be x or y, got %q", side)
}

// human renders raw units as "<raw> (<decimal>)".
func human(v uint64, decimals uint8) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(v), -int32(decimals))
	return fmt.Sprintf("%d (%s)", v, d.StringFixed(int32(decimals)))
}

func printPrice(out io.Writer, label string, r curve.Reserves, isX bool) {
	price, err := curve.SpotPrice(r, isX)
	if err != nil {
		fmt.Fprintf(out, "%s n/a (%v)\n", label, err)
		return
	}
	scaled := decimal.NewFromBigInt(new(big.Int).SetUint64(price), -curve.DefaultDecimals)
	fmt.Fprintf(out, "%s %s\n", label, scaled.String())
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteSwapCmd, quoteDepositCmd, quoteWithdrawCmd)

	for _, c := range []*cobra.Command{quoteSwapCmd, quoteDepositCmd, quoteWithdrawCmd} {
		c.Flags().Uint64Var(&quoteX, "x", 0, "reserve of asset X")
		c.Flags().Uint64Var(&quoteY, "y", 0, "reserve of asset Y")
		c.Flags().Uint64Var(&quoteAmount, "amount", 0, "input amount, or liquidity units for deposit and withdraw")
		c.Flags().Uint8Var(&quoteDecimalsX, "decimals-x", 6, "decimals of mint X")
		c.Flags().Uint8Var(&quoteDecimalsY, "decimals-y", 6, "decimals of mint Y")
	}
	quoteSwapCmd.Flags().Uint16Var(&quoteFee, "fee", 0, "pool fee in basis points")
	quoteSwapCmd.Flags().StringVar(&quoteSide, "side", "x", "input side, x or y")
	quoteDepositCmd.Flags().Uint64Var(&quoteSupply, "supply", 0, "outstanding liquidity units")
	quoteWithdrawCmd.Flags().Uint64Var(&quoteSupply, "supply", 0, "outstanding liquidity units")
}
