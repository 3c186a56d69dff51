package cmd

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/lugondev/flashswap/internal/address"
)

var (
	poolSeed  uint64
	poolMintX string
	poolMintY string
	loanFee   uint16
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Derive program addresses",
	Long:  `Derive the deterministic addresses the program owns or signs for.`,
}

var addressPoolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Derive the config, authority, LP mint and vaults of a pool",
	Example: `  flashswap address pool --seed 1 \
    --mint-x EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v \
    --mint-y So11111111111111111111111111111111111111112`,
	RunE: func(cmd *cobra.Command, args []string) error {
		programID, err := cfg.ProgramID()
		if err != nil {
			return err
		}
		mintX, err := solana.PublicKeyFromBase58(poolMintX)
		if err != nil {
			return fmt.Errorf("invalid mint x: %w", err)
		}
		mintY, err := solana.PublicKeyFromBase58(poolMintY)
		if err != nil {
			return fmt.Errorf("invalid mint y: %w", err)
		}

		pool, err := address.DerivePool(programID, poolSeed, mintX, mintY)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Program:   %s\n", programID)
		fmt.Fprintf(out, "Config:    %s (bump %d)\n", pool.Config, pool.ConfigBump)
		fmt.Fprintf(out, "Authority: %s (bump %d)\n", pool.Authority, pool.AuthBump)
		fmt.Fprintf(out, "LP mint:   %s (bump %d)\n", pool.LPMint, pool.LPBump)
		fmt.Fprintf(out, "Vault X:   %s (bump %d)\n", pool.VaultX, pool.VaultXBump)
		fmt.Fprintf(out, "Vault Y:   %s (bump %d)\n", pool.VaultY, pool.VaultYBump)
		return nil
	},
}

var addressLoanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Derive the loan authority holding lendable funds at a fee",
	RunE: func(cmd *cobra.Command, args []string) error {
		programID, err := cfg.ProgramID()
		if err != nil {
			return err
		}
		key, bump, err := address.LoanAuthority(programID, loanFee)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loan authority (%d bps): %s (bump %d)\n", loanFee, key, bump)
		return nil
	},
}

var addressEscrowCmd = &cobra.Command{
	Use:   "escrow [borrower]",
	Short: "Derive the loan escrow of a borrower",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		programID, err := cfg.ProgramID()
		if err != nil {
			return err
		}
		borrower, err := solana.PublicKeyFromBase58(args[0])
		if err != nil {
			return fmt.Errorf("invalid borrower: %w", err)
		}
		key, bump, err := address.Escrow(programID, borrower)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Escrow: %s (bump %d)\n", key, bump)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addressCmd)
	addressCmd.AddCommand(addressPoolCmd, addressLoanCmd, addressEscrowCmd)

	addressPoolCmd.Flags().Uint64Var(&poolSeed, "seed", 0, "pool seed")
	addressPoolCmd.Flags().StringVar(&poolMintX, "mint-x", "", "mint of asset X (required)")
	addressPoolCmd.Flags().StringVar(&poolMintY, "mint-y", "", "mint of asset Y (required)")
	cobra.CheckErr(addressPoolCmd.MarkFlagRequired("mint-x"))
	cobra.CheckErr(addressPoolCmd.MarkFlagRequired("mint-y"))

	addressLoanCmd.Flags().Uint16Var(&loanFee, "fee", 0, "loan fee in basis points")
}
