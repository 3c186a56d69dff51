package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lugondev/flashswap/internal/common"
	"github.com/lugondev/flashswap/internal/config"
)

var (
	cfgFile string
	envFile string

	// set by loadConfig before any subcommand runs
	cfg    *config.Config
	logger *logrus.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flashswap",
	Short: "flashswap CLI - constant-product pool and flash loans",
	Long: `flashswap is a CLI for the flashswap program: a constant-product
liquidity pool with flash loans settled inside one transaction.

It provides commands for:
- Deriving pool, loan authority and escrow addresses
- Quoting deposits, withdrawals and swaps
- Replaying yaml scenarios against a local runtime`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.flashswap.yaml or $HOME/.flashswap.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().String("program-id", config.DefaultProgramID, "flashswap program id")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	bindFlag("program.id", "program-id")
	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding flag: %v\n", err)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	loaded, err := config.LoadWith(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = common.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())

	if used := viper.ConfigFileUsed(); used != "" {
		logger.WithField("file", used).Debug("using config file")
	}
	return nil
}
