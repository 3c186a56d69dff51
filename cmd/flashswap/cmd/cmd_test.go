package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/flashswap/internal/errors"
)

const exampleScenario = "../../../examples/scenarios/pool-and-loan.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	simulateResume, simulatePersist, simulateVerbose, simulateMetricsFile = false, false, false, ""
	cfgFile = ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
}

func TestQuoteSwap(t *testing.T) {
	out, err := execute(t, "quote", "swap", "--x", "100000", "--y", "200000", "--fee", "30", "--side", "x", "--amount", "10000")
	require.NoError(t, err)
	assert.Contains(t, out, "Amount in:      10000 (0.010000)")
	assert.Contains(t, out, "Fee:            30 (0.000030) (30 bps)")
	assert.Contains(t, out, "Amount out:     18132 (0.018132)")
	assert.Contains(t, out, "Price before:   2")

	_, err = execute(t, "quote", "swap", "--x", "1", "--y", "1", "--side", "z", "--amount", "1")
	assert.ErrorContains(t, err, "side must be x or y")
}

func TestQuoteSwap_ReserveOverflow(t *testing.T) {
	const maxU64 = "18446744073709551615"
	for _, side := range []string{"x", "y"} {
		t.Run(side, func(t *testing.T) {
			_, err := execute(t, "quote", "swap", "--x", maxU64, "--y", maxU64, "--fee", "0", "--side", side, "--amount", "10000")
			assert.ErrorIs(t, err, errors.ErrArithmeticOverflow)
		})
	}
}

func TestQuoteDepositWithdraw(t *testing.T) {
	out, err := execute(t, "quote", "deposit", "--x", "1000", "--y", "3000", "--supply", "1000", "--amount", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Pay X:     10 ")
	assert.Contains(t, out, "Pay Y:     30 ")

	out, err = execute(t, "quote", "withdraw", "--x", "1000", "--y", "3000", "--supply", "1000", "--amount", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Receive Y:  3000 ")
}

func TestAddress(t *testing.T) {
	out, err := execute(t, "address", "loan", "--fee", "50")
	require.NoError(t, err)
	assert.Contains(t, out, "Loan authority (50 bps): ")

	out, err = execute(t, "address", "pool", "--seed", "1",
		"--mint-x", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"--mint-y", "So11111111111111111111111111111111111111112")
	require.NoError(t, err)
	for _, label := range []string{"Config:", "Authority:", "LP mint:", "Vault X:", "Vault Y:"} {
		assert.Contains(t, out, label)
	}

	_, err = execute(t, "address", "escrow", "not-a-key")
	assert.ErrorContains(t, err, "invalid borrower")
}

func TestSimulate(t *testing.T) {
	out, err := execute(t, "simulate", "-v", exampleScenario)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Scenario: pool and flash loan")
	assert.Contains(t, out, "7 passed, 0 failed")
	assert.Contains(t, out, "#0 Instruction: Loan")
	assert.Contains(t, out, "> #0 Loan {Fee:50 Amounts:[50000]}")
	assert.Contains(t, out, "> #1 Repay")
}

func TestSimulate_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	t.Setenv("FLASHSWAP_STORAGE_PATH", path)

	_, err := execute(t, "simulate", "--persist", exampleScenario)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "accounts:")

	// replaying on top of the stored ledger changes the balances the
	// scenario expects
	out, err := execute(t, "simulate", "--resume", exampleScenario)
	assert.Error(t, err)
	assert.Contains(t, out, "[FAIL] 0. create pool")
}
