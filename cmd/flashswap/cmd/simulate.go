package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lugondev/flashswap/internal/metrics"
	"github.com/lugondev/flashswap/internal/program"
	"github.com/lugondev/flashswap/internal/runtime"
	"github.com/lugondev/flashswap/internal/scenario"
	"github.com/lugondev/flashswap/internal/storage"
	"github.com/lugondev/flashswap/pkg/decoder"
	"github.com/lugondev/flashswap/pkg/log"

	_ "github.com/lugondev/flashswap/internal/storage/file"
	_ "github.com/lugondev/flashswap/internal/storage/redis"
)

var (
	simulateResume      bool
	simulatePersist     bool
	simulateVerbose     bool
	simulateMetricsFile string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [scenario.yaml]",
	Short: "Replay a scenario against a local runtime",
	Long: `Replay every step of a yaml scenario as one transaction each and check
the expected outcome and balances.

With --resume the ledger is loaded from the configured storage first, and
with --persist the resulting ledger is written back.`,
	Example: `  flashswap simulate examples/scenarios/pool-and-loan.yaml
  flashswap simulate --persist --config .flashswap.yaml scenario.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().BoolVar(&simulateResume, "resume", false, "start from the ledger in storage")
	simulateCmd.Flags().BoolVar(&simulatePersist, "persist", false, "write the final ledger to storage")
	simulateCmd.Flags().BoolVarP(&simulateVerbose, "verbose", "v", false, "print program logs of every step")
	simulateCmd.Flags().StringVar(&simulateMetricsFile, "metrics-file", "", "write prometheus metrics to this file")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}
	programID, err := cfg.ProgramID()
	if err != nil {
		return err
	}

	var cm *storage.ConnectionManager
	if simulateResume || simulatePersist {
		cm, err = storage.NewConnectionManager(&cfg.Storage, logger)
		if err != nil {
			return err
		}
		defer cm.Close()
		if _, err := cm.Connect(ctx); err != nil {
			return err
		}
	}

	ledger := runtime.NewLedger()
	if simulateResume {
		accounts, err := cm.Accounts()
		if err != nil {
			return err
		}
		if ledger, err = storage.LoadLedger(ctx, accounts); err != nil {
			return err
		}
		logger.WithField("accounts", ledger.Len()).Info("ledger loaded")
	}

	sinks := metrics.NewCollection()
	if cfg.Metrics.Log {
		sinks.Add(metrics.NewLogMetrics(logger))
	}
	var prom *metrics.PrometheusMetrics
	if cfg.Metrics.Enabled || simulateMetricsFile != "" {
		prom = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		sinks.Add(prom)
	}
	if err := sinks.Initialize(ctx); err != nil {
		return err
	}
	defer sinks.Shutdown(ctx)

	rt := runtime.New(ledger,
		runtime.WithLogger(logger),
		runtime.WithMetrics(sinks),
		runtime.WithClock(func() runtime.Clock { return runtime.Clock{UnixTimestamp: cfg.Clock.Now(), Slot: cfg.Clock.Slot} }),
	)
	rt.Register(program.New(programID, logger))

	runner, err := scenario.NewRunner(rt, programID, sc, logger)
	if err != nil {
		return err
	}
	results, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	decoders := decoder.NewRegistry()
	decoders.Register(program.NewDecoder(programID))
	decoders.Register(runtime.NewTokenDecoder())
	decoders.SetFallbackDecoder(decoder.Raw())

	failed := printResults(cmd.OutOrStdout(), decoders, results, sc)

	if simulatePersist {
		accounts, err := cm.Accounts()
		if err != nil {
			return err
		}
		if err := storage.SaveLedger(ctx, accounts, rt.Ledger()); err != nil {
			return err
		}
		logger.WithField("accounts", rt.Ledger().Len()).Info("ledger persisted")
	}

	if err := sinks.Flush(ctx); err != nil {
		return err
	}
	if prom != nil && simulateMetricsFile != "" {
		if err := prometheus.WriteToTextfile(simulateMetricsFile, prom.Registry()); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d steps did not match their expectation", failed, len(results))
	}
	return nil
}

// printResults writes one block per step and returns how many failed.
func printResults(out io.Writer, decoders *decoder.Registry, results []*scenario.Result, sc *scenario.Scenario) int {
	parser := log.NewParser()
	failed := 0

	fmt.Fprintf(out, "Scenario: %s\n\n", sc.Name)
	for _, res := range results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(out, "[%s] %d. %s (tx %s, %s)\n", status, res.Step, res.Name, res.Receipt.ID, res.Receipt.Duration)

		for _, line := range parser.Summary(res.Receipt.Logs) {
			fmt.Fprintf(out, "    %s\n", line)
		}
		if simulateVerbose {
			for i, ix := range res.Instructions {
				data, _ := ix.Data()
				programID := ix.ProgramID()
				if event, err := decoders.Decode(data, &programID); err != nil {
					fmt.Fprintf(out, "    > #%d undecodable: %v\n", i, err)
				} else {
					fmt.Fprintf(out, "    > #%d %s\n", i, event)
				}
				for _, msg := range parser.FilterByInstructionPath(res.Receipt.Logs, log.InstructionPath{uint8(i)}) {
					fmt.Fprintf(out, "      #%d %s\n", i, msg)
				}
			}
		}
		for _, m := range res.Mismatches {
			fmt.Fprintf(out, "    ! %s\n", m)
		}
	}
	fmt.Fprintf(out, "\n%d passed, %d failed\n", len(results)-failed, failed)
	return failed
}
