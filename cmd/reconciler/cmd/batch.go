package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger-reconciliation-service/cmd/reconciler/config"
	"ledger-reconciliation-service/internal/jobs"
	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the batch command
var (
	batchBankFile    string
	batchLedgerFiles []string
	batchOutputDir   string
	batchFormat      string
	batchTTL         time.Duration
)

// batchCmd reconciles one bank statement against several ledger exports in a
// single invocation, one run per ledger file. Each run is kept in a TTL store
// and addressed by its run ID, so reports can be regenerated from the stored
// outputs while the process lives.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Reconcile one bank statement against multiple ledger files",
	Long: `Batch runs one reconciliation per ledger file against the same bank
statement, prints a one-line verdict per run and writes the full reports to
the output directory.

Examples:
  reconciler batch --bank-file estratto.csv --ledger-files jan.csv,feb.csv
  reconciler batch -b bank.csv --ledger-files a.csv,b.csv --output-dir reports/`,

	PreRunE: validateBatchFlags,
	RunE:    runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchBankFile, "bank-file", "b", "", "path to bank statement CSV file (required)")
	batchCmd.Flags().StringSliceVar(&batchLedgerFiles, "ledger-files", []string{}, "comma-separated paths to ledger CSV files (required)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "directory for per-run reports (default: summaries only)")
	batchCmd.Flags().StringVarP(&batchFormat, "output-format", "f", "json", "report format for stored runs: console, json, csv")
	batchCmd.Flags().DurationVar(&batchTTL, "run-ttl", jobs.DefaultTTL, "how long finished runs stay retrievable")

	batchCmd.MarkFlagRequired("bank-file")
	batchCmd.MarkFlagRequired("ledger-files")
}

func validateBatchFlags(cmd *cobra.Command, args []string) error {
	if batchBankFile == "" {
		return fmt.Errorf("bank-file is required")
	}
	if len(batchLedgerFiles) == 0 {
		return fmt.Errorf("at least one ledger file is required")
	}

	if err := validateFileExists(batchBankFile, "bank statement file"); err != nil {
		return err
	}
	for i, ledger := range batchLedgerFiles {
		if err := validateFileExists(ledger, fmt.Sprintf("ledger file %d", i+1)); err != nil {
			return err
		}
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[batchFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", batchFormat)
	}

	if batchOutputDir != "" {
		info, err := os.Stat(batchOutputDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist: %s", batchOutputDir)
		}
		if err == nil && !info.IsDir() {
			return fmt.Errorf("output path is not a directory: %s", batchOutputDir)
		}
	}

	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engineConfig := matcherConfigFromViper()
	service, err := reconciler.NewReconciliationService(engineConfig, nil)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	store := jobs.NewStore(batchTTL)
	go store.RunSweeper(ctx, time.Minute)

	generator, err := reporter.NewReportGenerator(config.CreateReportConfig(batchFormat, false), engineConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	failures := 0
	for _, ledgerFile := range batchLedgerFiles {
		output, err := service.Reconcile(ctx, &reconciler.Request{
			BankFile:   batchBankFile,
			LedgerFile: ledgerFile,
		})
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAILED   %s: %v\n", ledgerFile, err)
			continue
		}

		runID := store.Put(output)
		stats := output.Result.Stats
		fmt.Fprintf(os.Stdout, "%s  %s  matched=%d missing=%d orphans=%d\n",
			runID, filepath.Base(ledgerFile), stats.Matched, stats.Missing, stats.Orphans)

		if batchOutputDir != "" {
			if err := writeRunReport(generator, output, runID); err != nil {
				fmt.Fprintf(os.Stderr, "report for %s not written: %v\n", ledgerFile, err)
			}
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\n%d run(s) stored, retrievable for %v: %s\n",
			store.Len(), batchTTL, strings.Join(store.IDs(), ", "))
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d run(s) failed", failures, len(batchLedgerFiles))
	}
	return nil
}

// writeRunReport renders one stored run into the batch output directory
func writeRunReport(generator *reporter.ReportGenerator, output *reconciler.Output, runID string) error {
	ext := batchFormat
	if ext == "console" {
		ext = "txt"
	}

	path := filepath.Join(batchOutputDir, fmt.Sprintf("run-%s.%s", runID, ext))
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return generator.GenerateReport(output, file)
}

// matcherConfigFromViper reuses the reconcile command's matching flags, viper
// supplying defaults when the batch invocation never set them
func matcherConfigFromViper() *matcher.ReconcileConfig {
	return config.CreateEngineConfig(config.EngineFlags{
		AmountTolerance:     viperFloatOr("amount-tolerance", 0.01),
		DateToleranceDays:   viperIntOr("date-tolerance", 5),
		MaxCombinations:     viperIntOr("max-combinations", 5),
		MaxIterations:       viperIntOr("max-iterations", 50000),
		MinBruteForceAmount: viperFloatOr("min-combination-amount", 100.0),
		CommissionThreshold: viperFloatOr("commission-threshold", 5.0),
	})
}

func viperFloatOr(key string, fallback float64) float64 {
	if v := viper.GetFloat64(key); v != 0 {
		return v
	}
	return fallback
}

func viperIntOr(key string, fallback int) int {
	if v := viper.GetInt(key); v != 0 {
		return v
	}
	return fallback
}
