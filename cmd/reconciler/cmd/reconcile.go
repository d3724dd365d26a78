package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"ledger-reconciliation-service/cmd/reconciler/config"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	bankFile   string
	ledgerFile string

	outputFormat string
	outputFile   string

	amountTolerance     float64
	dateTolerance       int
	maxCombinations     int
	maxIterations       int
	minBruteForceAmount float64
	commissionThreshold float64

	csvDelimiter   string
	includeMatched bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a bank statement feed with an accounting ledger feed",
	Long: `Reconcile pairs bank statement records (ground truth) with accounting
ledger records by amount and date, in three escalating stages: direct
one-to-one matches, aggregated-fee multiples and split-payment combinations.

This command requires:
- A bank statement file (CSV format)
- An accounting ledger file (CSV format)

Both feeds need date and amount columns; Italian headers (data, importo,
dare/avere, descrizione) and number formats ("1.234,56") are recognized.

Examples:
  # Basic reconciliation
  reconciler reconcile --bank-file estratto.csv --ledger-file contabilita.csv

  # Custom tolerances
  reconciler reconcile -b bank.csv -l ledger.csv \
    --amount-tolerance 0.05 --date-tolerance 3

  # JSON report to file
  reconciler reconcile -b bank.csv -l ledger.csv \
    --output-format json --output-file report.json

  # CSV detail rows including matched outcomes
  reconciler reconcile -b bank.csv -l ledger.csv \
    --output-format csv --include-matched`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&bankFile, "bank-file", "b", "", "path to bank statement CSV file (required)")
	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger-file", "l", "", "path to accounting ledger CSV file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&includeMatched, "include-matched", false, "include matched outcomes in CSV detail rows")

	// Matching configuration flags
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", 0.01, "amount tolerance in currency units")
	reconcileCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 5, "date tolerance in days before a match is flagged")
	reconcileCmd.Flags().IntVar(&maxCombinations, "max-combinations", 5, "maximum subset size for split-payment matching")
	reconcileCmd.Flags().IntVar(&maxIterations, "max-iterations", 50000, "node budget per record for split-payment search")
	reconcileCmd.Flags().Float64Var(&minBruteForceAmount, "min-combination-amount", 100.0, "minimum bank amount to attempt split-payment matching")
	reconcileCmd.Flags().Float64Var(&commissionThreshold, "commission-threshold", 5.0, "unmatched amounts at or below this are reported as small commissions")

	// Parsing flags
	reconcileCmd.Flags().StringVar(&csvDelimiter, "delimiter", ",", "CSV field delimiter for both feeds")

	reconcileCmd.MarkFlagRequired("bank-file")
	reconcileCmd.MarkFlagRequired("ledger-file")

	viper.BindPFlag("bank-file", reconcileCmd.Flags().Lookup("bank-file"))
	viper.BindPFlag("ledger-file", reconcileCmd.Flags().Lookup("ledger-file"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("date-tolerance", reconcileCmd.Flags().Lookup("date-tolerance"))
	viper.BindPFlag("max-combinations", reconcileCmd.Flags().Lookup("max-combinations"))
	viper.BindPFlag("max-iterations", reconcileCmd.Flags().Lookup("max-iterations"))
	viper.BindPFlag("min-combination-amount", reconcileCmd.Flags().Lookup("min-combination-amount"))
	viper.BindPFlag("commission-threshold", reconcileCmd.Flags().Lookup("commission-threshold"))
	viper.BindPFlag("delimiter", reconcileCmd.Flags().Lookup("delimiter"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Viper values override flag defaults (config file / env support)
	bankFile = viper.GetString("bank-file")
	ledgerFile = viper.GetString("ledger-file")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	amountTolerance = viper.GetFloat64("amount-tolerance")
	dateTolerance = viper.GetInt("date-tolerance")
	maxCombinations = viper.GetInt("max-combinations")
	maxIterations = viper.GetInt("max-iterations")
	minBruteForceAmount = viper.GetFloat64("min-combination-amount")
	commissionThreshold = viper.GetFloat64("commission-threshold")
	csvDelimiter = viper.GetString("delimiter")

	if bankFile == "" {
		return fmt.Errorf("bank-file is required")
	}
	if ledgerFile == "" {
		return fmt.Errorf("ledger-file is required")
	}

	if err := validateFileExists(bankFile, "bank statement file"); err != nil {
		return err
	}
	if err := validateFileExists(ledgerFile, "accounting ledger file"); err != nil {
		return err
	}

	validFormats := map[string]bool{"console": true, "json": true, "csv": true}
	if !validFormats[outputFormat] {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if amountTolerance <= 0 {
		return fmt.Errorf("amount tolerance must be positive")
	}
	if dateTolerance < 0 {
		return fmt.Errorf("date tolerance cannot be negative")
	}
	if maxCombinations < 0 || maxIterations < 0 {
		return fmt.Errorf("combination limits cannot be negative")
	}
	if len([]rune(csvDelimiter)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", csvDelimiter)
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Bank file: %s\n", bankFile)
		fmt.Fprintf(os.Stderr, "Ledger file: %s\n", ledgerFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
	}

	engineConfig := config.CreateEngineConfig(config.EngineFlags{
		AmountTolerance:     amountTolerance,
		DateToleranceDays:   dateTolerance,
		MaxCombinations:     maxCombinations,
		MaxIterations:       maxIterations,
		MinBruteForceAmount: minBruteForceAmount,
		CommissionThreshold: commissionThreshold,
	})
	parseConfig := config.CreateParseConfig([]rune(csvDelimiter)[0])

	service, err := reconciler.NewReconciliationService(engineConfig, parseConfig)
	if err != nil {
		return fmt.Errorf("failed to create reconciliation service: %w", err)
	}

	output, err := service.Reconcile(ctx, &reconciler.Request{
		BankFile:   bankFile,
		LedgerFile: ledgerFile,
	})
	if err != nil {
		return err
	}

	reportConfig := config.CreateReportConfig(outputFormat, includeMatched)
	generator, err := reporter.NewReportGenerator(reportConfig, engineConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	destination := os.Stdout
	if outputFile != "" {
		destination, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer destination.Close()
	}

	if err := generator.GenerateReport(output, destination); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if warnings := reporter.WarningSummary(output.Result.Warnings); warnings != "" {
		fmt.Fprintf(os.Stderr, "Warnings: %s\n", warnings)
	}

	if viper.GetBool("verbose") {
		stats := output.Result.Stats
		fmt.Fprintf(os.Stderr, "\nReconciliation completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Processed %d bank records and %d ledger records.\n",
			stats.TotalBank, stats.TotalLedger)
		fmt.Fprintf(os.Stderr, "Found %d matches, %d missing, %d orphans.\n",
			stats.Matched, stats.Missing, stats.Orphans)
		fmt.Fprintf(os.Stderr, "Processing time: %v\n", output.Duration)
	}

	return nil
}
