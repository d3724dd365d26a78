// Package config translates CLI flag values into the typed configurations
// used by the engine, the parsers and the reporter.
package config

import (
	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/parsers"
	"ledger-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
)

// EngineFlags carries the raw matching flag values from the CLI
type EngineFlags struct {
	AmountTolerance     float64
	DateToleranceDays   int
	MaxCombinations     int
	MaxIterations       int
	MinBruteForceAmount float64
	CommissionThreshold float64
}

// CreateEngineConfig builds a matching configuration from CLI flag values
func CreateEngineConfig(flags EngineFlags) *matcher.ReconcileConfig {
	config := matcher.DefaultReconcileConfig()

	config.AmountTolerance = decimal.NewFromFloat(flags.AmountTolerance)
	config.DateToleranceDays = flags.DateToleranceDays
	config.MaxCombinations = flags.MaxCombinations
	config.MaxBruteForceIterations = flags.MaxIterations
	config.MinAmountForBruteForce = decimal.NewFromFloat(flags.MinBruteForceAmount)
	config.CommissionThreshold = decimal.NewFromFloat(flags.CommissionThreshold)

	return config
}

// CreateParseConfig builds the feed parsing configuration
func CreateParseConfig(delimiter rune) *parsers.ParseConfig {
	config := parsers.DefaultParseConfig()
	config.Delimiter = delimiter
	return config
}

// CreateReportConfig builds a report configuration for the requested format
func CreateReportConfig(format string, includeMatched bool) *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()

	switch format {
	case "json":
		config.Format = reporter.FormatJSON
	case "csv":
		config.Format = reporter.FormatCSV
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	default:
		config.Format = reporter.FormatConsole
	}

	config.IncludeMatched = includeMatched
	return config
}
