package config

import (
	"testing"

	"ledger-reconciliation-service/internal/reporter"

	"github.com/shopspring/decimal"
)

func TestCreateEngineConfig(t *testing.T) {
	config := CreateEngineConfig(EngineFlags{
		AmountTolerance:     0.05,
		DateToleranceDays:   3,
		MaxCombinations:     4,
		MaxIterations:       1000,
		MinBruteForceAmount: 250,
		CommissionThreshold: 10,
	})

	if !config.AmountTolerance.Equal(decimal.NewFromFloat(0.05)) {
		t.Errorf("expected tolerance 0.05, got %s", config.AmountTolerance.String())
	}
	if config.DateToleranceDays != 3 {
		t.Errorf("expected date tolerance 3, got %d", config.DateToleranceDays)
	}
	if config.MaxCombinations != 4 || config.MaxBruteForceIterations != 1000 {
		t.Errorf("combination limits not applied: %s", config.String())
	}
	if !config.MinAmountForBruteForce.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected brute force floor 250, got %s", config.MinAmountForBruteForce.String())
	}
	if err := config.Validate(); err != nil {
		t.Errorf("flag-built config should validate: %v", err)
	}
}

func TestCreateParseConfig(t *testing.T) {
	config := CreateParseConfig(';')
	if config.Delimiter != ';' {
		t.Errorf("expected ';' delimiter, got %q", config.Delimiter)
	}
	if !config.HasHeader {
		t.Error("feeds are expected to carry headers by default")
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		format string
		want   reporter.OutputFormat
	}{
		{"console", reporter.FormatConsole},
		{"json", reporter.FormatJSON},
		{"csv", reporter.FormatCSV},
		{"anything-else", reporter.FormatConsole},
	}

	for _, tt := range tests {
		config := CreateReportConfig(tt.format, false)
		if config.Format != tt.want {
			t.Errorf("CreateReportConfig(%q) = %s, want %s", tt.format, config.Format, tt.want)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("config for %q should validate: %v", tt.format, err)
		}
	}

	if !CreateReportConfig("csv", true).IncludeMatched {
		t.Error("include-matched flag not carried through")
	}
}
