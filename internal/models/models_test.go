package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRecordSource_String(t *testing.T) {
	tests := []struct {
		source   RecordSource
		expected string
	}{
		{SourceBank, "BANK"},
		{SourceLedger, "LEDGER"},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			if got := tt.source.String(); got != tt.expected {
				t.Errorf("RecordSource.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecordSource_IsValid(t *testing.T) {
	tests := []struct {
		source RecordSource
		valid  bool
	}{
		{SourceBank, true},
		{SourceLedger, true},
		{"INVALID", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			if got := tt.source.IsValid(); got != tt.valid {
				t.Errorf("RecordSource.IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestNewBankRecord(t *testing.T) {
	amount := decimal.NewFromFloat(-250.75)
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	rec := NewBankRecord(3, date, amount, "commissione bonifico")

	if rec.Seq != 3 {
		t.Errorf("Expected Seq 3, got %d", rec.Seq)
	}
	if !rec.Amount.Equal(amount) {
		t.Errorf("Expected amount %s, got %s", amount.String(), rec.Amount.String())
	}
	if !rec.Date.Equal(date) {
		t.Errorf("Expected date %s, got %s", date, rec.Date)
	}
	if rec.Source != SourceBank {
		t.Errorf("Expected source %s, got %s", SourceBank, rec.Source)
	}
	if rec.Description != "commissione bonifico" {
		t.Errorf("Expected description to be kept, got %q", rec.Description)
	}
}

func TestNewLedgerRecord(t *testing.T) {
	rec := NewLedgerRecord(0, time.Time{}, decimal.NewFromFloat(89.90), "fattura 42")

	if rec.Source != SourceLedger {
		t.Errorf("Expected source %s, got %s", SourceLedger, rec.Source)
	}
	if rec.HasDate() {
		t.Error("Expected record built with zero time to have no date")
	}
}

func TestTransactionRecord_Validate(t *testing.T) {
	tests := []struct {
		name      string
		record    TransactionRecord
		wantError bool
	}{
		{
			name: "Valid bank record",
			record: TransactionRecord{
				Seq:    0,
				Amount: decimal.NewFromFloat(100.50),
				Source: SourceBank,
			},
			wantError: false,
		},
		{
			name: "Valid undated record",
			record: TransactionRecord{
				Seq:    5,
				Amount: decimal.NewFromFloat(-12.00),
				Source: SourceLedger,
			},
			wantError: false,
		},
		{
			name: "Invalid source",
			record: TransactionRecord{
				Seq:    0,
				Amount: decimal.NewFromFloat(100.50),
				Source: "INVALID",
			},
			wantError: true,
		},
		{
			name: "Negative sequence",
			record: TransactionRecord{
				Seq:    -1,
				Amount: decimal.NewFromFloat(100.50),
				Source: SourceBank,
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("TransactionRecord.Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestTransactionRecord_HelperMethods(t *testing.T) {
	rec := NewBankRecord(0, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), decimal.NewFromFloat(-100.50), "")

	abs := rec.AbsAmount()
	expected := decimal.NewFromFloat(100.50)
	if !abs.Equal(expected) {
		t.Errorf("Expected absolute amount %s, got %s", expected.String(), abs.String())
	}

	if !rec.HasDate() {
		t.Error("Expected dated record to report a date")
	}

	undated := NewBankRecord(1, time.Time{}, decimal.NewFromFloat(10), "")
	if undated.HasDate() {
		t.Error("Expected zero-time record to report no date")
	}
}

func TestTransactionRecord_JSONMarshaling(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	rec := NewBankRecord(2, date, decimal.NewFromFloat(1234.56), "stipendio")

	jsonData, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Failed to marshal record: %v", err)
	}

	payload := string(jsonData)
	if !strings.Contains(payload, `"amount":"1234.56"`) {
		t.Errorf("Expected amount serialized as string, got %s", payload)
	}
	if !strings.Contains(payload, `"date":"2024-01-15"`) {
		t.Errorf("Expected date serialized as 2024-01-15, got %s", payload)
	}

	// Undated records omit the date field entirely
	undated := NewLedgerRecord(0, time.Time{}, decimal.NewFromFloat(5), "")
	jsonData, err = json.Marshal(undated)
	if err != nil {
		t.Fatalf("Failed to marshal undated record: %v", err)
	}
	if strings.Contains(string(jsonData), `"date"`) {
		t.Errorf("Expected no date field for undated record, got %s", jsonData)
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input     string
		expected  decimal.Decimal
		wantError bool
	}{
		{"100.50", decimal.NewFromFloat(100.50), false},
		{"-500.25", decimal.NewFromFloat(-500.25), false},
		{"1.234,56", decimal.NewFromFloat(1234.56), false},
		{"1,234.56", decimal.NewFromFloat(1234.56), false},
		{"€ 89,90", decimal.NewFromFloat(89.90), false},
		{"$1,250.75", decimal.NewFromFloat(1250.75), false},
		{"12,50-", decimal.NewFromFloat(-12.50), false},
		{"  42  ", decimal.NewFromInt(42), false},
		{"", decimal.Zero, true},
		{"   ", decimal.Zero, true},
		{"invalid", decimal.Zero, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseDecimalFromString(tt.input)

			if (err != nil) != tt.wantError {
				t.Errorf("ParseDecimalFromString() error = %v, wantError %v", err, tt.wantError)
				return
			}

			if !tt.wantError && !result.Equal(tt.expected) {
				t.Errorf("ParseDecimalFromString() = %s, want %s", result.String(), tt.expected.String())
			}
		})
	}
}

func TestParseDateWithFormats(t *testing.T) {
	tests := []struct {
		input     string
		wantError bool
	}{
		{"2024-01-15", false},
		{"15/01/2024", false},
		{"15/01/24", false},
		{"15-01-2024", false},
		{"15.01.2024", false},
		{"2024-01-15T10:30:00Z", false},
		{"2024-01-15 10:30:00", false},
		{"", true},
		{"invalid-date", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseDateWithFormats(tt.input)

			if (err != nil) != tt.wantError {
				t.Errorf("ParseDateWithFormats() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestParseDateWithFormats_DayFirst(t *testing.T) {
	// Slash dates follow the Italian day-first convention
	date, err := ParseDateWithFormats("15/01/2024")
	if err != nil {
		t.Fatalf("ParseDateWithFormats() error = %v", err)
	}
	if date.Day() != 15 || date.Month() != time.January || date.Year() != 2024 {
		t.Errorf("Expected 15 January 2024, got %s", date.Format("2006-01-02"))
	}
}

func TestCompareAmountsWithTolerance(t *testing.T) {
	amount1 := decimal.NewFromFloat(100.50)
	amount2 := decimal.NewFromFloat(100.52)
	tolerance := decimal.NewFromFloat(0.05)

	if !CompareAmountsWithTolerance(amount1, amount2, tolerance) {
		t.Error("Expected amounts to be within tolerance")
	}

	// Exactly at the tolerance boundary still matches
	boundary := decimal.NewFromFloat(100.55)
	if !CompareAmountsWithTolerance(amount1, boundary, tolerance) {
		t.Error("Expected amounts exactly at tolerance to be within it")
	}

	amount3 := decimal.NewFromFloat(101.00)
	if CompareAmountsWithTolerance(amount1, amount3, tolerance) {
		t.Error("Expected amounts to be outside tolerance")
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		a        time.Time
		b        time.Time
		expected int
	}{
		{
			name:     "Same day",
			a:        time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 15, 23, 0, 0, 0, time.UTC),
			expected: 0,
		},
		{
			name:     "Adjacent days count as one regardless of hours",
			a:        time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 16, 0, 1, 0, 0, time.UTC),
			expected: 1,
		},
		{
			name:     "Order does not matter",
			a:        time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			expected: 5,
		},
		{
			name:     "Across month boundary",
			a:        time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
			b:        time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
			expected: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.expected {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestSumAmounts(t *testing.T) {
	records := []*TransactionRecord{
		NewLedgerRecord(0, time.Time{}, decimal.NewFromFloat(100.50), ""),
		NewLedgerRecord(1, time.Time{}, decimal.NewFromFloat(-25.25), ""),
		NewLedgerRecord(2, time.Time{}, decimal.NewFromFloat(10.00), ""),
	}

	signed := SumAmounts(records)
	if !signed.Equal(decimal.NewFromFloat(85.25)) {
		t.Errorf("SumAmounts() = %s, want 85.25", signed.String())
	}

	abs := SumAbsAmounts(records)
	if !abs.Equal(decimal.NewFromFloat(135.75)) {
		t.Errorf("SumAbsAmounts() = %s, want 135.75", abs.String())
	}

	if !SumAmounts(nil).Equal(decimal.Zero) {
		t.Error("SumAmounts(nil) should be zero")
	}
}

// Benchmark tests for performance validation
func BenchmarkParseDecimalFromString(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ParseDecimalFromString("1.234,56")
	}
}

func BenchmarkDaysBetween(b *testing.B) {
	a := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	c := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = DaysBetween(a, c)
	}
}
