package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordSource identifies which feed a record came from
type RecordSource string

const (
	// SourceBank marks records from the bank statement feed (ground truth)
	SourceBank RecordSource = "BANK"
	// SourceLedger marks records from the accounting system feed
	SourceLedger RecordSource = "LEDGER"
)

// String returns the string representation of RecordSource
func (s RecordSource) String() string {
	return string(s)
}

// IsValid checks if the record source is valid
func (s RecordSource) IsValid() bool {
	return s == SourceBank || s == SourceLedger
}

// TransactionRecord is the normalized movement record shared by both feeds.
// Records are produced once by the parsing layer and never mutated by the
// matching engine; consumption state lives in the engine's own run-scoped set.
//
// A zero Date means the source row carried no usable date. Amount keeps its
// original sign; matching always compares absolute values and treats the sign
// as informational polarity only.
type TransactionRecord struct {
	Seq         int             `json:"seq"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Source      RecordSource    `json:"source"`
}

// NewBankRecord creates a bank-side TransactionRecord
func NewBankRecord(seq int, date time.Time, amount decimal.Decimal, description string) *TransactionRecord {
	return &TransactionRecord{
		Seq:         seq,
		Date:        date,
		Amount:      amount,
		Description: description,
		Source:      SourceBank,
	}
}

// NewLedgerRecord creates a ledger-side TransactionRecord
func NewLedgerRecord(seq int, date time.Time, amount decimal.Decimal, description string) *TransactionRecord {
	return &TransactionRecord{
		Seq:         seq,
		Date:        date,
		Amount:      amount,
		Description: description,
		Source:      SourceLedger,
	}
}

// HasDate reports whether the record carries a usable calendar date
func (r *TransactionRecord) HasDate() bool {
	return !r.Date.IsZero()
}

// AbsAmount returns the absolute value of the record amount
func (r *TransactionRecord) AbsAmount() decimal.Decimal {
	return r.Amount.Abs()
}

// Validate performs basic validation on the record
func (r *TransactionRecord) Validate() error {
	if !r.Source.IsValid() {
		return fmt.Errorf("invalid record source: %s", r.Source)
	}

	if r.Seq < 0 {
		return fmt.Errorf("record sequence index cannot be negative: %d", r.Seq)
	}

	return nil
}

// String returns a string representation of the record
func (r *TransactionRecord) String() string {
	date := "-"
	if r.HasDate() {
		date = r.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("TransactionRecord{Seq: %d, Source: %s, Amount: %s, Date: %s}",
		r.Seq, r.Source, r.Amount.String(), date)
}

// MarshalJSON implements custom JSON marshaling for TransactionRecord
func (r *TransactionRecord) MarshalJSON() ([]byte, error) {
	type Alias TransactionRecord
	date := ""
	if r.HasDate() {
		date = r.Date.Format("2006-01-02")
	}
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date,omitempty"`
		*Alias
	}{
		Amount: r.Amount.String(),
		Date:   date,
		Alias:  (*Alias)(r),
	})
}

// Utility functions for value parsing and comparison

// ParseDecimalFromString parses a decimal amount from string with validation.
// It accepts plain decimal notation as well as European statement formats
// with currency symbols and thousand separators ("€ 1.234,56", "1,234.56").
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasSuffix(s, "-") {
		// Trailing-sign convention used by some accounting exports
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		// Italian format: dot thousands, comma decimals ("1.234,56")
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot > lastComma:
		// Anglo format: comma thousands, dot decimals ("1,234.56")
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	if negative {
		d = d.Neg()
	}

	return d, nil
}

// ParseDateWithFormats attempts to parse a date from string using the formats
// seen in bank statements and accounting exports, Italian day-first included
func ParseDateWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		"2006-01-02",
		"02/01/2006",
		"02/01/06",
		"02-01-2006",
		"02.01.2006",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	return diff.LessThanOrEqual(tolerance)
}

// DaysBetween returns the absolute whole-day distance between two dates,
// comparing calendar days rather than elapsed hours
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)

	diff := da.Sub(db)
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}

// SumAmounts returns the sum of the signed amounts of a record slice
func SumAmounts(records []*TransactionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}

// SumAbsAmounts returns the sum of the absolute amounts of a record slice
func SumAbsAmounts(records []*TransactionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount.Abs())
	}
	return total
}
