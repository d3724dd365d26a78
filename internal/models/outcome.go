package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// OutcomeStatus classifies the verdict for one bank record or one leftover
// ledger record
type OutcomeStatus string

const (
	// StatusMatched means the bank record was paired with ledger records
	StatusMatched OutcomeStatus = "MATCHED"
	// StatusMissing means the bank record has no ledger counterpart
	StatusMissing OutcomeStatus = "MISSING"
	// StatusOrphan means the ledger record has no bank counterpart
	StatusOrphan OutcomeStatus = "ORPHAN"
)

// MatchKind identifies which matcher produced a matched outcome
type MatchKind string

const (
	// MatchDirect is a one-to-one amount+date match
	MatchDirect MatchKind = "DIRECT"
	// MatchBulk pairs one bank record with one ledger record that is an
	// integer multiple of it (aggregated fees)
	MatchBulk MatchKind = "BULK"
	// MatchCombination pairs one bank record with a subset of ledger records
	// summing to it (split payments)
	MatchCombination MatchKind = "COMBINATION"
)

// String returns the string representation of MatchKind
func (k MatchKind) String() string {
	return string(k)
}

// MatchOutcome is the per-record verdict emitted by the matching engine.
// Exactly one of BankRecord / LedgerRecords sides is empty for Missing and
// Orphan outcomes; Matched outcomes carry both.
type MatchOutcome struct {
	Status OutcomeStatus `json:"status"`

	BankRecord    *TransactionRecord   `json:"bank_record,omitempty"`
	LedgerRecords []*TransactionRecord `json:"ledger_records,omitempty"`

	// Matched-only fields
	Kind       MatchKind       `json:"match_kind,omitempty"`
	Multiplier int             `json:"multiplier,omitempty"` // Bulk: integer factor m
	Size       int             `json:"size,omitempty"`       // Combination: subset size
	AmountSum  decimal.Decimal `json:"amount_sum"`

	// DateDeltaDays is set when both sides carry dates; -1 means unknown
	DateDeltaDays int    `json:"date_delta_days"`
	Note          string `json:"note,omitempty"`
}

// NoteOutOfDateTolerance marks matches whose date delta exceeds the configured
// window; informational only, the match still counts.
const NoteOutOfDateTolerance = "out of date tolerance"

// DateDeltaUnknown is the DateDeltaDays value when either side lacks a date
const DateDeltaUnknown = -1

// NewMatchedOutcome creates a Matched outcome for a bank record and the ledger
// records it consumed
func NewMatchedOutcome(bank *TransactionRecord, ledger []*TransactionRecord, kind MatchKind) *MatchOutcome {
	return &MatchOutcome{
		Status:        StatusMatched,
		BankRecord:    bank,
		LedgerRecords: ledger,
		Kind:          kind,
		AmountSum:     SumAbsAmounts(ledger),
		DateDeltaDays: DateDeltaUnknown,
	}
}

// NewMissingOutcome creates a Missing outcome for a bank record absent from
// the ledger feed
func NewMissingOutcome(bank *TransactionRecord) *MatchOutcome {
	return &MatchOutcome{
		Status:        StatusMissing,
		BankRecord:    bank,
		DateDeltaDays: DateDeltaUnknown,
	}
}

// NewOrphanOutcome creates an Orphan outcome for a ledger record absent from
// the bank feed
func NewOrphanOutcome(ledger *TransactionRecord) *MatchOutcome {
	return &MatchOutcome{
		Status:        StatusOrphan,
		LedgerRecords: []*TransactionRecord{ledger},
		DateDeltaDays: DateDeltaUnknown,
	}
}

// IsMatched reports whether the outcome pairs a bank record with ledger records
func (o *MatchOutcome) IsMatched() bool {
	return o.Status == StatusMatched
}

// HasDateDelta reports whether a date delta could be computed for this outcome
func (o *MatchOutcome) HasDateDelta() bool {
	return o.DateDeltaDays != DateDeltaUnknown
}

// Validate checks structural consistency of the outcome
func (o *MatchOutcome) Validate() error {
	switch o.Status {
	case StatusMatched:
		if o.BankRecord == nil {
			return fmt.Errorf("matched outcome requires a bank record")
		}
		if len(o.LedgerRecords) == 0 {
			return fmt.Errorf("matched outcome requires at least one ledger record")
		}
	case StatusMissing:
		if o.BankRecord == nil {
			return fmt.Errorf("missing outcome requires a bank record")
		}
		if len(o.LedgerRecords) != 0 {
			return fmt.Errorf("missing outcome cannot carry ledger records")
		}
	case StatusOrphan:
		if o.BankRecord != nil {
			return fmt.Errorf("orphan outcome cannot carry a bank record")
		}
		if len(o.LedgerRecords) != 1 {
			return fmt.Errorf("orphan outcome requires exactly one ledger record")
		}
	default:
		return fmt.Errorf("invalid outcome status: %s", o.Status)
	}

	return nil
}

// String returns a short human-readable form of the outcome
func (o *MatchOutcome) String() string {
	switch o.Status {
	case StatusMatched:
		return fmt.Sprintf("MatchOutcome{Matched %s, bank seq %d, %d ledger record(s), sum %s}",
			o.Kind, o.BankRecord.Seq, len(o.LedgerRecords), o.AmountSum.String())
	case StatusMissing:
		return fmt.Sprintf("MatchOutcome{Missing, bank seq %d, amount %s}",
			o.BankRecord.Seq, o.BankRecord.Amount.String())
	default:
		return fmt.Sprintf("MatchOutcome{Orphan, ledger seq %d, amount %s}",
			o.LedgerRecords[0].Seq, o.LedgerRecords[0].Amount.String())
	}
}

// MarshalJSON emits the amount sum as a string to avoid float artifacts
func (o *MatchOutcome) MarshalJSON() ([]byte, error) {
	type Alias MatchOutcome
	return json.Marshal(&struct {
		AmountSum string `json:"amount_sum"`
		*Alias
	}{
		AmountSum: o.AmountSum.String(),
		Alias:     (*Alias)(o),
	})
}
