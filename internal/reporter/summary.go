package reporter

import (
	"encoding/json"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// Summary is the aggregate view of one reconciliation run. Field names keep
// the Italian terms used by the accounting workflow this report feeds into
// (orfani, saldo, contabilità).
type Summary struct {
	TotalBank   int `json:"total_bank"`
	TotalLedger int `json:"total_ledger"`

	Matched int `json:"matched"`
	Missing int `json:"missing"`
	Orphans int `json:"orfani"`

	// CompletionRate is the matched share of bank records, in percent
	CompletionRate float64 `json:"completion_rate"`

	DirectMatches      int `json:"direct_matches"`
	BulkMatches        int `json:"bulk_matches"`
	CombinationMatches int `json:"combination_matches"`

	DateMismatch int `json:"date_mismatch"`

	// Signed totals per feed and their difference
	BankBalance   decimal.Decimal `json:"saldo_banca"`
	LedgerBalance decimal.Decimal `json:"saldo_contabilita"`
	BalanceDelta  decimal.Decimal `json:"differenza_saldo"`
	IsBalanced    bool            `json:"is_balanced"`

	// Absolute totals of the unreconciled records on each side
	MissingAmount decimal.Decimal `json:"importo_mancante"`
	OrphanAmount  decimal.Decimal `json:"importo_orfano"`

	// SmallCommissionsUnmatched counts missing bank records at or below the
	// commission threshold, usually bulk-posting leftovers rather than real
	// discrepancies
	SmallCommissionsUnmatched int `json:"small_commissions_unmatched"`

	Duplicates       int `json:"duplicates"`
	MalformedRecords int `json:"malformed_records"`
	BudgetExceeded   int `json:"budget_exceeded"`
}

// BuildSummary condenses a run output into the aggregate summary. The config
// supplies the tolerance for the balance check and the commission threshold.
func BuildSummary(output *reconciler.Output, config *matcher.ReconcileConfig) *Summary {
	if config == nil {
		config = matcher.DefaultReconcileConfig()
	}

	result := output.Result
	stats := result.Stats

	summary := &Summary{
		TotalBank:          stats.TotalBank,
		TotalLedger:        stats.TotalLedger,
		Matched:            stats.Matched,
		Missing:            stats.Missing,
		Orphans:            stats.Orphans,
		DirectMatches:      stats.DirectMatches,
		BulkMatches:        stats.BulkMatches,
		CombinationMatches: stats.CombinationMatches,
		DateMismatch:       stats.DateMismatch,
		Duplicates:         len(result.Duplicates),
		MalformedRecords:   output.MalformedRecords,
		BudgetExceeded:     stats.BudgetExceeded,
		BankBalance:        decimal.Zero,
		LedgerBalance:      decimal.Zero,
		MissingAmount:      decimal.Zero,
		OrphanAmount:       decimal.Zero,
	}

	if stats.TotalBank > 0 {
		summary.CompletionRate = float64(stats.Matched) / float64(stats.TotalBank) * 100
	}

	for _, outcome := range result.Outcomes {
		if outcome.BankRecord != nil {
			summary.BankBalance = summary.BankBalance.Add(outcome.BankRecord.Amount)

			if outcome.Status == models.StatusMissing {
				summary.MissingAmount = summary.MissingAmount.Add(outcome.BankRecord.AbsAmount())
				if outcome.BankRecord.AbsAmount().LessThanOrEqual(config.CommissionThreshold) {
					summary.SmallCommissionsUnmatched++
				}
			}
		}
		for _, rec := range outcome.LedgerRecords {
			summary.LedgerBalance = summary.LedgerBalance.Add(rec.Amount)
			if outcome.Status == models.StatusOrphan {
				summary.OrphanAmount = summary.OrphanAmount.Add(rec.AbsAmount())
			}
		}
	}

	summary.BalanceDelta = summary.BankBalance.Sub(summary.LedgerBalance)
	summary.IsBalanced = summary.BalanceDelta.Abs().LessThanOrEqual(config.AmountTolerance)

	return summary
}

// MarshalJSON emits the decimal balances as strings
func (s *Summary) MarshalJSON() ([]byte, error) {
	type Alias Summary
	return json.Marshal(&struct {
		BankBalance   string `json:"saldo_banca"`
		LedgerBalance string `json:"saldo_contabilita"`
		BalanceDelta  string `json:"differenza_saldo"`
		MissingAmount string `json:"importo_mancante"`
		OrphanAmount  string `json:"importo_orfano"`
		*Alias
	}{
		BankBalance:   s.BankBalance.StringFixed(2),
		LedgerBalance: s.LedgerBalance.StringFixed(2),
		BalanceDelta:  s.BalanceDelta.StringFixed(2),
		MissingAmount: s.MissingAmount.StringFixed(2),
		OrphanAmount:  s.OrphanAmount.StringFixed(2),
		Alias:         (*Alias)(s),
	})
}

// countWarnings tallies run warnings by code for the console report
func countWarnings(list *errors.WarningList, code errors.ErrorCode) int {
	if list == nil {
		return 0
	}
	return list.CountByCode(code)
}
