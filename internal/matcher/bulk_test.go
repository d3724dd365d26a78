package matcher

import (
	"testing"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
)

func newTestRun(cfg *ReconcileConfig, ledger []*models.TransactionRecord) *run {
	return &run{
		cfg:      cfg,
		ledger:   ledger,
		index:    NewAmountIndex(ledger, cfg.AmountTolerance),
		consumed: make([]bool, len(ledger)),
		stats:    &RunStats{TotalLedger: len(ledger)},
		warnings: &errors.WarningList{},
	}
}

func TestBulkMatcherFindsSmallestMultiplier(t *testing.T) {
	r := newTestRun(DefaultReconcileConfig(), createTestLedgerSet(t, "2024-01-05", "5.00", "10.00"))
	m := &bulkMultiplierMatcher{}

	bank := createTestBankRecord(t, 0, "2024-01-05", "2.50")

	outcome := m.Match(r, bank)
	if outcome == nil {
		t.Fatal("expected a bulk match")
	}
	if outcome.Multiplier != 2 {
		t.Errorf("expected smallest multiplier 2, got %d", outcome.Multiplier)
	}
	if outcome.LedgerRecords[0].Seq != 0 {
		t.Errorf("expected the 5.00 record, got seq %d", outcome.LedgerRecords[0].Seq)
	}
	if !r.consumed[0] {
		t.Error("matched record was not consumed")
	}
}

func TestBulkMatcherRespectsDateWindow(t *testing.T) {
	r := newTestRun(DefaultReconcileConfig(), createTestLedgerSet(t, "2024-01-08", "5.00"))
	m := &bulkMultiplierMatcher{}

	// Candidate is 3 days out, beyond the 1-day bulk window
	bank := createTestBankRecord(t, 0, "2024-01-05", "2.50")

	if outcome := m.Match(r, bank); outcome != nil {
		t.Errorf("expected no match outside date window, got %s", outcome)
	}
}

func TestBulkMatcherSkipsUndatedBankRecord(t *testing.T) {
	r := newTestRun(DefaultReconcileConfig(), createTestLedgerSet(t, "2024-01-05", "5.00"))
	m := &bulkMultiplierMatcher{}

	bank := createTestBankRecord(t, 0, "", "2.50")

	if outcome := m.Match(r, bank); outcome != nil {
		t.Errorf("expected no match without a bank date, got %s", outcome)
	}
}

func TestBulkMatcherCapsMultiplier(t *testing.T) {
	r := newTestRun(DefaultReconcileConfig(), createTestLedgerSet(t, "2024-01-05", "51.00"))
	m := &bulkMultiplierMatcher{}

	// 51.00 = 51 x 1.00, above the multiplier cap of 50
	bank := createTestBankRecord(t, 0, "2024-01-05", "1.00")

	if outcome := m.Match(r, bank); outcome != nil {
		t.Errorf("expected no match above multiplier cap, got %s", outcome)
	}
}

func TestBulkMatcherIgnoresUnityMultiplier(t *testing.T) {
	r := newTestRun(DefaultReconcileConfig(), createTestLedgerSet(t, "2024-01-05", "2.50"))
	m := &bulkMultiplierMatcher{}

	// An equal amount is the direct matcher's job, not bulk's
	bank := createTestBankRecord(t, 0, "2024-01-05", "2.50")

	if outcome := m.Match(r, bank); outcome != nil {
		t.Errorf("expected no bulk match at multiplier 1, got %s", outcome)
	}
}

func TestBulkMatcherPrefersCloserDate(t *testing.T) {
	ledger := []*models.TransactionRecord{
		createTestLedgerRecord(t, 0, "2024-01-06", "5.00"),
		createTestLedgerRecord(t, 1, "2024-01-05", "5.00"),
	}
	r := newTestRun(DefaultReconcileConfig(), ledger)
	m := &bulkMultiplierMatcher{}

	bank := createTestBankRecord(t, 0, "2024-01-05", "2.50")

	outcome := m.Match(r, bank)
	if outcome == nil {
		t.Fatal("expected a bulk match")
	}
	if outcome.LedgerRecords[0].Seq != 1 {
		t.Errorf("expected same-day candidate (seq 1), got seq %d", outcome.LedgerRecords[0].Seq)
	}
	if outcome.DateDeltaDays != 0 {
		t.Errorf("expected date delta 0, got %d", outcome.DateDeltaDays)
	}
}
