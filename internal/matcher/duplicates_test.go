package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDuplicateTrackerCleanPairing(t *testing.T) {
	dt := NewDuplicateTracker(decimal.NewFromFloat(0.01))

	// Two duplicates on each side, both matched: nothing to review
	for i := 0; i < 2; i++ {
		dt.ObserveBank(createTestBankRecord(t, i, "2024-01-10", "100.00"))
		dt.ObserveLedger(createTestLedgerRecord(t, i, "2024-01-10", "100.00"))
		dt.ObserveMatch(createTestBankRecord(t, i, "2024-01-10", "100.00"))
	}

	if flagged := dt.Flagged(); len(flagged) != 0 {
		t.Errorf("fully paired duplicates should not be flagged, got %d buckets", len(flagged))
	}
}

func TestDuplicateTrackerFlagsUnderMatched(t *testing.T) {
	dt := NewDuplicateTracker(decimal.NewFromFloat(0.01))

	// Two bank duplicates, one ledger record, one match: the leftover
	// duplicate may have paired with the wrong occurrence
	dt.ObserveBank(createTestBankRecord(t, 0, "2024-01-10", "100.00"))
	dt.ObserveBank(createTestBankRecord(t, 1, "2024-01-10", "100.00"))
	dt.ObserveLedger(createTestLedgerRecord(t, 0, "2024-01-10", "100.00"))

	flagged := dt.Flagged()
	if len(flagged) != 1 {
		t.Fatalf("expected 1 flagged bucket, got %d", len(flagged))
	}

	bucket := flagged[0]
	if bucket.BankOccurrences != 2 || bucket.LedgerOccurrences != 1 {
		t.Errorf("unexpected occurrence counts: %+v", bucket)
	}

	// After the single possible match happens, the bucket settles
	dt.ObserveMatch(createTestBankRecord(t, 0, "2024-01-10", "100.00"))
	if flagged := dt.Flagged(); len(flagged) != 0 {
		t.Errorf("bucket should settle once min(bank, ledger) matches happened, got %d", len(flagged))
	}
}

func TestDuplicateTrackerIgnoresSingletons(t *testing.T) {
	dt := NewDuplicateTracker(decimal.NewFromFloat(0.01))

	dt.ObserveBank(createTestBankRecord(t, 0, "2024-01-10", "100.00"))
	dt.ObserveLedger(createTestLedgerRecord(t, 0, "2024-01-10", "100.00"))

	if flagged := dt.Flagged(); len(flagged) != 0 {
		t.Errorf("singleton amounts are never duplicates, got %d buckets", len(flagged))
	}
}

func TestDuplicateTrackerBucketsBySign(t *testing.T) {
	dt := NewDuplicateTracker(decimal.NewFromFloat(0.01))

	// Opposite signs share a bucket because tracking works on magnitude
	dt.ObserveBank(createTestBankRecord(t, 0, "2024-01-10", "-100.00"))
	dt.ObserveBank(createTestBankRecord(t, 1, "2024-01-10", "100.00"))
	dt.ObserveLedger(createTestLedgerRecord(t, 0, "2024-01-10", "100.00"))

	flagged := dt.Flagged()
	if len(flagged) != 1 {
		t.Fatalf("expected opposite signs to share a bucket, got %d buckets", len(flagged))
	}
	if flagged[0].BankOccurrences != 2 {
		t.Errorf("expected 2 bank occurrences, got %d", flagged[0].BankOccurrences)
	}
}

func TestDuplicateTrackerFlaggedOrder(t *testing.T) {
	dt := NewDuplicateTracker(decimal.NewFromFloat(0.01))

	for _, amount := range []string{"300.00", "50.00", "120.00"} {
		dt.ObserveBank(createTestBankRecord(t, 0, "2024-01-10", amount))
		dt.ObserveBank(createTestBankRecord(t, 1, "2024-01-10", amount))
		dt.ObserveLedger(createTestLedgerRecord(t, 0, "2024-01-10", amount))
	}

	flagged := dt.Flagged()
	if len(flagged) != 3 {
		t.Fatalf("expected 3 flagged buckets, got %d", len(flagged))
	}

	for i := 1; i < len(flagged); i++ {
		if !flagged[i-1].Amount.LessThan(flagged[i].Amount) {
			t.Errorf("flagged buckets not sorted ascending: %s before %s",
				flagged[i-1].Amount.String(), flagged[i].Amount.String())
		}
	}
}
