package matcher

import (
	"testing"

	"ledger-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func TestBucketKey(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)

	tests := []struct {
		amount string
		want   string
	}{
		{"100.00", "100"},
		{"100.004", "100"},
		{"100.006", "100.01"},
		{"-100.00", "100"},
		{"0.83", "0.83"},
	}

	for _, tt := range tests {
		got := BucketKey(decimal.RequireFromString(tt.amount), tolerance)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("BucketKey(%s) = %s, want %s", tt.amount, got.String(), tt.want)
		}
	}
}

func TestAmountIndexQuery(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)
	ledger := createTestLedgerSet(t, "2024-01-10", "100.00", "100.01", "99.99", "250.00", "-100.00")

	idx := NewAmountIndex(ledger, tolerance)
	consumed := make([]bool, len(ledger))

	got := idx.Query(decimal.NewFromInt(100), tolerance, consumed)
	if len(got) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(got))
	}

	// Results come back in ascending sequence order
	for i := 1; i < len(got); i++ {
		if got[i-1].Seq >= got[i].Seq {
			t.Errorf("candidates out of sequence order: %d before %d", got[i-1].Seq, got[i].Seq)
		}
	}
}

func TestAmountIndexQuerySkipsConsumed(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.01)
	ledger := createTestLedgerSet(t, "2024-01-10", "100.00", "100.00")

	idx := NewAmountIndex(ledger, tolerance)
	consumed := []bool{true, false}

	got := idx.Query(decimal.NewFromInt(100), tolerance, consumed)
	if len(got) != 1 || got[0].Seq != 1 {
		t.Errorf("expected only unconsumed record (seq 1), got %d candidates", len(got))
	}
}

func TestAmountIndexQueryRechecksActualAmount(t *testing.T) {
	// With a wide tolerance the bucket key can sit inside the scan range while
	// the record's actual amount is outside the tolerance
	tolerance := decimal.NewFromInt(1)
	ledger := createTestLedgerSet(t, "2024-01-10", "10.40")

	idx := NewAmountIndex(ledger, tolerance)
	consumed := make([]bool, len(ledger))

	// |10.40 - 9.30| = 1.10 > 1, but BucketKey(10.40) = 10 <= 9.30 + 1
	got := idx.Query(decimal.RequireFromString("9.30"), tolerance, consumed)
	if len(got) != 0 {
		t.Errorf("expected no candidates beyond tolerance, got %d", len(got))
	}
}

func TestAmountIndexQueryEmptyIndex(t *testing.T) {
	idx := NewAmountIndex(nil, decimal.NewFromFloat(0.01))

	got := idx.Query(decimal.NewFromInt(100), decimal.NewFromFloat(0.01), nil)
	if len(got) != 0 {
		t.Errorf("expected no candidates from empty index, got %d", len(got))
	}
}

func TestAmountIndexStats(t *testing.T) {
	ledger := []*models.TransactionRecord{
		createTestLedgerRecord(t, 0, "2024-01-10", "100.00"),
		createTestLedgerRecord(t, 1, "2024-01-11", "100.00"),
		createTestLedgerRecord(t, 2, "2024-01-12", "250.00"),
	}

	idx := NewAmountIndex(ledger, decimal.NewFromFloat(0.01))
	stats := idx.Stats()

	if stats.TotalRecords != 3 {
		t.Errorf("expected 3 total records, got %d", stats.TotalRecords)
	}
	if stats.UniqueBuckets != 2 {
		t.Errorf("expected 2 buckets, got %d", stats.UniqueBuckets)
	}
	if stats.LargestBucket != 2 {
		t.Errorf("expected largest bucket 2, got %d", stats.LargestBucket)
	}
	if idx.BucketCount() != 2 {
		t.Errorf("expected bucket count 2, got %d", idx.BucketCount())
	}
}
