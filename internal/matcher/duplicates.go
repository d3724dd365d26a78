package matcher

import (
	"sort"

	"ledger-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// DuplicateTracker counts how often each rounded-amount bucket occurs on the
// bank side, the ledger side, and among matched outcomes. Buckets where
// duplicates exist but not all of them paired off are flagged for human
// review. This is a diagnostic signal only and never alters match decisions.
type DuplicateTracker struct {
	tolerance decimal.Decimal
	buckets   map[string]*DuplicateBucket
}

// DuplicateBucket is the per-bucket occurrence bookkeeping
type DuplicateBucket struct {
	Amount            decimal.Decimal `json:"amount"`
	BankOccurrences   int             `json:"bank_occurrences"`
	LedgerOccurrences int             `json:"ledger_occurrences"`
	MatchedOccurrences int            `json:"matched_occurrences"`
}

// NeedsReview reports whether this bucket should be surfaced: duplicates
// exist on at least one side and fewer matches happened than the smaller side
// could have supplied
func (b *DuplicateBucket) NeedsReview() bool {
	if b.BankOccurrences <= 1 && b.LedgerOccurrences <= 1 {
		return false
	}

	min := b.BankOccurrences
	if b.LedgerOccurrences < min {
		min = b.LedgerOccurrences
	}
	return b.MatchedOccurrences < min
}

// NewDuplicateTracker creates a tracker using the same bucket width as the
// amount index
func NewDuplicateTracker(tolerance decimal.Decimal) *DuplicateTracker {
	return &DuplicateTracker{
		tolerance: tolerance,
		buckets:   make(map[string]*DuplicateBucket),
	}
}

func (dt *DuplicateTracker) bucketFor(amount decimal.Decimal) *DuplicateBucket {
	key := BucketKey(amount, dt.tolerance)
	keyStr := key.String()

	bucket, ok := dt.buckets[keyStr]
	if !ok {
		bucket = &DuplicateBucket{Amount: key}
		dt.buckets[keyStr] = bucket
	}
	return bucket
}

// ObserveBank records one bank-side occurrence of the record's amount bucket
func (dt *DuplicateTracker) ObserveBank(rec *models.TransactionRecord) {
	dt.bucketFor(rec.Amount).BankOccurrences++
}

// ObserveLedger records one ledger-side occurrence of the record's amount bucket
func (dt *DuplicateTracker) ObserveLedger(rec *models.TransactionRecord) {
	dt.bucketFor(rec.Amount).LedgerOccurrences++
}

// ObserveMatch records a matched outcome against the bank record's bucket
func (dt *DuplicateTracker) ObserveMatch(bank *models.TransactionRecord) {
	dt.bucketFor(bank.Amount).MatchedOccurrences++
}

// Flagged returns the buckets needing review, sorted ascending by amount for
// deterministic output
func (dt *DuplicateTracker) Flagged() []*DuplicateBucket {
	var flagged []*DuplicateBucket
	for _, bucket := range dt.buckets {
		if bucket.NeedsReview() {
			flagged = append(flagged, bucket)
		}
	}

	sort.Slice(flagged, func(i, j int) bool {
		return flagged[i].Amount.LessThan(flagged[j].Amount)
	})

	return flagged
}
