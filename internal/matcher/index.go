package matcher

import (
	"sort"

	"ledger-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// AmountIndex buckets unconsumed ledger records by rounded absolute amount so
// candidate lookup scans bucket keys instead of the whole ledger. The bucket
// width equals the amount tolerance, which guarantees that every record within
// tolerance of a target lies in a bucket whose key is within tolerance of it.
type AmountIndex struct {
	tolerance decimal.Decimal
	entries   []*bucketEntry          // sorted ascending by bucket key
	byKey     map[string]*bucketEntry // bucket key string -> entry
}

// bucketEntry groups the ledger records sharing one rounded-amount bucket,
// kept in ascending sequence order
type bucketEntry struct {
	Key     decimal.Decimal
	Records []*models.TransactionRecord
}

// NewAmountIndex builds an index over the given ledger records
func NewAmountIndex(ledger []*models.TransactionRecord, tolerance decimal.Decimal) *AmountIndex {
	idx := &AmountIndex{
		tolerance: tolerance,
		byKey:     make(map[string]*bucketEntry),
	}

	for _, rec := range ledger {
		idx.add(rec)
	}

	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].Key.LessThan(idx.entries[j].Key)
	})

	return idx
}

// BucketKey computes the rounded-amount bucket for an absolute amount:
// round(|amount| / tolerance) * tolerance
func BucketKey(amount, tolerance decimal.Decimal) decimal.Decimal {
	return amount.Abs().Div(tolerance).Round(0).Mul(tolerance)
}

func (idx *AmountIndex) add(rec *models.TransactionRecord) {
	key := BucketKey(rec.Amount, idx.tolerance)
	keyStr := key.String()

	entry, ok := idx.byKey[keyStr]
	if !ok {
		entry = &bucketEntry{Key: key}
		idx.byKey[keyStr] = entry
		idx.entries = append(idx.entries, entry)
	}
	entry.Records = append(entry.Records, rec)
}

// Query returns the unconsumed ledger records whose bucket key lies within
// [target − tolerance, target + tolerance], in ascending sequence order.
// target must already be an absolute amount. The scan is bounded by the
// number of distinct buckets, not the record count.
func (idx *AmountIndex) Query(target, tolerance decimal.Decimal, consumed []bool) []*models.TransactionRecord {
	lo := target.Sub(tolerance)
	hi := target.Add(tolerance)

	start := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Key.GreaterThanOrEqual(lo)
	})

	var result []*models.TransactionRecord
	for i := start; i < len(idx.entries); i++ {
		entry := idx.entries[i]
		if entry.Key.GreaterThan(hi) {
			break
		}
		for _, rec := range entry.Records {
			if consumed[rec.Seq] {
				continue
			}
			// The bucket key is rounded, so re-check the actual amount
			if rec.AbsAmount().Sub(target).Abs().GreaterThan(tolerance) {
				continue
			}
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result
}

// BucketCount returns the number of distinct amount buckets in the index
func (idx *AmountIndex) BucketCount() int {
	return len(idx.entries)
}

// IndexStats provides statistics about index shape, for diagnostics
type IndexStats struct {
	TotalRecords  int
	UniqueBuckets int
	LargestBucket int
}

// Stats returns statistics about the index
func (idx *AmountIndex) Stats() IndexStats {
	stats := IndexStats{UniqueBuckets: len(idx.entries)}
	for _, entry := range idx.entries {
		stats.TotalRecords += len(entry.Records)
		if len(entry.Records) > stats.LargestBucket {
			stats.LargestBucket = len(entry.Records)
		}
	}
	return stats
}
