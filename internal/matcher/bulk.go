package matcher

import (
	"sort"

	"ledger-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// bulkMultiplierMatcher handles the aggregated-fee case: the accounting
// system posts N identical small bank movements as one ledger line, so one
// ledger amount is an integer multiple of the bank amount.
type bulkMultiplierMatcher struct{}

func (m *bulkMultiplierMatcher) Kind() models.MatchKind {
	return models.MatchBulk
}

// Match tests multipliers 2..50 ascending against unconsumed ledger records
// within one day of the bank record, consuming the first hit. For a given
// multiplier, candidates are tried by date proximity and then sequence order.
// The search is deliberately greedy: first multiplier wins, not best fit.
func (m *bulkMultiplierMatcher) Match(r *run, bank *models.TransactionRecord) *models.MatchOutcome {
	if !bank.HasDate() {
		// No date window to search within
		return nil
	}

	target := bank.AbsAmount()
	pool := m.collectCandidates(r, bank, target)
	if len(pool) == 0 {
		return nil
	}

	// Largest candidate bounds the useful multiplier range
	maxAbs := pool[0].AbsAmount()
	for _, cand := range pool[1:] {
		if cand.AbsAmount().GreaterThan(maxAbs) {
			maxAbs = cand.AbsAmount()
		}
	}

	for mult := BulkMinMultiplier; mult <= BulkMaxMultiplier; mult++ {
		want := target.Mul(decimal.NewFromInt(int64(mult)))
		if want.Sub(r.cfg.AmountTolerance).GreaterThan(maxAbs) {
			break
		}

		for _, cand := range pool {
			if r.consumed[cand.Seq] {
				continue
			}
			if r.cfg.WithinAmountTolerance(cand.AbsAmount(), want) {
				r.consume(cand)

				outcome := models.NewMatchedOutcome(bank, []*models.TransactionRecord{cand}, models.MatchBulk)
				outcome.Multiplier = mult
				outcome.DateDeltaDays = models.DaysBetween(bank.Date, cand.Date)
				return outcome
			}
		}
	}

	return nil
}

// collectCandidates gathers unconsumed, dated ledger records within the
// ±1 day window whose amount is at least the bank amount, ordered by date
// proximity with sequence order as the tie-break
func (m *bulkMultiplierMatcher) collectCandidates(r *run, bank *models.TransactionRecord, target decimal.Decimal) []*models.TransactionRecord {
	var pool []*models.TransactionRecord
	for _, cand := range r.ledger {
		if r.consumed[cand.Seq] || !cand.HasDate() {
			continue
		}
		if models.DaysBetween(bank.Date, cand.Date) > BulkDateWindowDays {
			continue
		}
		if cand.AbsAmount().LessThan(target) {
			continue
		}
		pool = append(pool, cand)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		di := models.DaysBetween(bank.Date, pool[i].Date)
		dj := models.DaysBetween(bank.Date, pool[j].Date)
		if di != dj {
			return di < dj
		}
		return pool[i].Seq < pool[j].Seq
	})

	return pool
}
