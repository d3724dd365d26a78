package matcher

import (
	"sort"
	"time"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// subsetSumMatcher handles the split-payment case: a single large bank
// movement (typically a check) posted as several smaller ledger lines.
// It searches for a bounded-size subset of unconsumed ledger records whose
// amounts sum to the bank amount, by depth-first backtracking.
//
// The search returns the FIRST feasible subset under a fixed
// descending-amount ordering, not the smallest or closest one. Downstream
// reports key off this behavior, so the ordering must not change.
type subsetSumMatcher struct{}

func (m *subsetSumMatcher) Kind() models.MatchKind {
	return models.MatchCombination
}

// Match attempts a combination match for a bank record. It only runs for
// amounts at or above MinAmountForBruteForce, and gives up (leaving the
// record Missing) when the node budget runs out.
func (m *subsetSumMatcher) Match(r *run, bank *models.TransactionRecord) *models.MatchOutcome {
	if !r.cfg.CombinationEnabled() {
		return nil
	}
	if bank.AbsAmount().LessThan(r.cfg.MinAmountForBruteForce) {
		return nil
	}
	if !bank.HasDate() {
		return nil
	}

	target := bank.AbsAmount()
	pool := m.candidatePool(r, bank, target)
	if len(pool) == 0 {
		return nil
	}

	// Fixed search ordering: descending amount, ascending sequence on ties
	sort.SliceStable(pool, func(i, j int) bool {
		ai, aj := pool[i].AbsAmount(), pool[j].AbsAmount()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return pool[i].Seq < pool[j].Seq
	})

	budget := r.cfg.MaxBruteForceIterations
	path := make([]*models.TransactionRecord, 0, r.cfg.MaxCombinations)
	subset, exhausted := m.search(r.cfg, pool, 0, decimal.Zero, path, target, &budget)

	if exhausted {
		r.warnings.Add(errors.BudgetExceededWarning(bank.Seq, r.cfg.MaxBruteForceIterations))
		r.stats.BudgetExceeded++
		return nil
	}
	if subset == nil {
		return nil
	}

	// All-or-nothing consumption of the found subset
	for _, rec := range subset {
		r.consume(rec)
	}

	outcome := models.NewMatchedOutcome(bank, subset, models.MatchCombination)
	outcome.Size = len(subset)
	outcome.DateDeltaDays = models.DaysBetween(bank.Date, meanDate(subset))
	return outcome
}

// search walks the candidate list depth-first. Every node visit decrements
// the shared budget; when it hits zero the whole search aborts. Candidates
// that would push the running sum past target + tolerance are skipped, and a
// branch succeeds the instant the running sum lands within tolerance.
func (m *subsetSumMatcher) search(
	cfg *ReconcileConfig,
	pool []*models.TransactionRecord,
	start int,
	sum decimal.Decimal,
	path []*models.TransactionRecord,
	target decimal.Decimal,
	budget *int,
) ([]*models.TransactionRecord, bool) {

	if len(path) >= cfg.MaxCombinations {
		return nil, false
	}

	upper := target.Add(cfg.AmountTolerance)

	for i := start; i < len(pool); i++ {
		if *budget <= 0 {
			return nil, true
		}
		*budget--

		next := sum.Add(pool[i].AbsAmount())
		if next.GreaterThan(upper) {
			continue
		}

		path = append(path, pool[i])

		if next.Sub(target).Abs().LessThanOrEqual(cfg.AmountTolerance) {
			subset := make([]*models.TransactionRecord, len(path))
			copy(subset, path)
			return subset, false
		}

		if subset, exhausted := m.search(cfg, pool, i+1, next, path, target, budget); subset != nil || exhausted {
			return subset, exhausted
		}

		path = path[:len(path)-1]
	}

	return nil, false
}

// candidatePool gathers unconsumed, dated ledger records within ±1 day of
// the bank record, reduced to the configured cap. The reduction keeps every
// candidate that fits under target + tolerance and tops the pool up with the
// largest of the rest, so both "fits directly" and "anchors a big
// combination" cases stay represented.
func (m *subsetSumMatcher) candidatePool(r *run, bank *models.TransactionRecord, target decimal.Decimal) []*models.TransactionRecord {
	var pool []*models.TransactionRecord
	for _, cand := range r.ledger {
		if r.consumed[cand.Seq] || !cand.HasDate() {
			continue
		}
		if models.DaysBetween(bank.Date, cand.Date) > BulkDateWindowDays {
			continue
		}
		pool = append(pool, cand)
	}

	if len(pool) <= CandidatePoolCap {
		return pool
	}

	upper := target.Add(r.cfg.AmountTolerance)
	var fits, rest []*models.TransactionRecord
	for _, cand := range pool {
		if cand.AbsAmount().LessThanOrEqual(upper) {
			fits = append(fits, cand)
		} else {
			rest = append(rest, cand)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		ai, aj := rest[i].AbsAmount(), rest[j].AbsAmount()
		if !ai.Equal(aj) {
			return ai.GreaterThan(aj)
		}
		return rest[i].Seq < rest[j].Seq
	})

	if room := CandidatePoolCap - len(fits); room > 0 {
		if room > len(rest) {
			room = len(rest)
		}
		pool = append(fits, rest[:room]...)
	} else {
		pool = fits
	}

	if len(pool) > CandidatePoolCap {
		sort.SliceStable(pool, func(i, j int) bool {
			ai, aj := pool[i].AbsAmount(), pool[j].AbsAmount()
			if !ai.Equal(aj) {
				return ai.GreaterThan(aj)
			}
			return pool[i].Seq < pool[j].Seq
		})
		pool = pool[:CandidatePoolCap]
	}

	return pool
}

// meanDate returns the mean timestamp of the records' dates. Callers
// guarantee every record in the subset is dated.
func meanDate(records []*models.TransactionRecord) time.Time {
	var total int64
	for _, rec := range records {
		total += rec.Date.Unix()
	}
	return time.Unix(total/int64(len(records)), 0).UTC()
}
