package matcher

import (
	"math"

	"ledger-reconciliation-service/internal/models"
)

// directMatcher pairs one bank record with the single unconsumed ledger
// record whose amount falls within tolerance, preferring the closest date.
type directMatcher struct{}

func (m *directMatcher) Kind() models.MatchKind {
	return models.MatchDirect
}

// Match returns a Direct outcome or nil when no candidate is within the
// amount tolerance. Candidate selection minimizes the whole-day date distance
// (a missing date on either side counts as infinite); ties go to the lowest
// ledger sequence index, which the index already yields first.
func (m *directMatcher) Match(r *run, bank *models.TransactionRecord) *models.MatchOutcome {
	candidates := r.index.Query(bank.AbsAmount(), r.cfg.AmountTolerance, r.consumed)
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	bestDist := dateDistance(bank, best)
	for _, cand := range candidates[1:] {
		if d := dateDistance(bank, cand); d < bestDist {
			best = cand
			bestDist = d
		}
	}

	r.consume(best)

	outcome := models.NewMatchedOutcome(bank, []*models.TransactionRecord{best}, models.MatchDirect)
	if bank.HasDate() && best.HasDate() {
		outcome.DateDeltaDays = models.DaysBetween(bank.Date, best.Date)
	}

	return outcome
}

// dateDistance returns the whole-day distance between two records' dates,
// or infinity when either date is missing
func dateDistance(a, b *models.TransactionRecord) int {
	if !a.HasDate() || !b.HasDate() {
		return math.MaxInt
	}
	return models.DaysBetween(a.Date, b.Date)
}
