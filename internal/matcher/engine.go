package matcher

import (
	"fmt"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// recordMatcher is one matching strategy in the pipeline. Match returns a
// Matched outcome (after consuming the ledger records it used) or nil when
// the strategy cannot pair this bank record.
type recordMatcher interface {
	Kind() models.MatchKind
	Match(r *run, bank *models.TransactionRecord) *models.MatchOutcome
}

// pipelineOrder fixes the strategy escalation: direct first, then bulk,
// then combination. A record matched by an earlier stage is never
// re-attempted by a later one.
var pipelineOrder = []models.MatchKind{
	models.MatchDirect,
	models.MatchBulk,
	models.MatchCombination,
}

// MatchingEngine runs the reconciliation pipeline. The engine itself holds
// only configuration and the strategy registry; all per-run state lives in a
// run value allocated inside Reconcile, so independent runs can execute in
// parallel with no shared state.
type MatchingEngine struct {
	Config   *ReconcileConfig
	registry map[models.MatchKind]recordMatcher
	logger   logger.Logger
}

// run is the state owned by a single reconciliation invocation: the consumed
// markers, the amount index over ledger stock, and the warning sink. It is
// created and discarded inside Reconcile.
type run struct {
	cfg      *ReconcileConfig
	ledger   []*models.TransactionRecord
	index    *AmountIndex
	consumed []bool
	stats    *RunStats
	warnings *errors.WarningList
}

// consume marks one ledger record as used by a match
func (r *run) consume(rec *models.TransactionRecord) {
	r.consumed[rec.Seq] = true
	r.stats.ConsumedLedger++
}

// RunStats carries the aggregate counters produced by one reconciliation run
type RunStats struct {
	TotalBank          int `json:"total_bank"`
	TotalLedger        int `json:"total_ledger"`
	Matched            int `json:"matched"`
	DirectMatches      int `json:"direct_matches"`
	BulkMatches        int `json:"bulk_matches"`
	CombinationMatches int `json:"combination_matches"`
	Missing            int `json:"missing"`
	Orphans            int `json:"orphans"`
	ConsumedLedger     int `json:"consumed_ledger"`
	DateMismatch       int `json:"date_mismatch"`
	BudgetExceeded     int `json:"budget_exceeded"`
}

// ReconciliationResult is the complete output of one run: the ordered
// outcome list (bank records in input order, then orphans in ledger order),
// run counters, flagged duplicate buckets and collected warnings.
type ReconciliationResult struct {
	Outcomes   []*models.MatchOutcome `json:"outcomes"`
	Stats      RunStats               `json:"stats"`
	Duplicates []*DuplicateBucket     `json:"duplicates"`
	Warnings   *errors.WarningList    `json:"warnings,omitempty"`
}

// NewMatchingEngine creates an engine with the specified configuration.
// The strategy registry is resolved once here, not per record.
func NewMatchingEngine(config *ReconcileConfig) *MatchingEngine {
	if config == nil {
		config = DefaultReconcileConfig()
	}

	return &MatchingEngine{
		Config: config,
		registry: map[models.MatchKind]recordMatcher{
			models.MatchDirect:      &directMatcher{},
			models.MatchBulk:        &bulkMultiplierMatcher{},
			models.MatchCombination: &subsetSumMatcher{},
		},
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// Reconcile pairs bank records against ledger records and returns the
// per-record verdicts. Inputs are read-only; determinism depends on the
// records carrying their original sequence indices.
func (me *MatchingEngine) Reconcile(bank, ledger []*models.TransactionRecord) (*ReconciliationResult, error) {
	if err := me.Config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconcile_config", me.Config.String(), err)
	}

	if err := validateSequence(ledger); err != nil {
		return nil, err
	}

	me.logger.WithFields(logger.Fields{
		"bank_records":   len(bank),
		"ledger_records": len(ledger),
	}).Info("Starting reconciliation run")

	r := &run{
		cfg:      me.Config,
		ledger:   ledger,
		index:    NewAmountIndex(ledger, me.Config.AmountTolerance),
		consumed: make([]bool, len(ledger)),
		stats:    &RunStats{TotalBank: len(bank), TotalLedger: len(ledger)},
		warnings: &errors.WarningList{},
	}

	tracker := NewDuplicateTracker(me.Config.AmountTolerance)
	for _, rec := range bank {
		tracker.ObserveBank(rec)
	}
	for _, rec := range ledger {
		tracker.ObserveLedger(rec)
	}

	outcomes := make([]*models.MatchOutcome, 0, len(bank)+len(ledger))

	for _, bankRec := range bank {
		outcome := me.matchOne(r, bankRec)
		if outcome == nil {
			outcome = models.NewMissingOutcome(bankRec)
			r.stats.Missing++
		} else {
			r.stats.Matched++
			tracker.ObserveMatch(bankRec)
			me.annotate(r, outcome)
		}
		outcomes = append(outcomes, outcome)
	}

	// Ledger records never consumed are orphans, in original sequence order
	for _, ledgerRec := range ledger {
		if !r.consumed[ledgerRec.Seq] {
			outcomes = append(outcomes, models.NewOrphanOutcome(ledgerRec))
			r.stats.Orphans++
		}
	}

	result := &ReconciliationResult{
		Outcomes:   outcomes,
		Stats:      *r.stats,
		Duplicates: tracker.Flagged(),
		Warnings:   r.warnings,
	}

	if err := verifyConservation(result); err != nil {
		return nil, err
	}

	me.logger.WithFields(logger.Fields{
		"matched": result.Stats.Matched,
		"missing": result.Stats.Missing,
		"orphans": result.Stats.Orphans,
	}).Info("Reconciliation run complete")

	return result, nil
}

// matchOne walks the pipeline for a single bank record, stopping at the
// first stage that produces a match
func (me *MatchingEngine) matchOne(r *run, bank *models.TransactionRecord) *models.MatchOutcome {
	for _, kind := range pipelineOrder {
		strategy := me.registry[kind]
		if outcome := strategy.Match(r, bank); outcome != nil {
			switch kind {
			case models.MatchDirect:
				r.stats.DirectMatches++
			case models.MatchBulk:
				r.stats.BulkMatches++
			case models.MatchCombination:
				r.stats.CombinationMatches++
			}
			return outcome
		}
	}
	return nil
}

// annotate flags matches whose date delta exceeds the tolerance window.
// Informational only: the match stands.
func (me *MatchingEngine) annotate(r *run, outcome *models.MatchOutcome) {
	if !outcome.HasDateDelta() {
		return
	}
	if outcome.DateDeltaDays > me.Config.DateToleranceDays {
		outcome.Note = models.NoteOutOfDateTolerance
		r.stats.DateMismatch++
	}
}

// validateSequence ensures ledger records carry their position as sequence
// index, which the consumed markers and determinism guarantees rely on
func validateSequence(ledger []*models.TransactionRecord) error {
	for i, rec := range ledger {
		if rec.Seq != i {
			return errors.ReconciliationError(
				errors.CodeDataInconsistent,
				"sequence validation",
				fmt.Errorf("ledger record at position %d carries sequence index %d", i, rec.Seq),
			)
		}
	}
	return nil
}

// verifyConservation checks the run invariants before the result leaves the
// engine: every bank record is matched or missing, every ledger record is
// consumed or orphaned
func verifyConservation(result *ReconciliationResult) error {
	s := result.Stats

	if s.Matched+s.Missing != s.TotalBank {
		return errors.ReconciliationError(
			errors.CodeDataInconsistent,
			"conservation check",
			fmt.Errorf("matched %d + missing %d != total bank %d", s.Matched, s.Missing, s.TotalBank),
		)
	}

	if s.ConsumedLedger+s.Orphans != s.TotalLedger {
		return errors.ReconciliationError(
			errors.CodeDataInconsistent,
			"conservation check",
			fmt.Errorf("consumed %d + orphans %d != total ledger %d", s.ConsumedLedger, s.Orphans, s.TotalLedger),
		)
	}

	return nil
}
