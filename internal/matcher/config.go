// Package matcher implements the core ledger reconciliation engine.
//
// The engine pairs bank statement records (ground truth) against accounting
// ledger records by amount and date, in three escalating stages:
//  1. Direct: one-to-one amount match within tolerance, closest date wins
//  2. Bulk: one ledger record that is an integer multiple of the bank amount
//     (fees posted as one aggregated line)
//  3. Combination: a bounded-size subset of ledger records summing to the
//     bank amount (a check posted as several smaller lines), found by
//     budget-bounded backtracking
//
// Each ledger record is consumed by at most one match; unmatched bank records
// end as Missing and unmatched ledger records as Orphans. The search is
// deliberately greedy first-feasible, not a globally optimal assignment, and
// downstream reports depend on this exact tie-break behavior.
//
// Example usage:
//
//	cfg := matcher.DefaultReconcileConfig()
//	cfg.DateToleranceDays = 3
//
//	engine := matcher.NewMatchingEngine(cfg)
//	result, err := engine.Reconcile(bankRecords, ledgerRecords)
package matcher

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bounds for the bulk multiplier search and the combination candidate pool.
// BulkMaxMultiplier caps the aggregated-fee factor; CandidatePoolCap keeps
// the backtracking pool tractable.
const (
	BulkMinMultiplier = 2
	BulkMaxMultiplier = 50

	CandidatePoolCap = 30

	// BulkDateWindowDays is the candidate date window (in days) for both the
	// bulk and combination matchers
	BulkDateWindowDays = 1
)

// ReconcileConfig holds the tunable parameters of the matching engine.
//
// AmountTolerance doubles as the bucket width of the amount index, so two
// amounts land in adjacent buckets whenever they could still match.
type ReconcileConfig struct {
	// AmountTolerance is the maximum absolute amount delta (in currency
	// units) treated as equal
	AmountTolerance decimal.Decimal `json:"amount_tolerance"`

	// DateToleranceDays is the window beyond which a successful match is
	// flagged "out of date tolerance" but still accepted
	DateToleranceDays int `json:"date_tolerance_days"`

	// MaxCombinations is the maximum subset size explored by the
	// combination matcher
	MaxCombinations int `json:"max_combinations"`

	// MaxBruteForceIterations is the node-visit budget per bank record for
	// the combination search
	MaxBruteForceIterations int `json:"max_brute_force_iterations"`

	// MinAmountForBruteForce is the minimum absolute bank amount required
	// to even attempt the combination search
	MinAmountForBruteForce decimal.Decimal `json:"min_amount_for_brute_force"`

	// CommissionThreshold separates small unmatched bank amounts (likely
	// bulk-posting gaps) from true discrepancies in the report
	CommissionThreshold decimal.Decimal `json:"commission_threshold"`
}

// DefaultReconcileConfig returns a configuration with the defaults used by
// the original reconciliation workflow
func DefaultReconcileConfig() *ReconcileConfig {
	return &ReconcileConfig{
		AmountTolerance:         decimal.NewFromFloat(0.01),
		DateToleranceDays:       5,
		MaxCombinations:         5,
		MaxBruteForceIterations: 50000,
		MinAmountForBruteForce:  decimal.NewFromInt(100),
		CommissionThreshold:     decimal.NewFromInt(5),
	}
}

// StrictReconcileConfig returns a configuration for exact matching only:
// zero-ish amount slack, same-day dates, no combination search
func StrictReconcileConfig() *ReconcileConfig {
	return &ReconcileConfig{
		AmountTolerance:         decimal.NewFromFloat(0.001),
		DateToleranceDays:       0,
		MaxCombinations:         0,
		MaxBruteForceIterations: 0,
		MinAmountForBruteForce:  decimal.NewFromInt(0),
		CommissionThreshold:     decimal.Zero,
	}
}

// RelaxedReconcileConfig returns a configuration for exploratory matching
// with wide windows and a deep combination search
func RelaxedReconcileConfig() *ReconcileConfig {
	return &ReconcileConfig{
		AmountTolerance:         decimal.NewFromFloat(0.05),
		DateToleranceDays:       10,
		MaxCombinations:         6,
		MaxBruteForceIterations: 200000,
		MinAmountForBruteForce:  decimal.NewFromInt(50),
		CommissionThreshold:     decimal.NewFromInt(10),
	}
}

// Validate checks if the configuration is valid
func (c *ReconcileConfig) Validate() error {
	if c.AmountTolerance.IsNegative() || c.AmountTolerance.IsZero() {
		return fmt.Errorf("amount tolerance must be positive: %s", c.AmountTolerance.String())
	}

	if c.DateToleranceDays < 0 {
		return fmt.Errorf("date tolerance days cannot be negative: %d", c.DateToleranceDays)
	}

	if c.MaxCombinations < 0 {
		return fmt.Errorf("max combinations cannot be negative: %d", c.MaxCombinations)
	}

	if c.MaxBruteForceIterations < 0 {
		return fmt.Errorf("max brute force iterations cannot be negative: %d", c.MaxBruteForceIterations)
	}

	if c.MinAmountForBruteForce.IsNegative() {
		return fmt.Errorf("min amount for brute force cannot be negative: %s", c.MinAmountForBruteForce.String())
	}

	if c.CommissionThreshold.IsNegative() {
		return fmt.Errorf("commission threshold cannot be negative: %s", c.CommissionThreshold.String())
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *ReconcileConfig) Clone() *ReconcileConfig {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// CombinationEnabled reports whether the combination matcher can run at all
// under this configuration
func (c *ReconcileConfig) CombinationEnabled() bool {
	return c.MaxCombinations > 1 && c.MaxBruteForceIterations > 0
}

// WithinAmountTolerance checks two absolute amounts against the tolerance
func (c *ReconcileConfig) WithinAmountTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(c.AmountTolerance)
}

// String returns a human-readable description of the configuration
func (c *ReconcileConfig) String() string {
	return fmt.Sprintf("ReconcileConfig{AmountTolerance: %s, DateTolerance: %d days, MaxCombinations: %d, Budget: %d, MinBruteForceAmount: %s}",
		c.AmountTolerance.String(), c.DateToleranceDays, c.MaxCombinations,
		c.MaxBruteForceIterations, c.MinAmountForBruteForce.String())
}
