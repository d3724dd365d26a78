// Package reconciler orchestrates the full reconciliation workflow: parsing
// both CSV feeds, validating them, running the matching engine and collecting
// the warnings produced along the way.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/parsers"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// ReconciliationService wires the feed parsers to the matching engine
type ReconciliationService struct {
	bankParser   *parsers.FeedParser
	ledgerParser *parsers.FeedParser
	engine       *matcher.MatchingEngine
	logger       logger.Logger
}

// Request describes one reconciliation run over two feed files
type Request struct {
	BankFile   string
	LedgerFile string

	// ParseConfig applies to both feeds; nil means defaults
	ParseConfig *parsers.ParseConfig
}

// Validate checks the request before any file is touched
func (r *Request) Validate() error {
	if r.BankFile == "" {
		return fmt.Errorf("bank feed file path is required")
	}
	if r.LedgerFile == "" {
		return fmt.Errorf("ledger feed file path is required")
	}
	return nil
}

// Output is the complete result of one reconciliation run
type Output struct {
	Result *matcher.ReconciliationResult `json:"result"`

	BankStats   *parsers.ParseStats `json:"-"`
	LedgerStats *parsers.ParseStats `json:"-"`

	// MalformedRecords counts rows excluded from matching across both feeds
	MalformedRecords int `json:"malformed_records"`

	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"duration"`
}

// NewReconciliationService creates a service around the given engine
// configuration; nil falls back to the engine defaults
func NewReconciliationService(engineConfig *matcher.ReconcileConfig, parseConfig *parsers.ParseConfig) (*ReconciliationService, error) {
	bankParser, err := parsers.NewFeedParser(models.SourceBank, parseConfig)
	if err != nil {
		return nil, err
	}

	ledgerParser, err := parsers.NewFeedParser(models.SourceLedger, parseConfig)
	if err != nil {
		return nil, err
	}

	return &ReconciliationService{
		bankParser:   bankParser,
		ledgerParser: ledgerParser,
		engine:       matcher.NewMatchingEngine(engineConfig),
		logger:       logger.GetGlobalLogger().WithComponent("reconciler"),
	}, nil
}

// Reconcile runs the full workflow for one request. Fatal conditions (missing
// files, schema problems, empty feeds) return an error; per-record problems
// surface as warnings on the output.
func (rs *ReconciliationService) Reconcile(ctx context.Context, request *Request) (*Output, error) {
	start := time.Now()

	if err := request.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciliation_request", request, err)
	}

	rs.logger.WithFields(logger.Fields{
		"bank_file":   request.BankFile,
		"ledger_file": request.LedgerFile,
	}).Info("Starting reconciliation")

	bank, bankStats, err := rs.bankParser.ParseFeed(ctx, request.BankFile)
	if err != nil {
		return nil, err
	}

	ledger, ledgerStats, err := rs.ledgerParser.ParseFeed(ctx, request.LedgerFile)
	if err != nil {
		return nil, err
	}

	if err := validateFeeds(bank, ledger); err != nil {
		return nil, err
	}

	result, err := rs.engine.Reconcile(bank, ledger)
	if err != nil {
		return nil, err
	}

	// Fold the excluded-row warnings from both feeds into the run warnings
	for _, w := range bankStats.Warnings.Warnings {
		result.Warnings.Add(w)
	}
	for _, w := range ledgerStats.Warnings.Warnings {
		result.Warnings.Add(w)
	}

	output := &Output{
		Result:           result,
		BankStats:        bankStats,
		LedgerStats:      ledgerStats,
		MalformedRecords: bankStats.Excluded + ledgerStats.Excluded,
		ProcessedAt:      start,
		Duration:         time.Since(start),
	}

	rs.logger.WithFields(logger.Fields{
		"matched":     result.Stats.Matched,
		"missing":     result.Stats.Missing,
		"orphans":     result.Stats.Orphans,
		"duration_ms": output.Duration.Milliseconds(),
	}).Info("Reconciliation completed")

	return output, nil
}

// ReconcileRecords runs the engine over records parsed elsewhere, applying
// the same empty-feed validation as the file workflow
func (rs *ReconciliationService) ReconcileRecords(bank, ledger []*models.TransactionRecord) (*matcher.ReconciliationResult, error) {
	if err := validateFeeds(bank, ledger); err != nil {
		return nil, err
	}
	return rs.engine.Reconcile(bank, ledger)
}

// validateFeeds enforces the non-empty precondition on both feeds. The engine
// itself tolerates empty slices, so enforcement lives here at the workflow
// boundary where the feed names are known.
func validateFeeds(bank, ledger []*models.TransactionRecord) error {
	if len(bank) == 0 {
		return errors.EmptyInputError(models.SourceBank.String())
	}
	if len(ledger) == 0 {
		return errors.EmptyInputError(models.SourceLedger.String())
	}

	for _, rec := range bank {
		if err := rec.Validate(); err != nil {
			return errors.ReconciliationError(errors.CodeDataInconsistent, "bank feed validation", err)
		}
	}
	for _, rec := range ledger {
		if err := rec.Validate(); err != nil {
			return errors.ReconciliationError(errors.CodeDataInconsistent, "ledger feed validation", err)
		}
	}

	return nil
}
