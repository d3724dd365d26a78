// Package reporter renders reconciliation results for humans and machines.
//
// Three output formats are supported:
//   - Console: tabular summary plus the records needing attention
//   - JSON: the full result with summary, for programmatic consumption
//   - CSV: one row per outcome, for spreadsheet review
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/pkg/errors"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds the report generation options
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeMatched adds matched outcomes to CSV/console detail sections;
	// missing and orphan outcomes are always included
	IncludeMatched bool `json:"include_matched"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	// MaxDetailRows caps the console detail sections; 0 means no cap
	MaxDetailRows int `json:"max_detail_rows"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeMatched: false,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
		MaxDetailRows:  50,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxDetailRows < 0 {
		return fmt.Errorf("max detail rows cannot be negative: %d", c.MaxDetailRows)
	}
	return nil
}

// ReportGenerator renders run outputs in the configured format
type ReportGenerator struct {
	config       *ReportConfig
	engineConfig *matcher.ReconcileConfig
}

// NewReportGenerator creates a generator; the engine config supplies the
// tolerance and commission threshold the summary depends on
func NewReportGenerator(config *ReportConfig, engineConfig *matcher.ReconcileConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config:       config,
		engineConfig: engineConfig,
	}, nil
}

// GenerateReport renders the run output to the writer
func (rg *ReportGenerator) GenerateReport(output *reconciler.Output, writer io.Writer) error {
	if output == nil || output.Result == nil {
		return fmt.Errorf("reconciliation output cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(output, writer)
	case FormatJSON:
		return rg.generateJSONReport(output, writer)
	case FormatCSV:
		return rg.generateCSVReport(output, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(output *reconciler.Output, writer io.Writer) error {
	summary := BuildSummary(output, rg.engineConfig)
	result := output.Result

	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n", output.ProcessedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration: %v\n\n", output.Duration)

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "%-28s %d\n", "Bank records:", summary.TotalBank)
	fmt.Fprintf(writer, "%-28s %d\n", "Ledger records:", summary.TotalLedger)
	fmt.Fprintf(writer, "%-28s %d (%.1f%%)\n", "Matched:", summary.Matched, summary.CompletionRate)
	fmt.Fprintf(writer, "%-28s %d\n", "Missing (bank only):", summary.Missing)
	fmt.Fprintf(writer, "%-28s %d\n", "Orphans (ledger only):", summary.Orphans)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== MATCH BREAKDOWN ===\n")
	fmt.Fprintf(writer, "%-28s %d\n", "Direct:", summary.DirectMatches)
	fmt.Fprintf(writer, "%-28s %d\n", "Bulk:", summary.BulkMatches)
	fmt.Fprintf(writer, "%-28s %d\n", "Combination:", summary.CombinationMatches)
	fmt.Fprintf(writer, "%-28s %d\n", "Out of date tolerance:", summary.DateMismatch)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "=== BALANCES ===\n")
	fmt.Fprintf(writer, "%-28s %s\n", "Bank balance:", summary.BankBalance.StringFixed(2))
	fmt.Fprintf(writer, "%-28s %s\n", "Ledger balance:", summary.LedgerBalance.StringFixed(2))
	fmt.Fprintf(writer, "%-28s %s\n", "Difference:", summary.BalanceDelta.StringFixed(2))
	fmt.Fprintf(writer, "%-28s %v\n", "Balanced:", summary.IsBalanced)
	fmt.Fprintf(writer, "%-28s %s\n", "Missing amount:", summary.MissingAmount.StringFixed(2))
	fmt.Fprintf(writer, "%-28s %s\n", "Orphan amount:", summary.OrphanAmount.StringFixed(2))
	fmt.Fprintf(writer, "\n")

	if summary.MalformedRecords > 0 || summary.BudgetExceeded > 0 || summary.Duplicates > 0 {
		fmt.Fprintf(writer, "=== DATA QUALITY ===\n")
		fmt.Fprintf(writer, "%-28s %d\n", "Malformed records:", summary.MalformedRecords)
		fmt.Fprintf(writer, "%-28s %d\n", "Budget exceeded:", summary.BudgetExceeded)
		fmt.Fprintf(writer, "%-28s %d\n", "Duplicate amounts flagged:", summary.Duplicates)
		fmt.Fprintf(writer, "%-28s %d\n", "Small commissions unmatched:",
			summary.SmallCommissionsUnmatched)
		fmt.Fprintf(writer, "\n")
	}

	rg.printUnreconciled(result, writer)
	rg.printDuplicates(result, writer)

	return nil
}

// printUnreconciled lists the missing and orphan outcomes needing review
func (rg *ReportGenerator) printUnreconciled(result *matcher.ReconciliationResult, writer io.Writer) {
	var rows []*models.MatchOutcome
	for _, outcome := range result.Outcomes {
		if outcome.Status != models.StatusMatched {
			rows = append(rows, outcome)
		}
	}
	if len(rows) == 0 {
		return
	}

	fmt.Fprintf(writer, "=== UNRECONCILED ===\n")
	fmt.Fprintf(writer, "%-8s %-12s %12s  %s\n", "Status", "Date", "Amount", "Description")

	shown := 0
	for _, outcome := range rows {
		if rg.config.MaxDetailRows > 0 && shown >= rg.config.MaxDetailRows {
			fmt.Fprintf(writer, "... and %d more\n", len(rows)-shown)
			break
		}

		rec := outcome.BankRecord
		if rec == nil {
			rec = outcome.LedgerRecords[0]
		}

		date := "-"
		if rec.HasDate() {
			date = rec.Date.Format("2006-01-02")
		}

		fmt.Fprintf(writer, "%-8s %-12s %12s  %s\n",
			outcome.Status, date, rec.Amount.StringFixed(2), rec.Description)
		shown++
	}
	fmt.Fprintf(writer, "\n")
}

// printDuplicates lists the flagged duplicate-amount buckets
func (rg *ReportGenerator) printDuplicates(result *matcher.ReconciliationResult, writer io.Writer) {
	if len(result.Duplicates) == 0 {
		return
	}

	fmt.Fprintf(writer, "=== DUPLICATE AMOUNTS ===\n")
	fmt.Fprintf(writer, "%12s %6s %8s %9s\n", "Amount", "Bank", "Ledger", "Matched")
	for _, bucket := range result.Duplicates {
		fmt.Fprintf(writer, "%12s %6d %8d %9d\n",
			bucket.Amount.StringFixed(2),
			bucket.BankOccurrences, bucket.LedgerOccurrences, bucket.MatchedOccurrences)
	}
	fmt.Fprintf(writer, "\n")
}

// jsonReport is the envelope for the JSON format
type jsonReport struct {
	Summary  *Summary                      `json:"summary"`
	Result   *matcher.ReconciliationResult `json:"result"`
	Warnings []string                      `json:"warnings,omitempty"`
}

func (rg *ReportGenerator) generateJSONReport(output *reconciler.Output, writer io.Writer) error {
	report := &jsonReport{
		Summary: BuildSummary(output, rg.engineConfig),
		Result:  output.Result,
	}

	for _, w := range output.Result.Warnings.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (rg *ReportGenerator) generateCSVReport(output *reconciler.Output, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		headers := []string{
			"status", "match_kind", "bank_seq", "bank_date", "bank_amount",
			"ledger_seqs", "ledger_amount_sum", "multiplier", "subset_size",
			"date_delta_days", "description", "note",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, outcome := range output.Result.Outcomes {
		if outcome.Status == models.StatusMatched && !rg.config.IncludeMatched {
			continue
		}
		if err := csvWriter.Write(outcomeRow(outcome)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// outcomeRow flattens one outcome into a CSV row
func outcomeRow(outcome *models.MatchOutcome) []string {
	var bankSeq, bankDate, bankAmount, description string
	if outcome.BankRecord != nil {
		bankSeq = strconv.Itoa(outcome.BankRecord.Seq)
		bankAmount = outcome.BankRecord.Amount.StringFixed(2)
		description = outcome.BankRecord.Description
		if outcome.BankRecord.HasDate() {
			bankDate = outcome.BankRecord.Date.Format("2006-01-02")
		}
	} else if len(outcome.LedgerRecords) > 0 {
		description = outcome.LedgerRecords[0].Description
	}

	var seqs []string
	for _, rec := range outcome.LedgerRecords {
		seqs = append(seqs, strconv.Itoa(rec.Seq))
	}

	var multiplier, size string
	if outcome.Multiplier > 0 {
		multiplier = strconv.Itoa(outcome.Multiplier)
	}
	if outcome.Size > 0 {
		size = strconv.Itoa(outcome.Size)
	}

	dateDelta := ""
	if outcome.HasDateDelta() {
		dateDelta = strconv.Itoa(outcome.DateDeltaDays)
	}

	amountSum := ""
	if outcome.Status != models.StatusMissing {
		amountSum = outcome.AmountSum.StringFixed(2)
	}
	if outcome.Status == models.StatusOrphan {
		amountSum = outcome.LedgerRecords[0].Amount.StringFixed(2)
	}

	return []string{
		string(outcome.Status),
		outcome.Kind.String(),
		bankSeq,
		bankDate,
		bankAmount,
		strings.Join(seqs, "|"),
		amountSum,
		multiplier,
		size,
		dateDelta,
		description,
		outcome.Note,
	}
}

// WarningSummary formats the run warnings for log output
func WarningSummary(list *errors.WarningList) string {
	if list == nil || list.Len() == 0 {
		return ""
	}

	malformed := countWarnings(list, errors.CodeInvalidData)
	budget := countWarnings(list, errors.CodeBudgetExceeded)

	var parts []string
	if malformed > 0 {
		parts = append(parts, fmt.Sprintf("%d malformed record(s) excluded", malformed))
	}
	if budget > 0 {
		parts = append(parts, fmt.Sprintf("%d combination search(es) hit the budget", budget))
	}
	return strings.Join(parts, "; ")
}
