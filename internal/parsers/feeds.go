package parsers

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Column aliases accepted for each logical field. Feeds exported from the
// accounting system carry Italian headers, bank exports usually English ones.
var (
	dateAliases        = []string{"date", "data", "data_contabile", "data contabile", "transaction_date", "valuta"}
	amountAliases      = []string{"amount", "importo", "value", "movimento"}
	debitAliases       = []string{"dare", "debit"}
	creditAliases      = []string{"avere", "credit"}
	descriptionAliases = []string{"description", "descrizione", "details", "causale", "note"}
)

// FeedParser parses one CSV feed (bank statement or accounting ledger) into
// transaction records. Rows with unparseable dates or amounts are excluded
// and reported as warnings; the feed as a whole only fails on structural
// problems such as a missing amount column.
type FeedParser struct {
	*baseParser
	source models.RecordSource
	logger logger.Logger
}

// NewFeedParser creates a parser producing records tagged with the given source
func NewFeedParser(source models.RecordSource, config *ParseConfig) (*FeedParser, error) {
	if !source.IsValid() {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "feed_source", string(source), nil)
	}

	return &FeedParser{
		baseParser: newBaseParser(config),
		source:     source,
		logger:     logger.GetGlobalLogger().WithComponent("feed_parser"),
	}, nil
}

// feedColumns holds the resolved column indices for one feed; -1 means absent
type feedColumns struct {
	date        int
	amount      int
	debit       int
	credit      int
	description int
}

// ParseFeed parses the CSV file at filePath into transaction records carrying
// sequence indices 0..n-1 over the valid rows
func (fp *FeedParser) ParseFeed(ctx context.Context, filePath string) ([]*models.TransactionRecord, *ParseStats, error) {
	fp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"feed":      fp.source.String(),
	}).Info("Starting feed parsing")

	file, reader, err := fp.openFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	stats := NewParseStats()
	lineNumber := 0

	columns, err := fp.resolveColumns(reader, &lineNumber)
	if err != nil {
		return nil, stats, err
	}

	var records []*models.TransactionRecord

	for {
		select {
		case <-ctx.Done():
			return records, stats, errors.Wrap(ctx.Err(), errors.CategoryInternal,
				errors.CodeUnexpectedError, "feed parsing cancelled")
		default:
		}

		row, err := fp.readRecord(reader, &lineNumber)
		if err != nil {
			if err == io.EOF {
				break
			}
			stats.AddWarning(errors.MalformedValueWarning(fp.source.String(), lineNumber, "row", "", err))
			continue
		}

		stats.RecordsParsed++

		record, warn := fp.parseRow(row, columns, lineNumber, len(records))
		if warn != nil {
			stats.AddWarning(warn)
			continue
		}

		records = append(records, record)
		stats.RecordsValid++
	}

	stats.TotalLines = lineNumber

	fp.logger.WithFields(logger.Fields{
		"feed":          fp.source.String(),
		"total_lines":   stats.TotalLines,
		"records_valid": stats.RecordsValid,
		"excluded":      stats.Excluded,
	}).Info("Feed parsing completed")

	return records, stats, nil
}

// resolveColumns reads the header row and maps the logical fields onto it.
// The amount field may be a single column or a debit/credit pair; everything
// else is optional.
func (fp *FeedParser) resolveColumns(reader *csv.Reader, lineNumber *int) (*feedColumns, error) {
	headers, err := fp.readRecord(reader, lineNumber)
	if err != nil {
		if err == io.EOF {
			return nil, errors.EmptyInputError(fp.source.String())
		}
		return nil, errors.Wrap(err, errors.CategoryParse, errors.CodeInvalidFormat,
			"failed to read header row")
	}

	columns := &feedColumns{
		date:        findColumn(headers, dateAliases),
		amount:      findColumn(headers, amountAliases),
		debit:       findColumn(headers, debitAliases),
		credit:      findColumn(headers, creditAliases),
		description: findColumn(headers, descriptionAliases),
	}

	if columns.amount == -1 && (columns.debit == -1 || columns.credit == -1) {
		return nil, errors.SchemaError(fp.source.String(), "amount")
	}
	if columns.date == -1 {
		return nil, errors.SchemaError(fp.source.String(), "date")
	}

	return columns, nil
}

// parseRow converts one CSV row into a record, or a warning when a value is
// unparseable. seq is the index the record will occupy among valid rows.
func (fp *FeedParser) parseRow(row []string, columns *feedColumns, line, seq int) (*models.TransactionRecord, *errors.ReconcilerError) {
	amount, field, raw, err := fp.extractAmount(row, columns)
	if err != nil {
		return nil, errors.MalformedValueWarning(fp.source.String(), line, field, raw, err)
	}

	var date time.Time
	if raw := fieldAt(row, columns.date); raw != "" {
		date, err = models.ParseDateWithFormats(raw)
		if err != nil {
			return nil, errors.MalformedValueWarning(fp.source.String(), line, "date", raw, err)
		}
	}

	description := fieldAt(row, columns.description)

	if fp.source == models.SourceBank {
		return models.NewBankRecord(seq, date, amount, description), nil
	}
	return models.NewLedgerRecord(seq, date, amount, description), nil
}

// extractAmount reads the amount from the single amount column, falling back
// to the debit/credit pair (debit negative, credit positive)
func (fp *FeedParser) extractAmount(row []string, columns *feedColumns) (decimal.Decimal, string, string, error) {
	if columns.amount != -1 {
		raw := fieldAt(row, columns.amount)
		amount, err := models.ParseDecimalFromString(raw)
		return amount, "amount", raw, err
	}

	debitRaw := fieldAt(row, columns.debit)
	creditRaw := fieldAt(row, columns.credit)

	if debitRaw != "" {
		amount, err := models.ParseDecimalFromString(debitRaw)
		return amount.Neg(), "debit", debitRaw, err
	}

	amount, err := models.ParseDecimalFromString(creditRaw)
	return amount, "credit", creditRaw, err
}

// findColumn locates the first header matching any alias, case-insensitively
func findColumn(headers []string, aliases []string) int {
	for i, header := range headers {
		cleaned := strings.ToLower(strings.TrimSpace(header))
		for _, alias := range aliases {
			if cleaned == alias {
				return i
			}
		}
	}
	return -1
}

// fieldAt returns the trimmed value at index, or "" when the row is short or
// the column absent
func fieldAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
