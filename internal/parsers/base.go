// Package parsers turns raw CSV feeds into validated transaction records.
//
// Both input feeds (bank statement and accounting ledger) arrive as CSV with
// varying column naming, Italian or anglo number formats and several date
// formats. The parsers resolve columns through an alias table, reject rows
// with unparseable values without aborting the feed, and hand back records
// already carrying the sequence indices the matching engine relies on.
//
// Parser types:
//   - FeedParser: parses one feed into transaction records
//   - ParseStats: per-feed counters and the excluded-row warnings
package parsers

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"ledger-reconciliation-service/pkg/errors"
	"ledger-reconciliation-service/pkg/logger"
)

// ParseConfig holds the CSV reading options shared by both feeds
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	ValidateEncoding bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// baseParser provides the CSV plumbing shared by the feed parsers
type baseParser struct {
	config *ParseConfig
	logger logger.Logger
}

func newBaseParser(config *ParseConfig) *baseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	return &baseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("parser"),
	}
}

// openFile opens a CSV file and returns a configured reader
func (bp *baseParser) openFile(filePath string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open CSV file")

		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(file, filePath); err != nil {
			file.Close()
			return nil, nil, err
		}
		if _, err := file.Seek(0, 0); err != nil {
			file.Close()
			return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// validateEncoding checks the first lines of the file for valid UTF-8
func (bp *baseParser) validateEncoding(file *os.File, filePath string) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() && lineNum < 100 {
		lineNum++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.Wrap(
				fmt.Errorf("invalid UTF-8 at line %d", lineNum),
				errors.CategoryParse,
				errors.CodeInvalidFormat,
				fmt.Sprintf("file %s is not valid UTF-8", filePath),
			).WithSuggestion("save the file in UTF-8 encoding and try again")
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.FileError(errors.CodeFileNotFound, filePath, err)
	}

	return nil
}

// readRecord reads the next non-empty CSV row
func (bp *baseParser) readRecord(reader *csv.Reader, lineNumber *int) ([]string, error) {
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, err
			}
			bp.logger.WithError(err).WithField("line_number", *lineNumber+1).Warn("Failed to read CSV record")
			return nil, err
		}

		*lineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// ParseStats holds per-feed counters and the rows excluded from matching
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	RecordsValid  int
	Excluded      int
	Warnings      *errors.WarningList
}

// NewParseStats creates an empty ParseStats
func NewParseStats() *ParseStats {
	return &ParseStats{Warnings: &errors.WarningList{}}
}

// AddWarning records one excluded row
func (ps *ParseStats) AddWarning(w *errors.ReconcilerError) {
	ps.Warnings.Add(w)
	ps.Excluded++
}

// String returns a human-readable summary of the parse
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records (%d valid, %d excluded)",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsValid, ps.Excluded)
}
