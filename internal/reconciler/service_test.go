package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ledger-reconciliation-service/internal/matcher"
	"ledger-reconciliation-service/internal/models"
	"ledger-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

func writeTestFeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test feed: %v", err)
	}
	return path
}

func createTestService(t *testing.T) *ReconciliationService {
	t.Helper()
	service, err := NewReconciliationService(nil, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service
}

func TestReconcileEndToEnd(t *testing.T) {
	bankFile := writeTestFeed(t, "bank.csv", `date,amount,description
2024-01-10,100.00,wire in
2024-01-10,0.83,fee
2024-01-11,500.00,check deposit
`)
	ledgerFile := writeTestFeed(t, "ledger.csv", `data,importo,descrizione
10/01/2024,"100,00",bonifico
10/01/2024,"2,49",commissioni aggregate
11/01/2024,"300,00",fattura 12
11/01/2024,"200,00",fattura 13
12/01/2024,"9,99",abbonamento
`)

	service := createTestService(t)
	output, err := service.Reconcile(context.Background(), &Request{
		BankFile:   bankFile,
		LedgerFile: ledgerFile,
	})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	stats := output.Result.Stats
	if stats.Matched != 3 {
		t.Errorf("expected 3 matched, got %d", stats.Matched)
	}
	if stats.DirectMatches != 1 || stats.BulkMatches != 1 || stats.CombinationMatches != 1 {
		t.Errorf("expected one match of each kind, got %+v", stats)
	}
	if stats.Orphans != 1 {
		t.Errorf("expected 1 orphan, got %d", stats.Orphans)
	}
	if output.MalformedRecords != 0 {
		t.Errorf("expected no malformed records, got %d", output.MalformedRecords)
	}
	if output.Duration < 0 || output.ProcessedAt.After(time.Now()) {
		t.Error("implausible timing metadata")
	}
}

func TestReconcileCollectsFeedWarnings(t *testing.T) {
	bankFile := writeTestFeed(t, "bank.csv", `date,amount
2024-01-10,100.00
2024-01-11,garbage
`)
	ledgerFile := writeTestFeed(t, "ledger.csv", `date,amount
2024-01-10,100.00
`)

	service := createTestService(t)
	output, err := service.Reconcile(context.Background(), &Request{
		BankFile:   bankFile,
		LedgerFile: ledgerFile,
	})
	if err != nil {
		t.Fatalf("malformed rows must not fail the run: %v", err)
	}

	if output.MalformedRecords != 1 {
		t.Errorf("expected 1 malformed record, got %d", output.MalformedRecords)
	}
	if output.Result.Warnings.CountByCode(errors.CodeInvalidData) != 1 {
		t.Errorf("expected the feed warning on the result, got %d warnings", output.Result.Warnings.Len())
	}
}

func TestReconcileEmptyLedgerFeed(t *testing.T) {
	bankFile := writeTestFeed(t, "bank.csv", `date,amount
2024-01-10,100.00
`)
	ledgerFile := writeTestFeed(t, "ledger.csv", `date,amount
`)

	service := createTestService(t)
	_, err := service.Reconcile(context.Background(), &Request{
		BankFile:   bankFile,
		LedgerFile: ledgerFile,
	})
	if err == nil {
		t.Fatal("expected empty input error")
	}

	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok || reconcilerErr.Code != errors.CodeEmptyInput {
		t.Errorf("expected empty_input error, got %v", err)
	}
}

func TestReconcileMissingBankFile(t *testing.T) {
	ledgerFile := writeTestFeed(t, "ledger.csv", `date,amount
2024-01-10,100.00
`)

	service := createTestService(t)
	_, err := service.Reconcile(context.Background(), &Request{
		BankFile:   filepath.Join(t.TempDir(), "absent.csv"),
		LedgerFile: ledgerFile,
	})
	if err == nil {
		t.Fatal("expected file error")
	}

	reconcilerErr, ok := errors.AsReconcilerError(err)
	if !ok || reconcilerErr.Code != errors.CodeFileNotFound {
		t.Errorf("expected file_not_found error, got %v", err)
	}
}

func TestReconcileRequestValidation(t *testing.T) {
	service := createTestService(t)

	_, err := service.Reconcile(context.Background(), &Request{LedgerFile: "x.csv"})
	if err == nil {
		t.Fatal("expected validation error for missing bank file path")
	}

	_, err = service.Reconcile(context.Background(), &Request{BankFile: "x.csv"})
	if err == nil {
		t.Fatal("expected validation error for missing ledger file path")
	}
}

func TestReconcileRecords(t *testing.T) {
	service, err := NewReconciliationService(matcher.StrictReconcileConfig(), nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	date := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	bank := []*models.TransactionRecord{
		models.NewBankRecord(0, date, decimal.NewFromInt(100), "a"),
	}
	ledger := []*models.TransactionRecord{
		models.NewLedgerRecord(0, date, decimal.NewFromInt(100), "b"),
	}

	result, err := service.ReconcileRecords(bank, ledger)
	if err != nil {
		t.Fatalf("ReconcileRecords failed: %v", err)
	}
	if result.Stats.Matched != 1 {
		t.Errorf("expected 1 match, got %d", result.Stats.Matched)
	}

	if _, err := service.ReconcileRecords(bank, nil); err == nil {
		t.Error("expected empty input error for nil ledger")
	}
}
