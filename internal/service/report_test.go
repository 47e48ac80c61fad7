package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/company"
	"github.com/finsight/reportd/internal/resilience"
)

func newTestReportService(t *testing.T, gen *mockGenerator) *ReportService {
	t.Helper()
	breaker := resilience.NewBreaker(10, time.Minute)
	return NewReportService(gen, breaker, newTestMetrics(t), slog.Default(), t.TempDir())
}

func testRecord() *company.Record {
	return &company.Record{
		CompanyID:  "1001",
		Name:       "Acme Industrial",
		Ticker:     "ACME",
		SectorCode: 20,
		Country:    "United States",
		Years: []company.FinancialYear{
			{FiscalYear: 2024, Revenue: 5000, NetIncome: 450},
			{FiscalYear: 2023, Revenue: 4600, NetIncome: 400},
			{FiscalYear: 2022, Revenue: 4200, NetIncome: 350},
			{FiscalYear: 2021, Revenue: 3900, NetIncome: 300},
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	rec := testRecord()
	prompt := BuildPrompt(rec)

	for _, want := range []string{
		"Acme Industrial",
		"Ticker: ACME",
		"Country: United States",
		"- Year 2024: Revenue: 5000.00, Net Income: 450.00",
		"- Year 2022: Revenue: 4200.00, Net Income: 350.00",
		"Executive Summary",
		"Investment Recommendation",
		"Risks and Challenges",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// Only the 3 most recent years are included.
	if strings.Contains(prompt, "2021") {
		t.Error("prompt includes a year beyond the 3 most recent")
	}
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	rec := testRecord()
	if BuildPrompt(rec) != BuildPrompt(rec) {
		t.Error("prompt differs between identical calls")
	}
}

func TestBuildPrompt_NoFinancials(t *testing.T) {
	rec := testRecord()
	rec.Years = nil

	prompt := BuildPrompt(rec)
	if !strings.Contains(prompt, "No recent financial data") {
		t.Error("prompt missing no-data notice")
	}
	if strings.Contains(prompt, "Recent financials:") {
		t.Error("prompt has empty financials section")
	}
}

func TestReportService_Generate(t *testing.T) {
	gen := &mockGenerator{response: "# Acme Industrial\n\nSolid year."}
	svc := newTestReportService(t, gen)

	body, err := svc.Generate(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if body != gen.response {
		t.Errorf("body = %q, want generator output", body)
	}
}

func TestReportService_GenerateFailureWrapped(t *testing.T) {
	gen := &mockGenerator{err: errors.New("api overloaded")}
	svc := newTestReportService(t, gen)

	_, err := svc.Generate(context.Background(), testRecord())
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Errorf("err = %v, want ErrGenerationFailed", err)
	}
}

func TestReportService_Persist(t *testing.T) {
	svc := newTestReportService(t, &mockGenerator{})

	path, err := svc.Persist("task-123", "# Report\n\nbody")
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if !strings.Contains(path, "task-123_") || !strings.HasSuffix(path, ".md") {
		t.Errorf("path = %q, want task-123_<timestamp>.md", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "# Report\n\nbody" {
		t.Errorf("content = %q", data)
	}
}
