package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/finsight/reportd/internal/adapter/otel"
	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/company"
	"github.com/finsight/reportd/internal/port/textgen"
	"github.com/finsight/reportd/internal/resilience"
)

// promptYears caps how many recent fiscal years are summarized in the prompt.
const promptYears = 3

// reportSections is the fixed outline every generated report must follow.
var reportSections = []string{
	"Executive Summary",
	"Company Overview",
	"Industry Analysis",
	"Financial Highlights",
	"Valuation",
	"Investment Recommendation",
	"Risks and Challenges",
}

// ReportService turns an aggregated company record into a persisted markdown
// research report via the generative-text backend.
type ReportService struct {
	generator textgen.Generator
	breaker   *resilience.Breaker
	metrics   *otel.Metrics
	logger    *slog.Logger
	outDir    string
}

// NewReportService creates a new report service writing artifacts under outDir.
func NewReportService(generator textgen.Generator, breaker *resilience.Breaker, metrics *otel.Metrics, logger *slog.Logger, outDir string) *ReportService {
	return &ReportService{
		generator: generator,
		breaker:   breaker,
		metrics:   metrics,
		logger:    logger,
		outDir:    outDir,
	}
}

// Generate builds the prompt for the record, calls the text backend behind
// the circuit breaker, and returns the markdown report body. Failures are
// wrapped in domain.ErrGenerationFailed so callers can classify them as
// transient.
func (s *ReportService) Generate(ctx context.Context, rec *company.Record) (string, error) {
	prompt := BuildPrompt(rec)

	start := time.Now()
	var report string
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var genErr error
		report, genErr = s.generator.Generate(ctx, prompt)
		return genErr
	})
	s.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	return report, nil
}

// Persist writes the report body to disk and returns the artifact path. The
// filename embeds the task id and a UTC timestamp, so retried generations
// never clobber each other.
func (s *ReportService) Persist(taskID, body string) (string, error) {
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.md", taskID, time.Now().UTC().Format("20060102150405"))
	path := filepath.Join(s.outDir, name)

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil { //nolint:gosec // G306: reports are not secret
		return "", fmt.Errorf("write report: %w", err)
	}

	s.logger.Info("report persisted", "task_id", taskID, "path", path, "bytes", len(body))
	return path, nil
}

// BuildPrompt renders the deterministic generation prompt for a company
// record. The same record always yields the same prompt.
func BuildPrompt(rec *company.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a senior equity research analyst. Write a professional equity research report in markdown for the following company.\n\n")
	fmt.Fprintf(&b, "Company: %s\n", rec.Name)
	fmt.Fprintf(&b, "Ticker: %s\n", rec.Ticker)
	fmt.Fprintf(&b, "Industry sector code: %d\n", rec.SectorCode)
	fmt.Fprintf(&b, "Country: %s\n", rec.Country)

	years := rec.Years
	if len(years) > promptYears {
		years = years[:promptYears]
	}

	if len(years) > 0 {
		b.WriteString("\nRecent financials:\n")
		for _, y := range years {
			fmt.Fprintf(&b, "- Year %d: Revenue: %.2f, Net Income: %.2f\n", y.FiscalYear, y.Revenue, y.NetIncome)
		}
	} else {
		b.WriteString("\nNo recent financial data is available for this company.\n")
	}

	b.WriteString("\nThe report must contain exactly these sections, in order:\n")
	for i, sec := range reportSections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sec)
	}

	b.WriteString("\nUse a professional, measured tone. Base all statements strictly on the data provided and clearly label any assumptions. Output only the markdown report.\n")
	return b.String()
}
