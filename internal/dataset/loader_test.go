package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/finsight/reportd/internal/domain"
)

func writeDataset(t *testing.T, metadata, ratios string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, metadataFile), []byte(metadata), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ratiosFile), []byte(ratios), 0o644); err != nil {
		t.Fatalf("write ratios: %v", err)
	}
	return dir
}

func ratioJSON(companyID string, year int, revenue float64) string {
	return fmt.Sprintf(`{"company_id": %q, "fiscal_year": %d, "total_revenue": %.1f, "net_income": 10.0, "shareholders_equity": 50.0, "total_assets": 100.0, "total_liabilities": 50.0, "cash": 5.0, "long_term_debt": 20.0, "shares_outstanding": 10.0}`, companyID, year, revenue)
}

func TestLoad(t *testing.T) {
	dir := writeDataset(t,
		`[{"company_id": "1001", "company_name": "Acme", "ticker": "ACME US", "industry_sector_num": 20, "country_name": "United States"}]`,
		"["+ratioJSON("1001", 2024, 5000)+"]",
	)

	a, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Len() != 1 {
		t.Errorf("len = %d, want 1", a.Len())
	}
	if !a.Validate("1001") {
		t.Error("known company not validated")
	}
	if a.Validate("9999") {
		t.Error("unknown company validated")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, metadataFile), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	if _, err := Load(context.Background(), dir); err == nil {
		t.Error("expected error for missing ratios file")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	dir := writeDataset(t, "not json", "[]")
	if _, err := Load(context.Background(), dir); err == nil {
		t.Error("expected error for malformed metadata")
	}
}

func TestAggregator_Get(t *testing.T) {
	dir := writeDataset(t,
		`[{"company_id": "1001", "company_name": "Acme", "ticker": "ACME US", "industry_sector_num": 20, "country_name": "United States"}]`,
		"["+ratioJSON("1001", 2023, 4600)+","+ratioJSON("1001", 2024, 5000)+"]",
	)
	a, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rec, err := a.Get("1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Name != "Acme" {
		t.Errorf("name = %q", rec.Name)
	}
	if rec.Ticker != "ACME" {
		t.Errorf("ticker = %q, want exchange suffix stripped", rec.Ticker)
	}
	if len(rec.Years) != 2 {
		t.Fatalf("years = %d, want 2", len(rec.Years))
	}
	if rec.Years[0].FiscalYear != 2024 || rec.Years[1].FiscalYear != 2023 {
		t.Errorf("years not sorted descending: %d, %d", rec.Years[0].FiscalYear, rec.Years[1].FiscalYear)
	}
	if rec.Years[0].Revenue != 5000 {
		t.Errorf("revenue = %f, want 5000", rec.Years[0].Revenue)
	}
}

func TestAggregator_GetUnknown(t *testing.T) {
	dir := writeDataset(t, "[]", "[]")
	a, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := a.Get("9999"); !errors.Is(err, domain.ErrUnknownCompany) {
		t.Errorf("err = %v, want ErrUnknownCompany", err)
	}
}

func TestAggregator_RecentYearSelection(t *testing.T) {
	// 7 distinct years; only the 5 most recent survive.
	var entries []string
	for year := 2018; year <= 2024; year++ {
		entries = append(entries, ratioJSON("1001", year, float64(year)))
	}
	dir := writeDataset(t,
		`[{"company_id": "1001", "company_name": "Acme", "ticker": "ACME", "industry_sector_num": 20, "country_name": "US"}]`,
		"["+strings.Join(entries, ",")+"]",
	)
	a, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rec, err := a.Get("1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.Years) != 5 {
		t.Fatalf("years = %d, want 5", len(rec.Years))
	}
	for i, want := range []int{2024, 2023, 2022, 2021, 2020} {
		if rec.Years[i].FiscalYear != want {
			t.Errorf("years[%d] = %d, want %d", i, rec.Years[i].FiscalYear, want)
		}
	}
}

func TestAggregator_DuplicateYearKeepsFirst(t *testing.T) {
	dir := writeDataset(t,
		`[{"company_id": "1001", "company_name": "Acme", "ticker": "ACME", "industry_sector_num": 20, "country_name": "US"}]`,
		"["+ratioJSON("1001", 2024, 5000)+","+ratioJSON("1001", 2024, 9999)+"]",
	)
	a, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rec, err := a.Get("1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.Years) != 1 {
		t.Fatalf("years = %d, want 1", len(rec.Years))
	}
	if rec.Years[0].Revenue != 5000 {
		t.Errorf("revenue = %f, want first entry kept", rec.Years[0].Revenue)
	}
}

func TestAggregator_CompanyWithoutRatios(t *testing.T) {
	dir := writeDataset(t,
		`[{"company_id": "1001", "company_name": "Acme", "ticker": "ACME", "industry_sector_num": 20, "country_name": "US"}]`,
		"[]",
	)
	a, err := Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rec, err := a.Get("1001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rec.Years) != 0 {
		t.Errorf("years = %d, want 0", len(rec.Years))
	}
}
