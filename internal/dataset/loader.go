// Package dataset loads the read-only company dataset at process start and
// serves aggregated company records for report generation. The dataset is
// immutable for the process lifetime; there is no reload or write path.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/company"
)

const (
	metadataFile = "company_metadata.json"
	ratiosFile   = "financial_ratios.json"

	// maxYears is the number of most recent distinct fiscal years kept per company.
	maxYears = 5
)

// metadataEntry mirrors one company_metadata.json element.
type metadataEntry struct {
	CompanyID  string `json:"company_id"`
	Name       string `json:"company_name"`
	Ticker     string `json:"ticker"`
	SectorCode int    `json:"industry_sector_num"`
	Country    string `json:"country_name"`
}

// ratioEntry mirrors one financial_ratios.json element. Fields outside the
// fixed projection are ignored by the JSON decoder.
type ratioEntry struct {
	CompanyID          string  `json:"company_id"`
	FiscalYear         int     `json:"fiscal_year"`
	Revenue            float64 `json:"total_revenue"`
	NetIncome          float64 `json:"net_income"`
	ShareholdersEquity float64 `json:"shareholders_equity"`
	TotalAssets        float64 `json:"total_assets"`
	TotalLiabilities   float64 `json:"total_liabilities"`
	Cash               float64 `json:"cash"`
	LongTermDebt       float64 `json:"long_term_debt"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
}

// Aggregator serves read-only company data merged from the two datasets.
type Aggregator struct {
	meta   map[string]metadataEntry
	ratios map[string][]ratioEntry
}

// Load reads both dataset files from dir. The two files are independent, so
// they are parsed concurrently.
func Load(ctx context.Context, dir string) (*Aggregator, error) {
	a := &Aggregator{
		meta:   make(map[string]metadataEntry),
		ratios: make(map[string][]ratioEntry),
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		var entries []metadataEntry
		if err := readJSONFile(filepath.Join(dir, metadataFile), &entries); err != nil {
			return err
		}
		for _, e := range entries {
			a.meta[e.CompanyID] = e
		}
		return nil
	})

	g.Go(func() error {
		var entries []ratioEntry
		if err := readJSONFile(filepath.Join(dir, ratiosFile), &entries); err != nil {
			return err
		}
		for _, e := range entries {
			a.ratios[e.CompanyID] = append(a.ratios[e.CompanyID], e)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	slog.Info("company dataset loaded",
		"dir", dir,
		"companies", len(a.meta),
		"ratio_companies", len(a.ratios),
	)
	return a, nil
}

// Validate reports whether the company id exists in the loaded metadata.
func (a *Aggregator) Validate(companyID string) bool {
	_, ok := a.meta[companyID]
	return ok
}

// Len returns the number of companies in the metadata set.
func (a *Aggregator) Len() int {
	return len(a.meta)
}

// Get builds the aggregated record for one company: static metadata merged
// with the 5 most recent distinct fiscal years of ratio data, each entry
// reduced to the fixed field projection, sorted descending by year.
func (a *Aggregator) Get(companyID string) (*company.Record, error) {
	meta, ok := a.meta[companyID]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", companyID, domain.ErrUnknownCompany)
	}

	rec := &company.Record{
		CompanyID:  meta.CompanyID,
		Name:       meta.Name,
		Ticker:     company.NormalizeTicker(meta.Ticker),
		SectorCode: meta.SectorCode,
		Country:    meta.Country,
		Years:      selectRecentYears(a.ratios[companyID]),
	}
	return rec, nil
}

// selectRecentYears keeps the first entry seen for each of the maxYears most
// recent distinct fiscal years, descending.
func selectRecentYears(entries []ratioEntry) []company.FinancialYear {
	byYear := make(map[int]ratioEntry, len(entries))
	for _, e := range entries {
		if _, seen := byYear[e.FiscalYear]; !seen {
			byYear[e.FiscalYear] = e
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	if len(years) > maxYears {
		years = years[:maxYears]
	}

	out := make([]company.FinancialYear, 0, len(years))
	for _, y := range years {
		e := byYear[y]
		out = append(out, company.FinancialYear{
			FiscalYear:         e.FiscalYear,
			Revenue:            e.Revenue,
			NetIncome:          e.NetIncome,
			ShareholdersEquity: e.ShareholdersEquity,
			TotalAssets:        e.TotalAssets,
			TotalLiabilities:   e.TotalLiabilities,
			Cash:               e.Cash,
			LongTermDebt:       e.LongTermDebt,
			SharesOutstanding:  e.SharesOutstanding,
		})
	}
	return out
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from validated config
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
