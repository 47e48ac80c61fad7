// Package company defines the merged read-only view of one company's
// static metadata and recent financial history.
package company

import "strings"

// FinancialYear is the fixed projection of one fiscal year's ratio entry.
// All other fields present in the source dataset are dropped.
type FinancialYear struct {
	FiscalYear         int     `json:"fiscal_year"`
	Revenue            float64 `json:"revenue"`
	NetIncome          float64 `json:"net_income"`
	ShareholdersEquity float64 `json:"shareholders_equity"`
	TotalAssets        float64 `json:"total_assets"`
	TotalLiabilities   float64 `json:"total_liabilities"`
	Cash               float64 `json:"cash"`
	LongTermDebt       float64 `json:"long_term_debt"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
}

// Record is the aggregated company view used to drive report generation.
// Years holds at most the 5 most recent distinct fiscal years, descending.
type Record struct {
	CompanyID  string          `json:"company_id"`
	Name       string          `json:"company_name"`
	Ticker     string          `json:"ticker"`
	SectorCode int             `json:"industry_sector_num"`
	Country    string          `json:"country_name"`
	Years      []FinancialYear `json:"financial_data,omitempty"`
}

// NormalizeTicker strips exchange-suffix annotations from a compound ticker
// value, keeping only the first space-delimited token ("7203 JT" -> "7203").
func NormalizeTicker(ticker string) string {
	fields := strings.Fields(ticker)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
