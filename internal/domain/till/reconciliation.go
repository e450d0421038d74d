package till

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TenderVariance compares the processed amount for one tender against the
// cashier's physical count.
type TenderVariance struct {
	Tender    string          `json:"tender"`
	Processed decimal.Decimal `json:"processed"`
	Counted   decimal.Decimal `json:"counted"`
	Variance  decimal.Decimal `json:"variance"` // counted - processed
}

// Reconciliation is the advisory outcome of a till close. Any magnitude of
// variance is recorded and surfaced but never prevents the close.
type Reconciliation struct {
	TenderVariances        []TenderVariance `json:"tender_variances"`
	TotalVariance          decimal.Decimal  `json:"total_variance"`
	ExpectedClosingBalance decimal.Decimal  `json:"expected_closing_balance"`
	VariancePercentage     decimal.Decimal  `json:"variance_percentage"`
}

// IsShort reports whether less was counted than processed overall
func (r Reconciliation) IsShort() bool {
	return r.TotalVariance.IsNegative()
}

// IsBalanced reports whether counted and processed agree exactly
func (r Reconciliation) IsBalanced() bool {
	return r.TotalVariance.IsZero()
}

var oneHundred = decimal.NewFromInt(100)

// Reconcile computes per-tender and aggregate variance at close.
// Tenders the cashier counted but the system never processed still report
// a variance of counted minus zero; processed tenders with no entered
// count reconcile against zero counted.
func Reconcile(breakdown TenderBreakdown, physicalCounts map[string]decimal.Decimal, openingBalance, totalSales decimal.Decimal) Reconciliation {
	variances := make([]TenderVariance, 0, breakdown.Len())
	totalVariance := decimal.Zero
	seen := make(map[string]bool, breakdown.Len())

	for _, tender := range breakdown.Names() {
		processed, _ := breakdown.Get(tender)
		counted := physicalCounts[tender]
		variance := counted.Sub(processed)
		variances = append(variances, TenderVariance{
			Tender:    tender,
			Processed: processed,
			Counted:   counted,
			Variance:  variance,
		})
		totalVariance = totalVariance.Add(variance)
		seen[tender] = true
	}

	// Counted tenders with no processed activity, in stable name order.
	extras := make([]string, 0)
	for tender := range physicalCounts {
		if !seen[tender] {
			extras = append(extras, tender)
		}
	}
	sort.Strings(extras)
	for _, tender := range extras {
		counted := physicalCounts[tender]
		variances = append(variances, TenderVariance{
			Tender:    tender,
			Processed: decimal.Zero,
			Counted:   counted,
			Variance:  counted,
		})
		totalVariance = totalVariance.Add(counted)
	}

	expected := openingBalance.Add(totalSales)
	percentage := decimal.Zero
	if !expected.IsZero() {
		percentage = totalVariance.Div(expected).Mul(oneHundred).Round(4)
	}

	return Reconciliation{
		TenderVariances:        variances,
		TotalVariance:          totalVariance,
		ExpectedClosingBalance: expected,
		VariancePercentage:     percentage,
	}
}
