package till

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TenderBreakdown is an ordered association of tender name to the amount
// processed through it during a till session. Buckets keep first-touch
// order so closing paperwork lists tenders in a stable sequence.
type TenderBreakdown struct {
	names   []string
	amounts map[string]decimal.Decimal
}

// NewTenderBreakdown creates an empty breakdown
func NewTenderBreakdown() TenderBreakdown {
	return TenderBreakdown{amounts: make(map[string]decimal.Decimal)}
}

// Add accumulates an amount into the named tender bucket, creating the
// bucket on first touch. Negative amounts are allowed (change deduction).
func (b *TenderBreakdown) Add(tender string, amount decimal.Decimal) {
	if b.amounts == nil {
		b.amounts = make(map[string]decimal.Decimal)
	}
	if _, ok := b.amounts[tender]; !ok {
		b.names = append(b.names, tender)
	}
	b.amounts[tender] = b.amounts[tender].Add(amount)
}

// Get returns the accumulated amount for a tender
func (b TenderBreakdown) Get(tender string) (decimal.Decimal, bool) {
	amount, ok := b.amounts[tender]
	return amount, ok
}

// Names returns the tender names in first-touch order
func (b TenderBreakdown) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of tender buckets
func (b TenderBreakdown) Len() int {
	return len(b.names)
}

// Total returns the sum across all tender buckets
func (b TenderBreakdown) Total() decimal.Decimal {
	total := decimal.Zero
	for _, name := range b.names {
		total = total.Add(b.amounts[name])
	}
	return total
}

// Merge folds another breakdown into this one, bucket by bucket
func (b *TenderBreakdown) Merge(other TenderBreakdown) {
	for _, name := range other.names {
		b.Add(name, other.amounts[name])
	}
}

type breakdownEntry struct {
	Tender string          `json:"tender"`
	Amount decimal.Decimal `json:"amount"`
}

// MarshalJSON encodes the breakdown as an ordered array of entries.
// A JSON object would lose bucket order.
func (b TenderBreakdown) MarshalJSON() ([]byte, error) {
	entries := make([]breakdownEntry, 0, len(b.names))
	for _, name := range b.names {
		entries = append(entries, breakdownEntry{Tender: name, Amount: b.amounts[name]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes the ordered array form
func (b *TenderBreakdown) UnmarshalJSON(data []byte) error {
	var entries []breakdownEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*b = NewTenderBreakdown()
	for _, e := range entries {
		b.Add(e.Tender, e.Amount)
	}
	return nil
}
