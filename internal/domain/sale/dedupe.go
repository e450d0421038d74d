package sale

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// dedupeProjection is the canonical, order-independent projection of a
// transaction's content. Two submissions of the same user action must
// produce byte-identical projections regardless of item or tender order.
type dedupeProjection struct {
	Items      []dedupeItem   `json:"items"`
	Total      string         `json:"total"`
	AmountPaid string         `json:"amount_paid"`
	Change     string         `json:"change"`
	TenderType string         `json:"tender_type,omitempty"`
	Tenders    []dedupeTender `json:"tenders,omitempty"`
	StaffID    string         `json:"staff_id"`
	LocationID string         `json:"location_id"`
	TillID     string         `json:"till_id"`
	CreatedAt  int64          `json:"created_at"` // rounded to the nearest second
	Status     string         `json:"status"`
}

type dedupeItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  string `json:"qty"`
	UnitPrice string `json:"price"`
}

type dedupeTender struct {
	TenderID   string `json:"tender_id"`
	TenderName string `json:"tender_name"`
	Amount     string `json:"amount"`
}

// ComputeDedupeKey returns a deterministic content hash used by the ledger
// to detect duplicate submissions when no client token exists. The
// timestamp is rounded to the nearest second to absorb clock jitter
// between duplicate submissions of the same user action.
func (t *Transaction) ComputeDedupeKey() string {
	items := make([]dedupeItem, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, dedupeItem{
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			Quantity:  item.Quantity.String(),
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ProductID != items[j].ProductID {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].Name < items[j].Name
	})

	var tenders []dedupeTender
	for _, p := range t.TenderPayments {
		tenders = append(tenders, dedupeTender{
			TenderID:   p.TenderID,
			TenderName: p.TenderName,
			Amount:     p.Amount.StringFixed(2),
		})
	}
	sort.Slice(tenders, func(i, j int) bool {
		if tenders[i].TenderName != tenders[j].TenderName {
			return tenders[i].TenderName < tenders[j].TenderName
		}
		return tenders[i].TenderID < tenders[j].TenderID
	})

	projection := dedupeProjection{
		Items:      items,
		Total:      t.Total.StringFixed(2),
		AmountPaid: t.AmountPaid.StringFixed(2),
		Change:     t.Change.StringFixed(2),
		TenderType: t.TenderType,
		Tenders:    tenders,
		StaffID:    t.StaffID.String(),
		LocationID: t.LocationID.String(),
		TillID:     t.TillID.String(),
		CreatedAt:  t.CreatedAt.Round(time.Second).Unix(),
		Status:     string(t.Status),
	}

	// Field order in the struct is fixed, so encoding/json is deterministic here.
	data, err := json.Marshal(projection)
	if err != nil {
		// Projection contains only strings and ints; marshal cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
