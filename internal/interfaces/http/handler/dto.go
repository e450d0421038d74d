package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/catalog"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/till"
)

// ItemInput is one transaction line on the wire
type ItemInput struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required,dgt0"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"dgte0"`
	Amount    decimal.Decimal `json:"amount" binding:"dgte0"`
}

// TenderPaymentInput is one slice of a split payment on the wire
type TenderPaymentInput struct {
	TenderID   string          `json:"tender_id"`
	TenderName string          `json:"tender_name" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// SubmitTransactionRequest is the ledger's ingestion body: one captured
// sale exactly as the terminal recorded it.
type SubmitTransactionRequest struct {
	TerminalTxID uuid.UUID `json:"terminal_tx_id" binding:"required"`
	ExternalID   string    `json:"external_id"`
	DedupeKey    string    `json:"dedupe_key"`

	Items    []ItemInput     `json:"items" binding:"required,dive"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`

	TenderPayments []TenderPaymentInput `json:"tender_payments"`
	TenderType     string               `json:"tender_type"`
	AmountPaid     decimal.Decimal      `json:"amount_paid"`
	Change         decimal.Decimal      `json:"change"`

	StaffID    uuid.UUID `json:"staff_id" binding:"required"`
	StaffName  string    `json:"staff_name" binding:"required"`
	LocationID uuid.UUID `json:"location_id" binding:"required"`
	TillID     uuid.UUID `json:"till_id" binding:"required"`

	Status     string    `json:"status"`
	CapturedAt time.Time `json:"captured_at"`
}

// toTransaction rebuilds the terminal's transaction from the wire form.
// Totals come from the payload as captured; the domain validates them
// again before admission.
func (r SubmitTransactionRequest) toTransaction() *sale.Transaction {
	capturedAt := r.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	status := sale.Status(r.Status)
	if r.Status == "" {
		status = sale.StatusCompleted
	}

	items := make([]sale.Item, len(r.Items))
	for i, item := range r.Items {
		amount := item.Amount
		if amount.IsZero() {
			amount = item.Quantity.Mul(item.UnitPrice)
		}
		items[i] = sale.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    amount,
		}
	}
	tenders := make([]sale.TenderPayment, len(r.TenderPayments))
	for i, p := range r.TenderPayments {
		tenders[i] = sale.TenderPayment{
			TenderID:   p.TenderID,
			TenderName: p.TenderName,
			Amount:     p.Amount,
		}
	}

	return &sale.Transaction{
		BaseEntity: shared.BaseEntity{
			ID:        r.TerminalTxID,
			CreatedAt: capturedAt,
			UpdatedAt: capturedAt,
		},
		ExternalID:     r.ExternalID,
		DedupeKey:      r.DedupeKey,
		Items:          items,
		Subtotal:       r.Subtotal,
		Tax:            r.Tax,
		Discount:       r.Discount,
		Total:          r.Total,
		TenderPayments: tenders,
		TenderType:     r.TenderType,
		AmountPaid:     r.AmountPaid,
		Change:         r.Change,
		StaffID:        r.StaffID,
		StaffName:      r.StaffName,
		LocationID:     r.LocationID,
		TillID:         r.TillID,
		Status:         status,
	}
}

// IngestResponse answers a transaction submission
type IngestResponse struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Duplicate bool      `json:"duplicate"`
}

// OpenTillRequest asks for a till session
type OpenTillRequest struct {
	StoreID        uuid.UUID       `json:"store_id"`
	LocationID     uuid.UUID       `json:"location_id" binding:"required"`
	StaffID        uuid.UUID       `json:"staff_id" binding:"required"`
	StaffName      string          `json:"staff_name" binding:"required"`
	OpeningBalance decimal.Decimal `json:"opening_balance" binding:"dgte0"`
}

// CloseTillRequest carries the physical drawer counts for a close
type CloseTillRequest struct {
	TenderCounts map[string]decimal.Decimal `json:"tender_counts"`
	Notes        string                     `json:"notes"`
}

// TillResponse is one till session on the wire
type TillResponse struct {
	ID               uuid.UUID       `json:"id"`
	StoreID          uuid.UUID       `json:"store_id"`
	LocationID       uuid.UUID       `json:"location_id"`
	StaffID          uuid.UUID       `json:"staff_id"`
	StaffName        string          `json:"staff_name"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	OpenedAt         time.Time       `json:"opened_at"`
	Status           string          `json:"status"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
	LocalOnly        bool            `json:"local_only,omitempty"`
}

func tillResponseFrom(t *till.Till) TillResponse {
	return TillResponse{
		ID:               t.ID,
		StoreID:          t.StoreID,
		LocationID:       t.LocationID,
		StaffID:          t.StaffID,
		StaffName:        t.StaffName,
		OpeningBalance:   t.OpeningBalance,
		OpenedAt:         t.OpenedAt,
		Status:           t.Status.String(),
		TotalSales:       t.TotalSales,
		TransactionCount: t.TransactionCount(),
		LocalOnly:        t.LocalOnly,
	}
}

func tillResponsesFrom(tills []*till.Till) []TillResponse {
	out := make([]TillResponse, len(tills))
	for i, t := range tills {
		out[i] = tillResponseFrom(t)
	}
	return out
}

// TransactionResponse is one captured sale on the wire
type TransactionResponse struct {
	ID         uuid.UUID       `json:"id"`
	ExternalID string          `json:"external_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Change     decimal.Decimal `json:"change"`
	Status     string          `json:"status"`
	TillID     uuid.UUID       `json:"till_id"`
	Synced     bool            `json:"synced"`
	CapturedAt time.Time       `json:"captured_at"`
}

func transactionResponseFrom(tx *sale.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         tx.ID,
		ExternalID: tx.ExternalID,
		Total:      tx.Total,
		Change:     tx.Change,
		Status:     tx.Status.String(),
		TillID:     tx.TillID,
		Synced:     tx.Synced,
		CapturedAt: tx.CreatedAt,
	}
}

// ProductResponse is one catalog product on the wire
type ProductResponse struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Barcode    string          `json:"barcode"`
	CategoryID uuid.UUID       `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Active     bool            `json:"active"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func productResponsesFrom(products []catalog.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = ProductResponse{
			ID:         p.ID,
			Name:       p.Name,
			SKU:        p.SKU,
			Barcode:    p.Barcode,
			CategoryID: p.CategoryID,
			Price:      p.Price,
			TaxRate:    p.TaxRate,
			Active:     p.Active,
			UpdatedAt:  p.UpdatedAt,
		}
	}
	return out
}

// CategoryResponse is one catalog category on the wire
type CategoryResponse struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Position int        `json:"position"`
}

func categoryResponsesFrom(categories []catalog.Category) []CategoryResponse {
	out := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = CategoryResponse{
			ID:       c.ID,
			Name:     c.Name,
			ParentID: c.ParentID,
			Position: c.Position,
		}
	}
	return out
}
