package ledgerclient

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// envelope mirrors the ledger API response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *errorInfo      `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ItemPayload is one transaction line on the wire
type ItemPayload struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

// TenderPaymentPayload is one slice of a split payment on the wire
type TenderPaymentPayload struct {
	TenderID   string          `json:"tender_id,omitempty"`
	TenderName string          `json:"tender_name"`
	Amount     decimal.Decimal `json:"amount"`
}

// TransactionPayload is the submission body for one captured sale
type TransactionPayload struct {
	TerminalTxID uuid.UUID `json:"terminal_tx_id"`
	ExternalID   string    `json:"external_id,omitempty"`
	DedupeKey    string    `json:"dedupe_key"`

	Items    []ItemPayload   `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`

	TenderPayments []TenderPaymentPayload `json:"tender_payments,omitempty"`
	TenderType     string                 `json:"tender_type,omitempty"`
	AmountPaid     decimal.Decimal        `json:"amount_paid"`
	Change         decimal.Decimal        `json:"change"`

	StaffID    uuid.UUID `json:"staff_id"`
	StaffName  string    `json:"staff_name"`
	LocationID uuid.UUID `json:"location_id"`
	TillID     uuid.UUID `json:"till_id"`

	Status     string    `json:"status"`
	CapturedAt time.Time `json:"captured_at"`
}

// SubmitResult is the ledger's answer to a transaction submission
type SubmitResult struct {
	ServerID  uuid.UUID `json:"id"`
	Duplicate bool      `json:"duplicate"`
}

// OpenTillRequest asks the ledger to open (or converge on) a till session
type OpenTillRequest struct {
	StoreID        uuid.UUID       `json:"store_id,omitempty"`
	LocationID     uuid.UUID       `json:"location_id"`
	StaffID        uuid.UUID       `json:"staff_id"`
	StaffName      string          `json:"staff_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// TillInfo is the ledger's view of a till session
type TillInfo struct {
	ID             uuid.UUID       `json:"id"`
	StoreID        uuid.UUID       `json:"store_id"`
	LocationID     uuid.UUID       `json:"location_id"`
	StaffID        uuid.UUID       `json:"staff_id"`
	StaffName      string          `json:"staff_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpenedAt       time.Time       `json:"opened_at"`
	Status         string          `json:"status"`
}

// CloseTillRequest carries the physical drawer counts for a close
type CloseTillRequest struct {
	TenderCounts map[string]decimal.Decimal `json:"tender_counts"`
	Notes        string                     `json:"notes,omitempty"`
}

// ProductPayload is one catalog product on the wire
type ProductPayload struct {
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

// CategoryPayload is one catalog category on the wire
type CategoryPayload struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Position int        `json:"position"`
}
