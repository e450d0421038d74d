package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle status of a transaction
type Status string

const (
	StatusHeld      Status = "held"
	StatusCompleted Status = "completed"
	StatusRefunded  Status = "refunded"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusHeld, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// Item represents a line item in a transaction
type Item struct {
	ProductID uuid.UUID
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal // Quantity * UnitPrice
}

// NewItem creates a new transaction line item
func NewItem(productID uuid.UUID, name string, quantity, unitPrice decimal.Decimal) (Item, error) {
	if productID == uuid.Nil {
		return Item{}, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if name == "" {
		return Item{}, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return Item{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return Item{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return Item{
		ProductID: productID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Amount:    quantity.Mul(unitPrice),
	}, nil
}

// TenderPayment represents one slice of a (possibly split) payment
type TenderPayment struct {
	TenderID   string
	TenderName string
	Amount     decimal.Decimal
}

// Transaction is the sale aggregate root. It is always persisted locally
// before any delivery attempt and marked synced only on server confirmation.
type Transaction struct {
	shared.BaseEntity
	ExternalID string // client idempotency token, optional
	DedupeKey  string // content hash fallback when no ExternalID exists

	Items    []Item
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal

	TenderPayments []TenderPayment
	TenderType     string // legacy single tender form
	AmountPaid     decimal.Decimal
	Change         decimal.Decimal

	StaffID    uuid.UUID
	StaffName  string
	LocationID uuid.UUID
	TillID     uuid.UUID

	Status Status

	Synced        bool
	SyncedAt      *time.Time
	SyncAttempts  int
	ServerID      uuid.UUID // ledger-assigned identity, set on confirmation
	Invalid       bool      // permanently excluded from the sync queue
	InvalidReason string
}

// NewTransactionParams carries everything needed to capture a completed sale
type NewTransactionParams struct {
	ExternalID     string
	Items          []Item
	Tax            decimal.Decimal
	Discount       decimal.Decimal
	TenderPayments []TenderPayment
	TenderType     string
	AmountPaid     decimal.Decimal
	StaffID        uuid.UUID
	StaffName      string
	LocationID     uuid.UUID
	TillID         uuid.UUID
}

// NewTransaction captures a completed sale at payment confirmation
func NewTransaction(p NewTransactionParams) (*Transaction, error) {
	tx := &Transaction{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: p.ExternalID,
		Items:      p.Items,
		Tax:        p.Tax,
		Discount:   p.Discount,
		StaffID:    p.StaffID,
		StaffName:  p.StaffName,
		LocationID: p.LocationID,
		TillID:     p.TillID,
		Status:     StatusCompleted,
	}

	if err := tx.computeTotals(); err != nil {
		return nil, err
	}
	if err := tx.applyPayment(p.TenderPayments, p.TenderType, p.AmountPaid); err != nil {
		return nil, err
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	tx.DedupeKey = tx.ComputeDedupeKey()
	return tx, nil
}

// NewHeldTransaction parks a sale without payment so the cashier can serve
// the next customer. Held transactions never accrue and never sync.
func NewHeldTransaction(items []Item, staffID uuid.UUID, staffName string, locationID, tillID uuid.UUID) (*Transaction, error) {
	tx := &Transaction{
		BaseEntity: shared.NewBaseEntity(),
		Items:      items,
		StaffID:    staffID,
		StaffName:  staffName,
		LocationID: locationID,
		TillID:     tillID,
		Status:     StatusHeld,
	}
	if err := tx.computeTotals(); err != nil {
		return nil, err
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// CompleteWithPayment transitions a held transaction to completed once
// payment is confirmed, and stamps the dedupe key for delivery.
func (t *Transaction) CompleteWithPayment(tenderPayments []TenderPayment, tenderType string, amountPaid decimal.Decimal) error {
	if t.Status != StatusHeld {
		return shared.NewDomainError("INVALID_STATE", "Only a held transaction can be completed")
	}
	if err := t.applyPayment(tenderPayments, tenderType, amountPaid); err != nil {
		return err
	}
	t.Status = StatusCompleted
	t.DedupeKey = t.ComputeDedupeKey()
	t.Touch()
	return nil
}

// Refund transitions a completed transaction to refunded
func (t *Transaction) Refund() error {
	if t.Status != StatusCompleted {
		return shared.NewDomainError("INVALID_STATE", "Only a completed transaction can be refunded")
	}
	t.Status = StatusRefunded
	t.Touch()
	return nil
}

func (t *Transaction) computeTotals() error {
	if len(t.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Transaction must contain at least one item")
	}
	subtotal := decimal.Zero
	for _, item := range t.Items {
		subtotal = subtotal.Add(item.Amount)
	}
	if t.Tax.IsNegative() {
		return shared.NewDomainError("INVALID_TAX", "Tax cannot be negative")
	}
	if t.Discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	t.Subtotal = subtotal
	t.Total = subtotal.Add(t.Tax).Sub(t.Discount)
	return nil
}

func (t *Transaction) applyPayment(tenderPayments []TenderPayment, tenderType string, amountPaid decimal.Decimal) error {
	if len(tenderPayments) == 0 && tenderType == "" {
		return shared.NewDomainError("NO_TENDER", "Payment requires tender payments or a tender type")
	}
	if len(tenderPayments) > 0 {
		sum := decimal.Zero
		for _, p := range tenderPayments {
			if p.TenderName == "" {
				return shared.NewDomainError("INVALID_TENDER", "Tender name cannot be empty")
			}
			if p.Amount.LessThanOrEqual(decimal.Zero) {
				return shared.NewDomainError("INVALID_TENDER_AMOUNT", "Tender amount must be positive")
			}
			sum = sum.Add(p.Amount)
		}
		if !sum.Equal(amountPaid) {
			return shared.NewDomainError("TENDER_MISMATCH", "Sum of tender payments must equal amount paid")
		}
	}
	if amountPaid.LessThan(t.Total) {
		return shared.NewDomainError("INSUFFICIENT_PAYMENT", "Amount paid is less than the transaction total")
	}
	t.TenderPayments = tenderPayments
	t.TenderType = tenderType
	t.AmountPaid = amountPaid
	t.Change = amountPaid.Sub(t.Total)
	return nil
}

// Validate checks the mandatory fields required for ledger delivery.
// A transaction failing this check is reported invalid and excluded from
// the sync queue rather than retried forever.
func (t *Transaction) Validate() error {
	if t.StaffID == uuid.Nil || t.StaffName == "" {
		return shared.NewDomainError("MISSING_STAFF", "Transaction is missing staff identity")
	}
	if t.LocationID == uuid.Nil {
		return shared.NewDomainError("MISSING_LOCATION", "Transaction is missing a location")
	}
	if t.TillID == uuid.Nil {
		return shared.NewDomainError("MISSING_TILL", "Transaction is missing a till")
	}
	if len(t.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Transaction must contain at least one item")
	}
	return nil
}

// MarkInvalid permanently excludes the transaction from the sync queue
func (t *Transaction) MarkInvalid(reason string) {
	t.Invalid = true
	t.InvalidReason = reason
	t.Touch()
}

// MarkSynced records server confirmation. Confirmation of a duplicate
// submission counts: the record exists server-side either way.
func (t *Transaction) MarkSynced(serverID uuid.UUID, at time.Time) {
	t.Synced = true
	t.SyncedAt = &at
	t.ServerID = serverID
	t.Touch()
}

// RecordSyncAttempt increments the diagnostic attempt counter
func (t *Transaction) RecordSyncAttempt() {
	t.SyncAttempts++
	t.Touch()
}

// IsQueued reports whether the transaction belongs in the active sync queue
func (t *Transaction) IsQueued() bool {
	return !t.Synced && !t.Invalid && t.Status != StatusHeld
}

// IdempotencyKey returns the key the ledger dedupes on: the client token
// when present, otherwise the content hash.
func (t *Transaction) IdempotencyKey() string {
	if t.ExternalID != "" {
		return t.ExternalID
	}
	return t.DedupeKey
}
