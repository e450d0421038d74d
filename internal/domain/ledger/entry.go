// Package ledger holds the server-side record of accepted transactions.
// Terminals may submit the same transaction many times; the ledger admits
// each underlying sale exactly once, keyed on the terminal's idempotency
// key.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
)

// Entry is one admitted transaction. Its identity is server-assigned;
// the Key links it back to the terminal submission.
type Entry struct {
	shared.BaseEntity
	Key          string // externalId when supplied, content hash otherwise
	TerminalTxID uuid.UUID

	Items    []sale.Item
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal

	TenderPayments []sale.TenderPayment
	TenderType     string
	AmountPaid     decimal.Decimal
	Change         decimal.Decimal

	StaffID    uuid.UUID
	StaffName  string
	LocationID uuid.UUID
	TillID     uuid.UUID

	Status     sale.Status
	CapturedAt time.Time // when the terminal captured the sale
}

// NewEntryFromTransaction admits a terminal transaction into the ledger.
// The submission must carry a dedupe identity and pass the same mandatory
// field checks the terminal applies; the ledger trusts no client.
func NewEntryFromTransaction(tx *sale.Transaction) (*Entry, error) {
	if tx.IdempotencyKey() == "" {
		return nil, shared.NewDomainError("MISSING_KEY", "Submission carries no idempotency key")
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if tx.Status != sale.StatusCompleted && tx.Status != sale.StatusRefunded {
		return nil, shared.NewDomainError("INVALID_STATE", "Only completed or refunded transactions enter the ledger")
	}
	return &Entry{
		BaseEntity:     shared.NewBaseEntity(),
		Key:            tx.IdempotencyKey(),
		TerminalTxID:   tx.ID,
		Items:          tx.Items,
		Subtotal:       tx.Subtotal,
		Tax:            tx.Tax,
		Discount:       tx.Discount,
		Total:          tx.Total,
		TenderPayments: tx.TenderPayments,
		TenderType:     tx.TenderType,
		AmountPaid:     tx.AmountPaid,
		Change:         tx.Change,
		StaffID:        tx.StaffID,
		StaffName:      tx.StaffName,
		LocationID:     tx.LocationID,
		TillID:         tx.TillID,
		Status:         tx.Status,
		CapturedAt:     tx.CreatedAt,
	}, nil
}

// ToTransaction rebuilds the sale aggregate form of the entry, used when
// accruing into the server-side till session.
func (e *Entry) ToTransaction() *sale.Transaction {
	return &sale.Transaction{
		BaseEntity: shared.BaseEntity{
			ID:        e.TerminalTxID,
			CreatedAt: e.CapturedAt,
			UpdatedAt: e.UpdatedAt,
		},
		Items:          e.Items,
		Subtotal:       e.Subtotal,
		Tax:            e.Tax,
		Discount:       e.Discount,
		Total:          e.Total,
		TenderPayments: e.TenderPayments,
		TenderType:     e.TenderType,
		AmountPaid:     e.AmountPaid,
		Change:         e.Change,
		StaffID:        e.StaffID,
		StaffName:      e.StaffName,
		LocationID:     e.LocationID,
		TillID:         e.TillID,
		Status:         e.Status,
	}
}
