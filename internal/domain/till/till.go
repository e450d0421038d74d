package till

import (
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TillStatus represents the lifecycle status of a till session
type TillStatus string

const (
	TillStatusOpen      TillStatus = "OPEN"
	TillStatusClosed    TillStatus = "CLOSED"
	TillStatusSuspended TillStatus = "SUSPENDED"
)

// IsValid checks if the status is a valid TillStatus
func (s TillStatus) IsValid() bool {
	switch s {
	case TillStatusOpen, TillStatusClosed, TillStatusSuspended:
		return true
	}
	return false
}

// String returns the string representation of TillStatus
func (s TillStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// CLOSED is terminal; SUSPENDED is an administrative detour back to OPEN.
func (s TillStatus) CanTransitionTo(target TillStatus) bool {
	switch s {
	case TillStatusOpen:
		return target == TillStatusClosed || target == TillStatusSuspended
	case TillStatusSuspended:
		return target == TillStatusOpen
	case TillStatusClosed:
		return false
	}
	return false
}

// ClosingSummary is the record produced by closing a till. A repeat close
// request returns the stored summary unchanged.
type ClosingSummary struct {
	TillID           uuid.UUID       `json:"till_id"`
	ClosedAt         time.Time       `json:"closed_at"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
	TenderBreakdown  TenderBreakdown `json:"tender_breakdown"`
	Reconciliation   Reconciliation  `json:"reconciliation"`
	Notes            string          `json:"notes"`
}

// Till is a cash-drawer/shift session scoped to one staff member at one
// location, bounded by an open and a close event.
type Till struct {
	shared.BaseEntity
	StoreID    uuid.UUID
	LocationID uuid.UUID
	StaffID    uuid.UUID
	StaffName  string

	OpeningBalance decimal.Decimal
	OpenedAt       time.Time
	ClosedAt       *time.Time
	Status         TillStatus

	TotalSales      decimal.Decimal
	TenderBreakdown TenderBreakdown

	linkedSet            map[uuid.UUID]struct{}
	LinkedTransactionIDs []uuid.UUID

	ClosingNotes string
	Summary      *ClosingSummary

	// LocalOnly marks a till minted while offline; it is cleared once the
	// server assigns the canonical id via a TillOpenMapping.
	LocalOnly bool
}

// NewTill opens a till session at shift start
func NewTill(storeID, locationID, staffID uuid.UUID, staffName string, openingBalance decimal.Decimal) (*Till, error) {
	if staffID == uuid.Nil || staffName == "" {
		return nil, shared.NewDomainError("MISSING_STAFF", "Till requires staff id and name")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("MISSING_LOCATION", "Till requires a location")
	}
	if openingBalance.IsNegative() {
		return nil, shared.NewDomainError("INVALID_OPENING_BALANCE", "Opening balance cannot be negative")
	}
	return &Till{
		BaseEntity:      shared.NewBaseEntity(),
		StoreID:         storeID,
		LocationID:      locationID,
		StaffID:         staffID,
		StaffName:       staffName,
		OpeningBalance:  openingBalance,
		OpenedAt:        time.Now(),
		Status:          TillStatusOpen,
		TotalSales:      decimal.Zero,
		TenderBreakdown: NewTenderBreakdown(),
		linkedSet:       make(map[uuid.UUID]struct{}),
	}, nil
}

// TransactionCount is derived from the linked-transaction set, never
// incremented independently, so a split-payment transaction cannot be
// miscounted as multiple sales.
func (t *Till) TransactionCount() int {
	return len(t.LinkedTransactionIDs)
}

// IsLinked reports whether a transaction already accrued into this till
func (t *Till) IsLinked(txID uuid.UUID) bool {
	t.ensureLinkedSet()
	_, ok := t.linkedSet[txID]
	return ok
}

func (t *Till) ensureLinkedSet() {
	if t.linkedSet == nil {
		t.linkedSet = make(map[uuid.UUID]struct{}, len(t.LinkedTransactionIDs))
		for _, id := range t.LinkedTransactionIDs {
			t.linkedSet[id] = struct{}{}
		}
	}
}

// RecordTransaction accrues a completed transaction into the till.
// The operation is idempotent per transaction id.
func (t *Till) RecordTransaction(tx *sale.Transaction) error {
	if t.Status != TillStatusOpen {
		return shared.ErrTillNotOpen
	}
	if tx.Status != sale.StatusCompleted {
		return shared.NewDomainError("NOT_COMPLETED", "Only completed transactions accrue into a till")
	}
	if tx.TillID != t.ID {
		return shared.NewDomainError("WRONG_TILL", "Transaction belongs to a different till")
	}
	t.ensureLinkedSet()
	if _, ok := t.linkedSet[tx.ID]; ok {
		return nil
	}

	t.TotalSales = t.TotalSales.Add(tx.Total)

	if len(tx.TenderPayments) > 0 {
		for _, p := range tx.TenderPayments {
			t.TenderBreakdown.Add(p.TenderName, p.Amount)
		}
		if tx.Change.IsPositive() {
			// Change handed back comes out of the drawer.
			t.TenderBreakdown.Add(t.changeTender(tx), tx.Change.Neg())
		}
	} else {
		t.TenderBreakdown.Add(tx.TenderType, tx.Total)
	}

	t.linkedSet[tx.ID] = struct{}{}
	t.LinkedTransactionIDs = append(t.LinkedTransactionIDs, tx.ID)
	t.Touch()
	return nil
}

// changeTender picks the bucket change is deducted from: the cash slice of
// the split when present, otherwise the first tender touched.
func (t *Till) changeTender(tx *sale.Transaction) string {
	for _, p := range tx.TenderPayments {
		if p.TenderName == "CASH" {
			return p.TenderName
		}
	}
	return tx.TenderPayments[0].TenderName
}

// Close transitions OPEN to CLOSED exactly once, computing reconciliation.
// Closing an already-closed till is idempotent and returns the existing
// summary; variance of any magnitude is advisory and never blocks.
func (t *Till) Close(physicalCounts map[string]decimal.Decimal, notes string, now time.Time) (*ClosingSummary, error) {
	if t.Status == TillStatusClosed {
		return t.Summary, nil
	}
	if t.Status != TillStatusOpen {
		return nil, shared.ErrTillNotOpen
	}

	reconciliation := Reconcile(t.TenderBreakdown, physicalCounts, t.OpeningBalance, t.TotalSales)

	t.Status = TillStatusClosed
	t.ClosedAt = &now
	t.ClosingNotes = notes
	t.Summary = &ClosingSummary{
		TillID:           t.ID,
		ClosedAt:         now,
		OpeningBalance:   t.OpeningBalance,
		TotalSales:       t.TotalSales,
		TransactionCount: t.TransactionCount(),
		TenderBreakdown:  t.TenderBreakdown,
		Reconciliation:   reconciliation,
		Notes:            notes,
	}
	t.Touch()
	return t.Summary, nil
}

// Suspend administratively parks an open till
func (t *Till) Suspend() error {
	if !t.Status.CanTransitionTo(TillStatusSuspended) {
		return shared.NewDomainError("INVALID_STATE", "Only an open till can be suspended")
	}
	t.Status = TillStatusSuspended
	t.Touch()
	return nil
}

// Reactivate returns a suspended till to OPEN
func (t *Till) Reactivate() error {
	if !t.Status.CanTransitionTo(TillStatusOpen) {
		return shared.NewDomainError("INVALID_STATE", "Only a suspended till can be reactivated")
	}
	t.Status = TillStatusOpen
	t.Touch()
	return nil
}

// Rekey replaces an offline-minted till id with the server-assigned one.
// Linked transaction ids are untouched; callers re-attribute those rows
// through the transaction repository.
func (t *Till) Rekey(serverID uuid.UUID) {
	t.ID = serverID
	t.LocalOnly = false
	if t.Summary != nil {
		t.Summary.TillID = serverID
	}
	t.Touch()
}
