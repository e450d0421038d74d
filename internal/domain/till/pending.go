package till

import (
	"time"

	"github.com/google/uuid"
	"github.com/pos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PendingTillClose is an offline-captured close request awaiting delivery.
// It carries the same shape as the eventual server payload so the sync
// engine can replay it verbatim once connectivity resumes.
type PendingTillClose struct {
	shared.BaseEntity
	TillID       uuid.UUID
	TenderCounts map[string]decimal.Decimal
	Notes        string
	Summary      *ClosingSummary // snapshot computed at capture time

	Synced       bool
	SyncedAt     *time.Time
	SyncAttempts int
}

// NewPendingTillClose captures an offline close for later delivery
func NewPendingTillClose(tillID uuid.UUID, tenderCounts map[string]decimal.Decimal, notes string, summary *ClosingSummary) (*PendingTillClose, error) {
	if tillID == uuid.Nil {
		return nil, shared.NewDomainError("MISSING_TILL", "Pending close requires a till id")
	}
	counts := make(map[string]decimal.Decimal, len(tenderCounts))
	for tender, amount := range tenderCounts {
		counts[tender] = amount
	}
	return &PendingTillClose{
		BaseEntity:   shared.NewBaseEntity(),
		TillID:       tillID,
		TenderCounts: counts,
		Notes:        notes,
		Summary:      summary,
	}, nil
}

// IntentKey is the idempotency key for delivery: one close intent per till.
func (p *PendingTillClose) IntentKey() string {
	return "till-close:" + p.TillID.String()
}

// Reattribute moves the close intent to the server-assigned till id
// after an offline-minted id is mapped.
func (p *PendingTillClose) Reattribute(serverTillID uuid.UUID) {
	p.TillID = serverTillID
	if p.Summary != nil {
		p.Summary.TillID = serverTillID
	}
	p.Touch()
}

// MarkSynced records server confirmation of the close
func (p *PendingTillClose) MarkSynced(at time.Time) {
	p.Synced = true
	p.SyncedAt = &at
	p.Touch()
}

// RecordSyncAttempt increments the diagnostic attempt counter
func (p *PendingTillClose) RecordSyncAttempt() {
	p.SyncAttempts++
	p.Touch()
}

// TillOpenMapping links a till id minted while offline to the canonical id
// the server assigned once connectivity returned. The row is kept after
// application for audit.
type TillOpenMapping struct {
	LocalTillID  uuid.UUID
	ServerTillID uuid.UUID
	CreatedAt    time.Time
	Applied      bool
	AppliedAt    *time.Time
}

// NewTillOpenMapping records a local-to-server till id assignment
func NewTillOpenMapping(localTillID, serverTillID uuid.UUID) (*TillOpenMapping, error) {
	if localTillID == uuid.Nil || serverTillID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MAPPING", "Till open mapping requires both ids")
	}
	if localTillID == serverTillID {
		return nil, shared.NewDomainError("INVALID_MAPPING", "Till open mapping ids must differ")
	}
	return &TillOpenMapping{
		LocalTillID:  localTillID,
		ServerTillID: serverTillID,
		CreatedAt:    time.Now(),
	}, nil
}

// MarkApplied records that local rows were re-attributed to the server id
func (m *TillOpenMapping) MarkApplied(at time.Time) {
	m.Applied = true
	m.AppliedAt = &at
}
