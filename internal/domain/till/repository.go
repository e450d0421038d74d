package till

import (
	"context"

	"github.com/google/uuid"
)

// TillRepository persists till sessions
type TillRepository interface {
	Save(ctx context.Context, till *Till) error
	FindByID(ctx context.Context, id uuid.UUID) (*Till, error)
	FindOpen(ctx context.Context) ([]*Till, error)
	FindOpenByStaffAndLocation(ctx context.Context, staffID, locationID uuid.UUID) (*Till, error)

	// Rekey moves a till row from an offline-minted id to the
	// server-assigned id.
	Rekey(ctx context.Context, localID, serverID uuid.UUID) error
}

// PendingCloseRepository is the outbound queue for offline till closes
type PendingCloseRepository interface {
	Save(ctx context.Context, pending *PendingTillClose) error
	FindByTill(ctx context.Context, tillID uuid.UUID) (*PendingTillClose, error)
	FindUnsynced(ctx context.Context) ([]*PendingTillClose, error)
	MarkSynced(ctx context.Context, id uuid.UUID) error
	IncrementSyncAttempts(ctx context.Context, id uuid.UUID) error
}

// OpenMappingRepository persists local-to-server till id mappings
type OpenMappingRepository interface {
	Save(ctx context.Context, mapping *TillOpenMapping) error
	FindByLocalID(ctx context.Context, localTillID uuid.UUID) (*TillOpenMapping, error)
	FindUnapplied(ctx context.Context) ([]*TillOpenMapping, error)
	MarkApplied(ctx context.Context, localTillID uuid.UUID) error
}
