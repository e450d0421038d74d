package sale

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionRepository is the terminal-side outbound queue for sales.
// Implementations must persist every transaction before any network
// attempt; queue state survives process restart.
type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// FindUnsynced returns queued transactions in capture order,
	// excluding held and invalid records.
	FindUnsynced(ctx context.Context) ([]*Transaction, error)

	FindByTill(ctx context.Context, tillID uuid.UUID) ([]*Transaction, error)
	CountUnsyncedForTill(ctx context.Context, tillID uuid.UUID) (int64, error)

	MarkSynced(ctx context.Context, id, serverID uuid.UUID, at time.Time) error
	IncrementSyncAttempts(ctx context.Context, id uuid.UUID) error
	MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error

	// ReassignTill re-attributes transactions captured under an
	// offline-minted till id to the server-assigned id.
	ReassignTill(ctx context.Context, fromTillID, toTillID uuid.UUID) error
}
