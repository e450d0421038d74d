package ledger

import (
	"context"

	"github.com/google/uuid"
)

// EntryRepository persists admitted transactions. Insert is the only
// write path and it is race-safe: two concurrent submissions of the same
// key converge on a single row.
type EntryRepository interface {
	// Insert admits an entry. When a row with the same key already
	// exists the stored entry is returned with duplicate set; the
	// incoming entry is discarded.
	Insert(ctx context.Context, entry *Entry) (stored *Entry, duplicate bool, err error)

	FindByKey(ctx context.Context, key string) (*Entry, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	FindByTill(ctx context.Context, tillID uuid.UUID) ([]*Entry, error)
}
