package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pos/backend/internal/domain/ledger"
	"github.com/pos/backend/internal/domain/shared"
)

// GormEntryRepository implements ledger.EntryRepository using GORM
type GormEntryRepository struct {
	db *gorm.DB
}

// NewGormEntryRepository creates a new GormEntryRepository
func NewGormEntryRepository(db *gorm.DB) *GormEntryRepository {
	return &GormEntryRepository{db: db}
}

// Insert admits an entry exactly once. The insert races against other
// submissions of the same key; whoever loses the race reads back the row
// the winner wrote.
func (r *GormEntryRepository) Insert(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, bool, error) {
	var model EntryModel
	model.FromDomain(entry)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return entry, false, nil
	}

	stored, err := r.FindByKey(ctx, entry.Key)
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// FindByKey finds an entry by its idempotency key
func (r *GormEntryRepository) FindByKey(ctx context.Context, key string) (*ledger.Entry, error) {
	var model EntryModel
	if err := r.db.WithContext(ctx).First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an entry by its server-assigned id
func (r *GormEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	var model EntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTill returns all entries admitted under a till in capture order
func (r *GormEntryRepository) FindByTill(ctx context.Context, tillID uuid.UUID) ([]*ledger.Entry, error) {
	var models []EntryModel
	if err := r.db.WithContext(ctx).
		Where("till_id = ?", tillID).
		Order("captured_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Entry, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}
