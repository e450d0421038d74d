package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pos/backend/internal/domain/shared"
	"github.com/pos/backend/internal/domain/till"
)

// GormPendingCloseRepository implements till.PendingCloseRepository on
// the local store
type GormPendingCloseRepository struct {
	db *gorm.DB
}

// NewGormPendingCloseRepository creates a new GormPendingCloseRepository
func NewGormPendingCloseRepository(db *gorm.DB) *GormPendingCloseRepository {
	return &GormPendingCloseRepository{db: db}
}

// Save creates or updates a pending close
func (r *GormPendingCloseRepository) Save(ctx context.Context, pending *till.PendingTillClose) error {
	var model PendingCloseModel
	model.FromDomain(pending)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByTill finds the pending close for a till, if any
func (r *GormPendingCloseRepository) FindByTill(ctx context.Context, tillID uuid.UUID) (*till.PendingTillClose, error) {
	var model PendingCloseModel
	if err := r.db.WithContext(ctx).First(&model, "till_id = ?", tillID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnsynced returns pending closes awaiting delivery in capture order
func (r *GormPendingCloseRepository) FindUnsynced(ctx context.Context) ([]*till.PendingTillClose, error) {
	var models []PendingCloseModel
	if err := r.db.WithContext(ctx).
		Where("synced = ?", false).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*till.PendingTillClose, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

// MarkSynced records server confirmation of the close
func (r *GormPendingCloseRepository) MarkSynced(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&PendingCloseModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"synced":     true,
			"synced_at":  now,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// IncrementSyncAttempts bumps the diagnostic attempt counter
func (r *GormPendingCloseRepository) IncrementSyncAttempts(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&PendingCloseModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_attempts": gorm.Expr("sync_attempts + 1"),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormOpenMappingRepository implements till.OpenMappingRepository on the
// local store
type GormOpenMappingRepository struct {
	db *gorm.DB
}

// NewGormOpenMappingRepository creates a new GormOpenMappingRepository
func NewGormOpenMappingRepository(db *gorm.DB) *GormOpenMappingRepository {
	return &GormOpenMappingRepository{db: db}
}

// Save creates or updates a mapping
func (r *GormOpenMappingRepository) Save(ctx context.Context, mapping *till.TillOpenMapping) error {
	var model OpenMappingModel
	model.FromDomain(mapping)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByLocalID finds a mapping by the offline-minted till id
func (r *GormOpenMappingRepository) FindByLocalID(ctx context.Context, localTillID uuid.UUID) (*till.TillOpenMapping, error) {
	var model OpenMappingModel
	if err := r.db.WithContext(ctx).First(&model, "local_till_id = ?", localTillID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnapplied returns mappings whose re-attribution has not run yet
func (r *GormOpenMappingRepository) FindUnapplied(ctx context.Context) ([]*till.TillOpenMapping, error) {
	var models []OpenMappingModel
	if err := r.db.WithContext(ctx).
		Where("applied = ?", false).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*till.TillOpenMapping, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

// MarkApplied records that local rows were re-attributed to the server id
func (r *GormOpenMappingRepository) MarkApplied(ctx context.Context, localTillID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&OpenMappingModel{}).
		Where("local_till_id = ?", localTillID).
		Updates(map[string]interface{}{
			"applied":    true,
			"applied_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
