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

// GormTillRepository implements till.TillRepository on the local store
type GormTillRepository struct {
	db *gorm.DB
}

// NewGormTillRepository creates a new GormTillRepository
func NewGormTillRepository(db *gorm.DB) *GormTillRepository {
	return &GormTillRepository{db: db}
}

// Save creates or updates a till session
func (r *GormTillRepository) Save(ctx context.Context, t *till.Till) error {
	var model TillModel
	model.FromDomain(t)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a till by its ID
func (r *GormTillRepository) FindByID(ctx context.Context, id uuid.UUID) (*till.Till, error) {
	var model TillModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpen returns all tills currently open or suspended
func (r *GormTillRepository) FindOpen(ctx context.Context) ([]*till.Till, error) {
	var models []TillModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []string{till.TillStatusOpen.String(), till.TillStatusSuspended.String()}).
		Order("opened_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*till.Till, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

// FindOpenByStaffAndLocation finds the open till for a staff member at a
// location. One staff member holds at most one open till per location.
func (r *GormTillRepository) FindOpenByStaffAndLocation(ctx context.Context, staffID, locationID uuid.UUID) (*till.Till, error) {
	var model TillModel
	if err := r.db.WithContext(ctx).
		Where("staff_id = ? AND location_id = ? AND status = ?",
			staffID, locationID, till.TillStatusOpen.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Rekey moves a till row from an offline-minted id to the server id.
// The row keeps its content; only the primary key changes.
func (r *GormTillRepository) Rekey(ctx context.Context, localID, serverID uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&TillModel{}).
		Where("id = ?", localID).
		Updates(map[string]interface{}{
			"id":         serverID,
			"local_only": false,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
