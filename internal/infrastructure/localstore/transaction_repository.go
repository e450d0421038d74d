package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pos/backend/internal/domain/sale"
	"github.com/pos/backend/internal/domain/shared"
)

// GormTransactionRepository implements sale.TransactionRepository on the
// local store
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Save creates or updates a transaction
func (r *GormTransactionRepository) Save(ctx context.Context, tx *sale.Transaction) error {
	var model TransactionModel
	model.FromDomain(tx)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a transaction by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sale.Transaction, error) {
	var model TransactionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnsynced returns queued transactions in capture order. Held and
// invalid records are not part of the queue.
func (r *GormTransactionRepository) FindUnsynced(ctx context.Context) ([]*sale.Transaction, error) {
	var models []TransactionModel
	if err := r.db.WithContext(ctx).
		Where("synced = ? AND invalid = ? AND status <> ?", false, false, sale.StatusHeld.String()).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(models), nil
}

// FindByTill returns all transactions captured under a till
func (r *GormTransactionRepository) FindByTill(ctx context.Context, tillID uuid.UUID) ([]*sale.Transaction, error) {
	var models []TransactionModel
	if err := r.db.WithContext(ctx).
		Where("till_id = ?", tillID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return toDomainTransactions(models), nil
}

// CountUnsyncedForTill counts queued transactions blocking a till close
func (r *GormTransactionRepository) CountUnsyncedForTill(ctx context.Context, tillID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TransactionModel{}).
		Where("till_id = ? AND synced = ? AND invalid = ? AND status <> ?",
			tillID, false, false, sale.StatusHeld.String()).
		Count(&count).Error
	return count, err
}

// MarkSynced records server confirmation for a transaction
func (r *GormTransactionRepository) MarkSynced(ctx context.Context, id, serverID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&TransactionModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"synced":     true,
			"synced_at":  at,
			"server_id":  serverID,
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

// IncrementSyncAttempts bumps the diagnostic attempt counter
func (r *GormTransactionRepository) IncrementSyncAttempts(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&TransactionModel{}).
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

// MarkInvalid permanently excludes a transaction from the sync queue
func (r *GormTransactionRepository) MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error {
	result := r.db.WithContext(ctx).Model(&TransactionModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"invalid":        true,
			"invalid_reason": reason,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ReassignTill re-attributes transactions from an offline-minted till id
// to the server-assigned id
func (r *GormTransactionRepository) ReassignTill(ctx context.Context, fromTillID, toTillID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&TransactionModel{}).
		Where("till_id = ?", fromTillID).
		Updates(map[string]interface{}{
			"till_id":    toTillID,
			"updated_at": time.Now(),
		}).Error
}

func toDomainTransactions(models []TransactionModel) []*sale.Transaction {
	out := make([]*sale.Transaction, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out
}
