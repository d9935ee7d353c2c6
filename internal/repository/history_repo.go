package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"smscast/internal/domain"
)

const defaultListLimit = 50

type HistoryRepository interface {
	Create(ctx context.Context, b *domain.Batch) error
	UpdateStats(ctx context.Context, batchID string, counts domain.BatchCounts) error
	GetByBatchID(ctx context.Context, batchID string) (*domain.HistoryEntry, error)
	List(ctx context.Context, limit int) ([]*domain.HistoryEntry, error)
}

type GormHistoryRepo struct {
	db *gorm.DB
}

func NewGormHistoryRepo(db *gorm.DB) *GormHistoryRepo {
	return &GormHistoryRepo{db: db}
}

func (r *GormHistoryRepo) Create(ctx context.Context, b *domain.Batch) error {
	model := historyModelFromBatch(b)
	return r.db.WithContext(ctx).Create(model).Error
}

// UpdateStats writes the current aggregation for a batch. The write is a
// plain overwrite with the latest fold, so replaying the same counts is a
// no-op.
func (r *GormHistoryRepo) UpdateStats(ctx context.Context, batchID string, counts domain.BatchCounts) error {
	result := r.db.WithContext(ctx).
		Model(&DispatchHistoryModel{}).
		Where("batch_id = ?", batchID).
		Updates(map[string]any{
			"sent_count":      counts.SentOrBetter(),
			"delivered_count": counts.Delivered,
			"failed_count":    counts.Failed,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormHistoryRepo) GetByBatchID(ctx context.Context, batchID string) (*domain.HistoryEntry, error) {
	var model DispatchHistoryModel
	err := r.db.WithContext(ctx).First(&model, "batch_id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return historyModelToDomain(&model), nil
}

func (r *GormHistoryRepo) List(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var models []DispatchHistoryModel
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.HistoryEntry, 0, len(models))
	for i := range models {
		entries = append(entries, historyModelToDomain(&models[i]))
	}
	return entries, nil
}
