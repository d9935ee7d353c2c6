package repository

import (
	"time"

	"smscast/internal/domain"
)

// DispatchHistoryModel is the persistence model for the dispatch_history
// table.
type DispatchHistoryModel struct {
	BatchID        string `gorm:"type:uuid;primaryKey"`
	Template       string `gorm:"type:text;not null"`
	RecipientCount int    `gorm:"not null"`
	TotalUnits     int    `gorm:"not null"`
	SentCount      int    `gorm:"not null;default:0"`
	DeliveredCount int    `gorm:"not null;default:0"`
	FailedCount    int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (DispatchHistoryModel) TableName() string {
	return "dispatch_history"
}

func historyModelFromBatch(b *domain.Batch) *DispatchHistoryModel {
	if b == nil {
		return nil
	}

	return &DispatchHistoryModel{
		BatchID:        b.ID,
		Template:       b.Template,
		RecipientCount: b.RecipientCount,
		TotalUnits:     b.TotalUnits,
		CreatedAt:      b.CreatedAt,
	}
}

func historyModelToDomain(m *DispatchHistoryModel) *domain.HistoryEntry {
	if m == nil {
		return nil
	}

	return &domain.HistoryEntry{
		BatchID:        m.BatchID,
		Template:       m.Template,
		RecipientCount: m.RecipientCount,
		TotalUnits:     m.TotalUnits,
		SentCount:      m.SentCount,
		DeliveredCount: m.DeliveredCount,
		FailedCount:    m.FailedCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
