package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/internal/infrastructure/models"
	"community-gov.backend/pkg/utils"
)

// auditRepo implements repositories.AuditRepository
type auditRepo struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) repositories.AuditRepository {
	return &auditRepo{db: db}
}

// Insert appends one audit record
func (r *auditRepo) Insert(ctx context.Context, record *repositories.AuditRecord) error {
	m := models.AuditEvent{
		ID:        uuid.New(),
		Name:      record.Name,
		Level:     record.Level,
		Category:  record.Category,
		Details:   record.Details,
		CreatedAt: time.Now(),
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = m.CreatedAt
	} else {
		m.CreatedAt = record.CreatedAt
	}
	record.ID = m.ID.String()

	return r.db.WithContext(ctx).Create(&m).Error
}

// ListRecent lists audit records, newest first, optionally by category
func (r *auditRepo) ListRecent(ctx context.Context, category string, pagination utils.PaginationParams) ([]*repositories.AuditRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditEvent{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	if pagination.Limit > 0 {
		query = query.Offset(pagination.CalculateOffset()).Limit(pagination.Limit)
	}

	var ms []models.AuditEvent
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	records := make([]*repositories.AuditRecord, 0, len(ms))
	for i := range ms {
		records = append(records, &repositories.AuditRecord{
			ID:        ms[i].ID.String(),
			Name:      ms[i].Name,
			Level:     ms[i].Level,
			Category:  ms[i].Category,
			Details:   ms[i].Details,
			CreatedAt: ms[i].CreatedAt,
		})
	}
	return records, totalCount, nil
}
