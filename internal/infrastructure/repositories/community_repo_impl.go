package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/internal/infrastructure/models"
)

// communityRepo implements repositories.CommunityRepository
type communityRepo struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *gorm.DB) repositories.CommunityRepository {
	return &communityRepo{db: db}
}

// GetByOnChainID gets a community by its on-chain identifier
func (r *communityRepo) GetByOnChainID(ctx context.Context, onChainID string) (*entities.Community, error) {
	var m models.Community
	if err := r.db.WithContext(ctx).Where("on_chain_id = ?", onChainID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// Create inserts a new community row
func (r *communityRepo) Create(ctx context.Context, community *entities.Community) error {
	if community.ID == uuid.Nil {
		community.ID = uuid.New()
	}
	now := time.Now()
	community.CreatedAt = now
	community.UpdatedAt = now

	m := r.toModel(community)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateFromChain applies the authoritative chain record to the row's
// mutable fields. The block-number condition in the statement itself is
// the stale-write guard: an older record never overwrites a newer row.
func (r *communityRepo) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.CommunityRecord) error {
	updates := map[string]interface{}{
		"name":        record.Name,
		"description": record.Description,
		"config":      record.Config,
		"updated_at":  time.Now(),
	}

	query := r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id)
	if record.BlockNumber > 0 {
		updates["block_number"] = record.BlockNumber
		query = query.Where("block_number <= ?", record.BlockNumber)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domainerrors.ErrNotFound
		}
		return domainerrors.ErrStaleBlock
	}
	return nil
}

// ListActive lists all active communities
func (r *communityRepo) ListActive(ctx context.Context) ([]*entities.Community, error) {
	var ms []models.Community
	if err := r.db.WithContext(ctx).Where("status = ?", string(entities.StatusActive)).Find(&ms).Error; err != nil {
		return nil, err
	}

	communities := make([]*entities.Community, 0, len(ms))
	for i := range ms {
		communities = append(communities, r.toEntity(&ms[i]))
	}
	return communities, nil
}

// SetStatus updates a community's status
func (r *communityRepo) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Community{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// CountActive counts active communities
func (r *communityRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Community{}).
		Where("status = ?", string(entities.StatusActive)).Count(&count).Error
	return count, err
}

// CountSyncedSince counts active communities reconciled within the window
func (r *communityRepo) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Community{}).
		Where("status = ? AND updated_at >= ?", string(entities.StatusActive), since).Count(&count).Error
	return count, err
}

func (r *communityRepo) toEntity(m *models.Community) *entities.Community {
	e := &entities.Community{
		ID:            m.ID,
		OnChainID:     m.OnChainID,
		Name:          m.Name,
		CreatedBy:     m.CreatedBy,
		Config:        m.Config,
		Network:       m.Network,
		TransactionID: m.TransactionID,
		BlockNumber:   m.BlockNumber,
		Status:        entities.EntityStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Description != nil {
		e.Description = null.StringFrom(*m.Description)
	}
	return e
}

func (r *communityRepo) toModel(e *entities.Community) *models.Community {
	m := &models.Community{
		ID:            e.ID,
		OnChainID:     e.OnChainID,
		Name:          e.Name,
		CreatedBy:     e.CreatedBy,
		Config:        e.Config,
		Network:       e.Network,
		TransactionID: e.TransactionID,
		BlockNumber:   e.BlockNumber,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.Description.Valid {
		m.Description = &e.Description.String
	}
	return m
}
