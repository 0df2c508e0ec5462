package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/internal/infrastructure/models"
)

// membershipRepo implements repositories.MembershipRepository
type membershipRepo struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *gorm.DB) repositories.MembershipRepository {
	return &membershipRepo{db: db}
}

// GetByCommunityAndUser gets a membership by its natural key
func (r *membershipRepo) GetByCommunityAndUser(ctx context.Context, communityID, userID uuid.UUID) (*entities.Membership, error) {
	var m models.Membership
	if err := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// Upsert inserts or updates the row keyed on (community_id, user_id) in a
// single atomic statement, so a re-join or role change never races a
// concurrent insert into a duplicate.
func (r *membershipRepo) Upsert(ctx context.Context, membership *entities.Membership) error {
	if membership.ID == uuid.Nil {
		membership.ID = uuid.New()
	}
	now := time.Now()
	if membership.JoinedAt.IsZero() {
		membership.JoinedAt = now
	}
	membership.CreatedAt = now
	membership.UpdatedAt = now

	m := r.toModel(membership)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"role":           m.Role,
			"status":         m.Status,
			"network":        m.Network,
			"transaction_id": m.TransactionID,
			"updated_at":     now,
		}),
	}).Create(m).Error
}

// ListActive lists active memberships with parent community and user joined
func (r *membershipRepo) ListActive(ctx context.Context) ([]*entities.Membership, error) {
	var ms []models.Membership
	if err := r.db.WithContext(ctx).
		Preload("Community").Preload("User").
		Where("memberships.status = ?", string(entities.StatusActive)).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	memberships := make([]*entities.Membership, 0, len(ms))
	for i := range ms {
		e := r.toEntity(&ms[i])
		e.CommunityOnChainID = ms[i].Community.OnChainID
		e.WalletAddress = ms[i].User.WalletAddress
		memberships = append(memberships, e)
	}
	return memberships, nil
}

// UpdateFromChain applies the authoritative chain record
func (r *membershipRepo) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.MembershipRecord) error {
	result := r.db.WithContext(ctx).Model(&models.Membership{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"role":       record.Role,
			"status":     record.Status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// SetStatus updates a membership's status
func (r *membershipRepo) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Membership{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// CountActive counts active memberships
func (r *membershipRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("status = ?", string(entities.StatusActive)).Count(&count).Error
	return count, err
}

// CountSyncedSince counts active memberships reconciled within the window
func (r *membershipRepo) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("status = ? AND updated_at >= ?", string(entities.StatusActive), since).Count(&count).Error
	return count, err
}

// CountByCommunity counts memberships for one community
func (r *membershipRepo) CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Membership{}).
		Where("community_id = ?", communityID).Count(&count).Error
	return count, err
}

func (r *membershipRepo) toEntity(m *models.Membership) *entities.Membership {
	return &entities.Membership{
		ID:            m.ID,
		CommunityID:   m.CommunityID,
		UserID:        m.UserID,
		Role:          entities.MemberRole(m.Role),
		Status:        entities.EntityStatus(m.Status),
		JoinedAt:      m.JoinedAt,
		Network:       m.Network,
		TransactionID: m.TransactionID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r *membershipRepo) toModel(e *entities.Membership) *models.Membership {
	return &models.Membership{
		ID:            e.ID,
		CommunityID:   e.CommunityID,
		UserID:        e.UserID,
		Role:          string(e.Role),
		Status:        string(e.Status),
		JoinedAt:      e.JoinedAt,
		Network:       e.Network,
		TransactionID: e.TransactionID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
