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

// userRepo implements repositories.UserRepository
type userRepo struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) repositories.UserRepository {
	return &userRepo{db: db}
}

// GetByWallet gets a user by wallet address
func (r *userRepo) GetByWallet(ctx context.Context, walletAddress string) (*entities.User, error) {
	var m models.User
	if err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// GetOrCreateByWallet inserts an active user for an unseen wallet and
// returns the existing row otherwise. Insert-or-ignore keyed on the
// wallet address keeps concurrent first-references race-free.
func (r *userRepo) GetOrCreateByWallet(ctx context.Context, walletAddress string) (*entities.User, error) {
	now := time.Now()
	m := models.User{
		ID:            uuid.New(),
		WalletAddress: walletAddress,
		DisplayName:   entities.DefaultDisplayName(walletAddress),
		Status:        string(entities.StatusActive),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet_address"}},
		DoNothing: true,
	}).Create(&m).Error; err != nil {
		return nil, err
	}

	// Re-read: on conflict the insert was a no-op and m carries the
	// generated id, not the stored one.
	return r.GetByWallet(ctx, walletAddress)
}

// ListActive lists all active users
func (r *userRepo) ListActive(ctx context.Context) ([]*entities.User, error) {
	var ms []models.User
	if err := r.db.WithContext(ctx).Where("status = ?", string(entities.StatusActive)).Find(&ms).Error; err != nil {
		return nil, err
	}

	users := make([]*entities.User, 0, len(ms))
	for i := range ms {
		users = append(users, r.toEntity(&ms[i]))
	}
	return users, nil
}

// SetStatus updates a user's status
func (r *userRepo) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *userRepo) toEntity(m *models.User) *entities.User {
	return &entities.User{
		ID:            m.ID,
		WalletAddress: m.WalletAddress,
		DisplayName:   m.DisplayName,
		Status:        entities.EntityStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
