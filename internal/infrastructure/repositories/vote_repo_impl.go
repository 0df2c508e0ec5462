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

// voteRepo implements repositories.VoteRepository
type voteRepo struct {
	db *gorm.DB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) repositories.VoteRepository {
	return &voteRepo{db: db}
}

// GetByQuestionAndUser gets a vote by its natural key
func (r *voteRepo) GetByQuestionAndUser(ctx context.Context, questionID, userID uuid.UUID) (*entities.Vote, error) {
	var m models.Vote
	if err := r.db.WithContext(ctx).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// Upsert inserts or updates the row keyed on (question_id, user_id) in a
// single atomic statement. Last vote wins.
func (r *voteRepo) Upsert(ctx context.Context, vote *entities.Vote) error {
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	now := time.Now()
	vote.CreatedAt = now
	vote.UpdatedAt = now
	if vote.Status == "" {
		vote.Status = entities.StatusActive
	}

	m := r.toModel(vote)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "question_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"vote_data":      m.VoteData,
			"signature":      m.Signature,
			"status":         m.Status,
			"network":        m.Network,
			"transaction_id": m.TransactionID,
			"updated_at":     now,
		}),
	}).Create(m).Error
}

// ListActive lists active votes with parent question and user joined
func (r *voteRepo) ListActive(ctx context.Context) ([]*entities.Vote, error) {
	var ms []models.Vote
	if err := r.db.WithContext(ctx).
		Preload("Question").Preload("User").
		Where("votes.status = ?", string(entities.StatusActive)).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	votes := make([]*entities.Vote, 0, len(ms))
	for i := range ms {
		e := r.toEntity(&ms[i])
		e.QuestionOnChainID = ms[i].Question.OnChainID
		e.WalletAddress = ms[i].User.WalletAddress
		votes = append(votes, e)
	}
	return votes, nil
}

// UpdateFromChain applies the authoritative chain record
func (r *voteRepo) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.VoteRecord) error {
	result := r.db.WithContext(ctx).Model(&models.Vote{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"vote_data":  record.VoteData,
			"signature":  record.Signature,
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

// SetStatus updates a vote's status
func (r *voteRepo) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Vote{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// CountAll counts all votes
func (r *voteRepo) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).Count(&count).Error
	return count, err
}

// CountSyncedSince counts votes reconciled within the window
func (r *voteRepo) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("updated_at >= ?", since).Count(&count).Error
	return count, err
}

// CountByQuestion counts votes for one question
func (r *voteRepo) CountByQuestion(ctx context.Context, questionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("question_id = ?", questionID).Count(&count).Error
	return count, err
}

func (r *voteRepo) toEntity(m *models.Vote) *entities.Vote {
	return &entities.Vote{
		ID:            m.ID,
		QuestionID:    m.QuestionID,
		UserID:        m.UserID,
		VoteData:      m.VoteData,
		Signature:     m.Signature,
		Status:        entities.EntityStatus(m.Status),
		Network:       m.Network,
		TransactionID: m.TransactionID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (r *voteRepo) toModel(e *entities.Vote) *models.Vote {
	return &models.Vote{
		ID:            e.ID,
		QuestionID:    e.QuestionID,
		UserID:        e.UserID,
		VoteData:      e.VoteData,
		Signature:     e.Signature,
		Status:        string(e.Status),
		Network:       e.Network,
		TransactionID: e.TransactionID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
