package repositories

import (
	"context"
	"encoding/json"
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

// questionRepo implements repositories.QuestionRepository
type questionRepo struct {
	db *gorm.DB
}

// NewQuestionRepository creates a new voting question repository
func NewQuestionRepository(db *gorm.DB) repositories.QuestionRepository {
	return &questionRepo{db: db}
}

// GetByOnChainID gets a question by its on-chain identifier
func (r *questionRepo) GetByOnChainID(ctx context.Context, onChainID string) (*entities.VotingQuestion, error) {
	var m models.VotingQuestion
	if err := r.db.WithContext(ctx).Where("on_chain_id = ?", onChainID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// Create inserts a new question row
func (r *questionRepo) Create(ctx context.Context, question *entities.VotingQuestion) error {
	if question.ID == uuid.Nil {
		question.ID = uuid.New()
	}
	now := time.Now()
	question.CreatedAt = now
	question.UpdatedAt = now

	m := r.toModel(question)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateFromChain applies the authoritative chain record with the
// block-number stale-write guard in the statement itself.
func (r *questionRepo) UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.QuestionRecord) error {
	options, err := json.Marshal(record.Options)
	if err != nil {
		return err
	}

	status := string(entities.StatusActive)
	if !record.Active {
		status = string(entities.StatusInactive)
	}

	updates := map[string]interface{}{
		"title":       record.Title,
		"description": record.Description,
		"options":     string(options),
		"deadline":    record.Deadline,
		"status":      status,
		"updated_at":  time.Now(),
	}

	query := r.db.WithContext(ctx).Model(&models.VotingQuestion{}).Where("id = ?", id)
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
		if err := r.db.WithContext(ctx).Model(&models.VotingQuestion{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domainerrors.ErrNotFound
		}
		return domainerrors.ErrStaleBlock
	}
	return nil
}

// ListActive lists active questions
func (r *questionRepo) ListActive(ctx context.Context) ([]*entities.VotingQuestion, error) {
	var ms []models.VotingQuestion
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.StatusActive)).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	questions := make([]*entities.VotingQuestion, 0, len(ms))
	for i := range ms {
		questions = append(questions, r.toEntity(&ms[i]))
	}
	return questions, nil
}

// SetStatus updates a question's status
func (r *questionRepo) SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error {
	result := r.db.WithContext(ctx).Model(&models.VotingQuestion{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// CountActive counts active questions
func (r *questionRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VotingQuestion{}).
		Where("status = ?", string(entities.StatusActive)).Count(&count).Error
	return count, err
}

// CountSyncedSince counts active questions reconciled within the window
func (r *questionRepo) CountSyncedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VotingQuestion{}).
		Where("status = ? AND updated_at >= ?", string(entities.StatusActive), since).Count(&count).Error
	return count, err
}

func (r *questionRepo) toEntity(m *models.VotingQuestion) *entities.VotingQuestion {
	var options []string
	_ = json.Unmarshal([]byte(m.Options), &options)

	e := &entities.VotingQuestion{
		ID:            m.ID,
		OnChainID:     m.OnChainID,
		CommunityID:   m.CommunityID,
		Title:         m.Title,
		Options:       options,
		Deadline:      m.Deadline,
		CreatedBy:     m.CreatedBy,
		Status:        entities.EntityStatus(m.Status),
		Network:       m.Network,
		TransactionID: m.TransactionID,
		BlockNumber:   m.BlockNumber,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.Description != nil {
		e.Description = null.StringFrom(*m.Description)
	}
	return e
}

func (r *questionRepo) toModel(e *entities.VotingQuestion) *models.VotingQuestion {
	options, _ := json.Marshal(e.Options)
	m := &models.VotingQuestion{
		ID:            e.ID,
		OnChainID:     e.OnChainID,
		CommunityID:   e.CommunityID,
		Title:         e.Title,
		Options:       string(options),
		Deadline:      e.Deadline,
		CreatedBy:     e.CreatedBy,
		Status:        string(e.Status),
		Network:       e.Network,
		TransactionID: e.TransactionID,
		BlockNumber:   e.BlockNumber,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.Description.Valid {
		m.Description = &e.Description.String
	}
	return m
}
