package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"community-gov.backend/internal/domain/entities"
)

// VoteRepository defines vote data operations
type VoteRepository interface {
	GetByQuestionAndUser(ctx context.Context, questionID, userID uuid.UUID) (*entities.Vote, error)
	// Upsert inserts or updates the row keyed on (question_id, user_id) in a
	// single atomic statement. Last vote wins; no history is retained.
	Upsert(ctx context.Context, vote *entities.Vote) error
	// ListActive returns active votes joined with the parent question's
	// on-chain id and the voter's wallet address.
	ListActive(ctx context.Context) ([]*entities.Vote, error)
	UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.VoteRecord) error
	SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error
	CountAll(ctx context.Context) (int64, error)
	CountSyncedSince(ctx context.Context, since time.Time) (int64, error)
	CountByQuestion(ctx context.Context, questionID uuid.UUID) (int64, error)
}
