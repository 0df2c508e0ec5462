package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"community-gov.backend/internal/domain/entities"
)

// QuestionRepository defines voting question data operations
type QuestionRepository interface {
	GetByOnChainID(ctx context.Context, onChainID string) (*entities.VotingQuestion, error)
	Create(ctx context.Context, question *entities.VotingQuestion) error
	// UpdateFromChain applies the authoritative chain record, rejecting
	// older block numbers with ErrStaleBlock.
	UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.QuestionRecord) error
	ListActive(ctx context.Context) ([]*entities.VotingQuestion, error)
	SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error
	CountActive(ctx context.Context) (int64, error)
	CountSyncedSince(ctx context.Context, since time.Time) (int64, error)
}
