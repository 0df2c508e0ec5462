package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"community-gov.backend/internal/domain/entities"
)

// CommunityRepository defines community data operations
type CommunityRepository interface {
	GetByOnChainID(ctx context.Context, onChainID string) (*entities.Community, error)
	Create(ctx context.Context, community *entities.Community) error
	// UpdateFromChain applies the authoritative chain record to the row's
	// mutable fields. Updates carrying a block number older than the stored
	// one are rejected with ErrStaleBlock (stale-write guard).
	UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.CommunityRecord) error
	ListActive(ctx context.Context) ([]*entities.Community, error)
	SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error
	CountActive(ctx context.Context) (int64, error)
	CountSyncedSince(ctx context.Context, since time.Time) (int64, error)
}
