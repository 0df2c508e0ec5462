package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"community-gov.backend/internal/domain/entities"
)

// MembershipRepository defines membership data operations
type MembershipRepository interface {
	GetByCommunityAndUser(ctx context.Context, communityID, userID uuid.UUID) (*entities.Membership, error)
	// Upsert inserts or updates the row keyed on (community_id, user_id) in
	// a single atomic statement. Re-join and role-change both funnel here.
	Upsert(ctx context.Context, membership *entities.Membership) error
	// ListActive returns active memberships joined with the parent
	// community's on-chain id and the member's wallet address.
	ListActive(ctx context.Context) ([]*entities.Membership, error)
	UpdateFromChain(ctx context.Context, id uuid.UUID, record *entities.MembershipRecord) error
	SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error
	CountActive(ctx context.Context) (int64, error)
	CountSyncedSince(ctx context.Context, since time.Time) (int64, error)
	CountByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error)
}
