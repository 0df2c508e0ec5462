package repositories

import (
	"context"

	"github.com/google/uuid"
	"community-gov.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	GetByWallet(ctx context.Context, walletAddress string) (*entities.User, error)
	// GetOrCreateByWallet is the single implicit-creation path: it inserts
	// an active user with a derived display name when the wallet is unseen,
	// as one atomic insert-or-ignore keyed on the wallet address.
	GetOrCreateByWallet(ctx context.Context, walletAddress string) (*entities.User, error)
	ListActive(ctx context.Context) ([]*entities.User, error)
	SetStatus(ctx context.Context, id uuid.UUID, status entities.EntityStatus) error
}
