package blockchain

import (
	"context"

	"community-gov.backend/internal/domain/entities"
)

// ChainReader is the read-only view of the governance ledger. Absence is
// reported with domainerrors.ErrNotFound; every other failure is an
// infrastructure error and must never be taken as "not found".
type ChainReader interface {
	GetCommunityData(ctx context.Context, onChainID string) (*entities.CommunityRecord, error)
	GetMembershipData(ctx context.Context, onChainID, walletAddress string) (*entities.MembershipRecord, error)
	GetQuestionData(ctx context.Context, onChainID string) (*entities.QuestionRecord, error)
	GetVoteData(ctx context.Context, onChainID, walletAddress string) (*entities.VoteRecord, error)
	AccountExists(ctx context.Context, walletAddress string) (bool, error)
}
