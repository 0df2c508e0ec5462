package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// VotingQuestion represents a question members vote on. Options are kept
// as an ordered list, serialized to JSON in the store.
type VotingQuestion struct {
	ID            uuid.UUID    `json:"id"`
	OnChainID     string       `json:"onChainId"`
	CommunityID   uuid.UUID    `json:"communityId"`
	Title         string       `json:"title"`
	Description   null.String  `json:"description,omitempty"`
	Options       []string     `json:"options"`
	Deadline      time.Time    `json:"deadline"`
	CreatedBy     uuid.UUID    `json:"createdBy"`
	Status        EntityStatus `json:"status"`
	Network       string       `json:"network"`
	TransactionID string       `json:"transactionId"`
	BlockNumber   int64        `json:"blockNumber"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// QuestionRecord is the authoritative chain-side view of a voting question.
type QuestionRecord struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Options     []string  `json:"options"`
	Deadline    time.Time `json:"deadline"`
	Active      bool      `json:"active"`
	BlockNumber int64     `json:"blockNumber"`
}
