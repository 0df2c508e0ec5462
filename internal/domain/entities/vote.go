package entities

import (
	"time"

	"github.com/google/uuid"
)

// Vote represents a user's vote on a question. Unique on
// (QuestionID, UserID); a later vote overwrites the earlier row.
type Vote struct {
	ID            uuid.UUID    `json:"id"`
	QuestionID    uuid.UUID    `json:"questionId"`
	UserID        uuid.UUID    `json:"userId"`
	VoteData      string       `json:"voteData"` // opaque JSON blob
	Signature     string       `json:"signature"`
	Status        EntityStatus `json:"status"`
	Network       string       `json:"network"`
	TransactionID string       `json:"transactionId"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// Joins populated for reconciliation
	QuestionOnChainID string `json:"questionOnChainId,omitempty"`
	WalletAddress     string `json:"walletAddress,omitempty"`
}

// VoteRecord is the authoritative chain-side view of a vote.
type VoteRecord struct {
	VoteData  string `json:"voteData"`
	Signature string `json:"signature"`
}
