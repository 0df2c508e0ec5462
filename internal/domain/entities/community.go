package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Community represents an on-chain community projected into the store.
// OnChainID is the durable key for matching against the ledger.
type Community struct {
	ID            uuid.UUID    `json:"id"`
	OnChainID     string       `json:"onChainId"`
	Name          string       `json:"name"`
	Description   null.String  `json:"description,omitempty"`
	CreatedBy     uuid.UUID    `json:"createdBy"`
	Config        string       `json:"config"` // opaque JSON blob
	Network       string       `json:"network"`
	TransactionID string       `json:"transactionId"`
	BlockNumber   int64        `json:"blockNumber"`
	Status        EntityStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// CommunityRecord is the authoritative chain-side view of a community.
type CommunityRecord struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Config      string `json:"config"`
	BlockNumber int64  `json:"blockNumber"`
}
