package entities

import (
	"time"

	"github.com/google/uuid"
)

// EntityStatus represents the lifecycle state shared by all synced entities.
// Rows are never hard-deleted by the sync engine, only marked inactive.
type EntityStatus string

const (
	StatusActive   EntityStatus = "active"
	StatusInactive EntityStatus = "inactive"
)

// User represents a wallet-identified user. Users are created implicitly
// the first time any event references an unseen wallet address.
type User struct {
	ID            uuid.UUID    `json:"id"`
	WalletAddress string       `json:"walletAddress"`
	DisplayName   string       `json:"displayName"`
	Status        EntityStatus `json:"status"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// DefaultDisplayName derives the implicit display name for a wallet.
func DefaultDisplayName(walletAddress string) string {
	if len(walletAddress) > 8 {
		return "user_" + walletAddress[:8]
	}
	return "user_" + walletAddress
}
