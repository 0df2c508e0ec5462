package entities

import (
	"time"

	"github.com/google/uuid"
)

// MemberRole represents a member's role within a community
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// ParseMemberRole maps a raw role string, defaulting to member.
func ParseMemberRole(raw string) MemberRole {
	if MemberRole(raw) == RoleAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// Membership links a user to a community. Unique on (CommunityID, UserID);
// a re-join updates the existing row rather than inserting a duplicate.
type Membership struct {
	ID            uuid.UUID    `json:"id"`
	CommunityID   uuid.UUID    `json:"communityId"`
	UserID        uuid.UUID    `json:"userId"`
	Role          MemberRole   `json:"role"`
	Status        EntityStatus `json:"status"`
	JoinedAt      time.Time    `json:"joinedAt"`
	Network       string       `json:"network"`
	TransactionID string       `json:"transactionId"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`

	// Joins populated for reconciliation
	CommunityOnChainID string `json:"communityOnChainId,omitempty"`
	WalletAddress      string `json:"walletAddress,omitempty"`
}

// MembershipRecord is the authoritative chain-side view of a membership.
type MembershipRecord struct {
	Role   string `json:"role"`
	Status string `json:"status"`
}
