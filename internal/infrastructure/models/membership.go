package models

import (
	"time"

	"github.com/google/uuid"
)

type Membership struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	CommunityID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_community_user"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_community_user"`
	Role          string    `gorm:"type:varchar(20);not null;default:'member'"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index"`
	JoinedAt      time.Time
	Network       string `gorm:"type:varchar(50)"`
	TransactionID string `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Community Community `gorm:"foreignKey:CommunityID"`
	User      User      `gorm:"foreignKey:UserID"`
}

func (Membership) TableName() string { return "memberships" }
