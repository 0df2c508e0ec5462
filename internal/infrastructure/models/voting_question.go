package models

import (
	"time"

	"github.com/google/uuid"
)

type VotingQuestion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OnChainID     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	CommunityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Title         string    `gorm:"type:varchar(500);not null"`
	Description   *string   `gorm:"type:text"`
	Options       string    `gorm:"type:jsonb;default:'[]'"` // ordered JSON array
	Deadline      time.Time
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index"`
	Network       string    `gorm:"type:varchar(50)"`
	TransactionID string    `gorm:"type:varchar(255)"`
	BlockNumber   int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Community Community `gorm:"foreignKey:CommunityID"`
}

func (VotingQuestion) TableName() string { return "voting_questions" }
