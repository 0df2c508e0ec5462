package models

import (
	"time"

	"github.com/google/uuid"
)

type Vote struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	QuestionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_question_user"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_votes_question_user"`
	VoteData      string    `gorm:"type:jsonb;default:'{}'"`
	Signature     string    `gorm:"type:text"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index"`
	Network       string    `gorm:"type:varchar(50)"`
	TransactionID string    `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Question VotingQuestion `gorm:"foreignKey:QuestionID"`
	User     User           `gorm:"foreignKey:UserID"`
}

func (Vote) TableName() string { return "votes" }
