package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	WalletAddress string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	DisplayName   string    `gorm:"type:varchar(100);not null"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (User) TableName() string { return "users" }
