package models

import (
	"time"

	"github.com/google/uuid"
)

type Community struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OnChainID     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name          string    `gorm:"type:varchar(255);not null"`
	Description   *string   `gorm:"type:text"`
	CreatedBy     uuid.UUID `gorm:"type:uuid;not null;index"`
	Config        string    `gorm:"type:jsonb;default:'{}'"`
	Network       string    `gorm:"type:varchar(50);not null"`
	TransactionID string    `gorm:"type:varchar(255)"`
	BlockNumber   int64     `gorm:"not null;default:0"`
	Status        string    `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Community) TableName() string { return "communities" }
