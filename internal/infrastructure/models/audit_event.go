package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(100);not null;index"`
	Level     string    `gorm:"type:varchar(20);not null"`
	Category  string    `gorm:"type:varchar(50);not null;index"`
	Details   string    `gorm:"type:jsonb;default:'{}'"`
	CreatedAt time.Time `gorm:"index"`
}

func (AuditEvent) TableName() string { return "audit_events" }
