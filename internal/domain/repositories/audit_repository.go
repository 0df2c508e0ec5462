package repositories

import (
	"context"
	"time"

	"community-gov.backend/pkg/utils"
)

// AuditRecord is one persisted operational event.
type AuditRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuditRepository defines the append-only audit trail operations
type AuditRepository interface {
	Insert(ctx context.Context, record *AuditRecord) error
	ListRecent(ctx context.Context, category string, pagination utils.PaginationParams) ([]*AuditRecord, int64, error)
}
