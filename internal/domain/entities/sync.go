package entities

import "time"

// SyncStats accumulates sweep outcomes over the process lifetime.
type SyncStats struct {
	TotalSyncs      int64  `json:"totalSyncs"`
	SuccessfulSyncs int64  `json:"successfulSyncs"`
	FailedSyncs     int64  `json:"failedSyncs"`
	LastError       string `json:"lastError,omitempty"`
}

// SyncStatus is the operational snapshot of the reconciliation sweep.
type SyncStatus struct {
	IsRunning    bool       `json:"isRunning"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
	SyncStats    SyncStats  `json:"syncStats"`
	SyncInterval string     `json:"syncInterval"`
}

// ProcessingStatistics is the operational snapshot of the ingestion pipeline.
type ProcessingStatistics struct {
	QueueLength   int            `json:"queueLength"`
	IsProcessing  bool           `json:"isProcessing"`
	RetryAttempts map[string]int `json:"retryAttempts"`
}

// TypeConsistency reports store totals against known-synced totals for
// one entity type.
type TypeConsistency struct {
	Total       int64 `json:"total"`
	Synced      int64 `json:"synced"`
	Consistency int   `json:"consistency"` // rounded percentage
}

// ConsistencyReport is the on-demand drift percentage per entity type.
type ConsistencyReport struct {
	Communities TypeConsistency `json:"communities"`
	Memberships TypeConsistency `json:"memberships"`
	Questions   TypeConsistency `json:"questions"`
	Votes       TypeConsistency `json:"votes"`
	Timestamp   time.Time       `json:"timestamp"`
}

// DriftKind classifies a detected divergence between store and chain.
type DriftKind string

const (
	DriftMissingOnChain DriftKind = "missing_on_chain"
	DriftFieldMismatch  DriftKind = "field_mismatch"
)

// DriftEntry is one detected divergence, reported without mutation.
type DriftEntry struct {
	EntityType string    `json:"entityType"`
	OnChainID  string    `json:"onChainId"`
	Kind       DriftKind `json:"kind"`
}
