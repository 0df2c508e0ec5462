package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/pkg/logger"
	"community-gov.backend/pkg/utils"
)

type captureAuditRepo struct {
	mu      sync.Mutex
	records []*repositories.AuditRecord
	err     error
}

func (r *captureAuditRepo) Insert(ctx context.Context, record *repositories.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, record)
	return nil
}

func (r *captureAuditRepo) ListRecent(ctx context.Context, category string, pagination utils.PaginationParams) ([]*repositories.AuditRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records, int64(len(r.records)), nil
}

func TestRecorder_PersistsEntries(t *testing.T) {
	logger.Init("development")
	repo := &captureAuditRepo{}
	recorder := NewRecorder(repo, 16)

	recorder.LogEvent("state_sync_started", Entry{
		Level:    LevelInfo,
		Category: CategorySync,
		Details:  map[string]interface{}{"syncInterval": "5m"},
	})
	recorder.LogEvent("event_processing_failed", Entry{
		Level:    LevelError,
		Category: CategorySync,
		Details:  map[string]interface{}{"eventType": "VoteCast"},
	})
	recorder.Close()

	require.Len(t, repo.records, 2)
	require.Equal(t, "state_sync_started", repo.records[0].Name)
	require.Equal(t, LevelInfo, repo.records[0].Level)
	require.Equal(t, CategorySync, repo.records[0].Category)
	require.Contains(t, repo.records[0].Details, "syncInterval")
}

func TestRecorder_InsertFailureDoesNotBlock(t *testing.T) {
	logger.Init("development")
	repo := &captureAuditRepo{err: errors.New("db down")}
	recorder := NewRecorder(repo, 4)

	// Must not panic or block even when every insert fails.
	for i := 0; i < 20; i++ {
		recorder.LogEvent("state_sync_failed", Entry{Level: LevelError, Category: CategorySync})
	}
	recorder.Close()
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	logger.Init("development")
	recorder := NewRecorder(&captureAuditRepo{}, 4)
	recorder.Close()
	recorder.Close()
}
