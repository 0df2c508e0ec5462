package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/internal/interfaces/http/response"
	"community-gov.backend/pkg/utils"
)

// EventIngestor is the ingestion pipeline surface the handler needs
type EventIngestor interface {
	ProcessEvent(ctx context.Context, event *entities.ChainEvent) error
	ProcessingStatistics() entities.ProcessingStatistics
	ClearQueue() int
}

// SyncCoordinator is the reconciliation sweep surface the handler needs
type SyncCoordinator interface {
	StartPeriodicSync()
	StopPeriodicSync()
	ForceSync(ctx context.Context) error
	SyncStatus() entities.SyncStatus
	ConsistencyReport(ctx context.Context) (*entities.ConsistencyReport, error)
	DriftSummary(ctx context.Context) ([]entities.DriftEntry, error)
}

// SyncHandler exposes the sync engine's operational endpoints
type SyncHandler struct {
	ingestor    EventIngestor
	coordinator SyncCoordinator
	auditRepo   repositories.AuditRepository
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(ingestor EventIngestor, coordinator SyncCoordinator, auditRepo repositories.AuditRepository) *SyncHandler {
	return &SyncHandler{
		ingestor:    ingestor,
		coordinator: coordinator,
		auditRepo:   auditRepo,
	}
}

// IngestEvent accepts one chain event for asynchronous processing
// POST /api/v1/sync/events
func (h *SyncHandler) IngestEvent(c *gin.Context) {
	var input struct {
		EventType     string          `json:"eventType" binding:"required"`
		Data          json.RawMessage `json:"data" binding:"required"`
		Network       string          `json:"network"`
		TransactionID string          `json:"transactionId"`
		BlockNumber   int64           `json:"blockNumber"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	eventType, ok := entities.ParseEventType(input.EventType)
	if !ok {
		response.Error(c, domainerrors.BadRequest("unknown event type: "+input.EventType))
		return
	}

	event := &entities.ChainEvent{
		Type:          eventType,
		Data:          input.Data,
		Network:       input.Network,
		TransactionID: input.TransactionID,
		BlockNumber:   input.BlockNumber,
		ReceivedAt:    time.Now().UTC(),
	}
	if err := h.ingestor.ProcessEvent(c.Request.Context(), event); err != nil {
		if errors.Is(err, domainerrors.ErrUnknownEventType) || errors.Is(err, domainerrors.ErrInvalidInput) {
			response.Error(c, domainerrors.BadRequest(err.Error()))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"status": "queued"})
}

// ProcessingStats returns the ingestion queue snapshot
// GET /api/v1/sync/events/stats
func (h *SyncHandler) ProcessingStats(c *gin.Context) {
	response.Success(c, http.StatusOK, h.ingestor.ProcessingStatistics())
}

// ClearQueue drops all pending events
// DELETE /api/v1/sync/events/queue
func (h *SyncHandler) ClearQueue(c *gin.Context) {
	dropped := h.ingestor.ClearQueue()
	response.Success(c, http.StatusOK, gin.H{"dropped": dropped})
}

// StartSync begins the periodic reconciliation sweep
// POST /api/v1/sync/start
func (h *SyncHandler) StartSync(c *gin.Context) {
	h.coordinator.StartPeriodicSync()
	response.Success(c, http.StatusOK, h.coordinator.SyncStatus())
}

// StopSync stops the periodic reconciliation sweep
// POST /api/v1/sync/stop
func (h *SyncHandler) StopSync(c *gin.Context) {
	h.coordinator.StopPeriodicSync()
	response.Success(c, http.StatusOK, h.coordinator.SyncStatus())
}

// ForceSync runs one sweep immediately
// POST /api/v1/sync/force
func (h *SyncHandler) ForceSync(c *gin.Context) {
	if err := h.coordinator.ForceSync(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.coordinator.SyncStatus())
}

// SyncStatus returns the sweep's operational snapshot
// GET /api/v1/sync/status
func (h *SyncHandler) SyncStatus(c *gin.Context) {
	response.Success(c, http.StatusOK, h.coordinator.SyncStatus())
}

// ConsistencyReport returns per-type consistency percentages
// GET /api/v1/sync/consistency
func (h *SyncHandler) ConsistencyReport(c *gin.Context) {
	report, err := h.coordinator.ConsistencyReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}

// DriftSummary lists detected store/chain divergences without mutating
// GET /api/v1/sync/drift
func (h *SyncHandler) DriftSummary(c *gin.Context) {
	entries, err := h.coordinator.DriftSummary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"drift": entries, "count": len(entries)})
}

// ListAuditEvents returns the persisted audit trail, newest first
// GET /api/v1/sync/audit
func (h *SyncHandler) ListAuditEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	category := c.Query("category")

	pagination := utils.GetPaginationParams(page, limit)
	records, total, err := h.auditRepo.ListRecent(c.Request.Context(), category, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	if records == nil {
		records = []*repositories.AuditRecord{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"events": records,
		"meta":   utils.CalculateMeta(total, pagination.Page, pagination.Limit),
	})
}
