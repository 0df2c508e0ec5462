package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/pkg/logger"
)

// Audit levels and categories
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"

	CategorySync           = "SYNC"
	CategoryReconciliation = "RECONCILIATION"
)

// Entry is one structured operational event
type Entry struct {
	Level    string
	Category string
	Details  map[string]interface{}
}

// Sink is an append-only log of operational events. LogEvent is
// fire-and-forget and must never block the caller.
type Sink interface {
	LogEvent(name string, entry Entry)
}

// Recorder writes audit entries to the structured log and persists them
// through a buffered channel drained by a single goroutine. When the
// buffer is full the persisted copy is dropped; the log line still lands.
type Recorder struct {
	repo repositories.AuditRepository
	ch   chan queuedEntry
	wg   sync.WaitGroup

	closeOnce sync.Once
}

type queuedEntry struct {
	name    string
	level   string
	cat     string
	details string
}

// NewRecorder creates an audit recorder with the given buffer size
func NewRecorder(repo repositories.AuditRepository, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Recorder{
		repo: repo,
		ch:   make(chan queuedEntry, buffer),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// LogEvent records one operational event
func (r *Recorder) LogEvent(name string, entry Entry) {
	fields := []zap.Field{
		zap.String("audit_event", name),
		zap.String("category", entry.Category),
	}
	for k, v := range entry.Details {
		fields = append(fields, zap.Any(k, v))
	}

	ctx := context.Background()
	switch entry.Level {
	case LevelDebug:
		logger.Debug(ctx, name, fields...)
	case LevelWarn:
		logger.Warn(ctx, name, fields...)
	case LevelError, LevelFatal:
		logger.Error(ctx, name, fields...)
	default:
		logger.Info(ctx, name, fields...)
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		details = []byte("{}")
	}

	select {
	case r.ch <- queuedEntry{name: name, level: entry.Level, cat: entry.Category, details: string(details)}:
	default:
		// Buffer full: drop the persisted copy rather than block.
	}
}

// Close flushes pending entries and stops the drain goroutine
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.ch)
	})
	r.wg.Wait()
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for entry := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.repo.Insert(ctx, &repositories.AuditRecord{
			Name:     entry.name,
			Level:    entry.level,
			Category: entry.cat,
			Details:  entry.details,
		})
		cancel()
		if err != nil {
			logger.Warn(context.Background(), "failed to persist audit event",
				zap.String("audit_event", entry.name), zap.Error(err))
		}
	}
}
