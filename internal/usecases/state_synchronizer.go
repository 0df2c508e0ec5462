package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"community-gov.backend/internal/config"
	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/internal/infrastructure/audit"
	"community-gov.backend/internal/infrastructure/blockchain"
	"community-gov.backend/pkg/logger"
)

// ReaderProvider resolves the chain reader for a network
type ReaderProvider interface {
	GetReader(network string) (blockchain.ChainReader, error)
}

// StateSynchronizer runs the periodic reconciliation sweep: every active
// row is re-read from the chain and the store is converged toward it.
// Rows gone from the chain are soft-deleted; rows the chain cannot answer
// for are skipped until the next sweep.
type StateSynchronizer struct {
	cfg            config.SyncConfig
	defaultNetwork string
	readers        ReaderProvider
	users          repositories.UserRepository
	communities    repositories.CommunityRepository
	memberships    repositories.MembershipRepository
	questions      repositories.QuestionRepository
	votes          repositories.VoteRepository
	audit          audit.Sink

	mu       sync.Mutex
	running  bool
	lastSync *time.Time
	stats    entities.SyncStats
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// serializes sweeps so a forced sync never overlaps the ticker's
	sweepMu sync.Mutex
}

// NewStateSynchronizer creates the reconciliation sweep coordinator
func NewStateSynchronizer(
	cfg config.SyncConfig,
	defaultNetwork string,
	readers ReaderProvider,
	users repositories.UserRepository,
	communities repositories.CommunityRepository,
	memberships repositories.MembershipRepository,
	questions repositories.QuestionRepository,
	votes repositories.VoteRepository,
	sink audit.Sink,
) *StateSynchronizer {
	return &StateSynchronizer{
		cfg:            cfg,
		defaultNetwork: defaultNetwork,
		readers:        readers,
		users:          users,
		communities:    communities,
		memberships:    memberships,
		questions:      questions,
		votes:          votes,
		audit:          sink,
	}
}

// StartPeriodicSync begins sweeping at the configured interval. Calling
// it while already running is a logged no-op.
func (s *StateSynchronizer) StartPeriodicSync() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Info(context.Background(), "periodic sync already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.audit.LogEvent("state_sync_started", audit.Entry{
		Level:    audit.LevelInfo,
		Category: audit.CategorySync,
		Details:  map[string]interface{}{"syncInterval": s.cfg.Interval.String()},
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// First sweep happens immediately, not one interval later.
		s.PerformFullSync(context.Background())

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.PerformFullSync(context.Background())
			}
		}
	}()
}

// StopPeriodicSync stops the sweep loop and waits for an in-flight sweep
func (s *StateSynchronizer) StopPeriodicSync() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	s.audit.LogEvent("state_sync_stopped", audit.Entry{
		Level:    audit.LevelInfo,
		Category: audit.CategorySync,
	})
}

// ForceSync runs one sweep immediately regardless of the ticker
func (s *StateSynchronizer) ForceSync(ctx context.Context) error {
	return s.PerformFullSync(ctx)
}

// PerformFullSync reconciles every entity type against the chain. The
// per-type passes run concurrently; per-row transient failures are
// skipped, while a failure to enumerate a type fails the sweep.
func (s *StateSynchronizer) PerformFullSync(ctx context.Context) error {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	s.mu.Lock()
	s.stats.TotalSyncs++
	s.mu.Unlock()

	started := time.Now().UTC()

	reader, err := s.readers.GetReader(s.defaultNetwork)
	if err != nil {
		s.recordFailure(err)
		return err
	}

	type pass struct {
		name string
		run  func(context.Context, blockchain.ChainReader) (int, error)
	}
	passes := []pass{
		{"users", s.syncUsers},
		{"communities", s.syncCommunities},
		{"memberships", s.syncMemberships},
		{"questions", s.syncQuestions},
		{"votes", s.syncVotes},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		counts  = make(map[string]interface{}, len(passes))
		sweepErr error
	)
	for _, p := range passes {
		wg.Add(1)
		go func(p pass) {
			defer wg.Done()
			n, err := p.run(ctx, reader)
			mu.Lock()
			defer mu.Unlock()
			counts[p.name] = n
			if err != nil && sweepErr == nil {
				sweepErr = fmt.Errorf("%s sync: %w", p.name, err)
			}
		}(p)
	}
	wg.Wait()

	if sweepErr != nil {
		s.recordFailure(sweepErr)
		return sweepErr
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.stats.SuccessfulSyncs++
	s.stats.LastError = ""
	s.lastSync = &now
	s.mu.Unlock()

	counts["durationMs"] = now.Sub(started).Milliseconds()
	s.audit.LogEvent("state_sync_completed", audit.Entry{
		Level:    audit.LevelInfo,
		Category: audit.CategorySync,
		Details:  counts,
	})
	return nil
}

func (s *StateSynchronizer) recordFailure(err error) {
	s.mu.Lock()
	s.stats.FailedSyncs++
	s.stats.LastError = err.Error()
	s.mu.Unlock()

	s.audit.LogEvent("state_sync_failed", audit.Entry{
		Level:    audit.LevelError,
		Category: audit.CategorySync,
		Details:  map[string]interface{}{"error": err.Error()},
	})
}

// SyncStatus returns the operational snapshot of the sweep
func (s *StateSynchronizer) SyncStatus() entities.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.SyncStatus{
		IsRunning:    s.running,
		LastSyncTime: s.lastSync,
		SyncStats:    s.stats,
		SyncInterval: s.cfg.Interval.String(),
	}
}

func (s *StateSynchronizer) syncUsers(ctx context.Context, reader blockchain.ChainReader) (int, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, user := range users {
		exists, err := reader.AccountExists(ctx, user.WalletAddress)
		if err != nil {
			logger.Warn(ctx, "skipping user, chain unavailable",
				zap.String("wallet_address", user.WalletAddress), zap.Error(err))
			continue
		}
		if !exists {
			if err := s.users.SetStatus(ctx, user.ID, entities.StatusInactive); err != nil {
				logger.Error(ctx, "failed to deactivate user", zap.Error(err), zap.String("id", user.ID.String()))
				continue
			}
		}
		synced++
	}
	return synced, nil
}

func (s *StateSynchronizer) syncCommunities(ctx context.Context, reader blockchain.ChainReader) (int, error) {
	communities, err := s.communities.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, community := range communities {
		record, err := reader.GetCommunityData(ctx, community.OnChainID)
		switch {
		case err == nil:
			err = s.communities.UpdateFromChain(ctx, community.ID, record)
			if err != nil && !errors.Is(err, domainerrors.ErrStaleBlock) {
				logger.Error(ctx, "failed to update community", zap.Error(err),
					zap.String("on_chain_id", community.OnChainID))
				continue
			}
			synced++
		case errors.Is(err, domainerrors.ErrNotFound):
			// Gone from the chain: soft-delete, never hard-delete.
			if err := s.communities.SetStatus(ctx, community.ID, entities.StatusInactive); err != nil {
				logger.Error(ctx, "failed to deactivate community", zap.Error(err),
					zap.String("on_chain_id", community.OnChainID))
				continue
			}
			synced++
		default:
			logger.Warn(ctx, "skipping community, chain unavailable",
				zap.String("on_chain_id", community.OnChainID), zap.Error(err))
		}
	}
	return synced, nil
}

func (s *StateSynchronizer) syncMemberships(ctx context.Context, reader blockchain.ChainReader) (int, error) {
	memberships, err := s.memberships.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, membership := range memberships {
		record, err := reader.GetMembershipData(ctx, membership.CommunityOnChainID, membership.WalletAddress)
		switch {
		case err == nil:
			if err := s.memberships.UpdateFromChain(ctx, membership.ID, record); err != nil {
				logger.Error(ctx, "failed to update membership", zap.Error(err),
					zap.String("id", membership.ID.String()))
				continue
			}
			synced++
		case errors.Is(err, domainerrors.ErrNotFound):
			if err := s.memberships.SetStatus(ctx, membership.ID, entities.StatusInactive); err != nil {
				logger.Error(ctx, "failed to deactivate membership", zap.Error(err),
					zap.String("id", membership.ID.String()))
				continue
			}
			synced++
		default:
			logger.Warn(ctx, "skipping membership, chain unavailable",
				zap.String("id", membership.ID.String()), zap.Error(err))
		}
	}
	return synced, nil
}

func (s *StateSynchronizer) syncQuestions(ctx context.Context, reader blockchain.ChainReader) (int, error) {
	questions, err := s.questions.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, question := range questions {
		record, err := reader.GetQuestionData(ctx, question.OnChainID)
		switch {
		case err == nil:
			err = s.questions.UpdateFromChain(ctx, question.ID, record)
			if err != nil && !errors.Is(err, domainerrors.ErrStaleBlock) {
				logger.Error(ctx, "failed to update question", zap.Error(err),
					zap.String("on_chain_id", question.OnChainID))
				continue
			}
			synced++
		case errors.Is(err, domainerrors.ErrNotFound):
			if err := s.questions.SetStatus(ctx, question.ID, entities.StatusInactive); err != nil {
				logger.Error(ctx, "failed to deactivate question", zap.Error(err),
					zap.String("on_chain_id", question.OnChainID))
				continue
			}
			synced++
		default:
			logger.Warn(ctx, "skipping question, chain unavailable",
				zap.String("on_chain_id", question.OnChainID), zap.Error(err))
		}
	}
	return synced, nil
}

func (s *StateSynchronizer) syncVotes(ctx context.Context, reader blockchain.ChainReader) (int, error) {
	votes, err := s.votes.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, vote := range votes {
		record, err := reader.GetVoteData(ctx, vote.QuestionOnChainID, vote.WalletAddress)
		switch {
		case err == nil:
			if err := s.votes.UpdateFromChain(ctx, vote.ID, record); err != nil {
				logger.Error(ctx, "failed to update vote", zap.Error(err), zap.String("id", vote.ID.String()))
				continue
			}
			synced++
		case errors.Is(err, domainerrors.ErrNotFound):
			if err := s.votes.SetStatus(ctx, vote.ID, entities.StatusInactive); err != nil {
				logger.Error(ctx, "failed to deactivate vote", zap.Error(err), zap.String("id", vote.ID.String()))
				continue
			}
			synced++
		default:
			logger.Warn(ctx, "skipping vote, chain unavailable",
				zap.String("id", vote.ID.String()), zap.Error(err))
		}
	}
	return synced, nil
}

// ConsistencyReport computes the per-type consistency percentage: rows
// touched within the consistency window count as synced. An empty type
// reports 100.
func (s *StateSynchronizer) ConsistencyReport(ctx context.Context) (*entities.ConsistencyReport, error) {
	since := time.Now().UTC().Add(-s.cfg.ConsistencyWindow)

	communities, err := typeConsistency(
		func() (int64, error) { return s.communities.CountActive(ctx) },
		func() (int64, error) { return s.communities.CountSyncedSince(ctx, since) },
	)
	if err != nil {
		return nil, err
	}
	memberships, err := typeConsistency(
		func() (int64, error) { return s.memberships.CountActive(ctx) },
		func() (int64, error) { return s.memberships.CountSyncedSince(ctx, since) },
	)
	if err != nil {
		return nil, err
	}
	questions, err := typeConsistency(
		func() (int64, error) { return s.questions.CountActive(ctx) },
		func() (int64, error) { return s.questions.CountSyncedSince(ctx, since) },
	)
	if err != nil {
		return nil, err
	}
	votes, err := typeConsistency(
		func() (int64, error) { return s.votes.CountAll(ctx) },
		func() (int64, error) { return s.votes.CountSyncedSince(ctx, since) },
	)
	if err != nil {
		return nil, err
	}

	return &entities.ConsistencyReport{
		Communities: communities,
		Memberships: memberships,
		Questions:   questions,
		Votes:       votes,
		Timestamp:   time.Now().UTC(),
	}, nil
}

func typeConsistency(total, synced func() (int64, error)) (entities.TypeConsistency, error) {
	t, err := total()
	if err != nil {
		return entities.TypeConsistency{}, err
	}
	n, err := synced()
	if err != nil {
		return entities.TypeConsistency{}, err
	}

	pct := 100
	if t > 0 {
		pct = int(math.Round(float64(n) / float64(t) * 100))
	}
	return entities.TypeConsistency{Total: t, Synced: n, Consistency: pct}, nil
}

// DriftSummary reports divergences between the store and the chain
// without mutating anything. Rows the chain cannot answer for are
// omitted rather than reported as drift.
func (s *StateSynchronizer) DriftSummary(ctx context.Context) ([]entities.DriftEntry, error) {
	reader, err := s.readers.GetReader(s.defaultNetwork)
	if err != nil {
		return nil, err
	}

	entries := []entities.DriftEntry{}

	communities, err := s.communities.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, community := range communities {
		record, err := reader.GetCommunityData(ctx, community.OnChainID)
		switch {
		case errors.Is(err, domainerrors.ErrNotFound):
			entries = append(entries, entities.DriftEntry{
				EntityType: "community", OnChainID: community.OnChainID, Kind: entities.DriftMissingOnChain,
			})
		case err != nil:
			continue
		case record.Name != community.Name || record.Config != community.Config:
			entries = append(entries, entities.DriftEntry{
				EntityType: "community", OnChainID: community.OnChainID, Kind: entities.DriftFieldMismatch,
			})
		}
	}

	questions, err := s.questions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, question := range questions {
		record, err := reader.GetQuestionData(ctx, question.OnChainID)
		switch {
		case errors.Is(err, domainerrors.ErrNotFound):
			entries = append(entries, entities.DriftEntry{
				EntityType: "question", OnChainID: question.OnChainID, Kind: entities.DriftMissingOnChain,
			})
		case err != nil:
			continue
		case record.Title != question.Title || !record.Active:
			entries = append(entries, entities.DriftEntry{
				EntityType: "question", OnChainID: question.OnChainID, Kind: entities.DriftFieldMismatch,
			})
		}
	}

	memberships, err := s.memberships.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, membership := range memberships {
		record, err := reader.GetMembershipData(ctx, membership.CommunityOnChainID, membership.WalletAddress)
		switch {
		case errors.Is(err, domainerrors.ErrNotFound):
			entries = append(entries, entities.DriftEntry{
				EntityType: "membership", OnChainID: membership.CommunityOnChainID, Kind: entities.DriftMissingOnChain,
			})
		case err != nil:
			continue
		case record.Role != string(membership.Role) || record.Status != string(membership.Status):
			entries = append(entries, entities.DriftEntry{
				EntityType: "membership", OnChainID: membership.CommunityOnChainID, Kind: entities.DriftFieldMismatch,
			})
		}
	}

	if len(entries) > 0 {
		s.audit.LogEvent("state_drift_detected", audit.Entry{
			Level:    audit.LevelWarn,
			Category: audit.CategoryReconciliation,
			Details:  map[string]interface{}{"driftCount": len(entries)},
		})
	}
	return entries, nil
}
