package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"community-gov.backend/internal/config"
	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
	"community-gov.backend/internal/domain/repositories"
	"community-gov.backend/internal/infrastructure/audit"
	"community-gov.backend/internal/infrastructure/cache"
	"community-gov.backend/pkg/logger"
)

const eventHandleTimeout = 30 * time.Second

// EventProcessor applies chain-change notifications to the store. Events
// are queued FIFO and drained by a single goroutine, so handlers never
// race each other; transient failures are re-queued with exponential
// backoff up to the configured attempt cap.
type EventProcessor struct {
	cfg         config.SyncConfig
	users       repositories.UserRepository
	communities repositories.CommunityRepository
	memberships repositories.MembershipRepository
	questions   repositories.QuestionRepository
	votes       repositories.VoteRepository
	cache       *cache.CommunityCache
	audit       audit.Sink

	mu            sync.Mutex
	queue         []queuedEvent
	processing    bool
	retryAttempts map[string]int

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup

	stopOnce sync.Once
}

type queuedEvent struct {
	event    *entities.ChainEvent
	attempts int
}

// NewEventProcessor creates the ingestion pipeline and starts its drain
// goroutine. Call Close to stop it.
func NewEventProcessor(
	cfg config.SyncConfig,
	users repositories.UserRepository,
	communities repositories.CommunityRepository,
	memberships repositories.MembershipRepository,
	questions repositories.QuestionRepository,
	votes repositories.VoteRepository,
	communityCache *cache.CommunityCache,
	sink audit.Sink,
) *EventProcessor {
	p := &EventProcessor{
		cfg:           cfg,
		users:         users,
		communities:   communities,
		memberships:   memberships,
		questions:     questions,
		votes:         votes,
		cache:         communityCache,
		audit:         sink,
		retryAttempts: make(map[string]int),
		wake:          make(chan struct{}, 1),
		stop:          make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// ProcessEvent validates and enqueues one chain event. The event is
// applied asynchronously; enqueueing never blocks on the store.
func (p *EventProcessor) ProcessEvent(ctx context.Context, event *entities.ChainEvent) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", domainerrors.ErrInvalidInput)
	}
	if _, ok := entities.ParseEventType(string(event.Type)); !ok {
		return fmt.Errorf("%w: %q", domainerrors.ErrUnknownEventType, event.Type)
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	p.audit.LogEvent("blockchain_event_received", audit.Entry{
		Level:    audit.LevelInfo,
		Category: audit.CategorySync,
		Details: map[string]interface{}{
			"eventType":     string(event.Type),
			"network":       event.Network,
			"transactionId": event.TransactionID,
			"blockNumber":   event.BlockNumber,
		},
	})

	p.enqueue(queuedEvent{event: event})
	return nil
}

// ProcessingStatistics returns a snapshot of the queue state
func (p *EventProcessor) ProcessingStatistics() entities.ProcessingStatistics {
	p.mu.Lock()
	defer p.mu.Unlock()

	attempts := make(map[string]int, len(p.retryAttempts))
	for k, v := range p.retryAttempts {
		attempts[k] = v
	}
	return entities.ProcessingStatistics{
		QueueLength:   len(p.queue),
		IsProcessing:  p.processing,
		RetryAttempts: attempts,
	}
}

// ClearQueue drops all pending events and retry bookkeeping, returning
// the number of events discarded
func (p *EventProcessor) ClearQueue() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	dropped := len(p.queue)
	p.queue = nil
	p.retryAttempts = make(map[string]int)

	logger.Info(context.Background(), "event queue cleared", zap.Int("dropped", dropped))
	return dropped
}

// Close stops the drain goroutine. Pending events stay in the queue.
func (p *EventProcessor) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	p.wg.Wait()
}

func (p *EventProcessor) enqueue(item queuedEvent) {
	p.mu.Lock()
	p.queue = append(p.queue, item)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *EventProcessor) pop() (queuedEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return queuedEvent{}, false
	}
	item := p.queue[0]
	p.queue = p.queue[1:]
	return item, true
}

func (p *EventProcessor) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case <-p.wake:
			p.drainBatch()
		}
	}
}

// drainBatch applies up to BatchSize events, one at a time in arrival
// order. If events remain afterwards the goroutine re-wakes itself.
func (p *EventProcessor) drainBatch() {
	p.mu.Lock()
	p.processing = true
	p.mu.Unlock()

	batch := p.cfg.BatchSize
	if batch <= 0 {
		batch = 10
	}
	for i := 0; i < batch; i++ {
		item, ok := p.pop()
		if !ok {
			break
		}
		p.handle(item)
	}

	p.mu.Lock()
	p.processing = false
	pending := len(p.queue)
	p.mu.Unlock()

	if pending > 0 {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
}

func (p *EventProcessor) handle(item queuedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), eventHandleTimeout)
	defer cancel()

	event := item.event
	err := p.dispatch(ctx, event)
	key := eventKey(event)

	if err == nil {
		p.mu.Lock()
		delete(p.retryAttempts, key)
		p.mu.Unlock()

		p.audit.LogEvent("event_processed_successfully", audit.Entry{
			Level:    audit.LevelInfo,
			Category: audit.CategorySync,
			Details: map[string]interface{}{
				"eventType":     string(event.Type),
				"transactionId": event.TransactionID,
			},
		})
		return
	}

	// Malformed payloads can never succeed; drop without retrying.
	if errors.Is(err, domainerrors.ErrInvalidInput) {
		p.fail(event, item.attempts, err)
		return
	}

	attempts := item.attempts + 1
	if attempts >= p.cfg.MaxRetryAttempts {
		p.fail(event, attempts, err)
		return
	}

	p.mu.Lock()
	p.retryAttempts[key] = attempts
	p.mu.Unlock()

	delay := backoff(p.cfg.RetryDelay, attempts)
	p.audit.LogEvent("event_retry_scheduled", audit.Entry{
		Level:    audit.LevelWarn,
		Category: audit.CategorySync,
		Details: map[string]interface{}{
			"eventType":     string(event.Type),
			"transactionId": event.TransactionID,
			"attempt":       attempts,
			"retryIn":       delay.String(),
			"error":         err.Error(),
		},
	})

	time.AfterFunc(delay, func() {
		select {
		case <-p.stop:
		default:
			p.enqueue(queuedEvent{event: event, attempts: attempts})
		}
	})
}

func (p *EventProcessor) fail(event *entities.ChainEvent, attempts int, err error) {
	p.mu.Lock()
	delete(p.retryAttempts, eventKey(event))
	p.mu.Unlock()

	p.audit.LogEvent("event_processing_failed", audit.Entry{
		Level:    audit.LevelFatal,
		Category: audit.CategorySync,
		Details: map[string]interface{}{
			"eventType":     string(event.Type),
			"transactionId": event.TransactionID,
			"attempts":      attempts,
			"error":         err.Error(),
		},
	})
}

// dispatch routes an event to its handler. The switch is exhaustive over
// the closed EventType set; ProcessEvent already rejected anything else.
func (p *EventProcessor) dispatch(ctx context.Context, event *entities.ChainEvent) error {
	switch event.Type {
	case entities.EventCommunityCreated:
		return p.handleCommunityCreated(ctx, event)
	case entities.EventCommunityUpdated:
		return p.handleCommunityUpdated(ctx, event)
	case entities.EventMemberJoined, entities.EventMemberRoleChanged:
		return p.handleMemberUpsert(ctx, event)
	case entities.EventMemberLeft:
		return p.handleMemberLeft(ctx, event)
	case entities.EventVotingQuestionCreated:
		return p.handleQuestionCreated(ctx, event)
	case entities.EventVotingQuestionUpdated:
		return p.handleQuestionUpdated(ctx, event)
	case entities.EventVotingEnded:
		return p.handleVotingEnded(ctx, event)
	case entities.EventVoteCast:
		return p.handleVoteCast(ctx, event)
	default:
		return fmt.Errorf("%w: %q", domainerrors.ErrUnknownEventType, event.Type)
	}
}

func (p *EventProcessor) handleCommunityCreated(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.CommunityCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: community created payload: %v", domainerrors.ErrInvalidInput, err)
	}
	if data.CommunityID == "" || data.Creator == "" {
		return fmt.Errorf("%w: community created payload missing communityId or creator", domainerrors.ErrInvalidInput)
	}

	existing, err := p.communities.GetByOnChainID(ctx, data.CommunityID)
	if err == nil {
		logger.Debug(ctx, "community already exists, skipping",
			zap.String("on_chain_id", data.CommunityID), zap.String("id", existing.ID.String()))
		return nil
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return err
	}

	creator, err := p.users.GetOrCreateByWallet(ctx, data.Creator)
	if err != nil {
		return err
	}

	community := &entities.Community{
		OnChainID:     data.CommunityID,
		Name:          data.Name,
		Description:   null.NewString(data.Description, data.Description != ""),
		CreatedBy:     creator.ID,
		Config:        string(data.Config),
		Network:       event.Network,
		TransactionID: event.TransactionID,
		BlockNumber:   event.BlockNumber,
		Status:        entities.StatusActive,
	}
	if err := p.communities.Create(ctx, community); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			// Lost a race with a duplicate delivery; the row is there.
			return nil
		}
		return err
	}

	membership := &entities.Membership{
		CommunityID:   community.ID,
		UserID:        creator.ID,
		Role:          entities.RoleAdmin,
		Status:        entities.StatusActive,
		JoinedAt:      event.ReceivedAt,
		Network:       event.Network,
		TransactionID: event.TransactionID,
	}
	if err := p.memberships.Upsert(ctx, membership); err != nil {
		return err
	}

	p.cache.Refresh(ctx, community)
	return nil
}

func (p *EventProcessor) handleCommunityUpdated(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.CommunityUpdatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: community updated payload: %v", domainerrors.ErrInvalidInput, err)
	}

	community, err := p.communities.GetByOnChainID(ctx, data.CommunityID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "update for unknown community, skipping",
				zap.String("on_chain_id", data.CommunityID))
			return nil
		}
		return err
	}

	record := &entities.CommunityRecord{
		Name:        data.Name,
		Description: data.Description,
		Config:      string(data.Config),
		BlockNumber: event.BlockNumber,
	}
	if err := p.communities.UpdateFromChain(ctx, community.ID, record); err != nil {
		if errors.Is(err, domainerrors.ErrStaleBlock) {
			logger.Debug(ctx, "stale community update, skipping",
				zap.String("on_chain_id", data.CommunityID), zap.Int64("block_number", event.BlockNumber))
			return nil
		}
		return err
	}

	if updated, err := p.communities.GetByOnChainID(ctx, data.CommunityID); err == nil {
		p.cache.Refresh(ctx, updated)
	}
	return nil
}

func (p *EventProcessor) handleMemberUpsert(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.MemberEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: member payload: %v", domainerrors.ErrInvalidInput, err)
	}

	community, err := p.communities.GetByOnChainID(ctx, data.CommunityID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "member event for unknown community, skipping",
				zap.String("on_chain_id", data.CommunityID),
				zap.String("event_type", string(event.Type)))
			return nil
		}
		return err
	}

	member, err := p.users.GetOrCreateByWallet(ctx, data.MemberAddress)
	if err != nil {
		return err
	}

	return p.memberships.Upsert(ctx, &entities.Membership{
		CommunityID:   community.ID,
		UserID:        member.ID,
		Role:          entities.ParseMemberRole(data.Role),
		Status:        entities.StatusActive,
		JoinedAt:      event.ReceivedAt,
		Network:       event.Network,
		TransactionID: event.TransactionID,
	})
}

func (p *EventProcessor) handleMemberLeft(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.MemberEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: member payload: %v", domainerrors.ErrInvalidInput, err)
	}

	community, err := p.communities.GetByOnChainID(ctx, data.CommunityID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "member left unknown community, skipping",
				zap.String("on_chain_id", data.CommunityID))
			return nil
		}
		return err
	}

	member, err := p.users.GetByWallet(ctx, data.MemberAddress)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "member left with unknown wallet, skipping",
				zap.String("wallet_address", data.MemberAddress))
			return nil
		}
		return err
	}

	membership, err := p.memberships.GetByCommunityAndUser(ctx, community.ID, member.ID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil
		}
		return err
	}

	return p.memberships.SetStatus(ctx, membership.ID, entities.StatusInactive)
}

func (p *EventProcessor) handleQuestionCreated(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.QuestionCreatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: question created payload: %v", domainerrors.ErrInvalidInput, err)
	}
	if data.QuestionID == "" || data.CommunityID == "" {
		return fmt.Errorf("%w: question created payload missing questionId or communityId", domainerrors.ErrInvalidInput)
	}

	community, err := p.communities.GetByOnChainID(ctx, data.CommunityID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "question for unknown community, skipping",
				zap.String("community_on_chain_id", data.CommunityID))
			return nil
		}
		return err
	}

	if _, err := p.questions.GetByOnChainID(ctx, data.QuestionID); err == nil {
		logger.Debug(ctx, "question already exists, skipping",
			zap.String("on_chain_id", data.QuestionID))
		return nil
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return err
	}

	creator, err := p.users.GetOrCreateByWallet(ctx, data.Creator)
	if err != nil {
		return err
	}

	question := &entities.VotingQuestion{
		OnChainID:     data.QuestionID,
		CommunityID:   community.ID,
		Title:         data.Title,
		Description:   null.NewString(data.Description, data.Description != ""),
		Options:       data.Options,
		Deadline:      data.Deadline,
		CreatedBy:     creator.ID,
		Status:        entities.StatusActive,
		Network:       event.Network,
		TransactionID: event.TransactionID,
		BlockNumber:   event.BlockNumber,
	}
	if err := p.questions.Create(ctx, question); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}

func (p *EventProcessor) handleQuestionUpdated(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.QuestionUpdatedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: question updated payload: %v", domainerrors.ErrInvalidInput, err)
	}

	question, err := p.questions.GetByOnChainID(ctx, data.QuestionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "update for unknown question, skipping",
				zap.String("on_chain_id", data.QuestionID))
			return nil
		}
		return err
	}

	record := &entities.QuestionRecord{
		Title:       data.Title,
		Description: data.Description,
		Options:     data.Options,
		Deadline:    data.Deadline,
		Active:      true,
		BlockNumber: event.BlockNumber,
	}
	if err := p.questions.UpdateFromChain(ctx, question.ID, record); err != nil {
		if errors.Is(err, domainerrors.ErrStaleBlock) {
			logger.Debug(ctx, "stale question update, skipping",
				zap.String("on_chain_id", data.QuestionID), zap.Int64("block_number", event.BlockNumber))
			return nil
		}
		return err
	}
	return nil
}

func (p *EventProcessor) handleVotingEnded(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.VotingEndedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: voting ended payload: %v", domainerrors.ErrInvalidInput, err)
	}

	question, err := p.questions.GetByOnChainID(ctx, data.QuestionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "voting ended for unknown question, skipping",
				zap.String("on_chain_id", data.QuestionID))
			return nil
		}
		return err
	}

	return p.questions.SetStatus(ctx, question.ID, entities.StatusInactive)
}

func (p *EventProcessor) handleVoteCast(ctx context.Context, event *entities.ChainEvent) error {
	var data entities.VoteCastData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("%w: vote cast payload: %v", domainerrors.ErrInvalidInput, err)
	}
	if data.QuestionID == "" || data.VoterAddress == "" {
		return fmt.Errorf("%w: vote cast payload missing questionId or voterAddress", domainerrors.ErrInvalidInput)
	}

	question, err := p.questions.GetByOnChainID(ctx, data.QuestionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "vote for unknown question, skipping",
				zap.String("on_chain_id", data.QuestionID))
			return nil
		}
		return err
	}

	voter, err := p.users.GetOrCreateByWallet(ctx, data.VoterAddress)
	if err != nil {
		return err
	}

	return p.votes.Upsert(ctx, &entities.Vote{
		QuestionID:    question.ID,
		UserID:        voter.ID,
		VoteData:      string(data.VoteData),
		Signature:     data.Signature,
		Status:        entities.StatusActive,
		Network:       event.Network,
		TransactionID: event.TransactionID,
	})
}

// eventKey identifies an event across retries for bookkeeping
func eventKey(event *entities.ChainEvent) string {
	if event.TransactionID != "" {
		return string(event.Type) + ":" + event.TransactionID
	}
	return string(event.Type)
}

// backoff doubles the base delay per completed attempt
func backoff(base time.Duration, attempts int) time.Duration {
	if base <= 0 {
		base = 5 * time.Second
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	return delay
}
