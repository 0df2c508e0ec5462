package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"community-gov.backend/internal/domain/entities"
	domainerrors "community-gov.backend/internal/domain/errors"
)

func seedQuestion(t *testing.T, repo interface {
	Create(ctx context.Context, question *entities.VotingQuestion) error
}, onChainID string, block int64) *entities.VotingQuestion {
	t.Helper()
	q := &entities.VotingQuestion{
		OnChainID:   onChainID,
		CommunityID: uuid.New(),
		Title:       "Question " + onChainID,
		Options:     []string{"yes", "no", "abstain"},
		Deadline:    time.Now().Add(72 * time.Hour),
		CreatedBy:   uuid.New(),
		Status:      entities.StatusActive,
		Network:     "base-sepolia",
		BlockNumber: block,
	}
	require.NoError(t, repo.Create(context.Background(), q))
	return q
}

func TestQuestionRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	createQuestionTable(t, db)
	repo := NewQuestionRepository(db)
	ctx := context.Background()

	q := seedQuestion(t, repo, "q1", 5)

	got, err := repo.GetByOnChainID(ctx, "q1")
	require.NoError(t, err)
	require.Equal(t, q.ID, got.ID)
	require.Equal(t, []string{"yes", "no", "abstain"}, got.Options)

	_, err = repo.GetByOnChainID(ctx, "nope")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	dup := seedableDuplicate(q)
	require.Error(t, repo.Create(ctx, dup))
}

func seedableDuplicate(q *entities.VotingQuestion) *entities.VotingQuestion {
	return &entities.VotingQuestion{
		OnChainID:   q.OnChainID,
		CommunityID: q.CommunityID,
		Title:       "dup",
		CreatedBy:   q.CreatedBy,
		Status:      entities.StatusActive,
	}
}

func TestQuestionRepository_UpdateFromChain_StaleGuard(t *testing.T) {
	db := newTestDB(t)
	createQuestionTable(t, db)
	repo := NewQuestionRepository(db)
	ctx := context.Background()

	q := seedQuestion(t, repo, "q1", 50)
	deadline := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	err := repo.UpdateFromChain(ctx, q.ID, &entities.QuestionRecord{
		Title:       "updated",
		Description: "from chain",
		Options:     []string{"yes", "no"},
		Deadline:    deadline,
		Active:      true,
		BlockNumber: 60,
	})
	require.NoError(t, err)

	got, err := repo.GetByOnChainID(ctx, "q1")
	require.NoError(t, err)
	require.Equal(t, "updated", got.Title)
	require.Equal(t, []string{"yes", "no"}, got.Options)
	require.Equal(t, int64(60), got.BlockNumber)

	err = repo.UpdateFromChain(ctx, q.ID, &entities.QuestionRecord{
		Title:       "stale",
		Options:     []string{"yes"},
		Active:      true,
		BlockNumber: 40,
	})
	require.ErrorIs(t, err, domainerrors.ErrStaleBlock)

	err = repo.UpdateFromChain(ctx, uuid.New(), &entities.QuestionRecord{Title: "x", Active: true, BlockNumber: 99})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestQuestionRepository_InactiveRecordDeactivates(t *testing.T) {
	db := newTestDB(t)
	createQuestionTable(t, db)
	repo := NewQuestionRepository(db)
	ctx := context.Background()

	q := seedQuestion(t, repo, "q1", 1)

	err := repo.UpdateFromChain(ctx, q.ID, &entities.QuestionRecord{
		Title:       q.Title,
		Options:     q.Options,
		Deadline:    q.Deadline,
		Active:      false,
		BlockNumber: 2,
	})
	require.NoError(t, err)

	got, err := repo.GetByOnChainID(ctx, "q1")
	require.NoError(t, err)
	require.Equal(t, entities.StatusInactive, got.Status)

	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestQuestionRepository_Counts(t *testing.T) {
	db := newTestDB(t)
	createQuestionTable(t, db)
	repo := NewQuestionRepository(db)
	ctx := context.Background()

	q1 := seedQuestion(t, repo, "q1", 1)
	seedQuestion(t, repo, "q2", 1)

	require.NoError(t, repo.SetStatus(ctx, q1.ID, entities.StatusInactive))

	active, err := repo.CountActive(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), active)

	synced, err := repo.CountSyncedSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(1), synced)
}
