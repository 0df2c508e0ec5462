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

func seedCommunity(t *testing.T, repo interface {
	Create(ctx context.Context, community *entities.Community) error
}, onChainID string, block int64) *entities.Community {
	t.Helper()
	c := &entities.Community{
		OnChainID:   onChainID,
		Name:        "DAO " + onChainID,
		CreatedBy:   uuid.New(),
		Config:      `{"quorum":50}`,
		Network:     "base-sepolia",
		BlockNumber: block,
		Status:      entities.StatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestCommunityRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	createCommunityTable(t, db)
	repo := NewCommunityRepository(db)
	ctx := context.Background()

	c := seedCommunity(t, repo, "c1", 10)

	got, err := repo.GetByOnChainID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
	require.Equal(t, "DAO c1", got.Name)
	require.Equal(t, int64(10), got.BlockNumber)

	_, err = repo.GetByOnChainID(ctx, "missing")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCommunityRepository_DuplicateOnChainID(t *testing.T) {
	db := newTestDB(t)
	createCommunityTable(t, db)
	repo := NewCommunityRepository(db)

	seedCommunity(t, repo, "c1", 1)

	dup := &entities.Community{
		OnChainID: "c1",
		Name:      "other",
		CreatedBy: uuid.New(),
		Network:   "base-sepolia",
		Status:    entities.StatusActive,
	}
	require.Error(t, repo.Create(context.Background(), dup))
}

func TestCommunityRepository_UpdateFromChain_StaleGuard(t *testing.T) {
	db := newTestDB(t)
	createCommunityTable(t, db)
	repo := NewCommunityRepository(db)
	ctx := context.Background()

	c := seedCommunity(t, repo, "c1", 100)

	// Newer block applies.
	err := repo.UpdateFromChain(ctx, c.ID, &entities.CommunityRecord{
		Name:        "renamed",
		Description: "fresh",
		Config:      `{"quorum":60}`,
		BlockNumber: 120,
	})
	require.NoError(t, err)

	got, err := repo.GetByOnChainID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)
	require.Equal(t, int64(120), got.BlockNumber)

	// Older block is rejected.
	err = repo.UpdateFromChain(ctx, c.ID, &entities.CommunityRecord{
		Name:        "stale",
		BlockNumber: 90,
	})
	require.ErrorIs(t, err, domainerrors.ErrStaleBlock)

	got, err = repo.GetByOnChainID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "renamed", got.Name)

	// Unknown row.
	err = repo.UpdateFromChain(ctx, uuid.New(), &entities.CommunityRecord{Name: "x", BlockNumber: 200})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestCommunityRepository_SetStatusAndCounts(t *testing.T) {
	db := newTestDB(t)
	createCommunityTable(t, db)
	repo := NewCommunityRepository(db)
	ctx := context.Background()

	c1 := seedCommunity(t, repo, "c1", 1)
	seedCommunity(t, repo, "c2", 1)

	active, err := repo.CountActive(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), active)

	require.NoError(t, repo.SetStatus(ctx, c1.ID, entities.StatusInactive))

	active, err = repo.CountActive(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), active)

	list, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "c2", list[0].OnChainID)

	// Soft delete leaves the row readable.
	got, err := repo.GetByOnChainID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, entities.StatusInactive, got.Status)

	synced, err := repo.CountSyncedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), synced)

	synced, err = repo.CountSyncedSince(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Zero(t, synced)
}
