package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/testutil"
)

func TestOutboxRepository_ClaimAndRelease(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Enqueue(ctx, &model.Outbox{
			ID: uuid.New().String(), Kind: model.NotificationLike, PostID: "p1",
			ActorID: "u2", RecipientID: "u1", CreatedAt: time.Now(),
		}))
	}

	batch, err := repo.Claim(ctx, 2, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, model.OutboxProcessing, batch[0].Status)

	rest, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, rest, 1, "claimed rows must not be handed out twice")

	require.NoError(t, repo.MarkDone(ctx, batch[0].ID))
	require.NoError(t, repo.Release(ctx, batch[1].ID, 2))

	pending, err := repo.CountByStatus(ctx, model.OutboxPending)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending)

	again, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.NoError(t, repo.Release(ctx, again[0].ID, 2))

	failed, err := repo.CountByStatus(ctx, model.OutboxFailed)
	require.NoError(t, err)
	assert.EqualValues(t, 1, failed)

	done, err := repo.CountByStatus(ctx, model.OutboxDone)
	require.NoError(t, err)
	assert.EqualValues(t, 1, done)
}

func TestOutboxRepository_ReclaimsExpiredLease(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.Enqueue(ctx, &model.Outbox{
			ID: uuid.New().String(), Kind: model.NotificationSave, PostID: "p1",
			ActorID: "u2", RecipientID: "u1", CreatedAt: time.Now(),
		}))
	}
	batch, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	require.NotNil(t, batch[0].ClaimedAt)

	// 第一条已完成；第二条的领取者“崩溃”，租约过期
	require.NoError(t, repo.MarkDone(ctx, batch[0].ID))
	require.NoError(t, db.Model(&model.Outbox{}).
		Where("id = ?", batch[1].ID).
		Update("claimed_at", time.Now().Add(-2*time.Minute)).Error)

	none, err := repo.Claim(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none, "without a lease processing rows stay put")

	again, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, batch[1].ID, again[0].ID)
	assert.WithinDuration(t, time.Now(), *again[0].ClaimedAt, 5*time.Second)

	// 刚被重新领取，租约未过期
	rest, err := repo.Claim(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, rest)
}
