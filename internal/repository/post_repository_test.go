package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/colmena/internal/testutil"
)

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		seedPost(t, repo, id, "u1")
		time.Sleep(2 * time.Millisecond)
	}
	seedPost(t, repo, "d", "u2")

	all, err := repo.List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID)
	assert.Equal(t, "a", all[3].ID)

	mine, err := repo.ListByOwner(ctx, "u1", 0, 2)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c", mine[0].ID)
	assert.Equal(t, "b", mine[1].ID)
}

func TestPostRepository_GetByIDNotFound(t *testing.T) {
	repo := NewPostRepository(testutil.NewDB(t))
	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestPostRepository_GetByIDsKeepsOrder(t *testing.T) {
	repo := NewPostRepository(testutil.NewDB(t))
	for _, id := range []string{"a", "b", "c"} {
		seedPost(t, repo, id, "u1")
	}
	got, err := repo.GetByIDs(context.Background(), []string{"c", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestPostRepository_AdjustLikeCountFloorsAtZero(t *testing.T) {
	repo := NewPostRepository(testutil.NewDB(t))
	ctx := context.Background()
	seedPost(t, repo, "p1", "u1")

	require.NoError(t, repo.AdjustLikeCount(ctx, "p1", 1))
	require.NoError(t, repo.AdjustLikeCount(ctx, "p1", -1))
	require.NoError(t, repo.AdjustLikeCount(ctx, "p1", -1))

	p, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, p.LikeCount)
}

func TestPostRepository_RecountLikes(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()
	seedPost(t, repo, "p1", "u1")

	for _, who := range []string{"x", "y", "z"} {
		_, err := likes.Create(ctx, "p1", who)
		require.NoError(t, err)
	}
	require.NoError(t, repo.RecountLikes(ctx, []string{"p1"}))

	p, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.LikeCount)
}

func TestPostRepository_UpdateContent(t *testing.T) {
	repo := NewPostRepository(testutil.NewDB(t))
	ctx := context.Background()
	p := seedPost(t, repo, "p1", "u1")

	p.Title, p.Body, p.ImageURL = "nuevo", "cuerpo", "/uploads/x.png"
	p.UpdatedAt = time.Now()
	require.NoError(t, repo.UpdateContent(ctx, p))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "nuevo", got.Title)
	assert.Equal(t, "/uploads/x.png", got.ImageURL)
	assert.Equal(t, "u1", got.OwnerID)
}
