package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/colmena/internal/model"
	"github.com/d60-Lab/colmena/internal/testutil"
)

func seedPost(t testing.TB, repo PostRepository, id, owner string) *model.Post {
	p := &model.Post{ID: id, OwnerID: owner, AuthorName: owner, Title: "t-" + id, Body: "b"}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return p
}

func TestFactRepository_CreateIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	created, err := likes.Create(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = likes.Create(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.False(t, created, "duplicate (post, identifier) must not insert")

	cnt, err := likes.Count(ctx, "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cnt)
}

func TestFactRepository_DeleteAndExists(t *testing.T) {
	db := testutil.NewDB(t)
	saves := NewSaveRepository(db)
	ctx := context.Background()

	_, err := saves.Create(ctx, "p1", "u1")
	require.NoError(t, err)

	ok, err := saves.Exists(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := saves.Delete(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = saves.Delete(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.False(t, deleted)

	ok, err = saves.Exists(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFactRepository_LikesAndSavesAreIndependent(t *testing.T) {
	db := testutil.NewDB(t)
	likes, saves := NewLikeRepository(db), NewSaveRepository(db)
	ctx := context.Background()

	_, err := likes.Create(ctx, "p1", "u1")
	require.NoError(t, err)

	ok, err := saves.Exists(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFactRepository_ExistingPostIDsAndList(t *testing.T) {
	db := testutil.NewDB(t)
	saves := NewSaveRepository(db)
	ctx := context.Background()

	for _, p := range []string{"p1", "p2", "p3"} {
		_, err := saves.Create(ctx, p, "u1")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := saves.Create(ctx, "p4", "u2")
	require.NoError(t, err)

	got, err := saves.ExistingPostIDs(ctx, "u1", []string{"p1", "p3", "p4"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p1": true, "p3": true}, got)

	ids, err := saves.ListPostIDs(ctx, "u1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p2", "p1"}, ids)
}

func TestFactRepository_Reassign(t *testing.T) {
	db := testutil.NewDB(t)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	for _, f := range [][2]string{{"p1", "anon"}, {"p2", "anon"}, {"p1", "acct"}} {
		_, err := likes.Create(ctx, f[0], f[1])
		require.NoError(t, err)
	}

	touched, err := likes.Reassign(ctx, "anon", "acct")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, touched)

	for _, p := range []string{"p1", "p2"} {
		cnt, err := likes.Count(ctx, p)
		require.NoError(t, err)
		assert.EqualValues(t, 1, cnt, p)
	}
	ok, err := likes.Exists(ctx, "p2", "acct")
	require.NoError(t, err)
	assert.True(t, ok)
}

func BenchmarkLikeToggle(b *testing.B) {
	db := testutil.NewDB(b)
	posts := NewPostRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	ids := make([]string, 100)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%03d", i)
		seedPost(b, posts, ids[i], "owner")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pid := ids[rand.Intn(len(ids))]
		who := fmt.Sprintf("u%d", rand.Intn(1000))
		if deleted, _ := likes.Delete(ctx, pid, who); deleted {
			_ = posts.AdjustLikeCount(ctx, pid, -1)
			continue
		}
		if created, _ := likes.Create(ctx, pid, who); created {
			_ = posts.AdjustLikeCount(ctx, pid, 1)
		}
	}
}
