package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/colmena/internal/model"
)

func TestCommentService_AddNotifiesOwner(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPost(t, "U1", "Enjambre")

	c, err := h.comments.Add(ctx, p.ID, "U2", "  Ana ", "Precioso")
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.DisplayName)
	assert.True(t, c.IsOwner)

	inbox := h.inbox(t, "U1")
	require.Len(t, inbox, 1)
	assert.Equal(t, model.NotificationComment, inbox[0].Kind)
	assert.Contains(t, inbox[0].Message, "Ana")
	assert.Contains(t, inbox[0].Message, "Enjambre")

	_, err = h.comments.Add(ctx, p.ID, "U1", "", "Gracias")
	require.NoError(t, err)
	assert.Len(t, h.inbox(t, "U1"), 1, "own comment must not notify")
}

func TestCommentService_AddValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPost(t, "U1", "Validar")

	_, err := h.comments.Add(ctx, p.ID, "U2", "", "   ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "body")

	_, err = h.comments.Add(ctx, p.ID, "U2", "", strings.Repeat("x", 501))
	require.ErrorAs(t, err, &verr)

	c, err := h.comments.Add(ctx, p.ID, "U2", "", strings.Repeat("x", 500))
	require.NoError(t, err)
	assert.Equal(t, anonymousName, c.DisplayName)

	_, err = h.comments.Add(ctx, "missing", "U2", "", "hola")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestCommentService_ListNewestFirst(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPost(t, "U1", "Orden")

	first, err := h.comments.Add(ctx, p.ID, "U2", "", "primero")
	require.NoError(t, err)
	require.NoError(t, h.db.Model(&model.Comment{}).Where("id = ?", first.ID).
		Update("created_at", time.Now().Add(-time.Minute)).Error)
	second, err := h.comments.Add(ctx, p.ID, "U3", "", "segundo")
	require.NoError(t, err)

	list, err := h.comments.ListFor(ctx, p.ID, "U2", 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.False(t, list[0].IsOwner)
	assert.Equal(t, first.ID, list[1].ID)
	assert.True(t, list[1].IsOwner)
}

func TestCommentService_DeleteOnlyByCommenter(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	p := h.createPost(t, "U1", "Permisos")

	c, err := h.comments.Add(ctx, p.ID, "U2", "", "mío")
	require.NoError(t, err)

	// 帖子作者也不能删别人的评论
	assert.ErrorIs(t, h.comments.Delete(ctx, c.ID, "U1"), ErrForbidden)
	assert.ErrorIs(t, h.comments.Delete(ctx, "missing", "U2"), ErrCommentNotFound)
	require.NoError(t, h.comments.Delete(ctx, c.ID, "U2"))

	list, err := h.comments.ListFor(ctx, p.ID, "U2", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
