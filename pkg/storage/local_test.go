package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveAndDelete(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Save(ctx, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.True(t, s.Managed(url))

	file := filepath.Join(s.Dir(), filepath.Base(url))
	_, err = os.Stat(file)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))

	// 重复删除不报错
	assert.NoError(t, s.Delete(ctx, url))
}

func TestLocalStore_Rejects(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Save(ctx, "application/pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	assert.ErrorIs(t, s.Delete(ctx, "https://cdn.example.com/a.png"), ErrNotManaged)
	assert.False(t, s.Managed(""))
}
