package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/d60-Lab/colmena/pkg/storage"
)

func TestImageCleaner_RemovesManagedImages(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)
	url, err := store.Save(context.Background(), "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	file := filepath.Join(store.Dir(), filepath.Base(url))
	require.FileExists(t, file)

	c := NewImageCleaner(store, 8)
	stop := c.Start(2)
	c.Enqueue(url)
	c.Enqueue("https://cdn.example.com/external.png")

	select {
	case <-c.Metrics():
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup not processed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))

	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, c.QueueLen())
}

func TestImageCleaner_DrainsOnStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	c := NewImageCleaner(store, 16)
	var files []string
	for i := 0; i < 5; i++ {
		url, err := store.Save(context.Background(), "image/jpeg", bytes.NewReader([]byte{byte(i)}))
		require.NoError(t, err)
		files = append(files, filepath.Join(store.Dir(), filepath.Base(url)))
		c.Enqueue(url)
	}
	assert.Equal(t, 5, c.QueueLen())

	stop := c.Start(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))

	for _, f := range files {
		assert.NoFileExists(t, f)
	}
}
