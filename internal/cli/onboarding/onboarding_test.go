package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/captionly-dev/captionly/internal/cli/kvstore"
)

type failingStore struct {
	kvstore.Store
}

func (failingStore) Get(context.Context, string) (string, error) {
	return "", errors.New("keychain locked")
}

func TestFlag(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	flag := NewFlag(store)

	done, err := flag.Completed(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, flag.Complete(ctx))

	done, err = flag.Completed(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	value, err := store.Get(ctx, kvstore.KeyIntroCompleted)
	require.NoError(t, err)
	assert.Equal(t, "true", value)
}

func TestFlag_OtherValueIsNotDone(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, kvstore.KeyIntroCompleted, "yes"))

	done, err := NewFlag(store).Completed(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestFlag_StorageError(t *testing.T) {
	done, err := NewFlag(failingStore{kvstore.NewMemoryStore()}).Completed(context.Background())
	require.Error(t, err)
	assert.False(t, done)
}

func TestSlides(t *testing.T) {
	require.Len(t, Slides, 4)
	for _, s := range Slides {
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Description)
	}
}
