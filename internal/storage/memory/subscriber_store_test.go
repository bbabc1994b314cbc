package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-transfer-watch/internal/storage"
)

func TestSubscriberStore_AddListRemove(t *testing.T) {
	ctx := context.Background()
	s := NewSubscriberStore()
	defer s.Close()

	require.NoError(t, s.Add(ctx, 30))
	require.NoError(t, s.Add(ctx, 10))
	require.NoError(t, s.Add(ctx, 20))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids)

	require.NoError(t, s.Remove(ctx, 20))
	ids, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 30}, ids)
}

func TestSubscriberStore_AddIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewSubscriberStore()
	defer s.Close()

	require.NoError(t, s.Add(ctx, 1))
	require.NoError(t, s.Add(ctx, 1))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestSubscriberStore_RemoveUnknown(t *testing.T) {
	s := NewSubscriberStore()
	defer s.Close()

	err := s.Remove(context.Background(), 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
