package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("consume returns the saved payload once", func(t *testing.T) {
		store := NewInMemoryStateStore()

		payload := InstallState{ShopDomain: "lamps.myshopify.com", CreatedAt: time.Now()}
		require.NoError(t, store.Save(ctx, "state-123", payload, time.Minute))

		got, err := store.Consume(ctx, "state-123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "lamps.myshopify.com", got.ShopDomain)

		// second redemption fails
		got, err = store.Consume(ctx, "state-123")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unknown state yields nil", func(t *testing.T) {
		store := NewInMemoryStateStore()

		got, err := store.Consume(ctx, "never-saved")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("expired state yields nil", func(t *testing.T) {
		store := NewInMemoryStateStore()

		require.NoError(t, store.Save(ctx, "state-123", InstallState{ShopDomain: "lamps.myshopify.com"}, time.Nanosecond))
		time.Sleep(5 * time.Millisecond)

		got, err := store.Consume(ctx, "state-123")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
