//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestMunicipalityCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := NewClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	c := NewMunicipalityCache(client, time.Minute)
	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, 26, "Recife")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, 26, "Recife", 2611606))
	code, ok, err := c.Get(ctx, 26, " Recife ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2611606), code)

	ttl, err := client.TTL(ctx, Key(26, "Recife")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, client.Set(ctx, Key(26, "Olinda"), "not-a-number", 0).Err())
	_, _, err = c.Get(ctx, 26, "Olinda")
	assert.ErrorContains(t, err, "corrupt cache entry")
}
